package syncengine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/phrazzld/scry-progress/internal/config"
	"github.com/phrazzld/scry-progress/internal/domain"
	"github.com/phrazzld/scry-progress/internal/events"
	"github.com/phrazzld/scry-progress/internal/platform/logger"
	"github.com/phrazzld/scry-progress/internal/progress"
	"github.com/phrazzld/scry-progress/internal/snapshot"
	"github.com/phrazzld/scry-progress/internal/store"
)

// State is the engine's position in the Idle, Syncing, Queued cycle.
type State int

// Engine states.
const (
	StateIdle State = iota
	StateSyncing
	StateQueued
)

func (s State) String() string {
	switch s {
	case StateSyncing:
		return "syncing"
	case StateQueued:
		return "queued"
	default:
		return "idle"
	}
}

// Default tuning values.
const (
	DefaultInterval          = 30 * time.Second
	DefaultCollectionTimeout = 10 * time.Second
	DefaultMaxRetries        = 3
	DefaultRetryBaseDelay    = 200 * time.Millisecond
)

// Config tunes an Engine. Zero values select the defaults.
type Config struct {
	Interval          time.Duration
	CollectionTimeout time.Duration
	MaxRetries        uint64
	RetryBaseDelay    time.Duration
	ConflictPolicy    ConflictPolicy
}

// ConfigFrom converts the application configuration.
func ConfigFrom(cfg config.SyncConfig) (Config, error) {
	policy, err := ParseConflictPolicy(cfg.ConflictPolicy)
	if err != nil {
		return Config{}, err
	}
	return Config{
		Interval:          cfg.Interval,
		CollectionTimeout: cfg.CollectionTimeout,
		MaxRetries:        cfg.MaxRetries,
		RetryBaseDelay:    cfg.RetryBaseDelay,
		ConflictPolicy:    policy,
	}, nil
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.CollectionTimeout <= 0 {
		c.CollectionTimeout = DefaultCollectionTimeout
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = DefaultRetryBaseDelay
	}
	if c.ConflictPolicy == "" {
		c.ConflictPolicy = PolicyLatest
	}
	return c
}

// UserProvider supplies the learner whose data is synchronized.
type UserProvider interface {
	UserID(ctx context.Context) (uuid.UUID, error)
}

// StaticUser is a UserProvider for a fixed learner.
type StaticUser uuid.UUID

// UserID implements UserProvider.
func (u StaticUser) UserID(context.Context) (uuid.UUID, error) {
	if uuid.UUID(u) == uuid.Nil {
		return uuid.Nil, errors.New("no user signed in")
	}
	return uuid.UUID(u), nil
}

// StoreSource resolves the progress store of a learner. *progress.Registry
// implements it.
type StoreSource interface {
	Store(ctx context.Context, userID uuid.UUID) (*progress.Store, error)
}

// Engine synchronizes one learner's progress with the remote store.
type Engine struct {
	users   UserProvider
	stores  StoreSource
	remote  store.RemoteStore
	cfg     Config
	emitter events.Emitter
	now     func() time.Time
	logger  *slog.Logger

	mu        sync.Mutex
	state     State
	inflight  context.CancelFunc
	scheduler *gocron.Scheduler
	wg        sync.WaitGroup
}

// Option customizes an Engine.
type Option func(*Engine)

// WithEmitter publishes sync.completed and sync.failed events.
func WithEmitter(emitter events.Emitter) Option {
	return func(e *Engine) { e.emitter = emitter }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the engine's logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an idle Engine. Auto-sync is off until StartAutoSync.
func New(users UserProvider, stores StoreSource, remote store.RemoteStore, cfg Config, opts ...Option) *Engine {
	if users == nil || stores == nil || remote == nil {
		panic("syncengine: users, stores and remote are required")
	}
	e := &Engine{
		users:  users,
		stores: stores,
		remote: remote,
		cfg:    cfg.withDefaults(),
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(slog.String("component", "sync_engine"))
	return e
}

// State returns the engine's current state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// SyncAll runs one pass and returns its result. If a pass is already
// running, the request is queued and SyncAll returns at once with
// ErrSyncInProgress in Errors. Errors never escape as a return value.
func (e *Engine) SyncAll(ctx context.Context) Result {
	e.mu.Lock()
	if e.state != StateIdle {
		e.state = StateQueued
		e.mu.Unlock()
		e.logger.Debug("sync requested while running; queued")
		return Result{Errors: []error{ErrSyncInProgress}}
	}
	e.state = StateSyncing
	passCtx, cancel := context.WithCancel(ctx)
	e.inflight = cancel
	e.mu.Unlock()

	res := e.runPass(passCtx)
	cancel()
	e.finish()
	return res
}

// Trigger requests a pass without waiting for it. It starts one in the
// background when idle and queues one otherwise.
func (e *Engine) Trigger() {
	e.mu.Lock()
	if e.state != StateIdle {
		e.state = StateQueued
		e.mu.Unlock()
		return
	}
	e.state = StateSyncing
	e.startBackgroundLocked()
	e.mu.Unlock()
}

// finish moves the engine back to Idle, or runs the queued pass.
func (e *Engine) finish() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.inflight = nil
	if e.state == StateQueued {
		e.state = StateSyncing
		e.startBackgroundLocked()
		return
	}
	e.state = StateIdle
}

// startBackgroundLocked runs a pass on its own goroutine. e.mu must be held
// and the state already set to Syncing.
func (e *Engine) startBackgroundLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	e.inflight = cancel
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer cancel()
		res := e.runPass(ctx)
		if !res.Success {
			e.logger.Warn("background sync finished with errors",
				slog.Any("errors", res.ErrorMessages()))
		}
		e.finish()
	}()
}

// Wait blocks until no background pass is running.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// StartAutoSync runs a pass every configured interval until StopAutoSync.
// Starting an engine that is already running does nothing.
func (e *Engine) StartAutoSync() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.scheduler != nil {
		return nil
	}

	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	if _, err := s.Every(e.cfg.Interval).WaitForSchedule().Do(e.Trigger); err != nil {
		return fmt.Errorf("schedule auto-sync: %w", err)
	}
	s.StartAsync()
	e.scheduler = s

	e.logger.Info("auto-sync started", slog.Duration("interval", e.cfg.Interval))
	return nil
}

// StopAutoSync stops the timer, cancels the running pass and drops a
// queued one.
func (e *Engine) StopAutoSync() {
	e.mu.Lock()
	s := e.scheduler
	e.scheduler = nil
	if e.inflight != nil {
		e.inflight()
	}
	if e.state == StateQueued {
		e.state = StateSyncing
	}
	e.mu.Unlock()

	if s != nil {
		s.Stop()
		e.logger.Info("auto-sync stopped")
	}
}

// AutoSyncing reports whether the timer is running.
func (e *Engine) AutoSyncing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scheduler != nil
}

// HandleEvent implements events.Handler: local progress changes trigger a
// pass while auto-sync is on.
func (e *Engine) HandleEvent(_ context.Context, _ *events.Event) error {
	if e.AutoSyncing() {
		e.Trigger()
	}
	return nil
}

type collectionFunc func(ctx context.Context, userID uuid.UUID, st *progress.Store, res *Result) error

func (e *Engine) collections() []struct {
	name string
	fn   collectionFunc
} {
	return []struct {
		name string
		fn   collectionFunc
	}{
		{CollectionPreferences, e.syncPreferences},
		{CollectionProgress, e.syncProgress},
		{CollectionQuizzes, e.syncQuizzes},
		{CollectionFavorites, e.syncFavorites},
		{CollectionNotes, e.syncNotes},
		{CollectionXP, e.syncXP},
	}
}

func (e *Engine) runPass(ctx context.Context) Result {
	res := Result{StartedAt: e.now()}
	log := logger.FromContextOrDefault(ctx, e.logger)

	userID, err := e.users.UserID(ctx)
	if err != nil {
		res.fail(collectionSession, err)
		return e.complete(ctx, uuid.Nil, nil, res)
	}
	log = log.With(slog.String("user_id", userID.String()))

	st, err := e.stores.Store(ctx, userID)
	if err != nil {
		res.fail(collectionSession, err)
		return e.complete(ctx, userID, nil, res)
	}

	for _, c := range e.collections() {
		if err := ctx.Err(); err != nil {
			res.fail(c.name, fmt.Errorf("%w: %w", domain.ErrNetwork, err))
			continue
		}

		cctx, cancel := context.WithTimeout(ctx, e.cfg.CollectionTimeout)
		before := res.Synced
		err := c.fn(cctx, userID, st, &res)
		cancel()

		if err != nil {
			log.Warn("collection sync failed",
				slog.String("collection", c.name),
				slog.String("error", err.Error()))
			res.fail(c.name, err)
			continue
		}
		log.Debug("collection synced",
			slog.String("collection", c.name),
			slog.Int("synced", res.Synced-before))
	}

	return e.complete(ctx, userID, st, res)
}

func (e *Engine) complete(ctx context.Context, userID uuid.UUID, st *progress.Store, res Result) Result {
	res.FinishedAt = e.now()
	res.Success = len(res.Errors) == 0

	if st != nil && !res.failed() {
		finished := res.FinishedAt
		if err := st.Update(context.WithoutCancel(ctx), func(s *snapshot.State) error {
			s.LastSyncedAt = &finished
			return nil
		}); err != nil {
			res.fail(collectionSession, err)
			res.Success = false
		}
	}

	eventType := events.TypeSyncCompleted
	if !res.Success {
		eventType = events.TypeSyncFailed
	}
	e.logger.Info("sync pass finished",
		slog.String("user_id", userID.String()),
		slog.Bool("success", res.Success),
		slog.Int("synced", res.Synced),
		slog.Int("conflicts", res.Conflicts),
		slog.Int("errors", len(res.Errors)),
		slog.Duration("duration", res.FinishedAt.Sub(res.StartedAt)))

	if e.emitter != nil {
		event, err := events.NewEvent(eventType, userID, map[string]any{
			"synced":    res.Synced,
			"conflicts": res.Conflicts,
			"errors":    res.ErrorMessages(),
		})
		if err == nil {
			_ = e.emitter.Emit(ctx, event)
		}
	}
	return res
}

// call runs one remote operation, retrying while the store is unreachable.
// Exhausted retries and timeouts are reported as domain.ErrNetwork.
func (e *Engine) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(e.cfg.MaxRetries, retry.NewExponential(e.cfg.RetryBaseDelay))

	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		if err != nil && retryable(err) {
			logger.FromContextOrDefault(ctx, e.logger).Debug("remote call failed; retrying",
				slog.String("op", op),
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()))
			return retry.RetryableError(err)
		}
		return err
	})
	if err == nil {
		return nil
	}
	if retryable(err) || ctx.Err() != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrNetwork, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func retryable(err error) bool {
	return errors.Is(err, store.ErrUnavailable) ||
		errors.Is(err, domain.ErrNetwork) ||
		errors.Is(err, context.DeadlineExceeded)
}
