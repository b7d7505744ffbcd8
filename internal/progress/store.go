package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/scry-progress/internal/domain"
	"github.com/phrazzld/scry-progress/internal/domain/srs"
	"github.com/phrazzld/scry-progress/internal/events"
	"github.com/phrazzld/scry-progress/internal/platform/logger"
	"github.com/phrazzld/scry-progress/internal/snapshot"
	"github.com/phrazzld/scry-progress/internal/store"
)

// Options configures a Store. Zero values select the defaults.
type Options struct {
	// Scheduler computes review schedules. Defaults to srs.NewDefaultService().
	Scheduler srs.Service

	// Location defines calendar days for due dates and streaks. Defaults to UTC.
	Location *time.Location

	// MaxAttempts bounds the attempt history per quiz. Defaults to
	// domain.DefaultMaxAttempts.
	MaxAttempts int

	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time

	// Emitter receives an event after every persisted mutation. Optional.
	Emitter events.Emitter

	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Scheduler == nil {
		o.Scheduler = srs.NewDefaultService()
	}
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = domain.DefaultMaxAttempts
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}

// Store is the progress aggregate of a single learner. It is safe for
// concurrent use; mutations are serialized.
type Store struct {
	mu     sync.Mutex
	userID uuid.UUID
	state  *snapshot.State

	repo      store.SnapshotRepository
	scheduler srs.Service
	loc       *time.Location
	maxAtt    int
	now       func() time.Time
	emitter   events.Emitter
	logger    *slog.Logger
}

// Open loads the learner's snapshot from repo, or starts from an empty
// state when none was saved. A snapshot that cannot be decoded fails with
// domain.ErrPersistence.
func Open(ctx context.Context, userID uuid.UUID, repo store.SnapshotRepository, opts Options) (*Store, error) {
	if repo == nil {
		panic("repo cannot be nil")
	}
	opts = opts.withDefaults()

	s := &Store{
		userID:    userID,
		repo:      repo,
		scheduler: opts.Scheduler,
		loc:       opts.Location,
		maxAtt:    opts.MaxAttempts,
		now:       opts.Clock,
		emitter:   opts.Emitter,
		logger: opts.Logger.With(
			slog.String("component", "progress_store"),
			slog.String("user_id", userID.String()),
		),
	}

	data, err := repo.Load(ctx, userID)
	switch {
	case errors.Is(err, store.ErrSnapshotNotFound):
		s.state = snapshot.New()
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("%w: load snapshot: %v", domain.ErrPersistence, err)
	}

	st, err := snapshot.Decode(data)
	if err != nil {
		s.logger.Error("stored snapshot is unreadable", slog.String("error", err.Error()))
		return nil, err
	}
	s.state = st
	return s, nil
}

// UserID returns the learner the store belongs to.
func (s *Store) UserID() uuid.UUID {
	return s.userID
}

// Location returns the time zone used for calendar-day computations.
func (s *Store) Location() *time.Location {
	return s.loc
}

// Now returns the current time in the store's location.
func (s *Store) Now() time.Time {
	return s.now().In(s.loc)
}

// MaxAttempts returns the bound on the attempt history kept per quiz.
func (s *Store) MaxAttempts() int {
	return s.maxAtt
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() *snapshot.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Update applies fn to a copy of the state and persists the result. If fn
// or persistence fails the state is left unchanged. No event is emitted;
// Update is meant for reconciliation, not for learner activity.
func (s *Store) Update(ctx context.Context, fn func(st *snapshot.State) error) error {
	return s.apply(ctx, "", func(next *snapshot.State, _ time.Time) (any, error) {
		return nil, fn(next)
	})
}

// apply runs the clone, mutate, persist, swap cycle and emits eventType
// once the new state is visible. fn returning ErrUnchanged skips the save.
func (s *Store) apply(
	ctx context.Context,
	eventType string,
	fn func(next *snapshot.State, now time.Time) (any, error),
) error {
	s.mu.Lock()

	next := s.state.Clone()
	payload, err := fn(next, s.now())
	if err != nil {
		s.mu.Unlock()
		if errors.Is(err, ErrUnchanged) {
			return nil
		}
		return err
	}

	if err := s.persist(ctx, next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.state = next
	s.mu.Unlock()

	if eventType != "" {
		s.emit(ctx, eventType, payload)
	}
	return nil
}

// ErrUnchanged may be returned by an Update func when there is nothing to
// save. Update then returns nil.
var ErrUnchanged = errors.New("state unchanged")

func (s *Store) persist(ctx context.Context, next *snapshot.State) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	data, err := snapshot.Encode(next)
	if err != nil {
		log.Error("failed to encode snapshot", slog.String("error", err.Error()))
		return err
	}
	if err := s.repo.Save(ctx, s.userID, data); err != nil {
		log.Error("failed to save snapshot", slog.String("error", err.Error()))
		return fmt.Errorf("%w: save snapshot: %v", domain.ErrPersistence, err)
	}
	return nil
}

func (s *Store) emit(ctx context.Context, eventType string, payload any) {
	if s.emitter == nil {
		return
	}
	event, err := events.NewEvent(eventType, s.userID, payload)
	if err != nil {
		s.logger.Warn("failed to build event",
			slog.String("event_type", eventType),
			slog.String("error", err.Error()))
		return
	}
	if err := s.emitter.Emit(ctx, event); err != nil {
		s.logger.Warn("event handler failed",
			slog.String("event_type", eventType),
			slog.String("error", err.Error()))
	}
}
