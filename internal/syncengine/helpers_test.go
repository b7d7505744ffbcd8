package syncengine

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/scry-progress/internal/domain"
	"github.com/phrazzld/scry-progress/internal/progress"
	"github.com/phrazzld/scry-progress/internal/store"
)

// t0 carries nanoseconds so that the microsecond truncation of the fake
// remote store is exercised.
var t0 = time.Date(2026, 3, 10, 9, 30, 0, 123, time.UTC)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeRemote is an in-memory store.RemoteStore. Like PostgreSQL it keeps
// timestamps at microsecond precision.
type fakeRemote struct {
	mu        sync.Mutex
	prefs     map[uuid.UUID]store.PreferencesRow
	progress  map[string]store.ProgressRow
	favorites map[string]store.FavoriteRow
	notes     map[uuid.UUID]store.NoteRow
	xp        map[uuid.UUID]store.XPRow

	calls    []string
	failures map[string]int
	hooks    map[string]func(ctx context.Context) error
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		prefs:     make(map[uuid.UUID]store.PreferencesRow),
		progress:  make(map[string]store.ProgressRow),
		favorites: make(map[string]store.FavoriteRow),
		notes:     make(map[uuid.UUID]store.NoteRow),
		xp:        make(map[uuid.UUID]store.XPRow),
		failures:  make(map[string]int),
		hooks:     make(map[string]func(ctx context.Context) error),
	}
}

var _ store.RemoteStore = (*fakeRemote)(nil)

func (f *fakeRemote) enter(ctx context.Context, op string) error {
	f.mu.Lock()
	f.calls = append(f.calls, op)
	hook := f.hooks[op]
	fail := f.failures[op] > 0
	if fail {
		f.failures[op]--
	}
	f.mu.Unlock()

	if hook != nil {
		if err := hook(ctx); err != nil {
			return err
		}
	}
	if fail {
		return store.ErrUnavailable
	}
	return nil
}

func (f *fakeRemote) setHook(op string, hook func(ctx context.Context) error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hooks[op] = hook
}

func (f *fakeRemote) failNext(op string, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = n
}

func (f *fakeRemote) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeRemote) count(op string) int {
	n := 0
	for _, c := range f.callLog() {
		if c == op {
			n++
		}
	}
	return n
}

func (f *fakeRemote) resetCalls() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

func micro(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

func progressKey(userID uuid.UUID, entityType, entityID string) string {
	return userID.String() + "/" + domain.EntityKey(entityType, entityID)
}

func (f *fakeRemote) GetPreferences(ctx context.Context, userID uuid.UUID) (*store.PreferencesRow, error) {
	if err := f.enter(ctx, "GetPreferences"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.prefs[userID]
	if !ok {
		return nil, store.ErrPreferencesNotFound
	}
	return &row, nil
}

func (f *fakeRemote) UpsertPreferences(ctx context.Context, row *store.PreferencesRow) error {
	if err := f.enter(ctx, "UpsertPreferences"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	r := *row
	r.UpdatedAt = micro(r.UpdatedAt)
	f.prefs[r.UserID] = r
	return nil
}

func (f *fakeRemote) ListProgress(ctx context.Context, userID uuid.UUID, entityType string) ([]store.ProgressRow, error) {
	if err := f.enter(ctx, "ListProgress:"+entityType); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var rows []store.ProgressRow
	for _, r := range f.progress {
		if r.UserID == userID && r.EntityType == entityType {
			rows = append(rows, r)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].EntityID < rows[j].EntityID })
	return rows, nil
}

func (f *fakeRemote) UpsertProgress(ctx context.Context, rows []store.ProgressRow) error {
	if err := f.enter(ctx, "UpsertProgress"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range rows {
		r.UpdatedAt = micro(r.UpdatedAt)
		f.progress[progressKey(r.UserID, r.EntityType, r.EntityID)] = r
	}
	return nil
}

func (f *fakeRemote) ListFavorites(ctx context.Context, userID uuid.UUID) ([]store.FavoriteRow, error) {
	if err := f.enter(ctx, "ListFavorites"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var rows []store.FavoriteRow
	for _, r := range f.favorites {
		if r.UserID == userID {
			rows = append(rows, r)
		}
	}
	return rows, nil
}

func (f *fakeRemote) InsertFavorites(ctx context.Context, rows []store.FavoriteRow) error {
	if err := f.enter(ctx, "InsertFavorites"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range rows {
		key := progressKey(r.UserID, r.EntityType, r.EntityID)
		if _, ok := f.favorites[key]; ok {
			continue
		}
		r.CreatedAt = micro(r.CreatedAt)
		f.favorites[key] = r
	}
	return nil
}

func (f *fakeRemote) ListNotes(ctx context.Context, userID uuid.UUID) ([]store.NoteRow, error) {
	if err := f.enter(ctx, "ListNotes"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var rows []store.NoteRow
	for _, r := range f.notes {
		if r.UserID == userID {
			rows = append(rows, r)
		}
	}
	return rows, nil
}

func (f *fakeRemote) UpsertNotes(ctx context.Context, rows []store.NoteRow) error {
	if err := f.enter(ctx, "UpsertNotes"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range rows {
		r.UpdatedAt = micro(r.UpdatedAt)
		f.notes[r.ID] = r
	}
	return nil
}

func (f *fakeRemote) GetXP(ctx context.Context, userID uuid.UUID) (*store.XPRow, error) {
	if err := f.enter(ctx, "GetXP"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.xp[userID]
	if !ok {
		return nil, store.ErrXPNotFound
	}
	return &row, nil
}

type fixture struct {
	engine   *Engine
	remote   *fakeRemote
	registry *progress.Registry
	clock    *fakeClock
	userID   uuid.UUID
}

func testConfig() Config {
	return Config{
		Interval:          50 * time.Millisecond,
		CollectionTimeout: time.Second,
		MaxRetries:        3,
		RetryBaseDelay:    time.Millisecond,
		ConflictPolicy:    PolicyLatest,
	}
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	clock := &fakeClock{t: t0}
	registry := progress.NewRegistry(store.NewMemorySnapshotRepository(), progress.Options{
		Clock:  clock.Now,
		Logger: discardLogger(),
	})
	remote := newFakeRemote()
	userID := uuid.New()
	engine := New(StaticUser(userID), registry, remote, cfg,
		WithClock(clock.Now),
		WithLogger(discardLogger()),
	)
	t.Cleanup(func() {
		engine.StopAutoSync()
		engine.Wait()
	})
	return &fixture{
		engine:   engine,
		remote:   remote,
		registry: registry,
		clock:    clock,
		userID:   userID,
	}
}

func (f *fixture) store(t *testing.T) *progress.Store {
	t.Helper()
	s, err := f.registry.Store(context.Background(), f.userID)
	require.NoError(t, err)
	return s
}
