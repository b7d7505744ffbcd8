package progress

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/scry-progress/internal/store"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{t: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// failingRepo fails every Save once fail is set.
type failingRepo struct {
	*store.MemorySnapshotRepository
	fail bool
}

func (r *failingRepo) Save(ctx context.Context, userID uuid.UUID, data []byte) error {
	if r.fail {
		return errors.New("disk full")
	}
	return r.MemorySnapshotRepository.Save(ctx, userID, data)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T, clock *fakeClock) (*Store, *store.MemorySnapshotRepository) {
	t.Helper()
	repo := store.NewMemorySnapshotRepository()
	s, err := Open(context.Background(), uuid.New(), repo, Options{
		Clock:  clock.Now,
		Logger: discardLogger(),
	})
	require.NoError(t, err)
	return s, repo
}
