package progress

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/phrazzld/scry-progress/internal/store"
)

// Registry hands out one Store per learner, loading each on first use.
type Registry struct {
	mu     sync.Mutex
	stores map[uuid.UUID]*Store
	repo   store.SnapshotRepository
	opts   Options
	logger *slog.Logger
}

// NewRegistry creates a registry whose stores persist through repo.
func NewRegistry(repo store.SnapshotRepository, opts Options) *Registry {
	if repo == nil {
		panic("repo cannot be nil")
	}
	opts = opts.withDefaults()
	return &Registry{
		stores: make(map[uuid.UUID]*Store),
		repo:   repo,
		opts:   opts,
		logger: opts.Logger.With(slog.String("component", "progress_registry")),
	}
}

// Store returns the learner's store, opening it if needed.
func (r *Registry) Store(ctx context.Context, userID uuid.UUID) (*Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.stores[userID]; ok {
		return s, nil
	}

	s, err := Open(ctx, userID, r.repo, r.opts)
	if err != nil {
		return nil, err
	}
	r.stores[userID] = s
	r.logger.Debug("opened progress store", slog.String("user_id", userID.String()))
	return s, nil
}

// Loaded lists the learners whose store is open, in a stable order.
func (r *Registry) Loaded() []uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]uuid.UUID, 0, len(r.stores))
	for id := range r.stores {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// Evict forgets an open store. The next call to Store reloads it.
func (r *Registry) Evict(userID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.stores, userID)
}
