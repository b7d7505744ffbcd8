package store

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// SnapshotRepository is the local durable key-value store holding one
// encoded progress snapshot per learner.
type SnapshotRepository interface {
	// Load returns the latest snapshot, or ErrSnapshotNotFound if none was saved.
	Load(ctx context.Context, userID uuid.UUID) ([]byte, error)

	// Save replaces the learner's snapshot atomically.
	Save(ctx context.Context, userID uuid.UUID, data []byte) error

	// Delete removes the learner's snapshot. Deleting a missing snapshot is not an error.
	Delete(ctx context.Context, userID uuid.UUID) error
}

// MemorySnapshotRepository keeps snapshots in process memory. It is used by
// tests and by the CLI when no local database is configured.
type MemorySnapshotRepository struct {
	mu   sync.RWMutex
	data map[uuid.UUID][]byte
}

var _ SnapshotRepository = (*MemorySnapshotRepository)(nil)

// NewMemorySnapshotRepository returns an empty in-memory repository.
func NewMemorySnapshotRepository() *MemorySnapshotRepository {
	return &MemorySnapshotRepository{data: make(map[uuid.UUID][]byte)}
}

// Load implements SnapshotRepository.
func (r *MemorySnapshotRepository) Load(ctx context.Context, userID uuid.UUID) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	data, ok := r.data[userID]
	if !ok {
		return nil, ErrSnapshotNotFound
	}
	return append([]byte(nil), data...), nil
}

// Save implements SnapshotRepository.
func (r *MemorySnapshotRepository) Save(ctx context.Context, userID uuid.UUID, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.data[userID] = append([]byte(nil), data...)
	return nil
}

// Delete implements SnapshotRepository.
func (r *MemorySnapshotRepository) Delete(ctx context.Context, userID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.data, userID)
	return nil
}
