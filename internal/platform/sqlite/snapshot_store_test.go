package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/scry-progress/internal/store"
)

func openTestStore(t *testing.T) *SnapshotStore {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSnapshotStore(db, nil)
}

func TestSnapshotStoreSaveLoad(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	userID := uuid.New()

	_, err := s.Load(ctx, userID)
	assert.ErrorIs(t, err, store.ErrSnapshotNotFound)

	require.NoError(t, s.Save(ctx, userID, []byte(`{"version":1,"streak":1}`)))
	require.NoError(t, s.Save(ctx, userID, []byte(`{"version":1,"streak":2}`)))

	got, err := s.Load(ctx, userID)
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":1,"streak":2}`, string(got))

	users, err := s.Users(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{userID}, users)

	require.NoError(t, s.Delete(ctx, userID))
	_, err = s.Load(ctx, userID)
	assert.True(t, store.IsNotFoundError(err))
}

func TestSnapshotStoreIsolatesUsers(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	alice, bob := uuid.New(), uuid.New()

	require.NoError(t, s.Save(ctx, alice, []byte(`"alice"`)))
	require.NoError(t, s.Save(ctx, bob, []byte(`"bob"`)))

	got, err := s.Load(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, `"alice"`, string(got))

	users, err := s.Users(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestOpenFileDatabasePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "progress.db")
	userID := uuid.New()

	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, NewSnapshotStore(db, nil).Save(ctx, userID, []byte(`{}`)))
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	got, err := NewSnapshotStore(db, nil).Load(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(got))
}

func TestNewSnapshotStoreNilDB(t *testing.T) {
	assert.Panics(t, func() { NewSnapshotStore(nil, nil) })
}
