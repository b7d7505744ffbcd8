package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNotFoundError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"generic error", errors.New("some error"), false},
		{"ErrNotFound", ErrNotFound, true},
		{"wrapped ErrNotFound", fmt.Errorf("load: %w", ErrNotFound), true},
		{"ErrSnapshotNotFound", ErrSnapshotNotFound, true},
		{"ErrPreferencesNotFound", ErrPreferencesNotFound, true},
		{"ErrXPNotFound in StoreError", NewStoreError("xp", "get", "no row", ErrXPNotFound), true},
		{"ErrDuplicate", ErrDuplicate, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsNotFoundError(tt.err))
		})
	}
}

func TestStoreError(t *testing.T) {
	t.Parallel()

	cause := errors.New("disk full")
	err := NewStoreError("snapshot", "save", "write failed", cause)

	assert.Equal(t, "save operation on snapshot failed: write failed: disk full", err.Error())
	assert.ErrorIs(t, err, cause)

	var storeErr *StoreError
	assert.True(t, errors.As(fmt.Errorf("outer: %w", err), &storeErr))
	assert.Equal(t, "snapshot", storeErr.Entity)

	bare := NewStoreError("notes", "upsert", "no rows affected", nil)
	assert.Equal(t, "upsert operation on notes failed: no rows affected", bare.Error())
	assert.Nil(t, bare.Unwrap())
}
