package syncengine

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/scry-progress/internal/events"
	"github.com/phrazzld/scry-progress/internal/progress"
	"github.com/phrazzld/scry-progress/internal/store"
)

func newTestManager(t *testing.T, autoSync bool) (*Manager, *fakeRemote) {
	t.Helper()
	registry := progress.NewRegistry(store.NewMemorySnapshotRepository(), progress.Options{Logger: discardLogger()})
	remote := newFakeRemote()
	m := NewManager(registry, remote, testConfig(), autoSync, discardLogger())
	t.Cleanup(m.StopAll)
	return m, remote
}

func TestManager_OneEnginePerUser(t *testing.T) {
	m, _ := newTestManager(t, false)
	alice, bob := uuid.New(), uuid.New()

	a1, err := m.Engine(alice)
	require.NoError(t, err)
	a2, err := m.Engine(alice)
	require.NoError(t, err)
	b, err := m.Engine(bob)
	require.NoError(t, err)

	assert.Same(t, a1, a2)
	assert.NotSame(t, a1, b)
	assert.False(t, a1.AutoSyncing())
}

func TestManager_SyncAllIsolatesUsers(t *testing.T) {
	m, remote := newTestManager(t, false)
	alice, bob := uuid.New(), uuid.New()

	res, err := m.SyncAll(context.Background(), alice)
	require.NoError(t, err)
	require.True(t, res.Success, res.ErrorMessages())

	_, hasAlice := remote.prefs[alice]
	_, hasBob := remote.prefs[bob]
	assert.True(t, hasAlice)
	assert.False(t, hasBob)
}

func TestManager_HandleEventTriggersSync(t *testing.T) {
	m, remote := newTestManager(t, true)
	userID := uuid.New()

	ignored, err := events.NewEvent(events.TypeSyncCompleted, userID, nil)
	require.NoError(t, err)
	require.NoError(t, m.HandleEvent(context.Background(), ignored))
	assert.Empty(t, remote.callLog())

	changed, err := events.NewEvent(events.TypeReviewRecorded, userID, nil)
	require.NoError(t, err)
	require.NoError(t, m.HandleEvent(context.Background(), changed))

	require.Eventually(t, func() bool {
		return remote.count("GetXP") >= 1
	}, 2*time.Second, 5*time.Millisecond)

	e, err := m.Engine(userID)
	require.NoError(t, err)
	assert.True(t, e.AutoSyncing())
}

func TestManager_HandleEventWithoutAutoSync(t *testing.T) {
	m, remote := newTestManager(t, false)

	event, err := events.NewEvent(events.TypeReviewRecorded, uuid.New(), nil)
	require.NoError(t, err)
	require.NoError(t, m.HandleEvent(context.Background(), event))

	assert.Empty(t, remote.callLog())
}
