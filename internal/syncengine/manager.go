package syncengine

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/phrazzld/scry-progress/internal/events"
	"github.com/phrazzld/scry-progress/internal/store"
)

// Manager owns one Engine per learner. Engines are created on first use.
type Manager struct {
	mu      sync.Mutex
	engines map[uuid.UUID]*Engine

	stores   StoreSource
	remote   store.RemoteStore
	cfg      Config
	autoSync bool
	opts     []Option
	logger   *slog.Logger
}

// NewManager creates a Manager. When autoSync is true every engine starts
// its timer as soon as it is created.
func NewManager(stores StoreSource, remote store.RemoteStore, cfg Config, autoSync bool, logger *slog.Logger, opts ...Option) *Manager {
	if stores == nil || remote == nil {
		panic("syncengine: stores and remote are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		engines:  make(map[uuid.UUID]*Engine),
		stores:   stores,
		remote:   remote,
		cfg:      cfg,
		autoSync: autoSync,
		opts:     append(opts, WithLogger(logger)),
		logger:   logger.With(slog.String("component", "sync_manager")),
	}
}

// Engine returns the learner's engine, creating it if needed.
func (m *Manager) Engine(userID uuid.UUID) (*Engine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.engines[userID]; ok {
		return e, nil
	}

	e := New(StaticUser(userID), m.stores, m.remote, m.cfg, m.opts...)
	if m.autoSync {
		if err := e.StartAutoSync(); err != nil {
			return nil, err
		}
	}
	m.engines[userID] = e
	return e, nil
}

// SyncAll runs a pass for the learner and waits for it.
func (m *Manager) SyncAll(ctx context.Context, userID uuid.UUID) (Result, error) {
	e, err := m.Engine(userID)
	if err != nil {
		return Result{}, err
	}
	return e.SyncAll(ctx), nil
}

// HandleEvent implements events.Handler. Progress changes of a learner
// request a background pass for that learner when auto-sync is on.
func (m *Manager) HandleEvent(ctx context.Context, event *events.Event) error {
	if !m.autoSync || event.UserID == uuid.Nil || !strings.HasPrefix(event.Type, events.PrefixProgress) {
		return nil
	}
	e, err := m.Engine(event.UserID)
	if err != nil {
		m.logger.Warn("failed to start sync engine",
			slog.String("user_id", event.UserID.String()),
			slog.String("error", err.Error()))
		return nil
	}
	return e.HandleEvent(ctx, event)
}

// StopAll stops every engine and waits for background passes to return.
func (m *Manager) StopAll() {
	m.mu.Lock()
	engines := make([]*Engine, 0, len(m.engines))
	for _, e := range m.engines {
		engines = append(engines, e)
	}
	m.mu.Unlock()

	for _, e := range engines {
		e.StopAutoSync()
	}
	for _, e := range engines {
		e.Wait()
	}
	m.logger.Info("sync engines stopped", slog.Int("count", len(engines)))
}
