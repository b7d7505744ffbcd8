package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/phrazzld/scry-progress/internal/platform/logger"
	"github.com/phrazzld/scry-progress/internal/store"
)

// SnapshotStore implements store.SnapshotRepository on SQLite.
type SnapshotStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

var _ store.SnapshotRepository = (*SnapshotStore)(nil)

type snapshotRow struct {
	UserID    string `db:"user_id"`
	Data      []byte `db:"data"`
	UpdatedAt string `db:"updated_at"`
}

// NewSnapshotStore creates a SnapshotStore. If logger is nil, the default
// logger is used.
func NewSnapshotStore(db *sqlx.DB, logger *slog.Logger) *SnapshotStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotStore{
		db:     db,
		logger: logger.With(slog.String("component", "sqlite_snapshot_store")),
	}
}

// Load implements store.SnapshotRepository.
func (s *SnapshotStore) Load(ctx context.Context, userID uuid.UUID) ([]byte, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var row snapshotRow
	err := s.db.GetContext(ctx, &row,
		`SELECT user_id, data, updated_at FROM progress_snapshots WHERE user_id = ?`,
		userID.String())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrSnapshotNotFound
		}
		log.Error("failed to load snapshot",
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()))
		return nil, store.NewStoreError("snapshot", "load", "query failed", err)
	}

	log.Debug("snapshot loaded",
		slog.String("user_id", userID.String()),
		slog.Int("bytes", len(row.Data)))
	return row.Data, nil
}

// Save implements store.SnapshotRepository.
func (s *SnapshotStore) Save(ctx context.Context, userID uuid.UUID, data []byte) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	row := snapshotRow{
		UserID:    userID.String(),
		Data:      data,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO progress_snapshots (user_id, data, updated_at)
		VALUES (:user_id, :data, :updated_at)
		ON CONFLICT (user_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		row)
	if err != nil {
		log.Error("failed to save snapshot",
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()))
		return store.NewStoreError("snapshot", "save", "upsert failed", err)
	}

	log.Debug("snapshot saved",
		slog.String("user_id", userID.String()),
		slog.Int("bytes", len(data)))
	return nil
}

// Delete implements store.SnapshotRepository.
func (s *SnapshotStore) Delete(ctx context.Context, userID uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM progress_snapshots WHERE user_id = ?`, userID.String()); err != nil {
		return store.NewStoreError("snapshot", "delete", "delete failed", err)
	}
	return nil
}

// Users lists the learners that have a saved snapshot.
func (s *SnapshotStore) Users(ctx context.Context) ([]uuid.UUID, error) {
	var ids []string
	if err := s.db.SelectContext(ctx, &ids,
		`SELECT user_id FROM progress_snapshots ORDER BY user_id`); err != nil {
		return nil, store.NewStoreError("snapshot", "list", "query failed", err)
	}

	users := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		u, err := uuid.Parse(id)
		if err != nil {
			s.logger.Warn("skipping snapshot with malformed user id", slog.String("user_id", id))
			continue
		}
		users = append(users, u)
	}
	return users, nil
}
