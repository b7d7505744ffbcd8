package postgres

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"

	"github.com/phrazzld/scry-progress/internal/platform/logger"
	"github.com/phrazzld/scry-progress/internal/store"
)

// ListProgress implements store.RemoteStore.
func (s *RemoteStore) ListProgress(ctx context.Context, userID uuid.UUID, entityType string) ([]store.ProgressRow, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, entity_type, entity_id, progress, metadata, updated_at
		FROM user_progress
		WHERE user_id = $1 AND entity_type = $2
		ORDER BY entity_id`, userID, entityType)
	if err != nil {
		err = MapError(err)
		log.Error("failed to list progress",
			slog.String("user_id", userID.String()),
			slog.String("entity_type", entityType),
			slog.String("error", err.Error()))
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []store.ProgressRow
	for rows.Next() {
		var r store.ProgressRow
		var metadata []byte
		if err := rows.Scan(&r.UserID, &r.EntityType, &r.EntityID, &r.Progress, &metadata, &r.UpdatedAt); err != nil {
			return nil, MapError(err)
		}
		r.Metadata = metadata
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return out, nil
}

// UpsertProgress implements store.RemoteStore. All rows are written in one
// transaction.
func (s *RemoteStore) UpsertProgress(ctx context.Context, rows []store.ProgressRow) error {
	if len(rows) == 0 {
		return nil
	}
	log := logger.FromContextOrDefault(ctx, s.logger)

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		for _, r := range rows {
			metadata := []byte(r.Metadata)
			if len(metadata) == 0 {
				metadata = []byte("{}")
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO user_progress (user_id, entity_type, entity_id, progress, metadata, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (user_id, entity_type, entity_id) DO UPDATE SET
					progress = EXCLUDED.progress,
					metadata = EXCLUDED.metadata,
					updated_at = EXCLUDED.updated_at`,
				r.UserID, r.EntityType, r.EntityID, r.Progress, metadata, r.UpdatedAt,
			); err != nil {
				return MapError(err)
			}
		}
		return nil
	})
	if err != nil {
		log.Error("failed to upsert progress",
			slog.Int("rows", len(rows)),
			slog.String("error", err.Error()))
		return err
	}

	log.Debug("progress upserted", slog.Int("rows", len(rows)))
	return nil
}
