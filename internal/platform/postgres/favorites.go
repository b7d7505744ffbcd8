package postgres

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"

	"github.com/phrazzld/scry-progress/internal/platform/logger"
	"github.com/phrazzld/scry-progress/internal/store"
)

// ListFavorites implements store.RemoteStore.
func (s *RemoteStore) ListFavorites(ctx context.Context, userID uuid.UUID) ([]store.FavoriteRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, entity_type, entity_id, notes, tags, created_at
		FROM favorites
		WHERE user_id = $1
		ORDER BY entity_type, entity_id`, userID)
	if err != nil {
		err = MapError(err)
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list favorites",
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()))
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []store.FavoriteRow
	for rows.Next() {
		var r store.FavoriteRow
		var tags []byte
		if err := rows.Scan(&r.UserID, &r.EntityType, &r.EntityID, &r.Notes, &tags, &r.CreatedAt); err != nil {
			return nil, MapError(err)
		}
		if r.Tags, err = decodeTags(tags); err != nil {
			return nil, store.NewStoreError("favorites", "list", "malformed tags", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return out, nil
}

// InsertFavorites implements store.RemoteStore. Rows that already exist
// are left untouched.
func (s *RemoteStore) InsertFavorites(ctx context.Context, rows []store.FavoriteRow) error {
	if len(rows) == 0 {
		return nil
	}
	log := logger.FromContextOrDefault(ctx, s.logger)

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		for _, r := range rows {
			tags, err := encodeTags(r.Tags)
			if err != nil {
				return store.NewStoreError("favorites", "insert", "malformed tags", err)
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO favorites (user_id, entity_type, entity_id, notes, tags, created_at)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (user_id, entity_type, entity_id) DO NOTHING`,
				r.UserID, r.EntityType, r.EntityID, r.Notes, tags, r.CreatedAt,
			); err != nil {
				return MapError(err)
			}
		}
		return nil
	})
	if err != nil {
		log.Error("failed to insert favorites",
			slog.Int("rows", len(rows)),
			slog.String("error", err.Error()))
		return err
	}
	return nil
}
