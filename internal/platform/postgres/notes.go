package postgres

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"

	"github.com/phrazzld/scry-progress/internal/platform/logger"
	"github.com/phrazzld/scry-progress/internal/store"
)

// ListNotes implements store.RemoteStore.
func (s *RemoteStore) ListNotes(ctx context.Context, userID uuid.UUID) ([]store.NoteRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, entity_type, entity_id, title, content, tags, updated_at
		FROM notes
		WHERE user_id = $1
		ORDER BY updated_at DESC`, userID)
	if err != nil {
		err = MapError(err)
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list notes",
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()))
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []store.NoteRow
	for rows.Next() {
		var r store.NoteRow
		var tags []byte
		if err := rows.Scan(&r.ID, &r.UserID, &r.EntityType, &r.EntityID,
			&r.Title, &r.Content, &tags, &r.UpdatedAt); err != nil {
			return nil, MapError(err)
		}
		if r.Tags, err = decodeTags(tags); err != nil {
			return nil, store.NewStoreError("notes", "list", "malformed tags", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return out, nil
}

// UpsertNotes implements store.RemoteStore. A note is only ever updated by
// its owner; the WHERE clause keeps another user's row with the same ID
// untouched.
func (s *RemoteStore) UpsertNotes(ctx context.Context, rows []store.NoteRow) error {
	if len(rows) == 0 {
		return nil
	}
	log := logger.FromContextOrDefault(ctx, s.logger)

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		for _, r := range rows {
			tags, err := encodeTags(r.Tags)
			if err != nil {
				return store.NewStoreError("notes", "upsert", "malformed tags", err)
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO notes (id, user_id, entity_type, entity_id, title, content, tags, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				ON CONFLICT (id) DO UPDATE SET
					entity_type = EXCLUDED.entity_type,
					entity_id = EXCLUDED.entity_id,
					title = EXCLUDED.title,
					content = EXCLUDED.content,
					tags = EXCLUDED.tags,
					updated_at = EXCLUDED.updated_at
				WHERE notes.user_id = EXCLUDED.user_id`,
				r.ID, r.UserID, r.EntityType, r.EntityID, r.Title, r.Content, tags, r.UpdatedAt,
			); err != nil {
				return MapError(err)
			}
		}
		return nil
	})
	if err != nil {
		log.Error("failed to upsert notes",
			slog.Int("rows", len(rows)),
			slog.String("error", err.Error()))
		return err
	}
	return nil
}
