package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/phrazzld/scry-progress/internal/platform/logger"
	"github.com/phrazzld/scry-progress/internal/store"
)

// GetPreferences implements store.RemoteStore.
func (s *RemoteStore) GetPreferences(ctx context.Context, userID uuid.UUID) (*store.PreferencesRow, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	row := &store.PreferencesRow{}
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, theme, language, content_mode, notifications_enabled,
		       email_notifications, updated_at
		FROM user_preferences
		WHERE user_id = $1`, userID,
	).Scan(
		&row.UserID, &row.Theme, &row.Language, &row.ContentMode,
		&row.NotificationsEnabled, &row.EmailNotifications, &row.UpdatedAt,
	)
	if err != nil {
		err = MapError(err)
		if store.IsNotFoundError(err) {
			return nil, store.ErrPreferencesNotFound
		}
		log.Error("failed to get preferences",
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()))
		return nil, err
	}
	return row, nil
}

// UpsertPreferences implements store.RemoteStore.
func (s *RemoteStore) UpsertPreferences(ctx context.Context, row *store.PreferencesRow) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO user_preferences (user_id, theme, language, content_mode,
		                              notifications_enabled, email_notifications, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE SET
			theme = EXCLUDED.theme,
			language = EXCLUDED.language,
			content_mode = EXCLUDED.content_mode,
			notifications_enabled = EXCLUDED.notifications_enabled,
			email_notifications = EXCLUDED.email_notifications,
			updated_at = EXCLUDED.updated_at`,
		row.UserID, row.Theme, row.Language, row.ContentMode,
		row.NotificationsEnabled, row.EmailNotifications, row.UpdatedAt,
	)
	if err != nil {
		err = MapError(err)
		log.Error("failed to upsert preferences",
			slog.String("user_id", row.UserID.String()),
			slog.String("error", err.Error()))
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		log.Error("preferences upsert affected no rows", slog.String("user_id", row.UserID.String()))
		return fmt.Errorf("%w: preferences for user %s", store.ErrUpdateFailed, row.UserID)
	}

	log.Debug("preferences upserted", slog.String("user_id", row.UserID.String()))
	return nil
}
