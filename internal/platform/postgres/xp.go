package postgres

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"

	"github.com/phrazzld/scry-progress/internal/platform/logger"
	"github.com/phrazzld/scry-progress/internal/store"
)

// GetXP implements store.RemoteStore.
func (s *RemoteStore) GetXP(ctx context.Context, userID uuid.UUID) (*store.XPRow, error) {
	row := &store.XPRow{}
	var lastActivity sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, total_xp, level, current_streak, longest_streak,
		       last_activity_date, updated_at
		FROM user_xp
		WHERE user_id = $1`, userID,
	).Scan(
		&row.UserID, &row.TotalXP, &row.Level, &row.CurrentStreak,
		&row.LongestStreak, &lastActivity, &row.UpdatedAt,
	)
	if err != nil {
		err = MapError(err)
		if store.IsNotFoundError(err) {
			return nil, store.ErrXPNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get xp",
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()))
		return nil, err
	}
	if lastActivity.Valid {
		t := lastActivity.Time
		row.LastActivityDate = &t
	}
	return row, nil
}

// Ensure RemoteStore implements store.RemoteStore interface
var _ store.RemoteStore = (*RemoteStore)(nil)
