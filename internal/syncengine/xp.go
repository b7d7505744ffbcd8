package syncengine

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/phrazzld/scry-progress/internal/domain"
	"github.com/phrazzld/scry-progress/internal/progress"
	"github.com/phrazzld/scry-progress/internal/snapshot"
	"github.com/phrazzld/scry-progress/internal/store"
)

// syncXP copies the remote XP record. XP is computed server side and never
// uploaded.
func (e *Engine) syncXP(ctx context.Context, userID uuid.UUID, st *progress.Store, res *Result) error {
	var row *store.XPRow
	err := e.call(ctx, "get xp", func(ctx context.Context) error {
		var err error
		row, err = e.remote.GetXP(ctx, userID)
		return err
	})
	if errors.Is(err, store.ErrXPNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	xp := &domain.XP{
		TotalXP:          row.TotalXP,
		Level:            row.Level,
		CurrentStreak:    row.CurrentStreak,
		LongestStreak:    row.LongestStreak,
		LastActivityDate: row.LastActivityDate,
		UpdatedAt:        row.UpdatedAt,
	}

	changed := false
	if err := st.Update(ctx, func(s *snapshot.State) error {
		if sameXP(s.XP, xp) {
			return progress.ErrUnchanged
		}
		s.XP = xp
		changed = true
		return nil
	}); err != nil {
		return err
	}
	if changed {
		res.Synced++
	}
	return nil
}

func sameXP(a, b *domain.XP) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	sameDate := (a.LastActivityDate == nil) == (b.LastActivityDate == nil)
	if sameDate && a.LastActivityDate != nil {
		sameDate = syncTime(*a.LastActivityDate).Equal(syncTime(*b.LastActivityDate))
	}
	return sameDate &&
		a.TotalXP == b.TotalXP &&
		a.Level == b.Level &&
		a.CurrentStreak == b.CurrentStreak &&
		a.LongestStreak == b.LongestStreak &&
		syncTime(a.UpdatedAt).Equal(syncTime(b.UpdatedAt))
}
