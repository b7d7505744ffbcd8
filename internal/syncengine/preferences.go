package syncengine

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/scry-progress/internal/domain"
	"github.com/phrazzld/scry-progress/internal/progress"
	"github.com/phrazzld/scry-progress/internal/snapshot"
	"github.com/phrazzld/scry-progress/internal/store"
)

// syncPreferences treats the remote row as authoritative. Local settings are
// uploaded when no remote row exists, or when only the local side changed
// since the last sync.
func (e *Engine) syncPreferences(ctx context.Context, userID uuid.UUID, st *progress.Store, res *Result) error {
	snap := st.Snapshot()
	local := snap.Preferences

	var remote *store.PreferencesRow
	err := e.call(ctx, "get preferences", func(ctx context.Context) error {
		var err error
		remote, err = e.remote.GetPreferences(ctx, userID)
		return err
	})
	if err != nil && !errors.Is(err, store.ErrPreferencesNotFound) {
		return err
	}

	if remote == nil || localPreferencesAhead(local, remote, snap.PreferencesSyncedAt) {
		if local.UpdatedAt.IsZero() {
			local.UpdatedAt = e.now()
		}
		row := preferencesRow(userID, local)
		if err := e.call(ctx, "upsert preferences", func(ctx context.Context) error {
			return e.remote.UpsertPreferences(ctx, row)
		}); err != nil {
			return err
		}
		res.Synced++
		return st.Update(ctx, func(s *snapshot.State) error {
			if !samePreferences(s.Preferences, snap.Preferences) {
				return progress.ErrUnchanged
			}
			s.Preferences.UpdatedAt = local.UpdatedAt
			s.PreferencesSyncedAt = timePtr(local.UpdatedAt)
			return nil
		})
	}

	pulled := preferencesFromRow(remote)
	if samePreferences(local, pulled) {
		if snap.PreferencesSyncedAt != nil && syncTime(*snap.PreferencesSyncedAt).Equal(syncTime(pulled.UpdatedAt)) {
			return nil
		}
		return st.Update(ctx, func(s *snapshot.State) error {
			s.PreferencesSyncedAt = timePtr(pulled.UpdatedAt)
			return nil
		})
	}

	applied := false
	if err := st.Update(ctx, func(s *snapshot.State) error {
		if !samePreferences(s.Preferences, snap.Preferences) {
			// Changed while the remote was being read; the next pass decides.
			return progress.ErrUnchanged
		}
		s.Preferences = pulled
		s.PreferencesSyncedAt = timePtr(pulled.UpdatedAt)
		applied = true
		return nil
	}); err != nil {
		return err
	}
	if applied {
		res.Synced++
	}
	return nil
}

func localPreferencesAhead(local domain.Preferences, remote *store.PreferencesRow, synced *time.Time) bool {
	if synced == nil {
		return false
	}
	base := syncTime(*synced)
	return syncTime(local.UpdatedAt).After(base) && !syncTime(remote.UpdatedAt).After(base)
}

func samePreferences(a, b domain.Preferences) bool {
	return a.Theme == b.Theme &&
		a.Language == b.Language &&
		a.ContentMode == b.ContentMode &&
		a.NotificationsEnabled == b.NotificationsEnabled &&
		a.EmailNotifications == b.EmailNotifications &&
		syncTime(a.UpdatedAt).Equal(syncTime(b.UpdatedAt))
}

func preferencesRow(userID uuid.UUID, p domain.Preferences) *store.PreferencesRow {
	return &store.PreferencesRow{
		UserID:               userID,
		Theme:                p.Theme,
		Language:             p.Language,
		ContentMode:          p.ContentMode,
		NotificationsEnabled: p.NotificationsEnabled,
		EmailNotifications:   p.EmailNotifications,
		UpdatedAt:            p.UpdatedAt,
	}
}

func preferencesFromRow(row *store.PreferencesRow) domain.Preferences {
	return domain.Preferences{
		Theme:                row.Theme,
		Language:             row.Language,
		ContentMode:          row.ContentMode,
		NotificationsEnabled: row.NotificationsEnabled,
		EmailNotifications:   row.EmailNotifications,
		UpdatedAt:            row.UpdatedAt,
	}
}
