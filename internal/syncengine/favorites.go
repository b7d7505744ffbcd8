package syncengine

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/phrazzld/scry-progress/internal/domain"
	"github.com/phrazzld/scry-progress/internal/progress"
	"github.com/phrazzld/scry-progress/internal/snapshot"
	"github.com/phrazzld/scry-progress/internal/store"
)

// syncFavorites makes both sides hold the union of favorites. Nothing is
// ever deleted on either side.
func (e *Engine) syncFavorites(ctx context.Context, userID uuid.UUID, st *progress.Store, res *Result) error {
	snap := st.Snapshot()

	var rows []store.FavoriteRow
	if err := e.call(ctx, "list favorites", func(ctx context.Context) error {
		var err error
		rows, err = e.remote.ListFavorites(ctx, userID)
		return err
	}); err != nil {
		return err
	}

	remote := make(map[string]store.FavoriteRow, len(rows))
	for _, r := range rows {
		remote[domain.EntityKey(r.EntityType, r.EntityID)] = r
	}

	var upload []store.FavoriteRow
	for key, f := range snap.Favorites {
		if _, ok := remote[key]; ok {
			continue
		}
		upload = append(upload, store.FavoriteRow{
			UserID:     userID,
			EntityType: f.EntityType,
			EntityID:   f.EntityID,
			Notes:      f.Notes,
			Tags:       append([]string(nil), f.Tags...),
			CreatedAt:  f.CreatedAt,
		})
	}
	sort.Slice(upload, func(i, j int) bool {
		return domain.EntityKey(upload[i].EntityType, upload[i].EntityID) <
			domain.EntityKey(upload[j].EntityType, upload[j].EntityID)
	})

	if len(upload) > 0 {
		if err := e.call(ctx, "insert favorites", func(ctx context.Context) error {
			return e.remote.InsertFavorites(ctx, upload)
		}); err != nil {
			return err
		}
		res.Synced += len(upload)
	}

	added := 0
	err := st.Update(ctx, func(s *snapshot.State) error {
		for key, r := range remote {
			if _, ok := s.Favorites[key]; ok {
				continue
			}
			s.Favorites[key] = domain.Favorite{
				EntityType: r.EntityType,
				EntityID:   r.EntityID,
				Notes:      r.Notes,
				Tags:       append([]string(nil), r.Tags...),
				CreatedAt:  r.CreatedAt,
			}
			added++
		}
		if added == 0 {
			return progress.ErrUnchanged
		}
		return nil
	})
	if err != nil {
		return err
	}
	res.Synced += added
	return nil
}
