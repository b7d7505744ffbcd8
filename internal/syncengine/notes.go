package syncengine

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/scry-progress/internal/domain"
	"github.com/phrazzld/scry-progress/internal/progress"
	"github.com/phrazzld/scry-progress/internal/snapshot"
	"github.com/phrazzld/scry-progress/internal/store"
)

func noteRow(userID uuid.UUID, n *domain.Note) store.NoteRow {
	return store.NoteRow{
		ID:         n.ID,
		UserID:     userID,
		EntityType: n.EntityType,
		EntityID:   n.EntityID,
		Title:      n.Title,
		Content:    n.Content,
		Tags:       append([]string(nil), n.Tags...),
		UpdatedAt:  n.UpdatedAt,
	}
}

func noteFromRow(r store.NoteRow) *domain.Note {
	synced := r.UpdatedAt
	return &domain.Note{
		ID:         r.ID,
		EntityType: r.EntityType,
		EntityID:   r.EntityID,
		Title:      r.Title,
		Content:    r.Content,
		Tags:       append([]string(nil), r.Tags...),
		UpdatedAt:  r.UpdatedAt,
		SyncedAt:   &synced,
	}
}

// syncNotes reconciles notes by update time, with the same conflict
// handling as card progress.
func (e *Engine) syncNotes(ctx context.Context, userID uuid.UUID, st *progress.Store, res *Result) error {
	snap := st.Snapshot()

	var rows []store.NoteRow
	if err := e.call(ctx, "list notes", func(ctx context.Context) error {
		var err error
		rows, err = e.remote.ListNotes(ctx, userID)
		return err
	}); err != nil {
		return err
	}
	remote := make(map[string]store.NoteRow, len(rows))
	for _, r := range rows {
		remote[r.ID.String()] = r
	}

	keys := make([]string, 0, len(snap.Notes)+len(remote))
	for id := range snap.Notes {
		keys = append(keys, id)
	}
	for id := range remote {
		if _, ok := snap.Notes[id]; !ok {
			keys = append(keys, id)
		}
	}
	sort.Strings(keys)

	var (
		push   []store.NoteRow
		pulled = make(map[string]store.NoteRow)
		agreed = make(map[string]time.Time)
	)
	for _, id := range keys {
		local := snap.Notes[id]
		row, hasRemote := remote[id]

		var lt, rt, base *time.Time
		if local != nil {
			lt = timePtr(local.UpdatedAt)
			base = local.SyncedAt
		}
		if hasRemote {
			rt = timePtr(row.UpdatedAt)
		}

		act, conflict := decide(lt, rt, base, e.cfg.ConflictPolicy)
		if conflict {
			res.conflict(CollectionNotes, id, e.cfg.ConflictPolicy)
		}
		switch act {
		case actionPush:
			push = append(push, noteRow(userID, local))
		case actionPull:
			pulled[id] = row
		case actionNone:
			if local != nil && local.Dirty() {
				agreed[id] = local.UpdatedAt
			}
		}
	}

	if len(push) > 0 {
		if err := e.call(ctx, "upsert notes", func(ctx context.Context) error {
			return e.remote.UpsertNotes(ctx, push)
		}); err != nil {
			return err
		}
		res.Synced += len(push)
		for _, r := range push {
			agreed[r.ID.String()] = r.UpdatedAt
		}
	}

	if len(pulled) == 0 && len(agreed) == 0 {
		return nil
	}

	applied := 0
	err := st.Update(ctx, func(s *snapshot.State) error {
		for id, at := range agreed {
			if n := s.Notes[id]; n != nil && n.UpdatedAt.Equal(at) {
				n.SyncedAt = timePtr(at)
			}
		}
		for id, row := range pulled {
			current, observed := s.Notes[id], snap.Notes[id]
			if (current == nil) != (observed == nil) ||
				(current != nil && !current.UpdatedAt.Equal(observed.UpdatedAt)) {
				continue
			}
			s.Notes[id] = noteFromRow(row)
			applied++
		}
		return nil
	})
	if err != nil {
		return err
	}
	res.Synced += applied
	return nil
}
