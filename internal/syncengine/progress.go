package syncengine

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/scry-progress/internal/domain"
	"github.com/phrazzld/scry-progress/internal/progress"
	"github.com/phrazzld/scry-progress/internal/snapshot"
	"github.com/phrazzld/scry-progress/internal/store"
)

// cardMetadata is the metadata document of a flashcard progress row.
type cardMetadata struct {
	Progress *domain.StudyProgress  `json:"progress"`
	Schedule *domain.ReviewSchedule `json:"schedule,omitempty"`
}

// masteryPercent maps the last review grade onto the remote 0..100 scale.
func masteryPercent(q domain.Quality) int {
	return int(q) * 20
}

func flashcardRow(userID uuid.UUID, p *domain.StudyProgress, s *domain.ReviewSchedule) (store.ProgressRow, error) {
	sent := p.Clone()
	sent.SyncedAt = nil
	meta, err := json.Marshal(cardMetadata{Progress: sent, Schedule: s})
	if err != nil {
		return store.ProgressRow{}, fmt.Errorf("encode card %s: %w", p.CardID, err)
	}
	return store.ProgressRow{
		UserID:     userID,
		EntityType: store.EntityFlashcard,
		EntityID:   p.CardID,
		Progress:   masteryPercent(p.MasteryLevel),
		Metadata:   meta,
		UpdatedAt:  p.UpdatedAt,
	}, nil
}

func decodeFlashcard(row store.ProgressRow) (*domain.StudyProgress, *domain.ReviewSchedule, error) {
	var meta cardMetadata
	if err := json.Unmarshal(row.Metadata, &meta); err != nil {
		return nil, nil, fmt.Errorf("decode card %s: %w", row.EntityID, err)
	}
	p := meta.Progress
	if p == nil {
		p = domain.NewStudyProgress(row.EntityID, row.UpdatedAt)
	}
	p.CardID = row.EntityID
	p.UpdatedAt = row.UpdatedAt
	synced := row.UpdatedAt
	p.SyncedAt = &synced
	if meta.Schedule != nil {
		meta.Schedule.CardID = row.EntityID
	}
	return p, meta.Schedule, nil
}

// syncProgress reconciles per-card progress by update time. A card changed
// on both sides since the last agreed version is a conflict, settled by
// the configured policy and reported.
func (e *Engine) syncProgress(ctx context.Context, userID uuid.UUID, st *progress.Store, res *Result) error {
	snap := st.Snapshot()

	var rows []store.ProgressRow
	if err := e.call(ctx, "list progress", func(ctx context.Context) error {
		var err error
		rows, err = e.remote.ListProgress(ctx, userID, store.EntityFlashcard)
		return err
	}); err != nil {
		return err
	}
	remote := make(map[string]store.ProgressRow, len(rows))
	for _, r := range rows {
		if clearedByReset(snap.ResetAt, r.UpdatedAt) {
			continue
		}
		remote[r.EntityID] = r
	}

	var (
		push   []store.ProgressRow
		pulled = make(map[string]store.ProgressRow)
		agreed = make(map[string]time.Time)
	)
	for _, id := range progressKeys(snap.Progress, remote) {
		local := snap.Progress[id]
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
			res.conflict(CollectionProgress, id, e.cfg.ConflictPolicy)
		}
		switch act {
		case actionPush:
			r, err := flashcardRow(userID, local, snap.Schedules[id])
			if err != nil {
				return err
			}
			push = append(push, r)
		case actionPull:
			pulled[id] = row
		case actionNone:
			if local != nil && (local.SyncedAt == nil || !syncTime(*local.SyncedAt).Equal(syncTime(local.UpdatedAt))) {
				agreed[id] = local.UpdatedAt
			}
		}
	}

	if len(push) > 0 {
		if err := e.call(ctx, "upsert progress", func(ctx context.Context) error {
			return e.remote.UpsertProgress(ctx, push)
		}); err != nil {
			return err
		}
		res.Synced += len(push)
		for _, r := range push {
			agreed[r.EntityID] = r.UpdatedAt
		}
	}

	if len(pulled) == 0 && len(agreed) == 0 {
		return nil
	}

	applied := 0
	err := st.Update(ctx, func(s *snapshot.State) error {
		for id, at := range agreed {
			if p := s.Progress[id]; p != nil && p.UpdatedAt.Equal(at) {
				p.SyncedAt = timePtr(at)
			}
		}
		for id, row := range pulled {
			if !unchangedSince(s.Progress[id], snap.Progress[id]) || clearedByReset(s.ResetAt, row.UpdatedAt) {
				continue
			}
			p, sched, err := decodeFlashcard(row)
			if err != nil {
				return err
			}
			s.Progress[id] = p
			if sched != nil {
				s.Schedules[id] = sched
			} else if _, ok := s.Schedules[id]; !ok {
				fresh, err := domain.NewReviewSchedule(id, row.UpdatedAt)
				if err != nil {
					return err
				}
				s.Schedules[id] = fresh
			}
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

// unchangedSince reports whether the card's progress is still the version
// observed before talking to the remote.
func unchangedSince(current, observed *domain.StudyProgress) bool {
	if current == nil || observed == nil {
		return current == nil && observed == nil
	}
	return current.UpdatedAt.Equal(observed.UpdatedAt)
}

func progressKeys(local map[string]*domain.StudyProgress, remote map[string]store.ProgressRow) []string {
	seen := make(map[string]struct{}, len(local)+len(remote))
	keys := make([]string, 0, len(local)+len(remote))
	for id := range local {
		seen[id] = struct{}{}
		keys = append(keys, id)
	}
	for id := range remote {
		if _, ok := seen[id]; !ok {
			keys = append(keys, id)
		}
	}
	sort.Strings(keys)
	return keys
}
