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

// quizMetadata is the metadata document of a quiz progress row.
type quizMetadata struct {
	Attempts    []domain.QuizAttempt `json:"attempts"`
	BestScore   int                  `json:"best_score"`
	LastAttempt time.Time            `json:"last_attempt"`
}

// mergeQuiz unions two attempt histories by attempt ID. The result is
// ordered by time and keeps the most recent maxAttempts entries; the best
// score is the higher of both sides.
func mergeQuiz(quizID string, a, b *domain.QuizProgress, maxAttempts int) *domain.QuizProgress {
	merged := &domain.QuizProgress{QuizID: quizID}
	seen := make(map[uuid.UUID]struct{})
	for _, side := range []*domain.QuizProgress{a, b} {
		if side == nil {
			continue
		}
		for _, at := range side.Attempts {
			if _, ok := seen[at.ID]; ok {
				continue
			}
			seen[at.ID] = struct{}{}
			merged.Attempts = append(merged.Attempts, at.Clone())
		}
		if side.BestScore > merged.BestScore {
			merged.BestScore = side.BestScore
		}
		if side.LastAttempt.After(merged.LastAttempt) {
			merged.LastAttempt = side.LastAttempt
		}
		if side.UpdatedAt.After(merged.UpdatedAt) {
			merged.UpdatedAt = side.UpdatedAt
		}
	}

	sort.SliceStable(merged.Attempts, func(i, j int) bool {
		return merged.Attempts[i].Timestamp.Before(merged.Attempts[j].Timestamp)
	})
	if maxAttempts > 0 && len(merged.Attempts) > maxAttempts {
		merged.Attempts = merged.Attempts[len(merged.Attempts)-maxAttempts:]
	}
	for _, at := range merged.Attempts {
		if at.Score > merged.BestScore {
			merged.BestScore = at.Score
		}
		if at.Timestamp.After(merged.LastAttempt) {
			merged.LastAttempt = at.Timestamp
		}
	}
	return merged
}

// attemptsSince drops the attempts made at or before a progress reset. It
// returns nil when nothing is left.
func attemptsSince(q *domain.QuizProgress, resetAt *time.Time) *domain.QuizProgress {
	if q == nil || resetAt == nil {
		return q
	}
	kept := &domain.QuizProgress{QuizID: q.QuizID, UpdatedAt: q.UpdatedAt, SyncedAt: q.SyncedAt}
	for _, at := range q.Attempts {
		if clearedByReset(resetAt, at.Timestamp) {
			continue
		}
		kept.Attempts = append(kept.Attempts, at)
		if at.Score > kept.BestScore {
			kept.BestScore = at.Score
		}
		if at.Timestamp.After(kept.LastAttempt) {
			kept.LastAttempt = at.Timestamp
		}
	}
	if len(kept.Attempts) == 0 {
		return nil
	}
	if len(kept.Attempts) == len(q.Attempts) {
		return q
	}
	return kept
}

// sameAttempts reports whether both histories hold the same attempts and
// best score.
func sameAttempts(a, b *domain.QuizProgress) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if len(a.Attempts) != len(b.Attempts) || a.BestScore != b.BestScore {
		return false
	}
	for i := range a.Attempts {
		if a.Attempts[i].ID != b.Attempts[i].ID {
			return false
		}
	}
	return true
}

func quizRow(userID uuid.UUID, q *domain.QuizProgress, now time.Time) (store.ProgressRow, error) {
	meta, err := json.Marshal(quizMetadata{
		Attempts:    q.Attempts,
		BestScore:   q.BestScore,
		LastAttempt: q.LastAttempt,
	})
	if err != nil {
		return store.ProgressRow{}, fmt.Errorf("encode quiz %s: %w", q.QuizID, err)
	}

	pct := 0
	if n := len(q.Attempts); n > 0 {
		last := q.Attempts[n-1]
		if last.MaxScore > 0 {
			pct = last.Score * 100 / last.MaxScore
		}
	}
	pct = min(max(pct, 0), 100)

	return store.ProgressRow{
		UserID:     userID,
		EntityType: store.EntityQuiz,
		EntityID:   q.QuizID,
		Progress:   pct,
		Metadata:   meta,
		UpdatedAt:  now,
	}, nil
}

func decodeQuiz(row store.ProgressRow) (*domain.QuizProgress, error) {
	var meta quizMetadata
	if err := json.Unmarshal(row.Metadata, &meta); err != nil {
		return nil, fmt.Errorf("decode quiz %s: %w", row.EntityID, err)
	}
	q := &domain.QuizProgress{
		QuizID:      row.EntityID,
		Attempts:    meta.Attempts,
		BestScore:   meta.BestScore,
		LastAttempt: meta.LastAttempt,
		UpdatedAt:   row.UpdatedAt,
	}
	for i := range q.Attempts {
		q.Attempts[i].QuizID = row.EntityID
		if q.Attempts[i].Answers == nil {
			q.Attempts[i].Answers = map[string]string{}
		}
	}
	return q, nil
}

// syncQuizzes merges quiz attempt histories. Attempts are never dropped by
// a merge except through the retention bound, so there are no conflicts.
func (e *Engine) syncQuizzes(ctx context.Context, userID uuid.UUID, st *progress.Store, res *Result) error {
	snap := st.Snapshot()
	maxAttempts := st.MaxAttempts()

	var rows []store.ProgressRow
	if err := e.call(ctx, "list quiz attempts", func(ctx context.Context) error {
		var err error
		rows, err = e.remote.ListProgress(ctx, userID, store.EntityQuiz)
		return err
	}); err != nil {
		return err
	}
	remote := make(map[string]*domain.QuizProgress, len(rows))
	for _, r := range rows {
		q, err := decodeQuiz(r)
		if err != nil {
			return err
		}
		if q = attemptsSince(q, snap.ResetAt); q != nil {
			remote[r.EntityID] = q
		}
	}

	ids := make([]string, 0, len(snap.Quizzes)+len(remote))
	for id := range snap.Quizzes {
		ids = append(ids, id)
	}
	for id := range remote {
		if _, ok := snap.Quizzes[id]; !ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	now := e.now()
	var push []store.ProgressRow
	pull := make(map[string]*domain.QuizProgress)
	for _, id := range ids {
		local, rem := snap.Quizzes[id], remote[id]
		merged := mergeQuiz(id, local, rem, maxAttempts)

		if !sameAttempts(merged, rem) {
			row, err := quizRow(userID, merged, now)
			if err != nil {
				return err
			}
			push = append(push, row)
		}
		if !sameAttempts(merged, local) {
			pull[id] = rem
		}
	}

	if len(push) > 0 {
		if err := e.call(ctx, "upsert quiz attempts", func(ctx context.Context) error {
			return e.remote.UpsertProgress(ctx, push)
		}); err != nil {
			return err
		}
		res.Synced += len(push)
	}

	pushed := make(map[string]time.Time, len(push))
	for _, r := range push {
		pushed[r.EntityID] = r.UpdatedAt
	}

	applied := 0
	err := st.Update(ctx, func(s *snapshot.State) error {
		changed := false
		for _, id := range ids {
			rem, isPull := pull[id]
			at, isPush := pushed[id]
			if !isPull && !isPush {
				continue
			}
			current := s.Quizzes[id]
			if isPull {
				rem = attemptsSince(rem, s.ResetAt)
			}
			if isPull && rem != nil {
				// Merge again against the live copy so attempts recorded
				// during the pass are kept.
				merged := mergeQuiz(id, current, rem, maxAttempts)
				if current != nil && merged.UpdatedAt.Before(current.UpdatedAt) {
					merged.UpdatedAt = current.UpdatedAt
				}
				if current != nil {
					merged.SyncedAt = current.SyncedAt
				} else {
					merged.SyncedAt = timePtr(merged.UpdatedAt)
				}
				s.Quizzes[id] = merged
				current = merged
				applied++
				changed = true
			}
			if isPush && current != nil && !current.UpdatedAt.After(at) {
				current.SyncedAt = timePtr(current.UpdatedAt)
				changed = true
			}
		}
		if !changed {
			return progress.ErrUnchanged
		}
		return nil
	})
	if err != nil {
		return err
	}
	res.Synced += applied
	return nil
}
