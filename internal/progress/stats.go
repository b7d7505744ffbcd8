package progress

import (
	"context"
	"time"

	"github.com/phrazzld/scry-progress/internal/events"
	"github.com/phrazzld/scry-progress/internal/snapshot"
)

// Stats summarizes a learner's progress.
type Stats struct {
	TotalCards     int        `json:"total_cards"`
	DueToday       int        `json:"due_today"`
	Reviews        int        `json:"reviews"`
	Correct        int        `json:"correct"`
	Incorrect      int        `json:"incorrect"`
	Accuracy       float64    `json:"accuracy"`
	QuizzesTaken   int        `json:"quizzes_taken"`
	QuizAttempts   int        `json:"quiz_attempts"`
	Streak         int        `json:"streak"`
	TotalStudyTime int        `json:"total_study_time"`
	LastStudyDate  *time.Time `json:"last_study_date,omitempty"`
	LastSyncedAt   *time.Time `json:"last_synced_at,omitempty"`
}

// Stats computes the summary at the current time.
func (s *Store) Stats() Stats {
	start, end := dayBounds(s.now(), s.loc)

	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{
		TotalCards:     len(s.state.Schedules),
		DueToday:       len(dueBetween(s.state.Schedules, start, end)),
		QuizzesTaken:   len(s.state.Quizzes),
		Streak:         s.state.Streak,
		TotalStudyTime: s.state.TotalStudyTime,
	}
	for _, p := range s.state.Progress {
		st.Reviews += p.ReviewCount
		st.Correct += p.CorrectCount
		st.Incorrect += p.IncorrectCount
	}
	for _, q := range s.state.Quizzes {
		st.QuizAttempts += len(q.Attempts)
	}
	if st.Reviews > 0 {
		st.Accuracy = float64(st.Correct) / float64(st.Reviews) * 100
	}
	if s.state.LastStudyDate != nil {
		t := *s.state.LastStudyDate
		st.LastStudyDate = &t
	}
	if s.state.LastSyncedAt != nil {
		t := *s.state.LastSyncedAt
		st.LastSyncedAt = &t
	}
	return st
}

// ResetProgress clears the schedules, counters, quiz history, streak and
// study time. Preferences, favorites, notes and XP are kept. Remote rows
// are not deleted; the reset time stops sync from pulling them back.
func (s *Store) ResetProgress(ctx context.Context) error {
	return s.apply(ctx, events.TypeProgressReset, func(next *snapshot.State, now time.Time) (any, error) {
		fresh := snapshot.New()
		next.Schedules = fresh.Schedules
		next.Progress = fresh.Progress
		next.Quizzes = fresh.Quizzes
		next.Streak = 0
		next.TotalStudyTime = 0
		next.LastStudyDate = nil
		next.ResetAt = &now
		return nil, nil
	})
}
