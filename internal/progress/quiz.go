package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/scry-progress/internal/domain"
	"github.com/phrazzld/scry-progress/internal/events"
	"github.com/phrazzld/scry-progress/internal/snapshot"
)

// RecordQuizAttempt appends an attempt to the quiz history, keeps the best
// score and updates the study streak. Missing attempt fields are filled in:
// the quiz ID from quizID, a fresh ID and the current time. Recording an
// attempt whose ID is already known does nothing.
func (s *Store) RecordQuizAttempt(ctx context.Context, quizID string, attempt domain.QuizAttempt) (*domain.QuizProgress, error) {
	if quizID == "" {
		return nil, domain.ErrEmptyQuizID
	}
	if attempt.QuizID == "" {
		attempt.QuizID = quizID
	}
	if attempt.QuizID != quizID {
		return nil, fmt.Errorf("%w: attempt belongs to quiz %q, not %q",
			domain.ErrValidation, attempt.QuizID, quizID)
	}
	if attempt.ID == uuid.Nil {
		attempt.ID = uuid.New()
	}
	if attempt.Answers == nil {
		attempt.Answers = map[string]string{}
	}
	if err := attempt.Validate(); err != nil {
		return nil, err
	}

	var result *domain.QuizProgress
	err := s.apply(ctx, events.TypeQuizRecorded, func(next *snapshot.State, now time.Time) (any, error) {
		if attempt.Timestamp.IsZero() {
			attempt.Timestamp = now
		}

		qp, ok := next.Quizzes[quizID]
		if !ok {
			qp = &domain.QuizProgress{QuizID: quizID}
			next.Quizzes[quizID] = qp
		}
		if qp.HasAttempt(attempt.ID) {
			result = qp.Clone()
			return nil, ErrUnchanged
		}

		qp.AddAttempt(attempt.Clone(), s.maxAtt)
		// Sync compares recording time, not when the attempt was taken.
		qp.UpdatedAt = now
		s.advanceStreak(next, now)

		result = qp.Clone()
		return map[string]any{
			"quiz_id":    quizID,
			"attempt_id": attempt.ID,
			"score":      attempt.Score,
			"best_score": qp.BestScore,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// QuizProgress returns a copy of a quiz's history.
func (s *Store) QuizProgress(quizID string) (*domain.QuizProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	qp, ok := s.state.Quizzes[quizID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrQuizNotFound, quizID)
	}
	return qp.Clone(), nil
}
