package domain

import (
	"time"

	"github.com/google/uuid"
)

// DefaultMaxAttempts bounds the attempt history kept per quiz.
const DefaultMaxAttempts = 50

// QuizAttempt is one completed run through a quiz.
type QuizAttempt struct {
	ID        uuid.UUID         `json:"id"`
	QuizID    string            `json:"quiz_id"`
	Score     int               `json:"score"`
	MaxScore  int               `json:"max_score"`
	Answers   map[string]string `json:"answers"`
	TimeSpent int               `json:"time_spent"` // seconds
	Timestamp time.Time         `json:"timestamp"`
}

// NewQuizAttempt builds a validated attempt with a fresh ID.
func NewQuizAttempt(quizID string, score, maxScore int, answers map[string]string, timeSpent int, now time.Time) (*QuizAttempt, error) {
	a := &QuizAttempt{
		ID:        uuid.New(),
		QuizID:    quizID,
		Score:     score,
		MaxScore:  maxScore,
		Answers:   answers,
		TimeSpent: timeSpent,
		Timestamp: now,
	}
	if a.Answers == nil {
		a.Answers = map[string]string{}
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// Validate checks the attempt's fields.
func (a *QuizAttempt) Validate() error {
	if a.QuizID == "" {
		return ErrEmptyQuizID
	}
	if a.Score < 0 || a.MaxScore < 0 {
		return ErrInvalidScore
	}
	if a.TimeSpent < 0 {
		return ErrInvalidTimeSpent
	}
	return nil
}

// Clone returns a deep copy.
func (a QuizAttempt) Clone() QuizAttempt {
	c := a
	if a.Answers != nil {
		c.Answers = make(map[string]string, len(a.Answers))
		for k, v := range a.Answers {
			c.Answers[k] = v
		}
	}
	return c
}

// QuizProgress is the attempt history of a single quiz.
type QuizProgress struct {
	QuizID      string        `json:"quiz_id"`
	Attempts    []QuizAttempt `json:"attempts"`
	BestScore   int           `json:"best_score"`
	LastAttempt time.Time     `json:"last_attempt"`
	UpdatedAt   time.Time     `json:"updated_at"`
	SyncedAt    *time.Time    `json:"synced_at,omitempty"`
}

// AddAttempt appends an attempt, keeping at most maxAttempts of the most
// recent ones. The best score is never lowered by the trim.
func (q *QuizProgress) AddAttempt(a QuizAttempt, maxAttempts int) {
	q.Attempts = append(q.Attempts, a)
	if maxAttempts > 0 && len(q.Attempts) > maxAttempts {
		q.Attempts = append([]QuizAttempt(nil), q.Attempts[len(q.Attempts)-maxAttempts:]...)
	}
	if a.Score > q.BestScore {
		q.BestScore = a.Score
	}
	if a.Timestamp.After(q.LastAttempt) {
		q.LastAttempt = a.Timestamp
	}
	q.UpdatedAt = a.Timestamp
}

// HasAttempt reports whether an attempt with the given ID is recorded.
func (q *QuizProgress) HasAttempt(id uuid.UUID) bool {
	for _, a := range q.Attempts {
		if a.ID == id {
			return true
		}
	}
	return false
}

// Dirty reports whether the record changed since it was last synced.
func (q *QuizProgress) Dirty() bool {
	return q.SyncedAt == nil || q.UpdatedAt.After(*q.SyncedAt)
}

// Clone returns a deep copy.
func (q *QuizProgress) Clone() *QuizProgress {
	if q == nil {
		return nil
	}
	c := *q
	c.Attempts = make([]QuizAttempt, len(q.Attempts))
	for i, a := range q.Attempts {
		c.Attempts[i] = a.Clone()
	}
	c.SyncedAt = cloneTime(q.SyncedAt)
	return &c
}
