package domain

import (
	"time"
)

// Quality is the learner's self-graded recall for a review, from 0 (complete
// blackout) to 5 (perfect recall).
type Quality int

// Quality bounds and the threshold at which a review counts as correct.
const (
	QualityMin       Quality = 0
	QualityMax       Quality = 5
	QualityPassGrade Quality = 3
)

// Valid reports whether q lies within 0..5.
func (q Quality) Valid() bool {
	return q >= QualityMin && q <= QualityMax
}

// Passed reports whether the review counts as a correct recall.
func (q Quality) Passed() bool {
	return q >= QualityPassGrade
}

// Ease factor limits shared by the scheduler and validation.
const (
	MinEaseFactor     = 1.3
	DefaultEaseFactor = 2.5
)

// ReviewSchedule is the spaced-repetition state of a single card.
type ReviewSchedule struct {
	CardID       string     `json:"card_id"`
	NextReview   time.Time  `json:"next_review"`
	Interval     int        `json:"interval"`    // days
	EaseFactor   float64    `json:"ease_factor"` // never below MinEaseFactor
	Repetitions  int        `json:"repetitions"`
	Quality      Quality    `json:"quality"`
	LastReviewed *time.Time `json:"last_reviewed,omitempty"`
}

// NewReviewSchedule returns the schedule of a card that has never been
// reviewed. The card is due one day after now.
func NewReviewSchedule(cardID string, now time.Time) (*ReviewSchedule, error) {
	s := &ReviewSchedule{
		CardID:     cardID,
		NextReview: now.AddDate(0, 0, 1),
		Interval:   0,
		EaseFactor: DefaultEaseFactor,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks the schedule invariants.
func (s *ReviewSchedule) Validate() error {
	if s.CardID == "" {
		return ErrEmptyCardID
	}
	if s.Interval < 0 {
		return ErrInvalidInterval
	}
	if s.EaseFactor < MinEaseFactor {
		return ErrInvalidEaseFactor
	}
	if !s.Quality.Valid() {
		return ErrInvalidQuality
	}
	return nil
}

// Clone returns a deep copy of the schedule.
func (s *ReviewSchedule) Clone() *ReviewSchedule {
	if s == nil {
		return nil
	}
	c := *s
	if s.LastReviewed != nil {
		t := *s.LastReviewed
		c.LastReviewed = &t
	}
	return &c
}
