package domain

import "time"

// StudyProgress holds per-card review counters.
type StudyProgress struct {
	CardID         string     `json:"card_id"`
	MasteryLevel   Quality    `json:"mastery_level"` // quality of the latest review
	LastReviewed   *time.Time `json:"last_reviewed,omitempty"`
	NextReview     *time.Time `json:"next_review,omitempty"`
	ReviewCount    int        `json:"review_count"`
	CorrectCount   int        `json:"correct_count"`
	IncorrectCount int        `json:"incorrect_count"`

	// Sync metadata. SyncedAt is the UpdatedAt value of the last version both
	// sides agreed on.
	UpdatedAt time.Time  `json:"updated_at"`
	SyncedAt  *time.Time `json:"synced_at,omitempty"`
}

// NewStudyProgress returns zeroed counters for a freshly initialized card.
func NewStudyProgress(cardID string, now time.Time) *StudyProgress {
	return &StudyProgress{
		CardID:    cardID,
		UpdatedAt: now,
	}
}

// ApplyReview folds a review result into the counters.
func (p *StudyProgress) ApplyReview(s *ReviewSchedule, now time.Time) {
	p.MasteryLevel = s.Quality
	reviewed := now
	p.LastReviewed = &reviewed
	next := s.NextReview
	p.NextReview = &next
	p.ReviewCount++
	if s.Quality.Passed() {
		p.CorrectCount++
	} else {
		p.IncorrectCount++
	}
	p.UpdatedAt = now
}

// Accuracy returns the share of correct reviews as a percentage.
func (p *StudyProgress) Accuracy() float64 {
	if p.ReviewCount == 0 {
		return 0
	}
	return float64(p.CorrectCount) / float64(p.ReviewCount) * 100
}

// Dirty reports whether the record changed since it was last synced.
func (p *StudyProgress) Dirty() bool {
	return p.SyncedAt == nil || p.UpdatedAt.After(*p.SyncedAt)
}

// Clone returns a deep copy.
func (p *StudyProgress) Clone() *StudyProgress {
	if p == nil {
		return nil
	}
	c := *p
	c.LastReviewed = cloneTime(p.LastReviewed)
	c.NextReview = cloneTime(p.NextReview)
	c.SyncedAt = cloneTime(p.SyncedAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
