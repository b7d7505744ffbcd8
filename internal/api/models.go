package api

import (
	"time"

	"github.com/phrazzld/scry-progress/internal/domain"
	"github.com/phrazzld/scry-progress/internal/domain/adaptive"
	"github.com/phrazzld/scry-progress/internal/syncengine"
)

// ReviewRequest is the payload for grading a card review.
type ReviewRequest struct {
	Quality *int `json:"quality" validate:"required,min=0,max=5"`
}

// CardResponse combines a card's schedule and its counters.
type CardResponse struct {
	Schedule *domain.ReviewSchedule `json:"schedule"`
	Progress *domain.StudyProgress  `json:"progress,omitempty"`
}

// DueCardsResponse lists the cards due on one calendar day.
type DueCardsResponse struct {
	Date  string                   `json:"date"`
	Cards []*domain.ReviewSchedule `json:"cards"`
}

// QuizAttemptRequest is the payload for recording a quiz attempt.
type QuizAttemptRequest struct {
	Score     *int              `json:"score"      validate:"required,gte=0"`
	MaxScore  *int              `json:"max_score"  validate:"required,gte=0"`
	Answers   map[string]string `json:"answers"`
	TimeSpent int               `json:"time_spent" validate:"gte=0"`
}

// StudyTimeRequest adds minutes of study time.
type StudyTimeRequest struct {
	Minutes int `json:"minutes" validate:"gte=0"`
}

// StreakResponse reports the study streak.
type StreakResponse struct {
	Streak int `json:"streak"`
}

// StudyTimeResponse reports the accumulated study time in minutes.
type StudyTimeResponse struct {
	TotalStudyTime int `json:"total_study_time"`
}

// PreferencesRequest replaces the learner's settings.
type PreferencesRequest struct {
	Theme                string `json:"theme"                 validate:"required,oneof=light dark system"`
	Language             string `json:"language"              validate:"required,min=2,max=10"`
	ContentMode          string `json:"content_mode"          validate:"required"`
	NotificationsEnabled bool   `json:"notifications_enabled"`
	EmailNotifications   bool   `json:"email_notifications"`
}

// FavoriteRequest bookmarks an entity.
type FavoriteRequest struct {
	EntityType string   `json:"entity_type" validate:"required,max=64"`
	EntityID   string   `json:"entity_id"   validate:"required,max=255"`
	Notes      string   `json:"notes"`
	Tags       []string `json:"tags"`
}

// NoteRequest creates or replaces a note.
type NoteRequest struct {
	EntityType string   `json:"entity_type" validate:"required,max=64"`
	EntityID   string   `json:"entity_id"   validate:"required,max=255"`
	Title      string   `json:"title"       validate:"max=255"`
	Content    string   `json:"content"`
	Tags       []string `json:"tags"`
}

// SyncResponse reports the outcome of a sync pass.
type SyncResponse struct {
	syncengine.Result
	Errors []string `json:"errors,omitempty"`
}

// AdaptiveStartRequest opens an adaptive quiz session.
type AdaptiveStartRequest struct {
	QuizDifficulty domain.Difficulty     `json:"quiz_difficulty" validate:"required"`
	LearnerLevel   adaptive.LearnerLevel `json:"learner_level"`
}

// AdaptiveAnswerRequest advances a session by one answer.
type AdaptiveAnswerRequest struct {
	State     adaptive.State `json:"state"`
	Correct   bool           `json:"correct"`
	TimeSpent float64        `json:"time_spent" validate:"gte=0"`
}

// AdaptiveNextRequest asks for the next question of a session.
type AdaptiveNextRequest struct {
	State adaptive.State      `json:"state"`
	Pool  []adaptive.Question `json:"pool" validate:"required,min=1"`
}

// AdaptiveStateResponse returns the session state with derived figures.
type AdaptiveStateResponse struct {
	State    adaptive.State    `json:"state"`
	Score    float64           `json:"score"`
	Accuracy float64           `json:"accuracy"`
	Feedback adaptive.Feedback `json:"feedback"`
}

// AdaptiveNextResponse carries the selected question.
type AdaptiveNextResponse struct {
	Question   adaptive.Question `json:"question"`
	Difficulty domain.Difficulty `json:"difficulty"`
	MinPoints  int               `json:"min_points"`
}

func newAdaptiveStateResponse(s adaptive.State) AdaptiveStateResponse {
	return AdaptiveStateResponse{
		State:    s,
		Score:    adaptive.PerformanceScore(s),
		Accuracy: s.Accuracy(),
		Feedback: adaptive.FeedbackFor(s),
	}
}

const dateLayout = time.DateOnly
