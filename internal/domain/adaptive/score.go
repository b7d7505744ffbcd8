package adaptive

import "github.com/phrazzld/scry-progress/internal/domain"

// Scoring constants.
const (
	hardBonus       = 10
	bonusWindow     = 5
	bonusHardNeeded = 3
)

// PerformanceScore returns accuracy in percent plus a bonus of 10 when at
// least 3 of the last 5 recorded levels were hard, capped at 100.
func PerformanceScore(s State) float64 {
	if s.TotalQuestions == 0 {
		return 0
	}

	score := s.Accuracy()

	recent := s.DifficultyHistory
	if len(recent) > bonusWindow {
		recent = recent[len(recent)-bonusWindow:]
	}
	hard := 0
	for _, d := range recent {
		if d == domain.DifficultyHard {
			hard++
		}
	}
	if hard >= bonusHardNeeded {
		score += hardBonus
	}

	if score > 100 {
		return 100
	}
	return score
}

// Feedback is a coarse performance band.
type Feedback string

// Feedback bands, best first.
const (
	FeedbackExcellent Feedback = "excellent"
	FeedbackGood      Feedback = "good"
	FeedbackAdequate  Feedback = "adequate"
	FeedbackReview    Feedback = "review"
)

// FeedbackFor maps a session to its performance band.
func FeedbackFor(s State) Feedback {
	score := PerformanceScore(s)
	switch {
	case score >= 90:
		return FeedbackExcellent
	case score >= 75:
		return FeedbackGood
	case score >= 60:
		return FeedbackAdequate
	default:
		return FeedbackReview
	}
}

// LearnerLevel is the self-declared experience of a learner.
type LearnerLevel string

// Learner levels.
const (
	LearnerUnknown      LearnerLevel = ""
	LearnerBeginner     LearnerLevel = "beginner"
	LearnerIntermediate LearnerLevel = "intermediate"
	LearnerAdvanced     LearnerLevel = "advanced"
)

// InitialDifficulty picks the starting level of a session. Beginners always
// start easy and advanced learners hard; everyone else starts at the quiz's
// declared level.
func InitialDifficulty(quiz domain.Difficulty, level LearnerLevel) domain.Difficulty {
	switch level {
	case LearnerBeginner:
		return domain.DifficultyEasy
	case LearnerAdvanced:
		return domain.DifficultyHard
	}
	if !quiz.Valid() {
		return domain.DifficultyMedium
	}
	return quiz
}
