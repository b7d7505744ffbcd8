package adaptive

import (
	"fmt"

	"github.com/phrazzld/scry-progress/internal/domain"
)

// Thresholds of the difficulty state machine.
const (
	// EscalateStreak correct answers in a row always raise the level.
	EscalateStreak = 3
	// FastEscalateStreak correct answers in a row raise the level when the
	// latest one was faster than FastRatio × the running average.
	FastEscalateStreak = 2
	FastRatio          = 0.7

	// DeescalateStreak wrong answers in a row lower the level.
	DeescalateStreak = 2
	// A wrong answer slower than SlowRatio × the running average lowers the
	// level regardless of the streak.
	SlowRatio = 2.0

	// Smoothing is the weight of the newest sample in the average time.
	Smoothing = 0.3
)

// State is the controller state of one quiz session.
type State struct {
	CurrentDifficulty domain.Difficulty   `json:"current_difficulty"`
	CorrectStreak     int                 `json:"correct_streak"`
	IncorrectStreak   int                 `json:"incorrect_streak"`
	TotalQuestions    int                 `json:"total_questions"`
	CorrectAnswers    int                 `json:"correct_answers"`
	AverageTime       float64             `json:"average_time"` // seconds
	DifficultyHistory []domain.Difficulty `json:"difficulty_history"`
}

// NewState starts a session at the given level. The level is recorded as
// the first history entry.
func NewState(initial domain.Difficulty) (State, error) {
	if !initial.Valid() {
		return State{}, fmt.Errorf("%w: %q", domain.ErrInvalidDifficulty, initial)
	}
	return State{
		CurrentDifficulty: initial,
		DifficultyHistory: []domain.Difficulty{initial},
	}, nil
}

// Advance returns the state after one answered question. Threshold checks
// use the average time from before this answer.
func Advance(s State, correct bool, timeSpent float64) (State, error) {
	if !s.CurrentDifficulty.Valid() {
		return State{}, fmt.Errorf("%w: %q", domain.ErrInvalidDifficulty, s.CurrentDifficulty)
	}
	if timeSpent < 0 {
		return State{}, fmt.Errorf("%w: %v", domain.ErrInvalidTimeSpent, timeSpent)
	}

	next := State{
		CurrentDifficulty: s.CurrentDifficulty,
		TotalQuestions:    s.TotalQuestions + 1,
		CorrectAnswers:    s.CorrectAnswers,
		DifficultyHistory: make([]domain.Difficulty, len(s.DifficultyHistory), len(s.DifficultyHistory)+1),
	}
	copy(next.DifficultyHistory, s.DifficultyHistory)

	// Time-based rules need a baseline; the first answer only sets it.
	hasBaseline := s.TotalQuestions > 0 && s.AverageTime > 0

	if correct {
		next.CorrectStreak = s.CorrectStreak + 1
		next.CorrectAnswers++
		fast := hasBaseline && timeSpent < s.AverageTime*FastRatio
		if next.CorrectStreak >= EscalateStreak || (next.CorrectStreak >= FastEscalateStreak && fast) {
			next.CurrentDifficulty = s.CurrentDifficulty.Raise()
		}
	} else {
		next.IncorrectStreak = s.IncorrectStreak + 1
		slow := hasBaseline && timeSpent > s.AverageTime*SlowRatio
		if next.IncorrectStreak >= DeescalateStreak || slow {
			next.CurrentDifficulty = s.CurrentDifficulty.Lower()
		}
	}

	if !hasBaseline {
		next.AverageTime = timeSpent
	} else {
		next.AverageTime = Smoothing*timeSpent + (1-Smoothing)*s.AverageTime
	}

	next.DifficultyHistory = append(next.DifficultyHistory, next.CurrentDifficulty)

	return next, nil
}

// Accuracy returns the percentage of correct answers.
func (s State) Accuracy() float64 {
	if s.TotalQuestions == 0 {
		return 0
	}
	return float64(s.CorrectAnswers) / float64(s.TotalQuestions) * 100
}
