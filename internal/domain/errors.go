package domain

import (
	"errors"
	"fmt"
)

// Error categories used across the application. Specific errors wrap one of
// these so callers can classify failures with errors.Is.
var (
	// ErrValidation is returned when input fails validation. Nothing is mutated
	// when an operation fails with this error.
	ErrValidation = errors.New("validation failed")

	// ErrPersistence is returned when a progress snapshot cannot be encoded,
	// decoded or written. The in-memory state is left untouched.
	ErrPersistence = errors.New("persistence failed")

	// ErrNetwork is returned when the remote store is unreachable or a remote
	// call times out.
	ErrNetwork = errors.New("remote store unavailable")

	// ErrConflict is returned when both the local and the remote copy of a
	// record changed since the last successful sync.
	ErrConflict = errors.New("concurrent modification")
)

// Validation errors for progress entities.
var (
	// ErrInvalidQuality is returned when a review quality is outside 0..5.
	ErrInvalidQuality = fmt.Errorf("%w: quality must be between 0 and 5", ErrValidation)

	// ErrInvalidInterval is returned when a schedule carries a negative interval.
	ErrInvalidInterval = fmt.Errorf("%w: interval must be greater than or equal to 0", ErrValidation)

	// ErrInvalidEaseFactor is returned when a schedule's ease factor is below the minimum.
	ErrInvalidEaseFactor = fmt.Errorf("%w: ease factor must be at least 1.3", ErrValidation)

	// ErrEmptyCardID is returned when a card ID is empty.
	ErrEmptyCardID = fmt.Errorf("%w: card ID cannot be empty", ErrValidation)

	// ErrEmptyQuizID is returned when a quiz ID is empty.
	ErrEmptyQuizID = fmt.Errorf("%w: quiz ID cannot be empty", ErrValidation)

	// ErrInvalidScore is returned when a quiz attempt score is negative.
	ErrInvalidScore = fmt.Errorf("%w: score cannot be negative", ErrValidation)

	// ErrInvalidDifficulty is returned for an unknown difficulty level.
	ErrInvalidDifficulty = fmt.Errorf("%w: invalid difficulty", ErrValidation)

	// ErrInvalidTimeSpent is returned when a response time is negative.
	ErrInvalidTimeSpent = fmt.Errorf("%w: time spent cannot be negative", ErrValidation)

	// ErrCardNotFound is returned when a card was never initialized.
	ErrCardNotFound = fmt.Errorf("%w: card not initialized", ErrValidation)

	// ErrQuizNotFound is returned when no attempt was ever recorded for a quiz.
	ErrQuizNotFound = fmt.Errorf("%w: quiz not found", ErrValidation)

	// ErrEmptyEntity is returned when a favorite or note has no entity reference.
	ErrEmptyEntity = fmt.Errorf("%w: entity type and ID are required", ErrValidation)
)
