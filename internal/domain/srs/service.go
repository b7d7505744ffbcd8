package srs

import (
	"fmt"
	"time"

	"github.com/phrazzld/scry-progress/internal/domain"
)

// Service defines the interface for review scheduling operations
type Service interface {
	// NextSchedule computes the schedule that follows a review of cardID graded
	// with quality at time now. current may be nil for a card never reviewed.
	NextSchedule(
		current *domain.ReviewSchedule,
		cardID string,
		quality domain.Quality,
		now time.Time,
	) (*domain.ReviewSchedule, error)
}

// defaultService is the standard implementation of the Service interface
type defaultService struct {
	params *Params
}

// NewDefaultService creates a new scheduler with default parameters
func NewDefaultService() Service {
	return &defaultService{
		params: NewDefaultParams(),
	}
}

// NewServiceWithParams creates a new scheduler with custom parameters
func NewServiceWithParams(params *Params) (Service, error) {
	if params == nil {
		params = NewDefaultParams()
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &defaultService{
		params: params,
	}, nil
}

// NextSchedule implements the Service interface
func (s *defaultService) NextSchedule(
	current *domain.ReviewSchedule,
	cardID string,
	quality domain.Quality,
	now time.Time,
) (*domain.ReviewSchedule, error) {
	if !quality.Valid() {
		return nil, fmt.Errorf("%w: got %d", domain.ErrInvalidQuality, quality)
	}

	if current != nil {
		if current.Interval < 0 {
			return nil, fmt.Errorf("%w: got %d", domain.ErrInvalidInterval, current.Interval)
		}
		if cardID == "" {
			cardID = current.CardID
		}
	}

	if cardID == "" {
		return nil, domain.ErrEmptyCardID
	}

	return calculateNextSchedule(current, cardID, quality, now, s.params), nil
}
