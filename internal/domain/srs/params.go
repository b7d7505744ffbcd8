package srs

import (
	"fmt"

	"github.com/phrazzld/scry-progress/internal/domain"
)

// DefaultMaxInterval caps intervals at roughly a century.
const DefaultMaxInterval = 36500

// Params defines all configurable parameters for the SM-2 scheduler
type Params struct {
	// Core limits
	MinEaseFactor     float64
	InitialEaseFactor float64

	// Lowest quality that counts as a successful recall
	PassThreshold domain.Quality

	// Fixed intervals (days) for the first and second successful repetition
	FirstInterval  int
	SecondInterval int

	// Interval used after a failed recall
	LapseInterval int

	// Longest interval (days) a card can be scheduled out
	MaxInterval int

	// Number of decimal places the ease factor is rounded to
	EaseFactorPrecision int
}

// ParamsConfig allows overriding the default parameters when creating a new Params instance.
// Zero values keep the default.
type ParamsConfig struct {
	MinEaseFactor       float64 `mapstructure:"min_ease_factor"`
	InitialEaseFactor   float64 `mapstructure:"initial_ease_factor"`
	PassThreshold       int     `mapstructure:"pass_threshold"`
	FirstInterval       int     `mapstructure:"first_interval"`
	SecondInterval      int     `mapstructure:"second_interval"`
	LapseInterval       int     `mapstructure:"lapse_interval"`
	MaxInterval         int     `mapstructure:"max_interval"`
	EaseFactorPrecision int     `mapstructure:"ease_factor_precision"`
}

// NewDefaultParams creates a new Params instance with the classic SM-2 values
func NewDefaultParams() *Params {
	return &Params{
		MinEaseFactor:       domain.MinEaseFactor,
		InitialEaseFactor:   domain.DefaultEaseFactor,
		PassThreshold:       domain.QualityPassGrade,
		FirstInterval:       1,
		SecondInterval:      6,
		LapseInterval:       1,
		MaxInterval:         DefaultMaxInterval,
		EaseFactorPrecision: 2,
	}
}

// NewParams creates a new Params instance with custom configuration
func NewParams(config ParamsConfig) *Params {
	params := NewDefaultParams()

	if config.MinEaseFactor > 0 {
		params.MinEaseFactor = config.MinEaseFactor
	}
	if config.InitialEaseFactor > 0 {
		params.InitialEaseFactor = config.InitialEaseFactor
	}
	if config.PassThreshold > 0 {
		params.PassThreshold = domain.Quality(config.PassThreshold)
	}
	if config.FirstInterval > 0 {
		params.FirstInterval = config.FirstInterval
	}
	if config.SecondInterval > 0 {
		params.SecondInterval = config.SecondInterval
	}
	if config.LapseInterval > 0 {
		params.LapseInterval = config.LapseInterval
	}
	if config.MaxInterval > 0 {
		params.MaxInterval = config.MaxInterval
	}
	if config.EaseFactorPrecision > 0 {
		params.EaseFactorPrecision = config.EaseFactorPrecision
	}

	return params
}

// Validate checks that the parameters describe a usable scheduler.
func (p *Params) Validate() error {
	if p.MinEaseFactor <= 0 {
		return fmt.Errorf("%w: min ease factor must be positive", domain.ErrValidation)
	}
	if p.InitialEaseFactor < p.MinEaseFactor {
		return fmt.Errorf("%w: initial ease factor %.2f below minimum %.2f",
			domain.ErrValidation, p.InitialEaseFactor, p.MinEaseFactor)
	}
	if !p.PassThreshold.Valid() {
		return fmt.Errorf("%w: pass threshold %d out of range", domain.ErrValidation, p.PassThreshold)
	}
	if p.FirstInterval < 1 || p.SecondInterval < p.FirstInterval || p.LapseInterval < 1 {
		return fmt.Errorf("%w: intervals must be positive and non-decreasing", domain.ErrValidation)
	}
	if p.MaxInterval < p.SecondInterval || p.MaxInterval < p.LapseInterval {
		return fmt.Errorf("%w: max interval %d below the fixed intervals", domain.ErrValidation, p.MaxInterval)
	}
	return nil
}
