package srs

import (
	"math"
	"time"

	"github.com/phrazzld/scry-progress/internal/domain"
)

// calculateNewEaseFactor applies the SM-2 ease factor update.
//
// The ease factor controls how quickly intervals grow for a card. Perfect
// recall nudges it up by 0.1; every grade below 5 pulls it down by a
// quadratically growing amount.
//
// Parameters:
//   - currentEF: The ease factor before this review
//   - quality: The self-graded recall, 0..5
//   - params: Configuration parameters for the scheduler
//
// Returns:
//   - The new ease factor, rounded to params.EaseFactorPrecision decimal places
//     and never below params.MinEaseFactor
func calculateNewEaseFactor(currentEF float64, quality domain.Quality, params *Params) float64 {
	d := float64(domain.QualityMax - quality)
	newEF := currentEF + (0.1 - d*(0.08+d*0.02))
	newEF = roundTo(newEF, params.EaseFactorPrecision)

	if newEF < params.MinEaseFactor {
		newEF = params.MinEaseFactor
	}

	return newEF
}

// calculateNewInterval determines the number of days until the next review.
//
// Parameters:
//   - currentInterval: The interval in days before this review
//   - repetitions: The repetition count after this review has been applied
//   - easeFactor: The card's updated ease factor
//   - passed: Whether the review counts as a successful recall
//   - params: Configuration parameters for the scheduler
//
// Algorithm behavior:
//   - Failed recall: restart the cadence with params.LapseInterval
//   - First successful repetition: params.FirstInterval (1 day)
//   - Second successful repetition: params.SecondInterval (6 days)
//   - Later repetitions: round(currentInterval × easeFactor), capped at params.MaxInterval
func calculateNewInterval(
	currentInterval int,
	repetitions int,
	easeFactor float64,
	passed bool,
	params *Params,
) int {
	if !passed {
		return params.LapseInterval
	}

	switch repetitions {
	case 1:
		return params.FirstInterval
	case 2:
		return params.SecondInterval
	default:
		next := math.Round(float64(currentInterval) * easeFactor)
		if next > float64(params.MaxInterval) {
			return params.MaxInterval
		}
		return int(next)
	}
}

// calculateNextSchedule creates a new ReviewSchedule reflecting a review.
//
// The input schedule is never modified. A nil schedule, or one that has never
// been successfully repeated, is treated as a new card: its ease factor starts
// from params.InitialEaseFactor and it is due again after params.FirstInterval
// days whatever the grade.
func calculateNextSchedule(
	current *domain.ReviewSchedule,
	cardID string,
	quality domain.Quality,
	now time.Time,
	params *Params,
) *domain.ReviewSchedule {
	passed := quality >= params.PassThreshold
	reviewed := now

	next := &domain.ReviewSchedule{
		CardID:       cardID,
		Quality:      quality,
		LastReviewed: &reviewed,
	}

	if current == nil || current.Repetitions == 0 {
		next.EaseFactor = calculateNewEaseFactor(params.InitialEaseFactor, quality, params)
		next.Interval = params.FirstInterval
		if passed {
			next.Repetitions = 1
		}
	} else {
		next.EaseFactor = calculateNewEaseFactor(current.EaseFactor, quality, params)
		if passed {
			next.Repetitions = current.Repetitions + 1
		}
		next.Interval = calculateNewInterval(current.Interval, next.Repetitions, next.EaseFactor, passed, params)
	}

	next.NextReview = now.AddDate(0, 0, next.Interval)

	return next
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
