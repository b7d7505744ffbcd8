package progress

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/phrazzld/scry-progress/internal/domain"
	"github.com/phrazzld/scry-progress/internal/events"
	"github.com/phrazzld/scry-progress/internal/platform/logger"
	"github.com/phrazzld/scry-progress/internal/snapshot"
)

// ReviewResult is returned by RecordReview.
type ReviewResult struct {
	Schedule *domain.ReviewSchedule `json:"schedule"`
	Progress *domain.StudyProgress  `json:"progress"`
	Streak   int                    `json:"streak"`
}

// InitializeCard creates the schedule and counters of a card. Calling it
// for a card that already exists does nothing.
func (s *Store) InitializeCard(ctx context.Context, cardID string) error {
	if cardID == "" {
		return domain.ErrEmptyCardID
	}

	return s.apply(ctx, events.TypeCardInitialized, func(next *snapshot.State, now time.Time) (any, error) {
		if _, ok := next.Schedules[cardID]; ok {
			return nil, ErrUnchanged
		}

		sched, err := domain.NewReviewSchedule(cardID, now)
		if err != nil {
			return nil, err
		}
		next.Schedules[cardID] = sched
		if _, ok := next.Progress[cardID]; !ok {
			next.Progress[cardID] = domain.NewStudyProgress(cardID, now)
		}
		return map[string]string{"card_id": cardID}, nil
	})
}

// RecordReview grades a review of an initialized card. It reschedules the
// card, updates its counters and, for a passing grade, the study streak.
func (s *Store) RecordReview(ctx context.Context, cardID string, quality domain.Quality) (*ReviewResult, error) {
	if !quality.Valid() {
		return nil, fmt.Errorf("%w: got %d", domain.ErrInvalidQuality, quality)
	}

	var result ReviewResult
	err := s.apply(ctx, events.TypeReviewRecorded, func(next *snapshot.State, now time.Time) (any, error) {
		current, ok := next.Schedules[cardID]
		if !ok {
			return nil, fmt.Errorf("%w: %q", domain.ErrCardNotFound, cardID)
		}

		sched, err := s.scheduler.NextSchedule(current, cardID, quality, now)
		if err != nil {
			return nil, err
		}
		next.Schedules[cardID] = sched

		prog, ok := next.Progress[cardID]
		if !ok {
			prog = domain.NewStudyProgress(cardID, now)
			next.Progress[cardID] = prog
		}
		prog.ApplyReview(sched, now)

		if quality.Passed() {
			s.advanceStreak(next, now)
		}

		result = ReviewResult{
			Schedule: sched.Clone(),
			Progress: prog.Clone(),
			Streak:   next.Streak,
		}
		return map[string]any{
			"card_id":     cardID,
			"quality":     int(quality),
			"interval":    sched.Interval,
			"next_review": sched.NextReview,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	logger.FromContextOrDefault(ctx, s.logger).Debug("review recorded",
		slog.String("card_id", cardID),
		slog.Int("quality", int(quality)),
		slog.Int("interval", result.Schedule.Interval),
		slog.Float64("ease_factor", result.Schedule.EaseFactor))

	return &result, nil
}

// CardsDueOn returns the schedules whose next review falls on the calendar
// day of date, from 00:00:00.000 to 23:59:59.999 inclusive in the store's
// location. Results are ordered by due time, then card ID.
func (s *Store) CardsDueOn(date time.Time) []*domain.ReviewSchedule {
	start, end := dayBounds(date, s.loc)

	s.mu.Lock()
	defer s.mu.Unlock()

	return dueBetween(s.state.Schedules, start, end)
}

// CardsDueToday is CardsDueOn for the current day.
func (s *Store) CardsDueToday() []*domain.ReviewSchedule {
	return s.CardsDueOn(s.now())
}

// Schedule returns a copy of a card's schedule.
func (s *Store) Schedule(cardID string) (*domain.ReviewSchedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sched, ok := s.state.Schedules[cardID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrCardNotFound, cardID)
	}
	return sched.Clone(), nil
}

// Progress returns a copy of a card's counters.
func (s *Store) Progress(cardID string) (*domain.StudyProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prog, ok := s.state.Progress[cardID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrCardNotFound, cardID)
	}
	return prog.Clone(), nil
}

// dueBetween selects the schedules with NextReview in [start, end].
func dueBetween(schedules map[string]*domain.ReviewSchedule, start, end time.Time) []*domain.ReviewSchedule {
	due := make([]*domain.ReviewSchedule, 0)
	for _, sched := range schedules {
		if sched.NextReview.Before(start) || sched.NextReview.After(end) {
			continue
		}
		due = append(due, sched.Clone())
	}

	sort.Slice(due, func(i, j int) bool {
		if !due[i].NextReview.Equal(due[j].NextReview) {
			return due[i].NextReview.Before(due[j].NextReview)
		}
		return due[i].CardID < due[j].CardID
	})
	return due
}

// dayBounds returns the first and the last millisecond of t's calendar day in loc.
func dayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1).Add(-time.Millisecond)
	return start, end
}
