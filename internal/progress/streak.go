package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/phrazzld/scry-progress/internal/domain"
	"github.com/phrazzld/scry-progress/internal/events"
	"github.com/phrazzld/scry-progress/internal/snapshot"
)

// UpdateStreak counts today as a study day. The streak starts at 1, grows
// by one on the day after the last study day, is unchanged on the same
// day and restarts at 1 after a gap of two or more days.
func (s *Store) UpdateStreak(ctx context.Context) (int, error) {
	var streak int
	err := s.apply(ctx, events.TypeProgressChanged, func(next *snapshot.State, now time.Time) (any, error) {
		if next.LastStudyDate != nil && sameDay(*next.LastStudyDate, now, s.loc) {
			streak = next.Streak
			return nil, ErrUnchanged
		}
		s.advanceStreak(next, now)
		streak = next.Streak
		return map[string]int{"streak": streak}, nil
	})
	return streak, err
}

// AddStudyTime adds minutes to the accumulated study time.
func (s *Store) AddStudyTime(ctx context.Context, minutes int) (int, error) {
	if minutes < 0 {
		return 0, fmt.Errorf("%w: got %d minutes", domain.ErrInvalidTimeSpent, minutes)
	}

	var total int
	err := s.apply(ctx, events.TypeProgressChanged, func(next *snapshot.State, _ time.Time) (any, error) {
		if minutes == 0 {
			total = next.TotalStudyTime
			return nil, ErrUnchanged
		}
		next.TotalStudyTime += minutes
		total = next.TotalStudyTime
		return map[string]int{"total_study_time": total}, nil
	})
	return total, err
}

// advanceStreak applies the calendar-day streak rules to st.
func (s *Store) advanceStreak(st *snapshot.State, now time.Time) {
	today := midnight(now, s.loc)

	if st.LastStudyDate == nil {
		st.Streak = 1
		st.LastStudyDate = &today
		return
	}

	switch days := calendarDays(*st.LastStudyDate, now, s.loc); {
	case days <= 0:
		// Same day, or a clock that moved backwards.
		return
	case days == 1:
		st.Streak++
	default:
		st.Streak = 1
	}
	st.LastStudyDate = &today
}

func midnight(t time.Time, loc *time.Location) time.Time {
	l := t.In(loc)
	return time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, loc)
}

// calendarDays counts the midnights crossed between from and to in loc.
// It is immune to DST transitions because it compares dates, not durations.
func calendarDays(from, to time.Time, loc *time.Location) int {
	f, t := from.In(loc), to.In(loc)
	fd := time.Date(f.Year(), f.Month(), f.Day(), 0, 0, 0, 0, time.UTC)
	td := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return int(td.Sub(fd).Hours() / 24)
}

func sameDay(a, b time.Time, loc *time.Location) bool {
	return calendarDays(a, b, loc) == 0
}
