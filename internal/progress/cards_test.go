package progress

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/scry-progress/internal/domain"
	"github.com/phrazzld/scry-progress/internal/snapshot"
	"github.com/phrazzld/scry-progress/internal/store"
)

var day1 = time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

func TestInitializeCardIsIdempotent(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(day1)
	s, _ := newTestStore(t, clock)

	require.NoError(t, s.InitializeCard(ctx, "card-1"))
	first, err := s.Schedule("card-1")
	require.NoError(t, err)

	clock.Advance(time.Hour)
	require.NoError(t, s.InitializeCard(ctx, "card-1"))
	second, err := s.Schedule("card-1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, domain.DefaultEaseFactor, first.EaseFactor)
	assert.Equal(t, 0, first.Repetitions)
	assert.Equal(t, day1.AddDate(0, 0, 1), first.NextReview)

	prog, err := s.Progress("card-1")
	require.NoError(t, err)
	assert.Equal(t, 0, prog.ReviewCount)

	assert.ErrorIs(t, s.InitializeCard(ctx, ""), domain.ErrValidation)
}

func TestRecordReviewScenario(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(day1)
	s, _ := newTestStore(t, clock)
	require.NoError(t, s.InitializeCard(ctx, "card-1"))

	r, err := s.RecordReview(ctx, "card-1", 3)
	require.NoError(t, err)
	assert.Equal(t, 1, r.Schedule.Interval)
	assert.Equal(t, 1, r.Schedule.Repetitions)
	assert.InDelta(t, 2.36, r.Schedule.EaseFactor, 1e-9)
	assert.Equal(t, day1.AddDate(0, 0, 1), r.Schedule.NextReview)

	clock.Advance(24 * time.Hour)
	r, err = s.RecordReview(ctx, "card-1", 4)
	require.NoError(t, err)
	assert.Equal(t, 2, r.Schedule.Repetitions)
	assert.Equal(t, 6, r.Schedule.Interval)

	clock.Advance(6 * 24 * time.Hour)
	r, err = s.RecordReview(ctx, "card-1", 5)
	require.NoError(t, err)
	assert.Equal(t, 3, r.Schedule.Repetitions)
	assert.InDelta(t, 2.46, r.Schedule.EaseFactor, 1e-9)
	assert.Equal(t, 15, r.Schedule.Interval)

	prog, err := s.Progress("card-1")
	require.NoError(t, err)
	assert.Equal(t, 3, prog.ReviewCount)
	assert.Equal(t, 3, prog.CorrectCount)
	assert.Equal(t, 0, prog.IncorrectCount)
	assert.Equal(t, domain.Quality(5), prog.MasteryLevel)
	require.NotNil(t, prog.NextReview)
	assert.Equal(t, r.Schedule.NextReview, *prog.NextReview)
}

func TestRecordReviewFailingGrade(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(day1)
	s, _ := newTestStore(t, clock)
	require.NoError(t, s.InitializeCard(ctx, "card-1"))

	r, err := s.RecordReview(ctx, "card-1", 1)
	require.NoError(t, err)
	assert.Equal(t, 0, r.Schedule.Repetitions)
	assert.Equal(t, 1, r.Schedule.Interval)
	assert.Equal(t, 0, r.Streak, "failed reviews do not count towards the streak")

	prog, err := s.Progress("card-1")
	require.NoError(t, err)
	assert.Equal(t, 1, prog.IncorrectCount)
	assert.Nil(t, s.Snapshot().LastStudyDate)
}

func TestRecordReviewValidation(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, newFakeClock(day1))
	require.NoError(t, s.InitializeCard(ctx, "card-1"))
	before := s.Snapshot()

	tests := []struct {
		name    string
		cardID  string
		quality domain.Quality
		wantErr error
	}{
		{"unknown card", "missing", 4, domain.ErrCardNotFound},
		{"quality too high", "card-1", 6, domain.ErrInvalidQuality},
		{"quality negative", "card-1", -1, domain.ErrInvalidQuality},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.RecordReview(ctx, tt.cardID, tt.quality)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.ErrorIs(t, err, domain.ErrValidation)
			assert.Equal(t, before, s.Snapshot())
		})
	}
}

func TestRecordReviewPersistenceFailureKeepsState(t *testing.T) {
	ctx := context.Background()
	repo := &failingRepo{MemorySnapshotRepository: store.NewMemorySnapshotRepository()}
	s, err := Open(ctx, uuid.New(), repo, Options{
		Clock:  newFakeClock(day1).Now,
		Logger: discardLogger(),
	})
	require.NoError(t, err)
	require.NoError(t, s.InitializeCard(ctx, "card-1"))
	before := s.Snapshot()

	repo.fail = true
	_, err = s.RecordReview(ctx, "card-1", 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPersistence)
	assert.Equal(t, before, s.Snapshot())

	repo.fail = false
	_, err = s.RecordReview(ctx, "card-1", 5)
	assert.NoError(t, err)
}

func TestCardsDueOn(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, newFakeClock(day1))

	assert.Empty(t, s.CardsDueOn(day1), "empty store yields no due cards")

	target := time.Date(2026, 3, 12, 15, 0, 0, 0, time.UTC)
	start := time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)
	end := start.Add(24*time.Hour - time.Millisecond)

	due := map[string]time.Time{
		"start":      start,
		"end":        end,
		"midday":     start.Add(12 * time.Hour),
		"before":     start.Add(-time.Millisecond),
		"after":      end.Add(time.Millisecond),
		"far-future": start.AddDate(0, 1, 0),
	}
	require.NoError(t, s.Update(ctx, func(st *snapshot.State) error {
		for id, at := range due {
			st.Schedules[id] = &domain.ReviewSchedule{
				CardID:     id,
				NextReview: at,
				EaseFactor: domain.DefaultEaseFactor,
			}
		}
		return nil
	}))
	before := s.Snapshot()

	got := s.CardsDueOn(target)
	ids := make([]string, 0, len(got))
	for _, sched := range got {
		ids = append(ids, sched.CardID)
	}
	assert.Equal(t, []string{"start", "midday", "end"}, ids)
	assert.Equal(t, before, s.Snapshot(), "CardsDueOn must not mutate")

	// Returned schedules are copies.
	got[0].Interval = 99
	sched, err := s.Schedule("start")
	require.NoError(t, err)
	assert.Equal(t, 0, sched.Interval)
}

func TestCardsDueOnUsesLocation(t *testing.T) {
	ctx := context.Background()
	loc := time.FixedZone("UTC-3", -3*60*60)
	s, err := Open(ctx, uuid.New(), store.NewMemorySnapshotRepository(), Options{
		Clock:    newFakeClock(day1).Now,
		Location: loc,
		Logger:   discardLogger(),
	})
	require.NoError(t, err)

	// 01:00 UTC on the 12th is still the 11th three hours west of Greenwich.
	require.NoError(t, s.Update(ctx, func(st *snapshot.State) error {
		st.Schedules["late"] = &domain.ReviewSchedule{
			CardID:     "late",
			NextReview: time.Date(2026, 3, 12, 1, 0, 0, 0, time.UTC),
			EaseFactor: domain.DefaultEaseFactor,
		}
		return nil
	}))

	assert.Len(t, s.CardsDueOn(time.Date(2026, 3, 11, 12, 0, 0, 0, loc)), 1)
	assert.Empty(t, s.CardsDueOn(time.Date(2026, 3, 12, 12, 0, 0, 0, loc)))
}

func TestCardsDueToday(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock(day1)
	s, _ := newTestStore(t, clock)

	require.NoError(t, s.InitializeCard(ctx, "card-1"))
	assert.Empty(t, s.CardsDueToday())

	clock.Advance(24 * time.Hour)
	due := s.CardsDueToday()
	require.Len(t, due, 1)
	assert.Equal(t, "card-1", due[0].CardID)
}
