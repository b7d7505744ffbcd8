package syncengine

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/scry-progress/internal/domain"
	"github.com/phrazzld/scry-progress/internal/events"
	"github.com/phrazzld/scry-progress/internal/store"
)

func TestSyncAll_VisitsCollectionsInOrder(t *testing.T) {
	f := newFixture(t, testConfig())

	res := f.engine.SyncAll(context.Background())

	require.True(t, res.Success, res.ErrorMessages())
	assert.Equal(t, []string{
		"GetPreferences",
		"UpsertPreferences",
		"ListProgress:flashcard",
		"ListProgress:quiz",
		"ListFavorites",
		"ListNotes",
		"GetXP",
	}, f.remote.callLog())
	assert.Equal(t, StateIdle, f.engine.State())
}

func TestSyncAll_PushesLocalProgressOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testConfig())
	s := f.store(t)

	require.NoError(t, s.InitializeCard(ctx, "c1"))
	_, err := s.RecordReview(ctx, "c1", 4)
	require.NoError(t, err)

	res := f.engine.SyncAll(ctx)
	require.True(t, res.Success, res.ErrorMessages())
	assert.Equal(t, 2, res.Synced, "preferences and one card")

	row, ok := f.remote.progress[progressKey(f.userID, store.EntityFlashcard, "c1")]
	require.True(t, ok)
	assert.Equal(t, 80, row.Progress)

	var meta cardMetadata
	require.NoError(t, json.Unmarshal(row.Metadata, &meta))
	assert.Equal(t, 1, meta.Progress.ReviewCount)
	assert.Equal(t, 1, meta.Schedule.Interval, "first successful review is due in one day")

	p, err := s.Progress("c1")
	require.NoError(t, err)
	require.NotNil(t, p.SyncedAt)
	assert.False(t, p.Dirty())
	assert.NotNil(t, s.Snapshot().LastSyncedAt)

	f.remote.resetCalls()
	again := f.engine.SyncAll(ctx)
	require.True(t, again.Success, again.ErrorMessages())
	assert.Zero(t, again.Synced)
	assert.Zero(t, f.remote.count("UpsertProgress"))
	assert.Zero(t, f.remote.count("UpsertPreferences"))
}

func TestSyncAll_PullsRemoteProgress(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testConfig())

	remoteAt := t0.Add(-time.Hour)
	prog := domain.NewStudyProgress("c9", remoteAt)
	prog.ReviewCount = 3
	prog.CorrectCount = 2
	prog.IncorrectCount = 1
	prog.MasteryLevel = 5
	sched := &domain.ReviewSchedule{
		CardID:      "c9",
		NextReview:  t0,
		Interval:    6,
		EaseFactor:  2.6,
		Repetitions: 2,
		Quality:     5,
	}
	row, err := flashcardRow(f.userID, prog, sched)
	require.NoError(t, err)
	require.NoError(t, f.remote.UpsertProgress(ctx, []store.ProgressRow{row}))

	res := f.engine.SyncAll(ctx)
	require.True(t, res.Success, res.ErrorMessages())

	s := f.store(t)
	p, err := s.Progress("c9")
	require.NoError(t, err)
	assert.Equal(t, 3, p.ReviewCount)
	assert.False(t, p.Dirty())

	got, err := s.Schedule("c9")
	require.NoError(t, err)
	assert.Equal(t, 6, got.Interval)
	assert.Equal(t, 2.6, got.EaseFactor)

	due := s.CardsDueToday()
	require.Len(t, due, 1)
	assert.Equal(t, "c9", due[0].CardID)
}

func TestSyncAll_ConcurrentChangeIsAConflict(t *testing.T) {
	tests := []struct {
		name        string
		policy      ConflictPolicy
		wantPulled  bool
		wantReviews int
	}{
		{name: "latest keeps the newer remote", policy: PolicyLatest, wantPulled: true, wantReviews: 1},
		{name: "remote wins", policy: PolicyRemote, wantPulled: true, wantReviews: 1},
		{name: "local wins", policy: PolicyLocal, wantPulled: false, wantReviews: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			cfg := testConfig()
			cfg.ConflictPolicy = tt.policy
			f := newFixture(t, cfg)
			s := f.store(t)

			require.NoError(t, s.InitializeCard(ctx, "c1"))
			_, err := s.RecordReview(ctx, "c1", 4)
			require.NoError(t, err)
			require.True(t, f.engine.SyncAll(ctx).Success)

			// Both sides change after the synced version.
			f.clock.Advance(time.Hour)
			_, err = s.RecordReview(ctx, "c1", 5)
			require.NoError(t, err)

			key := progressKey(f.userID, store.EntityFlashcard, "c1")
			remoteAt := micro(t0.Add(2 * time.Hour))
			f.remote.mu.Lock()
			row := f.remote.progress[key]
			row.UpdatedAt = remoteAt
			f.remote.progress[key] = row
			f.remote.mu.Unlock()

			res := f.engine.SyncAll(ctx)

			assert.False(t, res.Success)
			assert.Equal(t, 1, res.Conflicts)
			require.Len(t, res.Errors, 1)
			assert.ErrorIs(t, res.Errors[0], domain.ErrConflict)

			var cerr *CollectionError
			require.True(t, errors.As(res.Errors[0], &cerr))
			assert.Equal(t, CollectionProgress, cerr.Collection)
			assert.Equal(t, "c1", cerr.Key)

			p, err := s.Progress("c1")
			require.NoError(t, err)
			assert.Equal(t, tt.wantReviews, p.ReviewCount)
			if tt.wantPulled {
				assert.True(t, p.UpdatedAt.Equal(remoteAt))
			} else {
				f.remote.mu.Lock()
				pushed := f.remote.progress[key]
				f.remote.mu.Unlock()
				assert.True(t, pushed.UpdatedAt.Equal(micro(p.UpdatedAt)))
			}

			// A conflict is reported but the pass still counts as synced.
			assert.NotNil(t, s.Snapshot().LastSyncedAt)
		})
	}
}

func TestSyncAll_OnlyLocalChangeIsNotAConflict(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testConfig())
	s := f.store(t)

	require.NoError(t, s.InitializeCard(ctx, "c1"))
	require.True(t, f.engine.SyncAll(ctx).Success)

	f.clock.Advance(time.Hour)
	_, err := s.RecordReview(ctx, "c1", 3)
	require.NoError(t, err)

	res := f.engine.SyncAll(ctx)
	require.True(t, res.Success, res.ErrorMessages())
	assert.Zero(t, res.Conflicts)
	assert.Equal(t, 1, res.Synced)
}

func TestSyncAll_PreferencesRemoteAuthoritative(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testConfig())
	s := f.store(t)

	_, err := s.UpdatePreferences(ctx, domain.Preferences{Theme: "light", Language: "en"})
	require.NoError(t, err)

	require.NoError(t, f.remote.UpsertPreferences(ctx, &store.PreferencesRow{
		UserID:    f.userID,
		Theme:     "dark",
		Language:  "de",
		UpdatedAt: t0.Add(-time.Hour),
	}))
	f.remote.resetCalls()

	res := f.engine.SyncAll(ctx)
	require.True(t, res.Success, res.ErrorMessages())

	prefs := s.Preferences()
	assert.Equal(t, "dark", prefs.Theme)
	assert.Equal(t, "de", prefs.Language)
	assert.Zero(t, f.remote.count("UpsertPreferences"))

	// A later local edit is uploaded since the remote row has not moved.
	f.clock.Advance(time.Minute)
	_, err = s.UpdatePreferences(ctx, domain.Preferences{Theme: "light", Language: "de"})
	require.NoError(t, err)

	res = f.engine.SyncAll(ctx)
	require.True(t, res.Success, res.ErrorMessages())
	assert.Equal(t, 1, f.remote.count("UpsertPreferences"))
	assert.Equal(t, "light", f.remote.prefs[f.userID].Theme)
}

func TestSyncAll_PreferencesRemoteWinsOverUnchangedLocal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testConfig())
	s := f.store(t)

	_, err := s.UpdatePreferences(ctx, domain.Preferences{Theme: "light", Language: "en"})
	require.NoError(t, err)
	res := f.engine.SyncAll(ctx)
	require.True(t, res.Success, res.ErrorMessages())
	require.Equal(t, "light", f.remote.prefs[f.userID].Theme)

	// Another device changes the remote row; the local copy stays as synced.
	f.clock.Advance(time.Minute)
	require.NoError(t, f.remote.UpsertPreferences(ctx, &store.PreferencesRow{
		UserID:    f.userID,
		Theme:     "dark",
		Language:  "fr",
		UpdatedAt: f.clock.Now(),
	}))
	f.remote.resetCalls()

	res = f.engine.SyncAll(ctx)
	require.True(t, res.Success, res.ErrorMessages())
	assert.Equal(t, "dark", s.Preferences().Theme)
	assert.Equal(t, "fr", s.Preferences().Language)
	assert.Zero(t, f.remote.count("UpsertPreferences"))

	// Both sides changed since the last sync: the remote row still wins.
	f.clock.Advance(time.Minute)
	_, err = s.UpdatePreferences(ctx, domain.Preferences{Theme: "system", Language: "fr"})
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	require.NoError(t, f.remote.UpsertPreferences(ctx, &store.PreferencesRow{
		UserID:    f.userID,
		Theme:     "light",
		Language:  "es",
		UpdatedAt: f.clock.Now(),
	}))
	f.remote.resetCalls()

	res = f.engine.SyncAll(ctx)
	require.True(t, res.Success, res.ErrorMessages())
	assert.Equal(t, "light", s.Preferences().Theme)
	assert.Equal(t, "es", s.Preferences().Language)
	assert.Zero(t, f.remote.count("UpsertPreferences"))
}

func TestSyncAll_ResetIsNotUndone(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testConfig())
	s := f.store(t)

	require.NoError(t, s.InitializeCard(ctx, "c1"))
	for i := 0; i < 2; i++ {
		_, err := s.RecordReview(ctx, "c1", 4)
		require.NoError(t, err)
	}
	_, err := s.RecordQuizAttempt(ctx, "q1", domain.QuizAttempt{Score: 9, MaxScore: 10})
	require.NoError(t, err)
	res := f.engine.SyncAll(ctx)
	require.True(t, res.Success, res.ErrorMessages())

	f.clock.Advance(time.Minute)
	require.NoError(t, s.ResetProgress(ctx))

	res = f.engine.SyncAll(ctx)
	require.True(t, res.Success, res.ErrorMessages())
	snap := s.Snapshot()
	assert.Empty(t, snap.Schedules)
	assert.Empty(t, snap.Progress)
	assert.Empty(t, snap.Quizzes)

	// Rows written after the reset are still pulled.
	f.clock.Advance(time.Minute)
	row, err := flashcardRow(f.userID, domain.NewStudyProgress("c2", f.clock.Now()), nil)
	require.NoError(t, err)
	require.NoError(t, f.remote.UpsertProgress(ctx, []store.ProgressRow{row}))

	res = f.engine.SyncAll(ctx)
	require.True(t, res.Success, res.ErrorMessages())
	_, err = s.Progress("c2")
	require.NoError(t, err)
	_, err = s.Progress("c1")
	assert.ErrorIs(t, err, domain.ErrCardNotFound)

	// New local work replaces the stale remote rows.
	f.clock.Advance(time.Minute)
	require.NoError(t, s.InitializeCard(ctx, "c1"))
	_, err = s.RecordReview(ctx, "c1", 3)
	require.NoError(t, err)
	_, err = s.RecordQuizAttempt(ctx, "q1", domain.QuizAttempt{Score: 4, MaxScore: 10})
	require.NoError(t, err)

	res = f.engine.SyncAll(ctx)
	require.True(t, res.Success, res.ErrorMessages())

	p, err := s.Progress("c1")
	require.NoError(t, err)
	assert.Equal(t, 1, p.ReviewCount)
	q, err := s.QuizProgress("q1")
	require.NoError(t, err)
	require.Len(t, q.Attempts, 1)
	assert.Equal(t, 4, q.BestScore)

	f.remote.mu.Lock()
	cardRow := f.remote.progress[progressKey(f.userID, store.EntityFlashcard, "c1")]
	quizRemote := f.remote.progress[progressKey(f.userID, store.EntityQuiz, "q1")]
	f.remote.mu.Unlock()
	var meta cardMetadata
	require.NoError(t, json.Unmarshal(cardRow.Metadata, &meta))
	assert.Equal(t, 1, meta.Progress.ReviewCount)
	remoteQuiz, err := decodeQuiz(quizRemote)
	require.NoError(t, err)
	assert.Len(t, remoteQuiz.Attempts, 1)
	assert.Equal(t, 4, remoteQuiz.BestScore)
}

func TestSyncAll_FavoritesUnion(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testConfig())
	s := f.store(t)

	require.NoError(t, s.AddFavorite(ctx, domain.Favorite{EntityType: "card", EntityID: "c1"}))
	require.NoError(t, f.remote.InsertFavorites(ctx, []store.FavoriteRow{{
		UserID:     f.userID,
		EntityType: "quiz",
		EntityID:   "q1",
		Tags:       []string{"hard"},
		CreatedAt:  t0.Add(-time.Hour),
	}}))
	f.remote.resetCalls()

	res := f.engine.SyncAll(ctx)
	require.True(t, res.Success, res.ErrorMessages())
	assert.Equal(t, 3, res.Synced, "preferences, one upload and one download")

	favs := s.Favorites()
	require.Len(t, favs, 2)
	assert.Equal(t, "card:c1", favs[0].Key())
	assert.Equal(t, "quiz:q1", favs[1].Key())
	assert.Equal(t, []string{"hard"}, favs[1].Tags)
	assert.Len(t, f.remote.favorites, 2)

	again := f.engine.SyncAll(ctx)
	require.True(t, again.Success, again.ErrorMessages())
	assert.Zero(t, again.Synced)
	assert.Equal(t, 1, f.remote.count("InsertFavorites"))
	assert.Len(t, f.remote.favorites, 2)
}

func TestSyncAll_RemovedFavoriteReturnsFromRemote(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testConfig())
	s := f.store(t)

	require.NoError(t, s.AddFavorite(ctx, domain.Favorite{EntityType: "card", EntityID: "c1"}))
	require.True(t, f.engine.SyncAll(ctx).Success)

	require.NoError(t, s.RemoveFavorite(ctx, "card", "c1"))
	assert.Empty(t, s.Favorites())

	require.True(t, f.engine.SyncAll(ctx).Success)
	assert.Len(t, s.Favorites(), 1)
}

func TestSyncAll_QuizAttemptsMerged(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testConfig())
	s := f.store(t)

	_, err := s.RecordQuizAttempt(ctx, "q1", domain.QuizAttempt{Score: 7, MaxScore: 10, TimeSpent: 30})
	require.NoError(t, err)

	remoteAttempt := attempt(9, t0.Add(-time.Hour))
	row, err := quizRow(f.userID, &domain.QuizProgress{
		QuizID:      "q1",
		Attempts:    []domain.QuizAttempt{remoteAttempt},
		BestScore:   9,
		LastAttempt: remoteAttempt.Timestamp,
	}, t0.Add(-time.Hour))
	require.NoError(t, err)
	require.NoError(t, f.remote.UpsertProgress(ctx, []store.ProgressRow{row}))

	res := f.engine.SyncAll(ctx)
	require.True(t, res.Success, res.ErrorMessages())

	q, err := s.QuizProgress("q1")
	require.NoError(t, err)
	require.Len(t, q.Attempts, 2)
	assert.Equal(t, remoteAttempt.ID, q.Attempts[0].ID)
	assert.Equal(t, 9, q.BestScore)

	f.remote.mu.Lock()
	pushed := f.remote.progress[progressKey(f.userID, store.EntityQuiz, "q1")]
	f.remote.mu.Unlock()
	remote, err := decodeQuiz(pushed)
	require.NoError(t, err)
	assert.True(t, sameAttempts(q, remote))
	assert.Equal(t, 70, pushed.Progress)

	again := f.engine.SyncAll(ctx)
	require.True(t, again.Success, again.ErrorMessages())
	assert.Zero(t, again.Synced)
}

func TestSyncAll_Notes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testConfig())
	s := f.store(t)

	local, err := s.SaveNote(ctx, domain.Note{EntityType: "card", EntityID: "c1", Title: "mine"})
	require.NoError(t, err)

	remoteID := uuid.New()
	require.NoError(t, f.remote.UpsertNotes(ctx, []store.NoteRow{{
		ID:         remoteID,
		UserID:     f.userID,
		EntityType: "card",
		EntityID:   "c2",
		Title:      "theirs",
		UpdatedAt:  t0.Add(-time.Hour),
	}}))

	res := f.engine.SyncAll(ctx)
	require.True(t, res.Success, res.ErrorMessages())
	assert.Equal(t, 3, res.Synced)
	assert.Len(t, s.Notes(), 2)
	assert.Equal(t, "mine", f.remote.notes[local.ID].Title)

	// A remote-only edit is pulled without a conflict.
	f.remote.mu.Lock()
	n := f.remote.notes[remoteID]
	n.Title = "theirs, edited"
	n.UpdatedAt = micro(t0.Add(time.Hour))
	f.remote.notes[remoteID] = n
	f.remote.mu.Unlock()

	res = f.engine.SyncAll(ctx)
	require.True(t, res.Success, res.ErrorMessages())
	assert.Equal(t, 1, res.Synced)
	for _, note := range s.Notes() {
		if note.ID == remoteID {
			assert.Equal(t, "theirs, edited", note.Title)
		}
	}
}

func TestSyncAll_XPIsPullOnly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, testConfig())
	f.remote.xp[f.userID] = store.XPRow{
		UserID:        f.userID,
		TotalXP:       1200,
		Level:         4,
		CurrentStreak: 3,
		LongestStreak: 9,
		UpdatedAt:     micro(t0),
	}

	res := f.engine.SyncAll(ctx)
	require.True(t, res.Success, res.ErrorMessages())

	xp := f.store(t).XP()
	require.NotNil(t, xp)
	assert.Equal(t, 1200, xp.TotalXP)
	assert.Equal(t, 4, xp.Level)

	again := f.engine.SyncAll(ctx)
	assert.Zero(t, again.Synced)
}

func TestSyncAll_RetriesUnavailableStore(t *testing.T) {
	f := newFixture(t, testConfig())
	f.remote.failNext("ListFavorites", 2)

	res := f.engine.SyncAll(context.Background())

	require.True(t, res.Success, res.ErrorMessages())
	assert.Equal(t, 3, f.remote.count("ListFavorites"))
}

func TestSyncAll_FailedCollectionDoesNotStopOthers(t *testing.T) {
	f := newFixture(t, testConfig())
	f.remote.failNext("ListNotes", 100)
	f.remote.xp[f.userID] = store.XPRow{UserID: f.userID, TotalXP: 10, UpdatedAt: micro(t0)}

	res := f.engine.SyncAll(context.Background())

	assert.False(t, res.Success)
	require.Len(t, res.Errors, 1)
	assert.ErrorIs(t, res.Errors[0], domain.ErrNetwork)
	assert.ErrorIs(t, res.Errors[0], store.ErrUnavailable)

	var cerr *CollectionError
	require.True(t, errors.As(res.Errors[0], &cerr))
	assert.Equal(t, CollectionNotes, cerr.Collection)
	assert.Equal(t, 4, f.remote.count("ListNotes"), "first try plus three retries")

	s := f.store(t)
	assert.NotNil(t, s.XP(), "later collections still run")
	assert.Nil(t, s.Snapshot().LastSyncedAt)
}

func TestSyncAll_UserProviderFailure(t *testing.T) {
	f := newFixture(t, testConfig())
	e := New(StaticUser(uuid.Nil), f.registry, f.remote, testConfig(), WithLogger(discardLogger()))

	res := e.SyncAll(context.Background())

	assert.False(t, res.Success)
	require.Len(t, res.Errors, 1)
	assert.Empty(t, f.remote.callLog())
}

func TestSyncAll_QueuesOverlappingRequest(t *testing.T) {
	f := newFixture(t, testConfig())

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	f.remote.setHook("GetPreferences", func(ctx context.Context) error {
		first := false
		once.Do(func() { first = true })
		if first {
			close(entered)
			<-release
		}
		return nil
	})

	done := make(chan Result)
	go func() { done <- f.engine.SyncAll(context.Background()) }()
	<-entered

	assert.Equal(t, StateSyncing, f.engine.State())
	busy := f.engine.SyncAll(context.Background())
	assert.False(t, busy.Success)
	require.Len(t, busy.Errors, 1)
	assert.ErrorIs(t, busy.Errors[0], ErrSyncInProgress)
	assert.Equal(t, StateQueued, f.engine.State())

	// A further request while queued takes the same single slot.
	f.engine.Trigger()

	close(release)
	first := <-done
	assert.True(t, first.Success, first.ErrorMessages())

	f.engine.Wait()
	assert.Equal(t, StateIdle, f.engine.State())
	assert.Equal(t, 2, f.remote.count("GetPreferences"), "the queued pass ran exactly once")
}

func TestStopAutoSync_CancelsInFlightPass(t *testing.T) {
	f := newFixture(t, testConfig())

	entered := make(chan struct{})
	var once sync.Once
	f.remote.setHook("GetPreferences", func(ctx context.Context) error {
		once.Do(func() { close(entered) })
		<-ctx.Done()
		return ctx.Err()
	})

	f.engine.Trigger()
	<-entered
	f.engine.StopAutoSync()
	f.engine.Wait()

	assert.Equal(t, StateIdle, f.engine.State())
	assert.Zero(t, f.remote.count("GetXP"), "cancelled pass skips the remaining collections")
}

func TestStartAutoSync_RunsOnTimer(t *testing.T) {
	f := newFixture(t, testConfig())

	require.NoError(t, f.engine.StartAutoSync())
	require.NoError(t, f.engine.StartAutoSync(), "starting twice is a no-op")
	assert.True(t, f.engine.AutoSyncing())

	require.Eventually(t, func() bool {
		return f.remote.count("GetXP") >= 2
	}, 5*time.Second, 10*time.Millisecond)

	f.engine.StopAutoSync()
	assert.False(t, f.engine.AutoSyncing())
}

func TestSyncAll_EmitsResultEvent(t *testing.T) {
	clock := &fakeClock{t: t0}
	f := newFixture(t, testConfig())
	emitter := events.NewInMemoryEmitter(discardLogger())

	var got []*events.Event
	var mu sync.Mutex
	emitter.Subscribe("sync.", events.HandlerFunc(func(_ context.Context, e *events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e)
		return nil
	}))

	e := New(StaticUser(f.userID), f.registry, f.remote, testConfig(),
		WithEmitter(emitter), WithClock(clock.Now), WithLogger(discardLogger()))
	require.True(t, e.SyncAll(context.Background()).Success)

	f.remote.failNext("GetXP", 100)
	require.False(t, e.SyncAll(context.Background()).Success)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 2)
	assert.Equal(t, events.TypeSyncCompleted, got[0].Type)
	assert.Equal(t, events.TypeSyncFailed, got[1].Type)
	assert.Equal(t, f.userID, got[0].UserID)
}
