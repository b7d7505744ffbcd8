package snapshot

import (
	"time"

	"github.com/phrazzld/scry-progress/internal/domain"
)

// CurrentVersion is the version written by Encode.
const CurrentVersion = 1

// State is the complete progress tree of one learner.
type State struct {
	Version int `json:"version"`

	Schedules map[string]*domain.ReviewSchedule `json:"schedules"`
	Progress  map[string]*domain.StudyProgress  `json:"progress"`
	Quizzes   map[string]*domain.QuizProgress   `json:"quizzes"`

	Streak         int        `json:"streak"`
	TotalStudyTime int        `json:"total_study_time"` // minutes
	LastStudyDate  *time.Time `json:"last_study_date,omitempty"`

	Preferences         domain.Preferences         `json:"preferences"`
	PreferencesSyncedAt *time.Time                 `json:"preferences_synced_at,omitempty"`
	Favorites           map[string]domain.Favorite `json:"favorites"` // keyed by domain.EntityKey
	Notes               map[string]*domain.Note    `json:"notes"`     // keyed by note ID
	XP                  *domain.XP                 `json:"xp,omitempty"`

	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
	// ResetAt is when study progress was last cleared. Remote records not
	// updated since then are not pulled back.
	ResetAt *time.Time `json:"reset_at,omitempty"`
}

// New returns an empty tree.
func New() *State {
	return &State{
		Version:     CurrentVersion,
		Schedules:   make(map[string]*domain.ReviewSchedule),
		Progress:    make(map[string]*domain.StudyProgress),
		Quizzes:     make(map[string]*domain.QuizProgress),
		Preferences: domain.DefaultPreferences(),
		Favorites:   make(map[string]domain.Favorite),
		Notes:       make(map[string]*domain.Note),
	}
}

// Clone returns a deep copy of the tree.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}

	c := &State{
		Version:             s.Version,
		Schedules:           make(map[string]*domain.ReviewSchedule, len(s.Schedules)),
		Progress:            make(map[string]*domain.StudyProgress, len(s.Progress)),
		Quizzes:             make(map[string]*domain.QuizProgress, len(s.Quizzes)),
		Streak:              s.Streak,
		TotalStudyTime:      s.TotalStudyTime,
		LastStudyDate:       cloneTime(s.LastStudyDate),
		Preferences:         s.Preferences,
		PreferencesSyncedAt: cloneTime(s.PreferencesSyncedAt),
		Favorites:           make(map[string]domain.Favorite, len(s.Favorites)),
		Notes:               make(map[string]*domain.Note, len(s.Notes)),
		LastSyncedAt:        cloneTime(s.LastSyncedAt),
		ResetAt:             cloneTime(s.ResetAt),
	}

	for k, v := range s.Schedules {
		c.Schedules[k] = v.Clone()
	}
	for k, v := range s.Progress {
		c.Progress[k] = v.Clone()
	}
	for k, v := range s.Quizzes {
		c.Quizzes[k] = v.Clone()
	}
	for k, v := range s.Favorites {
		c.Favorites[k] = v.Clone()
	}
	for k, v := range s.Notes {
		c.Notes[k] = v.Clone()
	}
	if s.XP != nil {
		xp := *s.XP
		xp.LastActivityDate = cloneTime(s.XP.LastActivityDate)
		c.XP = &xp
	}

	return c
}

// normalize replaces nil collections with empty ones.
func (s *State) normalize() {
	if s.Schedules == nil {
		s.Schedules = make(map[string]*domain.ReviewSchedule)
	}
	if s.Progress == nil {
		s.Progress = make(map[string]*domain.StudyProgress)
	}
	if s.Quizzes == nil {
		s.Quizzes = make(map[string]*domain.QuizProgress)
	}
	if s.Favorites == nil {
		s.Favorites = make(map[string]domain.Favorite)
	}
	if s.Notes == nil {
		s.Notes = make(map[string]*domain.Note)
	}
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
