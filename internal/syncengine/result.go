package syncengine

import (
	"errors"
	"fmt"
	"time"

	"github.com/phrazzld/scry-progress/internal/domain"
)

// Collections, in the order a pass visits them.
const (
	CollectionPreferences = "preferences"
	CollectionProgress    = "progress"
	CollectionQuizzes     = "quiz_attempts"
	CollectionFavorites   = "favorites"
	CollectionNotes       = "notes"
	CollectionXP          = "xp"

	// collectionSession covers failures before any collection is visited.
	collectionSession = "session"
)

// ErrSyncInProgress is reported when a pass is requested while another is
// running. The request is queued, not dropped.
var ErrSyncInProgress = errors.New("sync already in progress")

// CollectionError records a failure, or a conflict, in one collection.
type CollectionError struct {
	Collection string
	Key        string // record key for conflicts, empty for collection-wide failures
	Err        error
}

func (e *CollectionError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("sync %s %s: %v", e.Collection, e.Key, e.Err)
	}
	return fmt.Sprintf("sync %s: %v", e.Collection, e.Err)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *CollectionError) Unwrap() error {
	return e.Err
}

// Result summarizes one pass.
type Result struct {
	// Success is true when the pass ran and recorded no errors or conflicts.
	Success bool `json:"success"`

	// Synced counts records transferred in either direction.
	Synced int `json:"synced"`

	// Conflicts counts records both sides changed since the last sync.
	Conflicts int `json:"conflicts"`

	// Errors holds a *CollectionError per failed collection and per
	// conflict, or ErrSyncInProgress.
	Errors []error `json:"-"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// ErrorMessages renders Errors for display.
func (r Result) ErrorMessages() []string {
	out := make([]string, 0, len(r.Errors))
	for _, err := range r.Errors {
		out = append(out, err.Error())
	}
	return out
}

// failed reports whether any error other than a conflict was recorded.
func (r Result) failed() bool {
	for _, err := range r.Errors {
		if !errors.Is(err, domain.ErrConflict) {
			return true
		}
	}
	return false
}

func (r *Result) fail(collection string, err error) {
	r.Errors = append(r.Errors, &CollectionError{Collection: collection, Err: err})
}

func (r *Result) conflict(collection, key string, policy ConflictPolicy) {
	r.Conflicts++
	r.Errors = append(r.Errors, &CollectionError{
		Collection: collection,
		Key:        key,
		Err:        fmt.Errorf("%w: resolved by %s policy", domain.ErrConflict, policy),
	})
}
