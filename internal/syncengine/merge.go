package syncengine

import (
	"fmt"
	"time"
)

// ConflictPolicy picks the winner when both copies of a record changed
// since they were last in agreement.
type ConflictPolicy string

// Supported policies.
const (
	PolicyRemote ConflictPolicy = "remote"
	PolicyLocal  ConflictPolicy = "local"
	PolicyLatest ConflictPolicy = "latest"
)

// ParseConflictPolicy converts a configuration value.
func ParseConflictPolicy(s string) (ConflictPolicy, error) {
	switch p := ConflictPolicy(s); p {
	case PolicyRemote, PolicyLocal, PolicyLatest:
		return p, nil
	}
	return "", fmt.Errorf("unknown conflict policy %q", s)
}

type action int

const (
	actionNone action = iota
	actionPush
	actionPull
)

func (a action) String() string {
	switch a {
	case actionPush:
		return "push"
	case actionPull:
		return "pull"
	default:
		return "none"
	}
}

// syncTime is the precision timestamps are compared at. The remote store
// keeps microseconds, the snapshot nanoseconds.
func syncTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// decide compares the local and remote versions of one record. local and
// remote are the records' update times, nil when the side has no copy.
// synced is the update time both sides last agreed on.
//
// Without a common base the newer side wins, as plain last-write-wins. With
// one, a record changed on both sides since the base is a conflict and the
// policy picks the winner.
func decide(local, remote, synced *time.Time, policy ConflictPolicy) (act action, conflict bool) {
	switch {
	case local == nil && remote == nil:
		return actionNone, false
	case local == nil:
		return actionPull, false
	case remote == nil:
		return actionPush, false
	}

	l, r := syncTime(*local), syncTime(*remote)
	if l.Equal(r) {
		return actionNone, false
	}

	if synced != nil {
		base := syncTime(*synced)
		if l.After(base) && r.After(base) {
			return resolve(l, r, policy), true
		}
	}

	if l.After(r) {
		return actionPush, false
	}
	return actionPull, false
}

func resolve(local, remote time.Time, policy ConflictPolicy) action {
	switch policy {
	case PolicyLocal:
		return actionPush
	case PolicyRemote:
		return actionPull
	default:
		if local.After(remote) {
			return actionPush
		}
		return actionPull
	}
}

// clearedByReset reports whether a record last updated at updated predates
// the learner's most recent progress reset.
func clearedByReset(resetAt *time.Time, updated time.Time) bool {
	return resetAt != nil && !syncTime(updated).After(syncTime(*resetAt))
}

func timePtr(t time.Time) *time.Time {
	return &t
}
