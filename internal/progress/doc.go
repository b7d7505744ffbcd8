// Package progress implements the per-learner progress store.
//
// A Store owns one learner's review schedules, per-card counters, quiz
// history, study streak and the collections that are synchronized with the
// remote store (preferences, favorites, notes and XP). Every mutation is
// applied to a copy of the state, persisted as a snapshot through a
// store.SnapshotRepository and only then made visible, so a failed
// operation leaves the store exactly as it was.
//
// Stores are not shared between learners. Registry hands out one lazily
// loaded Store per user.
package progress
