// Package syncengine reconciles a learner's local progress snapshot with
// the remote store.
//
// A pass visits the collections in a fixed order: preferences, card
// progress, quiz attempts, favorites, notes and XP. Each collection has its
// own merge policy and its own timeout; a failure in one is recorded in the
// pass Result and does not stop the others. Remote calls that fail because
// the store is unreachable are retried with exponential backoff.
//
// An Engine runs at most one pass at a time. A request that arrives while a
// pass is running is queued in a single slot and runs as soon as the
// current pass ends, so a triggered sync is never lost.
package syncengine
