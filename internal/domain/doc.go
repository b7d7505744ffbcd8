// Package domain contains the core learning-progress entities: review
// schedules, per-card progress, quiz history, difficulty levels and the
// learner collections that are synchronized with the remote store.
// It has no knowledge of storage or transport.
package domain
