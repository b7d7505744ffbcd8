// Package store defines the persistence boundaries of the progress engine:
// the local key-value store that holds each learner's progress snapshot and
// the remote authoritative store the sync engine reconciles against.
// Implementations live under internal/platform.
package store
