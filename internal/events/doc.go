// Package events carries notifications about learner progress between
// loosely coupled components.
//
// The progress store emits an event after every persisted mutation and the
// sync engine emits one after every pass. Handlers registered on an Emitter
// react to them, for example by requesting a sync when local data changed.
package events
