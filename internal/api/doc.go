// Package api exposes the progress engine over HTTP. Handlers resolve the
// authenticated learner's progress store, translate requests into store
// operations and map domain errors to status codes without leaking
// internal details.
package api
