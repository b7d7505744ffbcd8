// Package snapshot defines the persisted form of a learner's progress and
// the single codec used to read and write it.
//
// Every snapshot is one versioned JSON document. Timestamps are written in
// RFC 3339 with nanosecond precision, so dates survive a round trip exactly.
// Decode validates the document against an embedded JSON Schema before it
// is unmarshalled, which keeps malformed or truncated data out of the store.
package snapshot
