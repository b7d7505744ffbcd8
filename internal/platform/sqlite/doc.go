// Package sqlite implements the local snapshot store on an embedded,
// pure-Go SQLite database.
package sqlite
