// Package postgres implements store.RemoteStore on PostgreSQL.
//
// It is the authoritative copy of learner progress that the sync engine
// reconciles local snapshots against. Connections go through the pgx
// database/sql driver and the schema is managed by embedded goose
// migrations.
package postgres
