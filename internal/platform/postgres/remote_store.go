package postgres

import (
	"database/sql"
	"encoding/json"
	"log/slog"
)

// RemoteStore implements store.RemoteStore on PostgreSQL.
type RemoteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewRemoteStore creates a RemoteStore. The connection is owned by the
// caller. If logger is nil, a default logger will be used.
func NewRemoteStore(db *sql.DB, logger *slog.Logger) *RemoteStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RemoteStore{
		db:     db,
		logger: logger.With(slog.String("component", "remote_store")),
	}
}

// encodeTags stores a tag list as a JSON array, never null.
func encodeTags(tags []string) ([]byte, error) {
	if tags == nil {
		tags = []string{}
	}
	return json.Marshal(tags)
}

func decodeTags(raw []byte) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var tags []string
	if err := json.Unmarshal(raw, &tags); err != nil {
		return nil, err
	}
	return tags, nil
}
