package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Entity types used in the remote progress table.
const (
	EntityFlashcard = "flashcard"
	EntityQuiz      = "quiz"
)

// PreferencesRow mirrors the user_preferences table. One row per user.
type PreferencesRow struct {
	UserID               uuid.UUID `json:"user_id"`
	Theme                string    `json:"theme"`
	Language             string    `json:"language"`
	ContentMode          string    `json:"content_mode"`
	NotificationsEnabled bool      `json:"notifications_enabled"`
	EmailNotifications   bool      `json:"email_notifications"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// ProgressRow mirrors the user_progress table, keyed by
// (user_id, entity_type, entity_id). Progress is a 0..100 completion
// percentage; Metadata carries the entity-specific detail as JSON.
type ProgressRow struct {
	UserID     uuid.UUID       `json:"user_id"`
	EntityType string          `json:"entity_type"`
	EntityID   string          `json:"entity_id"`
	Progress   int             `json:"progress"`
	Metadata   json.RawMessage `json:"metadata"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// FavoriteRow mirrors the favorites table, keyed by (user_id, entity_type, entity_id).
type FavoriteRow struct {
	UserID     uuid.UUID `json:"user_id"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Notes      string    `json:"notes"`
	Tags       []string  `json:"tags"`
	CreatedAt  time.Time `json:"created_at"`
}

// NoteRow mirrors the notes table, keyed by id.
type NoteRow struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Tags       []string  `json:"tags"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// XPRow mirrors the user_xp table. One row per user.
type XPRow struct {
	UserID           uuid.UUID  `json:"user_id"`
	TotalXP          int        `json:"total_xp"`
	Level            int        `json:"level"`
	CurrentStreak    int        `json:"current_streak"`
	LongestStreak    int        `json:"longest_streak"`
	LastActivityDate *time.Time `json:"last_activity_date"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// RemoteStore is the authoritative backend the sync engine reconciles
// against. All writes are upserts on the natural key so that replaying a
// sync pass is harmless. Rows are never deleted through this interface.
type RemoteStore interface {
	// GetPreferences returns ErrPreferencesNotFound when the user has no row.
	GetPreferences(ctx context.Context, userID uuid.UUID) (*PreferencesRow, error)
	UpsertPreferences(ctx context.Context, row *PreferencesRow) error

	// ListProgress returns the user's progress rows of one entity type.
	ListProgress(ctx context.Context, userID uuid.UUID, entityType string) ([]ProgressRow, error)
	UpsertProgress(ctx context.Context, rows []ProgressRow) error

	ListFavorites(ctx context.Context, userID uuid.UUID) ([]FavoriteRow, error)
	// InsertFavorites adds rows that do not exist yet and leaves existing ones untouched.
	InsertFavorites(ctx context.Context, rows []FavoriteRow) error

	ListNotes(ctx context.Context, userID uuid.UUID) ([]NoteRow, error)
	UpsertNotes(ctx context.Context, rows []NoteRow) error

	// GetXP returns ErrXPNotFound when the user has no row.
	GetXP(ctx context.Context, userID uuid.UUID) (*XPRow, error)
}
