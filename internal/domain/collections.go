package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Preferences are the learner's application settings.
type Preferences struct {
	Theme                string    `json:"theme"`
	Language             string    `json:"language"`
	ContentMode          string    `json:"content_mode"`
	NotificationsEnabled bool      `json:"notifications_enabled"`
	EmailNotifications   bool      `json:"email_notifications"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// DefaultPreferences returns the settings of a new learner.
func DefaultPreferences() Preferences {
	return Preferences{
		Theme:                "system",
		Language:             "en",
		ContentMode:          "standard",
		NotificationsEnabled: true,
	}
}

// Favorite marks an entity (card, quiz, topic...) as bookmarked.
type Favorite struct {
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Notes      string    `json:"notes,omitempty"`
	Tags       []string  `json:"tags,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Key identifies the favorite within a learner's set.
func (f Favorite) Key() string {
	return EntityKey(f.EntityType, f.EntityID)
}

// Validate checks the entity reference.
func (f Favorite) Validate() error {
	if f.EntityType == "" || f.EntityID == "" {
		return ErrEmptyEntity
	}
	return nil
}

// Clone returns a deep copy.
func (f Favorite) Clone() Favorite {
	c := f
	c.Tags = append([]string(nil), f.Tags...)
	return c
}

// Note is free text attached to an entity.
type Note struct {
	ID         uuid.UUID  `json:"id"`
	EntityType string     `json:"entity_type"`
	EntityID   string     `json:"entity_id"`
	Title      string     `json:"title"`
	Content    string     `json:"content"`
	Tags       []string   `json:"tags,omitempty"`
	UpdatedAt  time.Time  `json:"updated_at"`
	SyncedAt   *time.Time `json:"synced_at,omitempty"`
}

// Validate checks the entity reference.
func (n *Note) Validate() error {
	if n.EntityType == "" || n.EntityID == "" {
		return ErrEmptyEntity
	}
	return nil
}

// Dirty reports whether the note changed since it was last synced.
func (n *Note) Dirty() bool {
	return n.SyncedAt == nil || n.UpdatedAt.After(*n.SyncedAt)
}

// Clone returns a deep copy.
func (n *Note) Clone() *Note {
	if n == nil {
		return nil
	}
	c := *n
	c.Tags = append([]string(nil), n.Tags...)
	c.SyncedAt = cloneTime(n.SyncedAt)
	return &c
}

// XP is the learner's experience record. It is owned by the remote store.
type XP struct {
	TotalXP          int        `json:"total_xp"`
	Level            int        `json:"level"`
	CurrentStreak    int        `json:"current_streak"`
	LongestStreak    int        `json:"longest_streak"`
	LastActivityDate *time.Time `json:"last_activity_date,omitempty"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// EntityKey joins an entity type and ID into a map key.
func EntityKey(entityType, entityID string) string {
	return entityType + ":" + entityID
}

// SplitEntityKey is the inverse of EntityKey.
func SplitEntityKey(key string) (entityType, entityID string) {
	entityType, entityID, _ = strings.Cut(key, ":")
	return entityType, entityID
}
