package progress

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/scry-progress/internal/domain"
	"github.com/phrazzld/scry-progress/internal/events"
	"github.com/phrazzld/scry-progress/internal/snapshot"
)

// Preferences returns the learner's settings.
func (s *Store) Preferences() domain.Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Preferences
}

// UpdatePreferences replaces the learner's settings.
func (s *Store) UpdatePreferences(ctx context.Context, prefs domain.Preferences) (domain.Preferences, error) {
	err := s.apply(ctx, events.TypeProgressChanged, func(next *snapshot.State, now time.Time) (any, error) {
		prefs.UpdatedAt = now
		next.Preferences = prefs
		return map[string]string{"collection": "preferences"}, nil
	})
	return prefs, err
}

// Favorites returns the bookmarked entities ordered by key.
func (s *Store) Favorites() []domain.Favorite {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.state.Favorites))
	for k := range s.state.Favorites {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]domain.Favorite, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.state.Favorites[k].Clone())
	}
	return out
}

// AddFavorite bookmarks an entity. Adding an existing favorite does nothing.
func (s *Store) AddFavorite(ctx context.Context, fav domain.Favorite) error {
	if err := fav.Validate(); err != nil {
		return err
	}

	return s.apply(ctx, events.TypeProgressChanged, func(next *snapshot.State, now time.Time) (any, error) {
		if _, ok := next.Favorites[fav.Key()]; ok {
			return nil, ErrUnchanged
		}
		if fav.CreatedAt.IsZero() {
			fav.CreatedAt = now
		}
		next.Favorites[fav.Key()] = fav.Clone()
		return map[string]string{"collection": "favorites", "key": fav.Key()}, nil
	})
}

// RemoveFavorite drops a bookmark locally. Favorites are merged as a set
// union, so the remote copy is kept and returns on the next sync.
func (s *Store) RemoveFavorite(ctx context.Context, entityType, entityID string) error {
	key := domain.EntityKey(entityType, entityID)
	return s.apply(ctx, "", func(next *snapshot.State, _ time.Time) (any, error) {
		if _, ok := next.Favorites[key]; !ok {
			return nil, ErrUnchanged
		}
		delete(next.Favorites, key)
		return nil, nil
	})
}

// Notes returns the learner's notes ordered by last update, newest first.
func (s *Store) Notes() []*domain.Note {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*domain.Note, 0, len(s.state.Notes))
	for _, n := range s.state.Notes {
		out = append(out, n.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

// SaveNote creates or updates a note. A note without an ID gets a fresh one.
func (s *Store) SaveNote(ctx context.Context, note domain.Note) (*domain.Note, error) {
	if err := note.Validate(); err != nil {
		return nil, err
	}
	if note.ID == uuid.Nil {
		note.ID = uuid.New()
	}

	var saved *domain.Note
	err := s.apply(ctx, events.TypeProgressChanged, func(next *snapshot.State, now time.Time) (any, error) {
		n := note.Clone()
		n.UpdatedAt = now
		n.SyncedAt = nil
		if existing, ok := next.Notes[n.ID.String()]; ok {
			n.SyncedAt = existing.Clone().SyncedAt
		}
		next.Notes[n.ID.String()] = n
		saved = n.Clone()
		return map[string]string{"collection": "notes", "id": n.ID.String()}, nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// XP returns the last XP record pulled from the remote store, if any.
func (s *Store) XP() *domain.XP {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.XP == nil {
		return nil
	}
	xp := *s.state.XP
	return &xp
}
