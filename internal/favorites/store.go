// Package favorites keeps the user's favorite recipe ids, persisted to the
// preferences store after every change.
package favorites

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"recipe-finder/internal/domain"
	"recipe-finder/internal/events"
)

// StorageKey is the preferences key holding the JSON array of ids.
const StorageKey = "recipe-favorites"

// Store is an ordered, duplicate-free set of recipe ids.
type Store struct {
	mu     sync.RWMutex
	ids    []int
	undo   removal
	kv     domain.KeyValueStore
	broker *events.Broker
	log    *slog.Logger
}

// removal remembers where the last removed id sat, so re-adding it straight
// away restores the previous order.
type removal struct {
	id    int
	index int
	valid bool
}

// Load reads the persisted favorites once. Absent, unreadable or malformed
// content yields an empty set; it never fails startup. broker may be nil.
func Load(ctx context.Context, kv domain.KeyValueStore, broker *events.Broker, log *slog.Logger) *Store {
	s := &Store{kv: kv, broker: broker, log: log}

	raw, found, err := kv.Get(ctx, StorageKey)
	if err != nil {
		log.Warn("favorites: could not read persisted favorites, starting empty", "error", err)
		return s
	}
	if !found || raw == "" {
		return s
	}

	var ids []int
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		log.Warn("favorites: persisted favorites are malformed, starting empty", "error", err)
		return s
	}
	for _, id := range ids {
		if !slices.Contains(s.ids, id) {
			s.ids = append(s.ids, id)
		}
	}
	log.Debug("favorites: loaded", "count", len(s.ids))
	return s
}

// IsFavorite reports membership.
func (s *Store) IsFavorite(id int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Contains(s.ids, id)
}

// IDs returns the favorites in the order they were added.
func (s *Store) IDs() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.ids)
}

// Len returns the number of favorites.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

// Toggle flips membership of id and persists the whole set before returning.
// The in-memory change stands even when persisting fails.
func (s *Store) Toggle(ctx context.Context, id int) (bool, error) {
	s.mu.Lock()
	favorite := true
	if i := slices.Index(s.ids, id); i >= 0 {
		s.ids = slices.Delete(s.ids, i, i+1)
		s.undo = removal{id: id, index: i, valid: true}
		favorite = false
	} else if s.undo.valid && s.undo.id == id && s.undo.index <= len(s.ids) {
		s.ids = slices.Insert(s.ids, s.undo.index, id)
		s.undo = removal{}
	} else {
		s.ids = append(s.ids, id)
		s.undo = removal{}
	}
	serialized := encode(s.ids)
	count := len(s.ids)
	s.mu.Unlock()

	if s.broker != nil {
		s.broker.Publish(events.TopicFavoriteToggled, events.FavoriteToggled{ID: id, Favorite: favorite, Count: count})
	}

	if err := s.kv.Set(ctx, StorageKey, serialized); err != nil {
		return favorite, fmt.Errorf("persist favorites: %w", err)
	}
	return favorite, nil
}

// Serialized returns the persisted representation of the current set.
func (s *Store) Serialized() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return encode(s.ids)
}

func encode(ids []int) string {
	if len(ids) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(ids)
	return string(b)
}
