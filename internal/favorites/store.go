// Package favorites keeps the user's saved recipes and persists them to a
// single storage slot.
package favorites

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"culinary/internal/logging"
	"culinary/internal/recipe"
	"culinary/internal/storage"
)

// SlotKey is the fixed storage key holding the serialized favorites list.
const SlotKey = "culinary_favorites"

// writeTimeout bounds a single slot write. Writes ignore the caller's
// cancellation: once memory has changed, the slot must follow.
const writeTimeout = 5 * time.Second

// Store is the authoritative favorites set. It is safe for concurrent use;
// every mutation and the write that persists it happen under one lock, so
// writes reach the slot in the order the mutations were issued.
type Store struct {
	slot   storage.Slot
	logger *zap.Logger

	mu          sync.Mutex
	items       []recipe.Recipe
	index       map[string]struct{}
	ready       bool
	subscribers map[int]chan []recipe.Recipe
	nextSub     int
}

// New creates an empty store over slot. Call Load before relying on persistence.
func New(slot storage.Slot, logger *zap.Logger) *Store {
	return &Store{
		slot:        slot,
		logger:      logging.OrNop(logger),
		index:       make(map[string]struct{}),
		subscribers: make(map[int]chan []recipe.Recipe),
	}
}

// Open creates a store and loads it.
func Open(ctx context.Context, slot storage.Slot, logger *zap.Logger) *Store {
	s := New(slot, logger)
	s.Load(ctx)
	return s
}

// Load reads the persisted favorites. It never fails: an absent, unreadable or
// malformed slot leaves the store empty. The store becomes ready after the
// first call; later calls do nothing.
func (s *Store) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ready {
		return
	}
	defer func() { s.ready = true }()

	data, ok, err := s.slot.Get(ctx, SlotKey)
	if err != nil {
		s.logger.Error("failed to read favorites, starting empty", zap.Error(err))
		return
	}
	if !ok {
		return
	}

	var saved []recipe.Recipe
	if err := json.Unmarshal(data, &saved); err != nil {
		s.logger.Warn("discarding malformed favorites payload", zap.Error(err))
		return
	}

	// Anything added before Load finished is kept after the saved entries.
	pending := s.items
	s.items = nil
	s.index = make(map[string]struct{}, len(saved)+len(pending))
	for _, r := range append(saved, pending...) {
		s.insert(r)
	}
	s.logger.Debug("favorites loaded", zap.Int("count", len(s.items)))
}

// Ready reports whether Load has completed.
func (s *Store) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// IsFavorite reports whether a recipe with id is saved.
func (s *Store) IsFavorite(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.index[id]
	return ok
}

// Favorites returns a copy of the saved recipes in insertion order.
func (s *Store) Favorites() []recipe.Recipe {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Len returns the number of saved recipes.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Add saves r unless a recipe with the same id is already saved, in which case
// the existing copy is kept. It reports whether r was inserted.
func (s *Store) Add(ctx context.Context, r recipe.Recipe) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.insert(r) {
		return false
	}
	s.changed(ctx)
	return true
}

// Remove deletes the recipe with id. It reports whether anything was removed.
func (s *Store) Remove(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.delete(id) {
		return false
	}
	s.changed(ctx)
	return true
}

// Toggle removes r if it is saved and adds it otherwise. It returns whether r
// is saved afterwards.
func (s *Store) Toggle(ctx context.Context, r recipe.Recipe) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	favorite := true
	if _, ok := s.index[r.ID]; ok {
		s.delete(r.ID)
		favorite = false
	} else {
		s.insert(r)
	}
	s.changed(ctx)
	return favorite
}

// Subscribe returns a channel that receives the full list after every change,
// and a function that cancels the subscription. Slow readers only see the
// latest list.
func (s *Store) Subscribe() (<-chan []recipe.Recipe, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan []recipe.Recipe, 1)
	s.subscribers[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subscribers, id)
			close(ch)
		})
	}
	return ch, cancel
}

func (s *Store) insert(r recipe.Recipe) bool {
	if _, ok := s.index[r.ID]; ok {
		return false
	}
	s.index[r.ID] = struct{}{}
	s.items = append(s.items, r)
	return true
}

func (s *Store) delete(id string) bool {
	if _, ok := s.index[id]; !ok {
		return false
	}
	delete(s.index, id)
	for i, r := range s.items {
		if r.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			break
		}
	}
	return true
}

func (s *Store) snapshot() []recipe.Recipe {
	out := make([]recipe.Recipe, len(s.items))
	copy(out, s.items)
	return out
}

// changed persists and publishes the current state. Callers hold s.mu.
func (s *Store) changed(ctx context.Context) {
	if s.ready {
		s.persist(ctx)
	}
	snap := s.snapshot()
	for _, ch := range s.subscribers {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

func (s *Store) persist(ctx context.Context) {
	data, err := json.Marshal(s.snapshot())
	if err != nil {
		s.logger.Error("failed to encode favorites", zap.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()

	if err := s.slot.Put(ctx, SlotKey, data); err != nil {
		s.logger.Error("failed to save favorites", zap.Error(err), zap.Int("count", len(s.items)))
	}
}
