// Package state holds the condition draft being created or edited.
package state

import (
	"errors"
	"sync"

	"access-tool/internal/features/condition/models"
	"access-tool/internal/features/condition/registry"
)

var ErrNoDraft = errors.New("no condition draft")

// Draft is a snapshot of the editor state.
type Draft struct {
	Condition models.Condition
	// IsSaved is false once any field changed since load or the last save.
	IsSaved    bool
	Prefetched *models.Prefetched
	Categories []models.Category
}

// Store is the editor state. One instance per editing session; it is safe for
// concurrent use, updates apply in call order.
type Store struct {
	registry *registry.Registry

	mu         sync.RWMutex
	draft      models.Condition
	hasDraft   bool
	saved      bool
	prefetched *models.Prefetched
	categories []models.Category

	listenersMu sync.Mutex
	listeners   map[int]func(Draft)
	nextID      int
}

func NewStore(reg *registry.Registry) *Store {
	return &Store{
		registry:  reg,
		listeners: make(map[int]func(Draft)),
	}
}

// SetInitialCondition replaces the draft wholesale and marks it saved.
func (s *Store) SetInitialCondition(c models.Condition) {
	s.mu.Lock()
	if c.Type != s.draft.Type {
		s.categories = nil
	}
	s.draft = c.Clone()
	s.hasDraft = true
	s.saved = true
	s.prefetched = nil
	s.mu.Unlock()
	s.notify()
}

// UpdateCondition merges patch into the draft and marks it unsaved. A type change resets
// the payload and drops the prefetched metadata and categories of the old type.
func (s *Store) UpdateCondition(patch models.Patch) error {
	s.mu.Lock()
	if !s.hasDraft {
		s.mu.Unlock()
		return ErrNoDraft
	}
	next, err := s.draft.Apply(patch)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if next.Type != s.draft.Type {
		s.prefetched = nil
		s.categories = nil
	}
	s.draft = next
	s.saved = false
	s.mu.Unlock()
	s.notify()
	return nil
}

// CleanCondition resets the draft to the initial state of its type and marks it saved.
func (s *Store) CleanCondition() {
	s.mu.Lock()
	if !s.hasDraft {
		s.mu.Unlock()
		return
	}
	if entry, ok := s.registry.Lookup(s.draft.Type); ok {
		s.draft = entry.Initial()
	} else {
		s.draft = models.Condition{Type: s.draft.Type}
	}
	s.saved = true
	s.prefetched = nil
	s.mu.Unlock()
	s.notify()
}

// Clear discards the draft (navigation away or successful save).
func (s *Store) Clear() {
	s.mu.Lock()
	s.draft = models.Condition{}
	s.hasDraft = false
	s.saved = true
	s.prefetched = nil
	s.categories = nil
	s.mu.Unlock()
	s.notify()
}

func (s *Store) SetPrefetched(p *models.Prefetched) {
	s.mu.Lock()
	s.prefetched = p
	s.mu.Unlock()
	s.notify()
}

func (s *Store) SetCategories(categories []models.Category) {
	s.mu.Lock()
	s.categories = append([]models.Category(nil), categories...)
	s.mu.Unlock()
	s.notify()
}

// Draft returns a copy of the current state.
func (s *Store) Draft() (Draft, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked(), s.hasDraft
}

func (s *Store) IsSaved() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saved
}

// Validate runs the type policy over the current draft.
func (s *Store) Validate() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.hasDraft {
		return ErrNoDraft
	}
	return registry.Validate(s.draft, s.categories)
}

// CanSave drives the enabled state of the save button.
func (s *Store) CanSave() bool {
	return s.Validate() == nil
}

// Subscribe registers fn to receive a snapshot after every change.
func (s *Store) Subscribe(fn func(Draft)) (unsubscribe func()) {
	s.listenersMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.listenersMu.Unlock()

	return func() {
		s.listenersMu.Lock()
		delete(s.listeners, id)
		s.listenersMu.Unlock()
	}
}

func (s *Store) snapshotLocked() Draft {
	d := Draft{
		Condition: s.draft.Clone(),
		IsSaved:   s.saved,
	}
	if s.prefetched != nil {
		p := *s.prefetched
		d.Prefetched = &p
	}
	if s.categories != nil {
		d.Categories = append([]models.Category(nil), s.categories...)
	}
	return d
}

func (s *Store) notify() {
	s.mu.RLock()
	snap := s.snapshotLocked()
	s.mu.RUnlock()

	s.listenersMu.Lock()
	fns := make([]func(Draft), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.listenersMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}
