// Package state keeps the chat aggregate of the current viewing session.
package state

import (
	"errors"
	"sync"

	"access-tool/internal/features/chat/models"
	condition "access-tool/internal/features/condition/models"
)

var (
	ErrNoChat        = errors.New("chat is not loaded")
	ErrGroupNotFound = errors.New("condition group not found")
	ErrRuleNotFound  = errors.New("condition not found in group")
)

// Snapshot is a read-only copy of the store.
type Snapshot struct {
	Aggregate models.Aggregate
	Loaded    bool
	Stale     bool
}

// Store holds one chat aggregate. Replace swaps it atomically; the last call wins.
type Store struct {
	mu      sync.RWMutex
	agg     models.Aggregate
	loaded  bool
	stale   bool
	version uint64

	listenersMu sync.Mutex
	listeners   map[int]func(Snapshot)
	nextID      int
}

func NewStore() *Store {
	return &Store{listeners: make(map[int]func(Snapshot))}
}

// Replace sets the whole aggregate and clears the stale flag.
func (s *Store) Replace(agg models.Aggregate) {
	s.mu.Lock()
	s.agg = agg.Clone()
	s.loaded = true
	s.stale = false
	s.version++
	s.mu.Unlock()
	s.notify()
}

// UpdateChat replaces the chat record and leaves the groups alone.
func (s *Store) UpdateChat(chat models.Chat) {
	s.mu.Lock()
	s.agg.Chat = chat
	s.version++
	s.mu.Unlock()
	s.notify()
}

// SetWallet records the wallet linked in this session.
func (s *Store) SetWallet(address string) {
	s.mu.Lock()
	s.agg.Wallet = address
	s.mu.Unlock()
	s.notify()
}

func (s *Store) MarkStale() {
	s.mu.Lock()
	s.stale = true
	s.mu.Unlock()
	s.notify()
}

func (s *Store) IsStale() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stale
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Applied describes a splice done by Move and carries what Rollback needs to undo it.
type Applied struct {
	Move models.Move
	// Type of the moved condition.
	Type condition.Type

	previous []models.Group
	version  uint64
}

// Move splices the condition into the destination group at the clamped index.
func (s *Store) Move(m models.Move) (Applied, error) {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return Applied{}, ErrNoChat
	}

	groups := models.CloneGroups(s.agg.Groups)
	from := groupIndex(groups, m.FromGroupID)
	to := groupIndex(groups, m.ToGroupID)
	if from < 0 || to < 0 {
		s.mu.Unlock()
		return Applied{}, ErrGroupNotFound
	}

	pos := -1
	for i, item := range groups[from].Items {
		if item.ID == m.RuleID {
			pos = i
			break
		}
	}
	if pos < 0 {
		s.mu.Unlock()
		return Applied{}, ErrRuleNotFound
	}

	item := groups[from].Items[pos]
	groups[from].Items = append(groups[from].Items[:pos:pos], groups[from].Items[pos+1:]...)

	dst := groups[to].Items
	idx := min(max(m.Index, 0), len(dst))
	item.GroupID = m.ToGroupID
	dst = append(dst[:idx:idx], append([]condition.Condition{item}, dst[idx:]...)...)
	groups[to].Items = dst

	applied := Applied{
		Move:     m,
		Type:     item.Type,
		previous: s.agg.Groups,
	}
	applied.Move.Index = idx

	s.agg.Groups = groups
	s.agg.Rules = models.Flatten(groups)
	s.version++
	applied.version = s.version
	s.mu.Unlock()

	s.notify()
	return applied, nil
}

// Rollback restores the groups from before a Move. Nothing changes when the aggregate was
// replaced after the move, a newer fetch wins.
func (s *Store) Rollback(a Applied) bool {
	s.mu.Lock()
	if s.version != a.version {
		s.mu.Unlock()
		return false
	}
	s.agg.Groups = a.previous
	s.agg.Rules = models.Flatten(a.previous)
	s.version++
	s.mu.Unlock()
	s.notify()
	return true
}

// Subscribe registers fn to receive a snapshot after every change.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
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

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Aggregate: s.agg.Clone(),
		Loaded:    s.loaded,
		Stale:     s.stale,
	}
}

func (s *Store) notify() {
	s.mu.RLock()
	snap := s.snapshotLocked()
	s.mu.RUnlock()

	s.listenersMu.Lock()
	fns := make([]func(Snapshot), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.listenersMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

func groupIndex(groups []models.Group, id int64) int {
	for i, g := range groups {
		if g.ID == id {
			return i
		}
	}
	return -1
}
