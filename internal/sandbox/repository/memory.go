package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	walletmodels "access-tool/internal/features/wallet/models"
	"access-tool/internal/sandbox/models"
)

// Memory keeps the whole sandbox state in process. Records are copied in and out.
type Memory struct {
	mu    sync.RWMutex
	chats map[string]*models.ChatRecord
	order []string
	users map[int64]*models.UserRecord
	tasks map[string]walletmodels.Task

	ids atomic.Int64
	now func() time.Time
}

var (
	_ ChatRepository = (*Memory)(nil)
	_ UserRepository = (*Memory)(nil)
	_ TaskRepository = (*Memory)(nil)
)

func NewMemory() *Memory {
	m := &Memory{
		chats: make(map[string]*models.ChatRecord),
		users: make(map[int64]*models.UserRecord),
		tasks: make(map[string]walletmodels.Task),
		now:   time.Now,
	}
	m.ids.Store(100)
	return m
}

func (m *Memory) NextID() int64 {
	return m.ids.Add(1)
}

// ListChats returns the chats in creation order.
func (m *Memory) ListChats(_ context.Context) ([]models.ChatRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.ChatRecord, 0, len(m.order))
	for _, slug := range m.order {
		out = append(out, m.chats[slug].Clone())
	}
	return out, nil
}

func (m *Memory) GetChat(_ context.Context, slug string) (models.ChatRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.chats[slug]
	if !ok {
		return models.ChatRecord{}, ErrChatNotFound
	}
	return rec.Clone(), nil
}

func (m *Memory) CreateChat(_ context.Context, rec models.ChatRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.chats[rec.Chat.Slug]; ok {
		return ErrChatExists
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = m.now()
	}
	stored := rec.Clone()
	m.chats[rec.Chat.Slug] = &stored
	m.order = append(m.order, rec.Chat.Slug)
	return nil
}

func (m *Memory) UpdateChat(_ context.Context, slug string, fn func(rec *models.ChatRecord) error) (models.ChatRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.chats[slug]
	if !ok {
		return models.ChatRecord{}, ErrChatNotFound
	}
	work := rec.Clone()
	if err := fn(&work); err != nil {
		return models.ChatRecord{}, err
	}
	// Слаг менять нельзя: он ключ
	work.Chat.Slug = slug
	*rec = work
	return work.Clone(), nil
}

func (m *Memory) GetUser(_ context.Context, id int64) (models.UserRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.users[id]
	if !ok {
		return models.UserRecord{}, ErrUserNotFound
	}
	return rec.Clone(), nil
}

func (m *Memory) UpsertUser(_ context.Context, profile walletmodels.User) (models.UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.users[profile.ID]
	if !ok {
		rec = &models.UserRecord{
			Profile:   walletmodels.User{ID: profile.ID, Wallets: []string{}},
			CreatedAt: m.now(),
		}
		m.users[profile.ID] = rec
	}
	if profile.Username != "" {
		rec.Profile.Username = profile.Username
	}
	if profile.FirstName != "" {
		rec.Profile.FirstName = profile.FirstName
	}
	if profile.LastName != "" {
		rec.Profile.LastName = profile.LastName
	}
	rec.Profile.IsPremium = rec.Profile.IsPremium || profile.IsPremium
	return rec.Clone(), nil
}

func (m *Memory) UpdateUser(_ context.Context, id int64, fn func(rec *models.UserRecord) error) (models.UserRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.users[id]
	if !ok {
		return models.UserRecord{}, ErrUserNotFound
	}
	work := rec.Clone()
	if err := fn(&work); err != nil {
		return models.UserRecord{}, err
	}
	work.Profile.ID = id
	*rec = work
	return work.Clone(), nil
}

func (m *Memory) GetTask(_ context.Context, id string) (walletmodels.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	task, ok := m.tasks[id]
	if !ok {
		return walletmodels.Task{}, ErrTaskNotFound
	}
	return task, nil
}

func (m *Memory) SaveTask(_ context.Context, task walletmodels.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tasks[task.ID] = task
	return nil
}
