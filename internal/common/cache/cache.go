package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultKey is the fixed session storage key holding the persisted query snapshot.
const DefaultKey = "access-tool:query-cache"

var (
	ErrMiss          = errors.New("cache miss")
	ErrQuotaExceeded = errors.New("session storage quota exceeded")
)

// Backend is the session storage the snapshot is written to.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

type snapshot struct {
	SavedAt time.Time                  `json:"savedAt"`
	Queries map[string]json.RawMessage `json:"queries"`
}

// QueryCache keeps successful query results for the session and mirrors them into a
// Backend under one key. Write failures caused by the quota are dropped.
type QueryCache struct {
	backend Backend
	key     string
	logger  *zap.Logger

	mu      sync.RWMutex
	queries map[string]json.RawMessage

	// persistMu orders snapshot and write so a slower persist cannot overwrite a newer one.
	persistMu sync.Mutex
}

func NewQueryCache(backend Backend, key string, logger *zap.Logger) *QueryCache {
	if key == "" {
		key = DefaultKey
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueryCache{
		backend: backend,
		key:     key,
		logger:  logger,
		queries: make(map[string]json.RawMessage),
	}
}

// Hydrate загружает сохраненный снимок из бэкенда
func (c *QueryCache) Hydrate(ctx context.Context) error {
	data, err := c.backend.Get(ctx, c.key)
	if errors.Is(err, ErrMiss) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read query cache: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		// Битый снимок просто отбрасываем
		c.logger.Warn("Discarding corrupted query cache", zap.Error(err))
		return c.backend.Delete(ctx, c.key)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range snap.Queries {
		c.queries[k] = v
	}
	return nil
}

// Get получает значение из кэша
func (c *QueryCache) Get(queryKey string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.queries[queryKey]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), v...), true
}

// Put сохраняет результат запроса и сбрасывает снимок в бэкенд
func (c *QueryCache) Put(ctx context.Context, queryKey string, data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("query %s: result is not valid JSON", queryKey)
	}
	c.mu.Lock()
	c.queries[queryKey] = append(json.RawMessage(nil), data...)
	c.mu.Unlock()
	return c.persist(ctx)
}

// Invalidate удаляет все запросы с указанным префиксом
func (c *QueryCache) Invalidate(ctx context.Context, prefix string) error {
	c.mu.Lock()
	for k := range c.queries {
		if strings.HasPrefix(k, prefix) {
			delete(c.queries, k)
		}
	}
	c.mu.Unlock()
	return c.persist(ctx)
}

// Clear drops every query and removes the persisted snapshot. The cache belongs to one
// session and must not survive a logout or a new login.
func (c *QueryCache) Clear(ctx context.Context) error {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	c.mu.Lock()
	c.queries = make(map[string]json.RawMessage)
	c.mu.Unlock()

	if err := c.backend.Delete(ctx, c.key); err != nil && !errors.Is(err, ErrMiss) {
		return fmt.Errorf("failed to clear query cache: %w", err)
	}
	return nil
}

func (c *QueryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.queries)
}

func (c *QueryCache) persist(ctx context.Context) error {
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	c.mu.RLock()
	snap := snapshot{SavedAt: time.Now().UTC(), Queries: make(map[string]json.RawMessage, len(c.queries))}
	for k, v := range c.queries {
		snap.Queries[k] = v
	}
	c.mu.RUnlock()

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal query cache: %w", err)
	}

	if err := c.backend.Set(ctx, c.key, data); err != nil {
		if errors.Is(err, ErrQuotaExceeded) {
			c.logger.Debug("Query cache not persisted: quota exceeded", zap.Int("bytes", len(data)))
			return nil
		}
		return fmt.Errorf("failed to persist query cache: %w", err)
	}
	return nil
}
