package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	walletmodels "access-tool/internal/features/wallet/models"
)

type memStore struct {
	mu    sync.Mutex
	tasks map[string]walletmodels.Task
}

func newMemStore() *memStore {
	return &memStore{tasks: make(map[string]walletmodels.Task)}
}

func (s *memStore) GetTask(_ context.Context, id string) (walletmodels.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[id]
	if !ok {
		return walletmodels.Task{}, errors.New("not found")
	}
	return task, nil
}

func (s *memStore) SaveTask(_ context.Context, task walletmodels.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.ID] = task
	return nil
}

func waitDone(t *testing.T, w *TaskWorker, id string) walletmodels.Task {
	t.Helper()
	var task walletmodels.Task
	require.Eventually(t, func() bool {
		var err error
		task, err = w.Get(context.Background(), id)
		return err == nil && task.Done()
	}, 2*time.Second, 5*time.Millisecond)
	return task
}

func TestTaskWorker_CompletesAndFails(t *testing.T) {
	w := NewTaskWorker(newMemStore(), 0, nil)
	defer w.Close()
	ctx := context.Background()

	ok, err := w.Submit(ctx, "ok", func(context.Context) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, walletmodels.TaskPending, ok.Status)
	assert.NotEmpty(t, ok.ID)

	bad, err := w.Submit(ctx, "bad", func(context.Context) error { return errors.New("boom") })
	require.NoError(t, err)

	assert.Equal(t, walletmodels.TaskCompleted, waitDone(t, w, ok.ID).Status)

	failed := waitDone(t, w, bad.ID)
	assert.Equal(t, walletmodels.TaskFailed, failed.Status)
	assert.Equal(t, "boom", failed.Error)
	assert.False(t, failed.UpdatedAt.Before(failed.CreatedAt))
}

func TestTaskWorker_DelayKeepsTaskPending(t *testing.T) {
	w := NewTaskWorker(newMemStore(), time.Hour, nil)
	ctx := context.Background()

	ran := make(chan struct{}, 1)
	task, err := w.Submit(ctx, "slow", func(context.Context) error {
		ran <- struct{}{}
		return nil
	})
	require.NoError(t, err)

	got, err := w.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, walletmodels.TaskPending, got.Status)

	// Close прерывает ожидание и помечает задачу как неудачную
	w.Close()
	got, err = w.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, walletmodels.TaskFailed, got.Status)
	assert.Equal(t, ErrStopped.Error(), got.Error)
	assert.Empty(t, ran)

	_, err = w.Submit(ctx, "late", func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrStopped)
}
