package workers

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	walletmodels "access-tool/internal/features/wallet/models"
)

var ErrStopped = errors.New("task worker stopped")

// Job is the body of an async task. A returned error fails the task with its message.
type Job func(ctx context.Context) error

// TaskStore persists task state between polls.
type TaskStore interface {
	GetTask(ctx context.Context, id string) (walletmodels.Task, error)
	SaveTask(ctx context.Context, task walletmodels.Task) error
}

// TaskWorker runs jobs in the background and records their status, so clients poll
// GET /system/async-tasks/{taskId} for the outcome.
type TaskWorker struct {
	store  TaskStore
	delay  time.Duration
	logger *zap.Logger
	now    func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewTaskWorker starts jobs after delay, which keeps tasks observable in pending state.
func NewTaskWorker(store TaskStore, delay time.Duration, logger *zap.Logger) *TaskWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &TaskWorker{
		store:  store,
		delay:  delay,
		logger: logger,
		now:    time.Now,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Submit records a pending task and starts job.
func (w *TaskWorker) Submit(ctx context.Context, kind string, job Job) (walletmodels.Task, error) {
	if w.ctx.Err() != nil {
		return walletmodels.Task{}, ErrStopped
	}

	now := w.now().UTC()
	task := walletmodels.Task{
		ID:        uuid.NewString(),
		Status:    walletmodels.TaskPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := w.store.SaveTask(ctx, task); err != nil {
		return walletmodels.Task{}, err
	}

	w.wg.Add(1)
	go w.run(task, kind, job)

	w.logger.Debug("Task submitted", zap.String("task_id", task.ID), zap.String("kind", kind))
	return task, nil
}

func (w *TaskWorker) Get(ctx context.Context, id string) (walletmodels.Task, error) {
	return w.store.GetTask(ctx, id)
}

// Close cancels running jobs and waits for them to record their outcome.
func (w *TaskWorker) Close() {
	w.cancel()
	w.wg.Wait()
}

func (w *TaskWorker) run(task walletmodels.Task, kind string, job Job) {
	defer w.wg.Done()

	if w.delay > 0 {
		timer := time.NewTimer(w.delay)
		select {
		case <-w.ctx.Done():
			timer.Stop()
			w.finish(task, kind, ErrStopped)
			return
		case <-timer.C:
		}
	}

	task.Status = walletmodels.TaskProcessing
	task.UpdatedAt = w.now().UTC()
	w.save(task)

	w.finish(task, kind, job(w.ctx))
}

func (w *TaskWorker) finish(task walletmodels.Task, kind string, err error) {
	task.UpdatedAt = w.now().UTC()
	if err != nil {
		task.Status = walletmodels.TaskFailed
		task.Error = err.Error()
		w.logger.Warn("Task failed",
			zap.String("task_id", task.ID),
			zap.String("kind", kind),
			zap.Error(err))
	} else {
		task.Status = walletmodels.TaskCompleted
		w.logger.Info("Task completed", zap.String("task_id", task.ID), zap.String("kind", kind))
	}
	w.save(task)
}

func (w *TaskWorker) save(task walletmodels.Task) {
	// Хранилище не должно зависеть от отмененного контекста воркера
	if err := w.store.SaveTask(context.Background(), task); err != nil {
		w.logger.Error("Failed to save task", zap.String("task_id", task.ID), zap.Error(err))
	}
}
