package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"access-tool/internal/common/poll"
	"access-tool/internal/features/wallet/models"
	"access-tool/internal/platform/accessapi"
)

var ErrTaskFailed = errors.New("async task failed")

const defaultTaskInterval = time.Second

// Service wraps the user and wallet endpoints.
type Service struct {
	api          *accessapi.Client
	taskInterval time.Duration
	logger       *zap.Logger
}

func NewService(api *accessapi.Client, taskInterval time.Duration, logger *zap.Logger) *Service {
	if taskInterval <= 0 {
		taskInterval = defaultTaskInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{api: api, taskInterval: taskInterval, logger: logger}
}

// Link submits a wallet proof and returns the id of the task that checks it.
func (s *Service) Link(ctx context.Context, req models.LinkRequest) (string, error) {
	resp, err := accessapi.Post[models.LinkResponse](ctx, s.api, "/users/wallet", req).Unwrap()
	if err != nil {
		return "", err
	}
	if resp.TaskID == "" {
		return "", fmt.Errorf("link wallet %s: empty task id", req.Address)
	}
	s.api.Invalidate(ctx, "/users/me")
	return resp.TaskID, nil
}

func (s *Service) Select(ctx context.Context, address string) error {
	_, err := accessapi.Put[struct{}](ctx, s.api, "/users/wallet", models.SelectRequest{Address: address}).Unwrap()
	if err == nil {
		s.api.Invalidate(ctx, "/users/me")
	}
	return err
}

// Unlink removes the wallet from the user profile.
func (s *Service) Unlink(ctx context.Context) error {
	_, err := accessapi.Delete[struct{}](ctx, s.api, "/users/wallet").Unwrap()
	if err == nil {
		s.api.Invalidate(ctx, "/users/me")
	}
	return err
}

func (s *Service) Me(ctx context.Context) (models.User, error) {
	return accessapi.Get[models.User](ctx, s.api, "/users/me", nil).Unwrap()
}

func (s *Service) Task(ctx context.Context, id string) (models.Task, error) {
	return accessapi.Do[models.Task](ctx, s.api, accessapi.Request{
		Method:  http.MethodGet,
		Path:    "/system/async-tasks/" + url.PathEscape(id),
		NoCache: true,
	}).Unwrap()
}

// AwaitTask polls the task until it finishes. A failed task returns ErrTaskFailed.
func (s *Service) AwaitTask(ctx context.Context, id string) (models.Task, error) {
	var task models.Task
	err := poll.Until(ctx, poll.Options{
		Interval:  s.taskInterval,
		Immediate: true,
		OnError: func(err error) {
			s.logger.Debug("Task status check failed", zap.String("task_id", id), zap.Error(err))
		},
	}, func(ctx context.Context) (bool, error) {
		t, err := s.Task(ctx, id)
		if err != nil {
			return false, err
		}
		task = t
		return t.Done(), nil
	})
	if err != nil {
		return models.Task{}, err
	}
	if task.Status == models.TaskFailed {
		return task, fmt.Errorf("%w: %s", ErrTaskFailed, task.Error)
	}
	return task, nil
}
