package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"access-tool/internal/common/validation"
	"access-tool/internal/features/condition/models"
	"access-tool/internal/features/condition/registry"
	"access-tool/internal/platform/accessapi"
)

// Service is the thin API layer of condition management. Every method returns the
// typed payload or the normalized API error.
type Service struct {
	api      *accessapi.Client
	registry *registry.Registry
	logger   *zap.Logger
}

func NewService(api *accessapi.Client, reg *registry.Registry, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{api: api, registry: reg, logger: logger}
}

func (s *Service) Fetch(ctx context.Context, slug string, t models.Type, id int64) (models.Condition, error) {
	path, err := s.rulePath(slug, t, id)
	if err != nil {
		return models.Condition{}, err
	}
	return accessapi.Get[models.Condition](ctx, s.api, path, nil).Unwrap()
}

// Create posts a new condition. The returned condition carries the server id.
func (s *Service) Create(ctx context.Context, slug string, c models.Condition) (models.Condition, error) {
	path, err := s.rulePath(slug, c.Type, 0)
	if err != nil {
		return models.Condition{}, err
	}
	created, err := accessapi.Post[models.Condition](ctx, s.api, path, c).Unwrap()
	if err != nil {
		return models.Condition{}, err
	}
	s.invalidateChat(ctx, slug)
	s.logger.Info("Condition created", zap.String("slug", slug), zap.String("type", string(c.Type)), zap.Int64("id", created.ID))
	return created, nil
}

func (s *Service) Update(ctx context.Context, slug string, c models.Condition) (models.Condition, error) {
	if c.ID == 0 {
		return models.Condition{}, fmt.Errorf("update %s condition: missing id", c.Type)
	}
	path, err := s.rulePath(slug, c.Type, c.ID)
	if err != nil {
		return models.Condition{}, err
	}
	updated, err := accessapi.Put[models.Condition](ctx, s.api, path, c).Unwrap()
	if err != nil {
		return models.Condition{}, err
	}
	s.invalidateChat(ctx, slug)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, slug string, t models.Type, id int64) error {
	path, err := s.rulePath(slug, t, id)
	if err != nil {
		return err
	}
	if _, err := accessapi.Delete[struct{}](ctx, s.api, path).Unwrap(); err != nil {
		return err
	}
	s.invalidateChat(ctx, slug)
	return nil
}

// Prefetch resolves an address into display metadata. Friendly addresses are converted
// to the raw form first.
func (s *Service) Prefetch(ctx context.Context, t models.Type, address string) (*models.Prefetched, error) {
	entry, ok := s.registry.Lookup(t)
	if !ok {
		return nil, fmt.Errorf("%w: %q", registry.ErrUnknownType, t)
	}
	if !entry.Prefetch {
		return nil, fmt.Errorf("%s conditions have no prefetch", t)
	}
	raw, err := validation.RawAddress(address)
	if err != nil {
		return nil, err
	}

	res := accessapi.Do[models.Prefetched](ctx, s.api, accessapi.Request{
		Method:  http.MethodGet,
		Path:    "/admin/resources/prefetch/" + entry.Path,
		Query:   url.Values{"address": {raw}},
		NoCache: true,
	})
	data, err := res.Unwrap()
	if err != nil {
		return nil, err
	}
	return &data, nil
}

func (s *Service) Categories(ctx context.Context, t models.Type) ([]models.Category, error) {
	entry, ok := s.registry.Lookup(t)
	if !ok {
		return nil, fmt.Errorf("%w: %q", registry.ErrUnknownType, t)
	}
	if !entry.Categories {
		return nil, nil
	}
	return accessapi.Get[[]models.Category](ctx, s.api, "/admin/resources/categories/"+entry.Path, nil).Unwrap()
}

func (s *Service) rulePath(slug string, t models.Type, id int64) (string, error) {
	entry, ok := s.registry.Lookup(t)
	if !ok {
		return "", fmt.Errorf("%w: %q", registry.ErrUnknownType, t)
	}
	if err := validation.ValidateSlug(slug); err != nil {
		return "", err
	}
	parts := []string{"/admin/chats", url.PathEscape(slug), "rules", entry.Path}
	if id != 0 {
		parts = append(parts, fmt.Sprintf("%d", id))
	}
	return strings.Join(parts, "/"), nil
}

func (s *Service) invalidateChat(ctx context.Context, slug string) {
	s.api.Invalidate(ctx, "/admin/chats/"+slug)
}
