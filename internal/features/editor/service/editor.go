package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"access-tool/internal/features/condition/models"
	"access-tool/internal/features/condition/registry"
	conditionservice "access-tool/internal/features/condition/service"
	"access-tool/internal/features/editor/state"
)

var (
	// ErrInvalidDraft blocks the save; no request is made.
	ErrInvalidDraft = errors.New("condition draft is not valid")
	ErrNotSaved     = errors.New("condition has no id yet")
)

// ConditionAPI is the subset of the condition service the editor calls.
type ConditionAPI interface {
	Fetch(ctx context.Context, slug string, t models.Type, id int64) (models.Condition, error)
	Create(ctx context.Context, slug string, c models.Condition) (models.Condition, error)
	Update(ctx context.Context, slug string, c models.Condition) (models.Condition, error)
	Delete(ctx context.Context, slug string, t models.Type, id int64) error
	Prefetch(ctx context.Context, t models.Type, address string) (*models.Prefetched, error)
	Categories(ctx context.Context, t models.Type) ([]models.Category, error)
}

var _ ConditionAPI = (*conditionservice.Service)(nil)

// StaleMarker is told when the chat condition list no longer matches the server.
type StaleMarker interface {
	MarkStale()
}

// Editor drives the create and edit flows over a draft store.
type Editor struct {
	store    *state.Store
	api      ConditionAPI
	registry *registry.Registry
	chat     StaleMarker
	logger   *zap.Logger
}

func NewEditor(store *state.Store, api ConditionAPI, reg *registry.Registry, chat StaleMarker, logger *zap.Logger) *Editor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Editor{store: store, api: api, registry: reg, chat: chat, logger: logger}
}

func (e *Editor) Store() *state.Store { return e.store }

// New starts the new-condition flow with the initial draft of t.
func (e *Editor) New(t models.Type, groupID int64) error {
	entry, ok := e.registry.Lookup(t)
	if !ok {
		return fmt.Errorf("%w: %q", registry.ErrUnknownType, t)
	}
	draft := entry.Initial()
	draft.GroupID = groupID
	e.store.SetInitialCondition(draft)
	return nil
}

// Load starts the edit flow: fetch the condition, then categories and prefetch data
// where the type has them. Failures of the latter two are logged, not returned.
func (e *Editor) Load(ctx context.Context, slug string, t models.Type, id int64) error {
	entry, ok := e.registry.Lookup(t)
	if !ok {
		return fmt.Errorf("%w: %q", registry.ErrUnknownType, t)
	}

	c, err := e.api.Fetch(ctx, slug, t, id)
	if err != nil {
		return err
	}
	e.store.SetInitialCondition(c)

	if entry.Categories {
		if err := e.LoadCategories(ctx); err != nil {
			e.logger.Warn("Failed to load categories", zap.String("type", string(t)), zap.Error(err))
		}
	}
	if entry.Prefetch {
		if _, err := e.Prefetch(ctx); err != nil {
			e.logger.Warn("Failed to prefetch condition metadata", zap.String("type", string(t)), zap.Error(err))
		}
	}
	return nil
}

// Prefetch resolves the draft address into metadata and stores it beside the draft.
func (e *Editor) Prefetch(ctx context.Context) (*models.Prefetched, error) {
	draft, ok := e.store.Draft()
	if !ok {
		return nil, state.ErrNoDraft
	}
	address, ok := models.Address(draft.Condition.Payload)
	if !ok || address == "" {
		return nil, nil
	}

	meta, err := e.api.Prefetch(ctx, draft.Condition.Type, address)
	if err != nil {
		return nil, err
	}

	// Пользователь мог сменить тип или адрес, пока шел запрос
	current, ok := e.store.Draft()
	if !ok || current.Condition.Type != draft.Condition.Type {
		return meta, nil
	}
	if addr, _ := models.Address(current.Condition.Payload); addr != address {
		return meta, nil
	}
	e.store.SetPrefetched(meta)
	return meta, nil
}

func (e *Editor) LoadCategories(ctx context.Context) error {
	draft, ok := e.store.Draft()
	if !ok {
		return state.ErrNoDraft
	}
	categories, err := e.api.Categories(ctx, draft.Condition.Type)
	if err != nil {
		return err
	}
	e.store.SetCategories(categories)
	return nil
}

// Save creates or updates the draft. An invalid draft returns ErrInvalidDraft without a
// request. On success the draft is cleared and the chat condition list marked stale.
func (e *Editor) Save(ctx context.Context, slug string) (models.Condition, error) {
	draft, ok := e.store.Draft()
	if !ok {
		return models.Condition{}, state.ErrNoDraft
	}
	// Проверяем тот же снимок, который уйдет в запрос
	if err := registry.Validate(draft.Condition, draft.Categories); err != nil {
		return models.Condition{}, fmt.Errorf("%w: %w", ErrInvalidDraft, err)
	}

	var (
		saved models.Condition
		err   error
	)
	if draft.Condition.ID == 0 {
		saved, err = e.api.Create(ctx, slug, draft.Condition)
	} else {
		saved, err = e.api.Update(ctx, slug, draft.Condition)
	}
	if err != nil {
		return models.Condition{}, err
	}

	e.store.Clear()
	if e.chat != nil {
		e.chat.MarkStale()
	}
	e.logger.Info("Condition saved",
		zap.String("slug", slug),
		zap.String("type", string(saved.Type)),
		zap.Int64("id", saved.ID))
	return saved, nil
}

// Delete removes the condition being edited.
func (e *Editor) Delete(ctx context.Context, slug string) error {
	draft, ok := e.store.Draft()
	if !ok {
		return state.ErrNoDraft
	}
	if draft.Condition.ID == 0 {
		return ErrNotSaved
	}
	if err := e.api.Delete(ctx, slug, draft.Condition.Type, draft.Condition.ID); err != nil {
		return err
	}
	e.store.Clear()
	if e.chat != nil {
		e.chat.MarkStale()
	}
	return nil
}

// Discard drops the draft without saving.
func (e *Editor) Discard() {
	e.store.Clear()
}
