package service

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	apperrors "access-tool/internal/common/errors"
	"access-tool/internal/common/poll"
	"access-tool/internal/common/validation"
	"access-tool/internal/features/chat/models"
	"access-tool/internal/features/chat/state"
	"access-tool/internal/platform/accessapi"
)

const defaultBotPollInterval = 3 * time.Second

// Service loads the chat aggregate into the store and applies chat-level mutations.
type Service struct {
	api    *accessapi.Client
	store  *state.Store
	logger *zap.Logger
}

func NewService(api *accessapi.Client, store *state.Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{api: api, store: store, logger: logger}
}

func (s *Service) Store() *state.Store { return s.store }

// FetchChat loads the admin view of the chat and replaces the aggregate.
func (s *Service) FetchChat(ctx context.Context, slug string) (models.Aggregate, error) {
	return s.fetch(ctx, models.ViewAdmin, slug, false)
}

// FetchUserChat loads the end-user view (eligibility, membership, join link).
func (s *Service) FetchUserChat(ctx context.Context, slug string) (models.Aggregate, error) {
	return s.fetch(ctx, models.ViewUser, slug, false)
}

// Refresh re-reads the chat in the view that is currently loaded, bypassing the cache.
func (s *Service) Refresh(ctx context.Context, slug string) (models.Aggregate, error) {
	view := s.store.Snapshot().Aggregate.View
	if view == "" {
		view = models.ViewUser
	}
	return s.fetch(ctx, view, slug, true)
}

func (s *Service) fetch(ctx context.Context, view models.View, slug string, fresh bool) (models.Aggregate, error) {
	path, err := chatPath(view, slug)
	if err != nil {
		return models.Aggregate{}, err
	}
	resp, err := accessapi.Do[models.ChatResponse](ctx, s.api, accessapi.Request{
		Method:  http.MethodGet,
		Path:    path,
		NoCache: fresh,
	}).Unwrap()
	if err != nil {
		return models.Aggregate{}, err
	}

	agg := models.NewAggregate(view, resp)
	s.store.Replace(agg)
	return agg, nil
}

func (s *Service) UpdateChatVisibility(ctx context.Context, slug string, enabled bool) (models.Chat, error) {
	return s.updateChat(ctx, slug, "/visibility", models.VisibilityRequest{IsEnabled: enabled})
}

func (s *Service) UpdateChatDescription(ctx context.Context, slug, description string) (models.Chat, error) {
	if err := validation.ValidateDescription(description); err != nil {
		return models.Chat{}, apperrors.NewClientValidationError("description", err.Error())
	}
	return s.updateChat(ctx, slug, "", models.DescriptionRequest{Description: description})
}

// UpdateChatControl toggles full management of the chat. effectiveInDays delays the
// switch on the server side.
func (s *Service) UpdateChatControl(ctx context.Context, slug string, fullControl bool, effectiveInDays int) (models.Chat, error) {
	if effectiveInDays < 0 {
		return models.Chat{}, apperrors.NewClientValidationError("effectiveInDays", "must not be negative")
	}
	return s.updateChat(ctx, slug, "/control", models.ControlRequest{
		IsFullControl:   fullControl,
		EffectiveInDays: effectiveInDays,
	})
}

// updateChat is pessimistic: the store only changes to what the server echoes back.
func (s *Service) updateChat(ctx context.Context, slug, suffix string, body interface{}) (models.Chat, error) {
	path, err := chatPath(models.ViewAdmin, slug)
	if err != nil {
		return models.Chat{}, err
	}
	chat, err := accessapi.Put[models.Chat](ctx, s.api, path+suffix, body).Unwrap()
	if err != nil {
		return models.Chat{}, err
	}
	s.store.UpdateChat(chat)
	s.api.Invalidate(ctx, path)
	return chat, nil
}

// MoveCondition reorders locally and persists the move with one request. When the
// request fails the local order is reverted and the error returned.
func (s *Service) MoveCondition(ctx context.Context, slug string, m models.Move) error {
	path, err := chatPath(models.ViewAdmin, slug)
	if err != nil {
		return err
	}
	applied, err := s.store.Move(m)
	if err != nil {
		return err
	}

	_, err = accessapi.Put[struct{}](ctx, s.api, path+"/rules/move", models.MoveRequest{
		RuleID:  m.RuleID,
		GroupID: m.ToGroupID,
		Type:    string(applied.Type),
		Order:   applied.Move.Index,
	}).Unwrap()
	if err != nil {
		reverted := s.store.Rollback(applied)
		s.logger.Warn("Failed to persist condition move",
			zap.String("slug", slug),
			zap.Int64("rule_id", m.RuleID),
			zap.Bool("reverted", reverted),
			zap.Error(err))
		return err
	}

	s.api.Invalidate(ctx, path)
	return nil
}

// AwaitBotAdmin polls the admin view until the bot has sufficient privileges in the chat.
// Cancel ctx to stop waiting.
func (s *Service) AwaitBotAdmin(ctx context.Context, slug string, interval time.Duration) (models.Chat, error) {
	if interval <= 0 {
		interval = defaultBotPollInterval
	}

	var chat models.Chat
	err := poll.Until(ctx, poll.Options{
		Interval:  interval,
		Immediate: true,
		OnError: func(err error) {
			s.logger.Debug("Bot privileges check failed", zap.String("slug", slug), zap.Error(err))
		},
	}, func(ctx context.Context) (bool, error) {
		agg, err := s.fetch(ctx, models.ViewAdmin, slug, true)
		if err != nil {
			return false, err
		}
		chat = agg.Chat
		return !agg.Chat.InsufficientPrivileges, nil
	})
	if err != nil {
		return models.Chat{}, err
	}
	return chat, nil
}

func (s *Service) ListAdminChats(ctx context.Context) ([]models.ChatListItem, error) {
	return accessapi.Get[[]models.ChatListItem](ctx, s.api, "/admin/chats", nil).Unwrap()
}

// ListPublicChats returns the chat catalog. orderBy is passed through as is.
func (s *Service) ListPublicChats(ctx context.Context, orderBy string) ([]models.ChatListItem, error) {
	var query url.Values
	if orderBy != "" {
		query = url.Values{"orderBy": {orderBy}}
	}
	return accessapi.Get[[]models.ChatListItem](ctx, s.api, "/chats/", query).Unwrap()
}

func chatPath(view models.View, slug string) (string, error) {
	if err := validation.ValidateSlug(slug); err != nil {
		return "", apperrors.NewClientValidationError("slug", err.Error())
	}
	if view == models.ViewAdmin {
		return "/admin/chats/" + slug, nil
	}
	return "/chats/" + slug, nil
}
