package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	apperrors "access-tool/internal/common/errors"
	"access-tool/internal/common/validation"
	chatmodels "access-tool/internal/features/chat/models"
	walletmodels "access-tool/internal/features/wallet/models"
	"access-tool/internal/sandbox/models"
	"access-tool/internal/sandbox/repository"
)

// Сортировки публичного каталога
const (
	OrderByMembers = "members"
	OrderByTitle   = "title"
	OrderByCreated = "created"
)

// Chats serves the admin and end-user chat endpoints.
type Chats struct {
	chats  repository.ChatRepository
	users  repository.UserRepository
	logger *zap.Logger
	now    func() time.Time
}

func NewChats(chats repository.ChatRepository, users repository.UserRepository, logger *zap.Logger) *Chats {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chats{chats: chats, users: users, logger: logger, now: time.Now}
}

func (s *Chats) ListAdmin(ctx context.Context) ([]chatmodels.ChatListItem, error) {
	recs, err := s.chats.ListChats(ctx)
	if err != nil {
		return nil, repoError(err)
	}
	return listItems(recs), nil
}

// ListPublic returns the enabled chats ordered by orderBy.
func (s *Chats) ListPublic(ctx context.Context, orderBy string) ([]chatmodels.ChatListItem, error) {
	recs, err := s.chats.ListChats(ctx)
	if err != nil {
		return nil, repoError(err)
	}
	recs = slices.DeleteFunc(recs, func(r models.ChatRecord) bool { return !r.Chat.IsEnabled })

	switch orderBy {
	case "", OrderByCreated:
	case OrderByMembers:
		slices.SortStableFunc(recs, func(a, b models.ChatRecord) int {
			return b.Chat.MembersCount - a.Chat.MembersCount
		})
	case OrderByTitle:
		slices.SortStableFunc(recs, func(a, b models.ChatRecord) int {
			return strings.Compare(strings.ToLower(a.Chat.Title), strings.ToLower(b.Chat.Title))
		})
	default:
		return nil, apperrors.New(apperrors.ErrCodeValidation, fmt.Sprintf("Unsupported orderBy %q", orderBy))
	}
	return listItems(recs), nil
}

// AdminChat returns the editable view of the chat.
func (s *Chats) AdminChat(ctx context.Context, slug string, userID int64) (chatmodels.ChatResponse, error) {
	rec, err := s.chats.GetChat(ctx, slug)
	if err != nil {
		return chatmodels.ChatResponse{}, repoError(err)
	}
	user, err := s.user(ctx, userID)
	if err != nil {
		return chatmodels.ChatResponse{}, err
	}
	return response(rec, user), nil
}

// UserChat returns the end-user view: eligibility flags and, once eligible, the join link.
// Disabled chats are not visible to end users.
func (s *Chats) UserChat(ctx context.Context, slug string, userID int64) (chatmodels.ChatResponse, error) {
	rec, err := s.chats.GetChat(ctx, slug)
	if err != nil {
		return chatmodels.ChatResponse{}, repoError(err)
	}
	if !rec.Chat.IsEnabled {
		return chatmodels.ChatResponse{}, apperrors.New(apperrors.ErrCodeNotFound, "Chat not found")
	}
	user, err := s.user(ctx, userID)
	if err != nil {
		return chatmodels.ChatResponse{}, err
	}

	rec.Chat.IsEligible = Evaluate(rec.Groups, user)
	if rec.Chat.IsEligible {
		rec.Chat.JoinURL = joinURL(rec.Chat)
	}
	return response(rec, user), nil
}

func (s *Chats) UpdateDescription(ctx context.Context, slug string, req chatmodels.DescriptionRequest) (chatmodels.Chat, error) {
	if err := validation.ValidateDescription(req.Description); err != nil {
		return chatmodels.Chat{}, fieldError("description", err.Error())
	}
	return s.update(ctx, slug, func(rec *models.ChatRecord) error {
		rec.Chat.Description = strings.TrimSpace(req.Description)
		return nil
	})
}

func (s *Chats) UpdateVisibility(ctx context.Context, slug string, req chatmodels.VisibilityRequest) (chatmodels.Chat, error) {
	return s.update(ctx, slug, func(rec *models.ChatRecord) error {
		if req.IsEnabled && rec.Chat.InsufficientPrivileges {
			return apperrors.New(apperrors.ErrCodeConflict, "The bot is not an admin of the chat")
		}
		rec.Chat.IsEnabled = req.IsEnabled
		return nil
	})
}

// UpdateControl switches full control. A positive EffectiveInDays only records when the
// switch takes effect; the sandbox applies it at once.
func (s *Chats) UpdateControl(ctx context.Context, slug string, req chatmodels.ControlRequest) (chatmodels.Chat, error) {
	if req.EffectiveInDays < 0 {
		return chatmodels.Chat{}, fieldError("effectiveInDays", "must not be negative")
	}
	return s.update(ctx, slug, func(rec *models.ChatRecord) error {
		rec.Chat.IsFullControl = req.IsFullControl
		rec.ControlEffectiveAt = s.now().AddDate(0, 0, req.EffectiveInDays)
		return nil
	})
}

// SetBotAdmin simulates the bot being promoted or demoted in the chat.
func (s *Chats) SetBotAdmin(ctx context.Context, slug string, isAdmin bool) (chatmodels.Chat, error) {
	return s.update(ctx, slug, func(rec *models.ChatRecord) error {
		rec.Chat.InsufficientPrivileges = !isAdmin
		if !isAdmin {
			rec.Chat.IsEnabled = false
		}
		return nil
	})
}

// MoveRule moves a rule to position order of group groupId. Order is clamped to the
// group length.
func (s *Chats) MoveRule(ctx context.Context, slug string, req chatmodels.MoveRequest) error {
	_, err := s.chats.UpdateChat(ctx, slug, func(rec *models.ChatRecord) error {
		from, at := findRule(rec.Groups, req.RuleID)
		if from < 0 {
			return ErrRuleNotFound
		}
		moved := rec.Groups[from].Items[at]
		if req.Type != "" && string(moved.Type) != req.Type {
			return fieldError("type", "does not match the rule")
		}

		to := slices.IndexFunc(rec.Groups, func(g chatmodels.Group) bool { return g.ID == req.GroupID })
		if to < 0 {
			return ErrGroupNotFound
		}

		rec.Groups[from].Items = slices.Delete(rec.Groups[from].Items, at, at+1)
		order := min(max(req.Order, 0), len(rec.Groups[to].Items))
		moved.GroupID = req.GroupID
		rec.Groups[to].Items = slices.Insert(rec.Groups[to].Items, order, moved)
		return nil
	})
	if err != nil {
		return repoError(err)
	}

	s.logger.Info("Rule moved",
		zap.String("slug", slug),
		zap.Int64("rule_id", req.RuleID),
		zap.Int64("group_id", req.GroupID),
		zap.Int("order", req.Order))
	return nil
}

func (s *Chats) update(ctx context.Context, slug string, fn func(rec *models.ChatRecord) error) (chatmodels.Chat, error) {
	rec, err := s.chats.UpdateChat(ctx, slug, fn)
	if err != nil {
		return chatmodels.Chat{}, repoError(err)
	}
	return rec.Chat, nil
}

// user returns the stored user; a user not seen before has no wallet.
func (s *Chats) user(ctx context.Context, userID int64) (models.UserRecord, error) {
	user, err := s.users.GetUser(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return models.UserRecord{Profile: walletmodels.User{ID: userID}}, nil
	}
	if err != nil {
		return models.UserRecord{}, repoError(err)
	}
	return user, nil
}

func findRule(groups []chatmodels.Group, ruleID int64) (group, index int) {
	for gi, g := range groups {
		for ci, c := range g.Items {
			if c.ID == ruleID {
				return gi, ci
			}
		}
	}
	return -1, -1
}

func response(rec models.ChatRecord, user models.UserRecord) chatmodels.ChatResponse {
	resp := chatmodels.ChatResponse{Chat: rec.Chat, Groups: rec.Groups}
	if resp.Groups == nil {
		resp.Groups = []chatmodels.Group{}
	}
	if user.Wallet != "" {
		wallet := user.Wallet
		resp.Wallet = &wallet
	}
	return resp
}

func listItems(recs []models.ChatRecord) []chatmodels.ChatListItem {
	out := make([]chatmodels.ChatListItem, 0, len(recs))
	for _, rec := range recs {
		out = append(out, chatmodels.ChatListItem{Chat: rec.Chat, RulesCount: rec.RulesCount()})
	}
	return out
}

func joinURL(chat chatmodels.Chat) string {
	if chat.Username != "" {
		return "https://t.me/" + chat.Username
	}
	return "https://t.me/+" + chat.Slug
}
