package repository

import (
	"context"
	"errors"

	walletmodels "access-tool/internal/features/wallet/models"
	"access-tool/internal/sandbox/models"
)

var (
	ErrChatNotFound = errors.New("chat not found")
	ErrChatExists   = errors.New("chat already exists")
	ErrUserNotFound = errors.New("user not found")
	ErrTaskNotFound = errors.New("task not found")
)

// ChatRepository stores chats with their rule groups.
type ChatRepository interface {
	ListChats(ctx context.Context) ([]models.ChatRecord, error)
	GetChat(ctx context.Context, slug string) (models.ChatRecord, error)
	CreateChat(ctx context.Context, rec models.ChatRecord) error
	// UpdateChat applies fn to the stored record atomically. The record is left
	// unchanged when fn fails.
	UpdateChat(ctx context.Context, slug string, fn func(rec *models.ChatRecord) error) (models.ChatRecord, error)
	// NextID returns a fresh id for chats, groups and rules.
	NextID() int64
}

type UserRepository interface {
	GetUser(ctx context.Context, id int64) (models.UserRecord, error)
	// UpsertUser creates the user or refreshes the Telegram profile fields, keeping wallets.
	UpsertUser(ctx context.Context, profile walletmodels.User) (models.UserRecord, error)
	UpdateUser(ctx context.Context, id int64, fn func(rec *models.UserRecord) error) (models.UserRecord, error)
}

type TaskRepository interface {
	GetTask(ctx context.Context, id string) (walletmodels.Task, error)
	SaveTask(ctx context.Context, task walletmodels.Task) error
}
