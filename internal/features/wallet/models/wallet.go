package models

import (
	"time"

	"access-tool/internal/platform/tonconnect"
)

// State of the wallet connect flow
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
)

// LinkRequest is the body of POST /users/wallet: the wallet proof bound to the chat.
type LinkRequest struct {
	ChatSlug  string           `json:"chatSlug,omitempty"`
	Address   string           `json:"address" binding:"required"`
	Network   string           `json:"network"`
	PublicKey string           `json:"publicKey" binding:"required"`
	Proof     tonconnect.Proof `json:"proof" binding:"required"`
}

type LinkResponse struct {
	TaskID string `json:"taskId"`
}

// SelectRequest is the body of PUT /users/wallet.
type SelectRequest struct {
	Address string `json:"address" binding:"required"`
}

// Статусы фоновой задачи
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskProcessing TaskStatus = "processing"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
)

// Task is an async server job, GET /system/async-tasks/{taskId}.
type Task struct {
	ID        string     `json:"taskId"`
	Status    TaskStatus `json:"status"`
	Error     string     `json:"error,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func (t Task) Done() bool {
	return t.Status == TaskCompleted || t.Status == TaskFailed
}

// User is the profile from GET /users/me.
type User struct {
	ID        int64    `json:"id"`
	Username  string   `json:"username"`
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	IsPremium bool     `json:"isPremium"`
	Wallets   []string `json:"wallets"`
}
