// Package models holds the records the sandbox backend keeps in memory.
package models

import (
	"slices"
	"time"

	chatmodels "access-tool/internal/features/chat/models"
	walletmodels "access-tool/internal/features/wallet/models"
)

// ChatRecord is a chat together with its rule groups.
type ChatRecord struct {
	Chat      chatmodels.Chat
	Groups    []chatmodels.Group
	CreatedAt time.Time
	// Момент, когда вступает в силу переключение полного контроля
	ControlEffectiveAt time.Time
}

func (r ChatRecord) Clone() ChatRecord {
	out := r
	out.Groups = chatmodels.CloneGroups(r.Groups)
	return out
}

// RulesCount counts the conditions of all groups.
func (r ChatRecord) RulesCount() int {
	n := 0
	for _, g := range r.Groups {
		n += len(g.Items)
	}
	return n
}

// UserRecord is a Telegram user known to the sandbox.
type UserRecord struct {
	Profile walletmodels.User
	// Выбранный кошелек, один из Profile.Wallets
	Wallet    string
	CreatedAt time.Time
}

func (r UserRecord) Clone() UserRecord {
	out := r
	out.Profile.Wallets = slices.Clone(r.Profile.Wallets)
	return out
}

// BotAdminRequest flips the bot privileges of a chat, PUT /sandbox/chats/{slug}/bot.
type BotAdminRequest struct {
	IsAdmin bool `json:"isAdmin"`
}

// InitDataRequest asks the sandbox to mint signed init data for a test user.
type InitDataRequest struct {
	UserID    int64  `json:"id" binding:"required,gt=0"`
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	IsPremium bool   `json:"isPremium"`
}

type InitDataResponse struct {
	InitDataRaw string `json:"initDataRaw"`
}
