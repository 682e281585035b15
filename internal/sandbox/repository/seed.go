package repository

import (
	"context"
	"errors"
	"strings"

	chatmodels "access-tool/internal/features/chat/models"
	condition "access-tool/internal/features/condition/models"
	"access-tool/internal/sandbox/models"
)

// Адреса демо-ресурсов
var (
	SeedNFTCollection = "0:" + strings.Repeat("a1", 32)
	SeedJettonMaster  = "0:" + strings.Repeat("b2", 32)
)

// Seed fills repo with demo chats. Chats that already exist are kept.
func Seed(ctx context.Context, repo ChatRepository) error {
	for _, rec := range seedChats(repo.NextID) {
		if err := repo.CreateChat(ctx, rec); err != nil && !errors.Is(err, ErrChatExists) {
			return err
		}
	}
	return nil
}

func seedChats(nextID func() int64) []models.ChatRecord {
	rule := func(groupID int64, p condition.Payload) condition.Condition {
		return condition.Condition{
			ID:        nextID(),
			Type:      p.Type(),
			GroupID:   groupID,
			IsEnabled: true,
			Payload:   p,
		}
	}
	group := func(items ...func(groupID int64) condition.Condition) chatmodels.Group {
		g := chatmodels.Group{ID: nextID(), Items: []condition.Condition{}}
		for _, item := range items {
			g.Items = append(g.Items, item(g.ID))
		}
		return g
	}
	with := func(p condition.Payload) func(int64) condition.Condition {
		return func(groupID int64) condition.Condition { return rule(groupID, p) }
	}

	return []models.ChatRecord{
		{
			Chat: chatmodels.Chat{
				ID:            nextID(),
				Slug:          "ton-society",
				Title:         "TON Society",
				Username:      "tonsociety",
				Description:   "**Holders club** of TON Society.\n\nHold at least *10 TON* or any item of the society collection, and be a Telegram Premium user.",
				MembersCount:  1520,
				IsEnabled:     true,
				IsFullControl: true,
			},
			Groups: []chatmodels.Group{
				group(
					with(&condition.Toncoin{Expected: 10, Category: "holder"}),
					with(&condition.NFTCollection{Address: SeedNFTCollection, Expected: 1, Category: "holder"}),
				),
				group(with(&condition.Premium{})),
			},
		},
		{
			Chat: chatmodels.Chat{
				ID:           nextID(),
				Slug:         "sticker-club",
				Title:        "Sticker Club",
				Description:  "Set the club emoji as your status or get on the list.",
				MembersCount: 320,
				IsForum:      true,
				IsEnabled:    true,
			},
			Groups: []chatmodels.Group{
				group(
					with(&condition.Emoji{EmojiID: "5368324170671202286"}),
					with(&condition.Whitelist{Name: "Founders", Users: []int64{1, 2, 3}}),
				),
				group(with(&condition.Jetton{Address: SeedJettonMaster, Expected: 100, Category: "holder"})),
			},
		},
		{
			Chat: chatmodels.Chat{
				ID:                     nextID(),
				Slug:                   "dev-lab",
				Title:                  "Dev Lab",
				Description:            "Work in progress.",
				MembersCount:           12,
				InsufficientPrivileges: true,
			},
			Groups: []chatmodels.Group{},
		},
	}
}
