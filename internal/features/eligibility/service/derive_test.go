package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	chatmodels "access-tool/internal/features/chat/models"
	condition "access-tool/internal/features/condition/models"
	"access-tool/internal/features/eligibility/models"
)

func cond(id int64, t condition.Type) condition.Condition {
	c := condition.Condition{ID: id, Type: t, IsEnabled: true}
	c.Payload, _ = condition.NewPayload(t)
	return c
}

func TestDeriveActionState(t *testing.T) {
	emoji := cond(1, condition.TypeEmoji)
	jetton := cond(2, condition.TypeJetton)
	premium := cond(3, condition.TypePremium)
	whitelist := cond(4, condition.TypeWhitelist)

	tests := []struct {
		name       string
		chat       chatmodels.Chat
		conditions []condition.Condition
		wallet     string
		checking   bool
		done       models.Completions
		want       string
	}{
		{
			name:       "pending emoji beats eligible chat",
			chat:       chatmodels.Chat{IsEligible: true},
			conditions: []condition.Condition{emoji, premium},
			want:       models.TextCheck,
		},
		{
			name:       "completed emoji lets eligibility through",
			chat:       chatmodels.Chat{IsEligible: true},
			conditions: []condition.Condition{emoji},
			done:       models.CompletionSet{1: true},
			want:       models.TextJoin,
		},
		{
			name:       "eligible",
			chat:       chatmodels.Chat{IsEligible: true},
			conditions: []condition.Condition{jetton},
			want:       models.TextJoin,
		},
		{
			name:       "wallet linked rechecks",
			conditions: []condition.Condition{jetton},
			wallet:     "0:abc",
			checking:   true,
			want:       models.TextCheck,
		},
		{
			name:       "checking",
			conditions: []condition.Condition{jetton},
			checking:   true,
			want:       models.TextChecking,
		},
		{
			name:       "wallet required",
			conditions: []condition.Condition{premium, jetton},
			want:       models.TextConnectWallet,
		},
		{
			name:       "toncoin requires wallet",
			conditions: []condition.Condition{cond(5, condition.TypeToncoin)},
			want:       models.TextConnectWallet,
		},
		{
			name:       "nothing to do",
			conditions: []condition.Condition{premium, whitelist},
			want:       "",
		},
		{
			name: "no conditions",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveActionState(tt.chat, tt.conditions, tt.wallet, tt.checking, tt.done)
			assert.Equal(t, tt.want, got.Text)
			assert.Equal(t, tt.want != "", got.Visible())
		})
	}
}

func TestDeriveActionState_EmojiOverridesEligible(t *testing.T) {
	got := DeriveActionState(chatmodels.Chat{IsEligible: true}, []condition.Condition{cond(1, condition.TypeEmoji)}, "", false, models.CompletionSet{})
	assert.Equal(t, models.ActionCheck, got.Kind)
	assert.NotEqual(t, models.TextJoin, got.Text)
}

func TestDeriveActionState_NoWalletNeededIsHidden(t *testing.T) {
	conditions := []condition.Condition{cond(1, condition.TypePremium), cond(2, condition.TypeGiftCollection), cond(3, condition.TypeStickerCollection)}
	got := DeriveActionState(chatmodels.Chat{}, conditions, "", false, nil)
	assert.Equal(t, models.ActionNone, got.Kind)
	assert.False(t, got.Visible())
}
