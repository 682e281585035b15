package service

import (
	chatmodels "access-tool/internal/features/chat/models"
	condition "access-tool/internal/features/condition/models"
	"access-tool/internal/features/eligibility/models"
)

// DeriveActionState picks the primary action for the chat page. Branches are checked in
// order and the first match wins:
//
//  1. an emoji condition the user has not marked done: Check
//  2. the chat says the user is eligible: Join Group
//  3. a wallet is linked: Check
//  4. a check is running: Checking…
//  5. a condition needs a wallet and none is linked: Connect Wallet
//  6. otherwise the button is hidden
//
// Emoji status is self-reported, so it overrides the server eligibility flag.
func DeriveActionState(chat chatmodels.Chat, conditions []condition.Condition, wallet string, isChecking bool, done models.Completions) models.Action {
	if done == nil {
		done = models.CompletionSet(nil)
	}

	for _, c := range conditions {
		if c.Type == condition.TypeEmoji && !done.Completed(c.ID) {
			return models.NewAction(models.ActionCheck)
		}
	}

	switch {
	case chat.IsEligible:
		return models.NewAction(models.ActionJoin)
	case wallet != "":
		return models.NewAction(models.ActionCheck)
	case isChecking:
		return models.NewAction(models.ActionChecking)
	case needsWallet(conditions):
		return models.NewAction(models.ActionConnectWallet)
	}
	return models.NewAction(models.ActionNone)
}

func needsWallet(conditions []condition.Condition) bool {
	for _, c := range conditions {
		if c.Type.RequiresWallet() {
			return true
		}
	}
	return false
}
