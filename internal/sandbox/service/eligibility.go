package service

import (
	"slices"

	chatmodels "access-tool/internal/features/chat/models"
	condition "access-tool/internal/features/condition/models"
	"access-tool/internal/sandbox/models"
)

// WalletBalance is the TON balance every linked wallet has in the sandbox.
const WalletBalance = 50.0

// evaluator decides a single condition for one user. On-chain holdings are not looked
// up: a linked wallet holds every jetton and NFT and WalletBalance TON.
type evaluator struct {
	user models.UserRecord
}

func (e evaluator) linked() bool { return e.user.Wallet != "" }

func (e evaluator) Jetton(*condition.Jetton) bool { return e.linked() }

func (e evaluator) Toncoin(p *condition.Toncoin) bool {
	return e.linked() && WalletBalance >= p.Expected
}

func (e evaluator) NFTCollection(*condition.NFTCollection) bool { return e.linked() }

func (e evaluator) StickerCollection(*condition.StickerCollection) bool { return false }

func (e evaluator) GiftCollection(*condition.GiftCollection) bool { return false }

func (e evaluator) Whitelist(p *condition.Whitelist) bool {
	return slices.Contains(p.Users, e.user.Profile.ID)
}

func (e evaluator) Premium(*condition.Premium) bool { return e.user.Profile.IsPremium }

// Эмодзи-статус доступен только с Premium
func (e evaluator) Emoji(*condition.Emoji) bool { return e.user.Profile.IsPremium }

func (e evaluator) ExternalSource(*condition.ExternalSource) bool { return false }

// Evaluate marks every enabled condition of groups for user and reports whether the chat
// admits the user: each group with enabled conditions needs one satisfied condition.
func Evaluate(groups []chatmodels.Group, user models.UserRecord) bool {
	eligible := true
	e := evaluator{user: user}

	for gi := range groups {
		active, satisfied := 0, false
		for ci := range groups[gi].Items {
			c := &groups[gi].Items[ci]
			c.IsEligible = false
			c.Actual = nil
			if !c.IsEnabled {
				continue
			}
			active++

			met, _ := condition.Visit[bool](c.Payload, e)
			c.IsEligible = met
			satisfied = satisfied || met

			if c.Type == condition.TypeToncoin && e.linked() {
				balance := WalletBalance
				c.Actual = &balance
			}
		}
		if active > 0 && !satisfied {
			eligible = false
		}
	}
	return eligible
}
