package models

import (
	condition "access-tool/internal/features/condition/models"
)

// Chat представляет чат или канал под контролем доступа
type Chat struct {
	ID                     int64  `json:"id"`
	Slug                   string `json:"slug" binding:"required"`
	Title                  string `json:"title"`
	Username               string `json:"username,omitempty"`
	Logo                   string `json:"logoPath,omitempty"`
	Description            string `json:"description"`
	MembersCount           int    `json:"membersCount"`
	IsForum                bool   `json:"isForum"`
	IsEnabled              bool   `json:"isEnabled"`
	IsFullControl          bool   `json:"isFullControl"`
	InsufficientPrivileges bool   `json:"insufficientPrivileges"`

	// Только в пользовательском представлении
	IsEligible bool   `json:"isEligible"`
	IsMember   bool   `json:"isMember"`
	JoinURL    string `json:"joinUrl,omitempty"`
}

// Group is an ordered OR-set of conditions.
type Group struct {
	ID    int64                 `json:"id"`
	Items []condition.Condition `json:"items"`
}

// ChatResponse is the body of GET /admin/chats/{slug} and GET /chats/{slug}.
type ChatResponse struct {
	Chat   Chat    `json:"chat"`
	Groups []Group `json:"groups"`
	// Адрес привязанного кошелька, если есть
	Wallet *string `json:"wallet"`
}

// View says which representation of the chat is loaded.
type View string

const (
	ViewAdmin View = "admin"
	ViewUser  View = "user"
)

// Aggregate is the chat-scoped cache of a viewing session.
type Aggregate struct {
	View   View
	Chat   Chat
	Groups []Group
	// Rules is Groups flattened in display order.
	Rules  []condition.Condition
	Wallet string
}

// NewAggregate builds the aggregate from a chat response.
func NewAggregate(view View, resp ChatResponse) Aggregate {
	agg := Aggregate{
		View:   view,
		Chat:   resp.Chat,
		Groups: resp.Groups,
	}
	if resp.Wallet != nil {
		agg.Wallet = *resp.Wallet
	}
	agg.Rules = Flatten(agg.Groups)
	return agg
}

// Flatten returns all conditions of groups in order.
func Flatten(groups []Group) []condition.Condition {
	var rules []condition.Condition
	for _, g := range groups {
		rules = append(rules, g.Items...)
	}
	return rules
}

// Clone deep-copies the aggregate.
func (a Aggregate) Clone() Aggregate {
	out := a
	out.Groups = CloneGroups(a.Groups)
	out.Rules = Flatten(out.Groups)
	return out
}

func CloneGroups(groups []Group) []Group {
	if groups == nil {
		return nil
	}
	out := make([]Group, len(groups))
	for i, g := range groups {
		items := make([]condition.Condition, len(g.Items))
		for j, c := range g.Items {
			items[j] = c.Clone()
		}
		out[i] = Group{ID: g.ID, Items: items}
	}
	return out
}

// Move describes a drag and drop of one condition.
type Move struct {
	RuleID      int64
	FromGroupID int64
	ToGroupID   int64
	// Index is the position in the destination group after the drop.
	Index int
}

// Запросы к API

type VisibilityRequest struct {
	IsEnabled bool `json:"isEnabled"`
}

type DescriptionRequest struct {
	Description string `json:"description" binding:"max=1000"`
}

type ControlRequest struct {
	IsFullControl   bool `json:"isFullControl"`
	EffectiveInDays int  `json:"effectiveInDays" binding:"gte=0"`
}

type MoveRequest struct {
	RuleID  int64  `json:"ruleId" binding:"required"`
	GroupID int64  `json:"groupId" binding:"required"`
	Type    string `json:"type" binding:"required"`
	Order   int    `json:"order" binding:"gte=0"`
}

// ChatListItem is one row of the admin and public chat lists.
type ChatListItem struct {
	Chat
	RulesCount int `json:"rulesCount"`
}
