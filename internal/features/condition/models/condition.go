package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
)

// Type is the condition discriminant.
type Type string

const (
	TypeJetton            Type = "jetton"
	TypeToncoin           Type = "toncoin"
	TypeNFTCollection     Type = "nft_collection"
	TypeStickerCollection Type = "sticker_collection"
	TypeGiftCollection    Type = "gift_collection"
	TypeWhitelist         Type = "whitelist"
	TypePremium           Type = "premium"
	TypeEmoji             Type = "emoji"
	TypeExternalSource    Type = "external_source"
)

// AllTypes lists the closed type set in display order.
var AllTypes = []Type{
	TypeJetton,
	TypeToncoin,
	TypeNFTCollection,
	TypeStickerCollection,
	TypeGiftCollection,
	TypeWhitelist,
	TypePremium,
	TypeEmoji,
	TypeExternalSource,
}

// RequiresWallet reports whether checking the condition needs a linked TON wallet.
func (t Type) RequiresWallet() bool {
	switch t {
	case TypeToncoin, TypeNFTCollection, TypeJetton:
		return true
	}
	return false
}

func (t Type) Known() bool {
	_, ok := NewPayload(t)
	return ok
}

// Condition is a rule attached to a chat group. Exactly one payload, selected by Type,
// carries the type specific fields.
type Condition struct {
	ID        int64 `json:"id,omitempty"`
	Type      Type  `json:"type"`
	GroupID   int64 `json:"groupId,omitempty"`
	IsEnabled bool  `json:"isEnabled"`

	// Заполняются сервером, клиент их только читает
	IsEligible bool     `json:"isEligible,omitempty"`
	Actual     *float64 `json:"actual,omitempty"`
	PromoteURL string   `json:"promoteUrl,omitempty"`
	PhotoURL   string   `json:"photoUrl,omitempty"`
	Title      string   `json:"title,omitempty"`

	Payload Payload `json:"-"`
}

// base mirrors the common fields without the custom codec.
type base Condition

// MarshalJSON flattens the payload fields next to the common ones.
func (c Condition) MarshalJSON() ([]byte, error) {
	common, err := json.Marshal(base(c))
	if err != nil {
		return nil, err
	}
	if c.Payload == nil {
		return common, nil
	}

	fields := map[string]json.RawMessage{}
	payload, err := json.Marshal(c.Payload)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(common, &fields); err != nil {
		return nil, err
	}
	return json.Marshal(fields)
}

// UnmarshalJSON picks the payload struct by "type". Unknown types leave Payload nil.
func (c *Condition) UnmarshalJSON(data []byte) error {
	var b base
	if err := json.Unmarshal(data, &b); err != nil {
		return err
	}
	*c = Condition(b)

	payload, ok := NewPayload(c.Type)
	if !ok {
		c.Payload = nil
		return nil
	}
	if err := json.Unmarshal(data, payload); err != nil {
		return fmt.Errorf("condition %s payload: %w", c.Type, err)
	}
	c.Payload = payload
	return nil
}

// Clone returns a deep copy; the payload is copied through the cloning visitor.
func (c Condition) Clone() Condition {
	out := c
	if c.Actual != nil {
		actual := *c.Actual
		out.Actual = &actual
	}
	if p, ok := Visit[Payload](c.Payload, cloner{}); ok {
		out.Payload = p
	}
	return out
}

// Fields returns the flat JSON object of the condition.
func (c Condition) Fields() (map[string]interface{}, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	fields := map[string]interface{}{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// Equal compares two conditions field by field, payload included.
func Equal(a, b Condition) bool {
	return reflect.DeepEqual(a, b)
}
