package models

// Payload is the type specific part of a condition. The set of implementations is closed.
type Payload interface {
	Type() Type
	isPayload()
}

type Jetton struct {
	Address  string  `json:"address" validate:"required,tonraw"`
	Expected float64 `json:"expected" validate:"gt=0,finite"`
	Category string  `json:"category,omitempty"`
}

type Toncoin struct {
	Expected float64 `json:"expected" validate:"gt=0,finite"`
	Category string  `json:"category" validate:"required"`
}

type NFTCollection struct {
	Address  string  `json:"address" validate:"required,tonraw"`
	Expected float64 `json:"expected" validate:"gt=0,finite"`
	Asset    string  `json:"asset,omitempty"`
	Category string  `json:"category,omitempty"`
}

type StickerCollection struct {
	CollectionID *int64  `json:"collectionId"`
	CharacterID  *int64  `json:"characterId"`
	Category     *string `json:"category"`
	Expected     float64 `json:"expected"`
}

type GiftCollection struct {
	Collection *string `json:"collection"`
	Model      *string `json:"model"`
	Backdrop   *string `json:"backdrop"`
	Pattern    *string `json:"pattern"`
	Expected   float64 `json:"expected"`
}

type Whitelist struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Users       []int64 `json:"users" validate:"min=1"`
}

type Premium struct{}

type Emoji struct {
	EmojiID string `json:"emojiId"`
}

type ExternalSource struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url"`
	AuthKey     string `json:"authKey,omitempty"`
	AuthValue   string `json:"authValue,omitempty"`
}

func (*Jetton) Type() Type            { return TypeJetton }
func (*Toncoin) Type() Type           { return TypeToncoin }
func (*NFTCollection) Type() Type     { return TypeNFTCollection }
func (*StickerCollection) Type() Type { return TypeStickerCollection }
func (*GiftCollection) Type() Type    { return TypeGiftCollection }
func (*Whitelist) Type() Type         { return TypeWhitelist }
func (*Premium) Type() Type           { return TypePremium }
func (*Emoji) Type() Type             { return TypeEmoji }
func (*ExternalSource) Type() Type    { return TypeExternalSource }

func (*Jetton) isPayload()            {}
func (*Toncoin) isPayload()           {}
func (*NFTCollection) isPayload()     {}
func (*StickerCollection) isPayload() {}
func (*GiftCollection) isPayload()    {}
func (*Whitelist) isPayload()         {}
func (*Premium) isPayload()           {}
func (*Emoji) isPayload()             {}
func (*ExternalSource) isPayload()    {}

// NewPayload returns the zero payload for t.
func NewPayload(t Type) (Payload, bool) {
	switch t {
	case TypeJetton:
		return &Jetton{}, true
	case TypeToncoin:
		return &Toncoin{}, true
	case TypeNFTCollection:
		return &NFTCollection{}, true
	case TypeStickerCollection:
		return &StickerCollection{}, true
	case TypeGiftCollection:
		return &GiftCollection{}, true
	case TypeWhitelist:
		return &Whitelist{Users: []int64{}}, true
	case TypePremium:
		return &Premium{}, true
	case TypeEmoji:
		return &Emoji{}, true
	case TypeExternalSource:
		return &ExternalSource{}, true
	}
	return nil, false
}

// Visitor has one method per condition type. Adding a type adds a method here, so every
// visitor in the tree stops compiling until it handles it.
type Visitor[R any] interface {
	Jetton(p *Jetton) R
	Toncoin(p *Toncoin) R
	NFTCollection(p *NFTCollection) R
	StickerCollection(p *StickerCollection) R
	GiftCollection(p *GiftCollection) R
	Whitelist(p *Whitelist) R
	Premium(p *Premium) R
	Emoji(p *Emoji) R
	ExternalSource(p *ExternalSource) R
}

// Visit dispatches p to the matching visitor method. ok is false for a nil payload.
func Visit[R any](p Payload, v Visitor[R]) (result R, ok bool) {
	switch p := p.(type) {
	case *Jetton:
		return v.Jetton(p), true
	case *Toncoin:
		return v.Toncoin(p), true
	case *NFTCollection:
		return v.NFTCollection(p), true
	case *StickerCollection:
		return v.StickerCollection(p), true
	case *GiftCollection:
		return v.GiftCollection(p), true
	case *Whitelist:
		return v.Whitelist(p), true
	case *Premium:
		return v.Premium(p), true
	case *Emoji:
		return v.Emoji(p), true
	case *ExternalSource:
		return v.ExternalSource(p), true
	}
	return result, false
}

// Address returns the TON address of address based payloads.
func Address(p Payload) (string, bool) {
	switch p := p.(type) {
	case *Jetton:
		return p.Address, true
	case *NFTCollection:
		return p.Address, true
	}
	return "", false
}
