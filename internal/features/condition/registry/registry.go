// Package registry maps every condition type to its label, API path, form and validator.
package registry

import (
	"access-tool/internal/features/condition/models"
)

// FieldKind tells the presentation layer which input to render.
type FieldKind string

const (
	KindText     FieldKind = "text"
	KindNumber   FieldKind = "number"
	KindTON      FieldKind = "ton"
	KindAddress  FieldKind = "address"
	KindCategory FieldKind = "category"
	KindUserList FieldKind = "userlist"
	KindURL      FieldKind = "url"
	KindSecret   FieldKind = "secret"
)

// FormField describes one input of a condition form. Name is the JSON field it patches.
type FormField struct {
	Name     string
	Label    string
	Kind     FieldKind
	Required bool
}

// Entry is everything the client knows about one condition type.
type Entry struct {
	Type  models.Type
	Label string
	// Path is the per-type segment of the rules and resources endpoints.
	Path string
	Form []FormField
	// Prefetch is set for types whose address is resolved into metadata while editing.
	Prefetch bool
	// Categories is set for types with a server provided category list.
	Categories bool
}

// Validate reports whether draft may be saved.
func (e Entry) Validate(draft models.Condition, categories []models.Category) error {
	return Validate(draft, categories)
}

// Valid is Validate as a boolean; the save action is disabled while it is false.
func (e Entry) Valid(draft models.Condition, categories []models.Category) bool {
	return Validate(draft, categories) == nil
}

// Initial returns the default draft of the type: the zero payload, enabled.
func (e Entry) Initial() models.Condition {
	payload, _ := models.NewPayload(e.Type)
	return models.Condition{
		Type:      e.Type,
		IsEnabled: true,
		Payload:   payload,
	}
}

// Registry is read-only after construction.
type Registry struct {
	entries map[models.Type]Entry
}

// New builds the registry over the whole closed type set.
func New() *Registry {
	r := &Registry{entries: make(map[models.Type]Entry, len(models.AllTypes))}
	for _, t := range models.AllTypes {
		r.entries[t] = describe(t)
	}
	return r
}

// Lookup returns the entry for t. Unknown tags yield ok=false: the caller renders nothing.
func (r *Registry) Lookup(t models.Type) (Entry, bool) {
	e, ok := r.entries[t]
	return e, ok
}

// ByPath resolves an API path segment back to its entry.
func (r *Registry) ByPath(path string) (Entry, bool) {
	for _, t := range models.AllTypes {
		if e := r.entries[t]; e.Path == path {
			return e, true
		}
	}
	return Entry{}, false
}

// Entries returns all entries in display order.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, 0, len(models.AllTypes))
	for _, t := range models.AllTypes {
		out = append(out, r.entries[t])
	}
	return out
}

func describe(t models.Type) Entry {
	// The zero payload only selects the visitor method.
	payload, _ := models.NewPayload(t)
	e, _ := models.Visit[Entry](payload, describer{})
	e.Type = t
	return e
}

// describer holds the static per-type metadata.
type describer struct{}

func (describer) Jetton(*models.Jetton) Entry {
	return Entry{
		Label:      "Jetton",
		Path:       "jettons",
		Prefetch:   true,
		Categories: true,
		Form: []FormField{
			{Name: "address", Label: "Jetton master address", Kind: KindAddress, Required: true},
			{Name: "expected", Label: "Minimum amount", Kind: KindNumber, Required: true},
			{Name: "category", Label: "Category", Kind: KindCategory},
		},
	}
}

func (describer) Toncoin(*models.Toncoin) Entry {
	return Entry{
		Label:      "Toncoin",
		Path:       "toncoin",
		Categories: true,
		Form: []FormField{
			{Name: "category", Label: "Category", Kind: KindCategory, Required: true},
			{Name: "expected", Label: "Minimum balance", Kind: KindTON, Required: true},
		},
	}
}

func (describer) NFTCollection(*models.NFTCollection) Entry {
	return Entry{
		Label:      "NFT Collection",
		Path:       "nft-collections",
		Prefetch:   true,
		Categories: true,
		Form: []FormField{
			{Name: "address", Label: "Collection address", Kind: KindAddress, Required: true},
			{Name: "expected", Label: "Minimum items", Kind: KindNumber, Required: true},
			{Name: "asset", Label: "Asset", Kind: KindText},
			{Name: "category", Label: "Category", Kind: KindCategory},
		},
	}
}

func (describer) StickerCollection(*models.StickerCollection) Entry {
	return Entry{
		Label: "Sticker Collection",
		Path:  "stickers",
		Form: []FormField{
			{Name: "collectionId", Label: "Collection", Kind: KindNumber},
			{Name: "characterId", Label: "Character", Kind: KindNumber},
			{Name: "category", Label: "Category", Kind: KindText},
			{Name: "expected", Label: "Minimum stickers", Kind: KindNumber},
		},
	}
}

func (describer) GiftCollection(*models.GiftCollection) Entry {
	return Entry{
		Label: "Gift Collection",
		Path:  "gifts",
		Form: []FormField{
			{Name: "collection", Label: "Collection", Kind: KindText},
			{Name: "model", Label: "Model", Kind: KindText},
			{Name: "backdrop", Label: "Backdrop", Kind: KindText},
			{Name: "pattern", Label: "Pattern", Kind: KindText},
			{Name: "expected", Label: "Minimum gifts", Kind: KindNumber},
		},
	}
}

func (describer) Whitelist(*models.Whitelist) Entry {
	return Entry{
		Label: "Whitelist",
		Path:  "whitelist",
		Form: []FormField{
			{Name: "name", Label: "Name", Kind: KindText},
			{Name: "description", Label: "Description", Kind: KindText},
			{Name: "users", Label: "Users file (CSV or JSON)", Kind: KindUserList, Required: true},
		},
	}
}

func (describer) Premium(*models.Premium) Entry {
	return Entry{Label: "Telegram Premium", Path: "premium"}
}

func (describer) Emoji(*models.Emoji) Entry {
	return Entry{
		Label: "Emoji Status",
		Path:  "emoji",
		Form: []FormField{
			{Name: "emojiId", Label: "Emoji ID", Kind: KindText},
		},
	}
}

func (describer) ExternalSource(*models.ExternalSource) Entry {
	return Entry{
		Label: "External API",
		Path:  "external-source",
		Form: []FormField{
			{Name: "name", Label: "Name", Kind: KindText},
			{Name: "description", Label: "Description", Kind: KindText},
			{Name: "url", Label: "Endpoint URL", Kind: KindURL},
			{Name: "authKey", Label: "Auth header", Kind: KindText},
			{Name: "authValue", Label: "Auth value", Kind: KindSecret},
		},
	}
}
