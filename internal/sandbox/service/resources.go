package service

import (
	"fmt"
	"strings"

	apperrors "access-tool/internal/common/errors"
	"access-tool/internal/common/validation"
	condition "access-tool/internal/features/condition/models"
	"access-tool/internal/features/condition/registry"
	"access-tool/internal/sandbox/repository"
)

var categories = map[condition.Type][]condition.Category{
	condition.TypeToncoin: {
		{Value: "holder", Label: "Holder"},
		{Value: "whale", Label: "Whale"},
	},
	condition.TypeJetton: {
		{Value: "holder", Label: "Holder"},
		{Value: "liquidity", Label: "Liquidity provider"},
	},
	condition.TypeNFTCollection: {
		{Value: "holder", Label: "Holder"},
		{Value: "collector", Label: "Collector"},
	},
}

// Известные сэндбоксу ресурсы; остальные описываются по адресу
var knownResources = map[string]condition.Prefetched{
	repository.SeedJettonMaster: {
		Name:        "Society Jetton",
		Symbol:      "SOC",
		Decimals:    9,
		TotalSupply: 1_000_000_000,
	},
	repository.SeedNFTCollection: {
		Name:        "TON Society Pass",
		Description: "Membership passes of TON Society",
	},
}

// Resources serves the condition metadata endpoints.
type Resources struct {
	registry *registry.Registry
}

func NewResources(reg *registry.Registry) *Resources {
	return &Resources{registry: reg}
}

// Entry resolves the per-type path segment of the rules and resources endpoints.
func (r *Resources) Entry(typePath string) (registry.Entry, error) {
	entry, ok := r.registry.ByPath(typePath)
	if !ok {
		return registry.Entry{}, apperrors.New(apperrors.ErrCodeNotFound, fmt.Sprintf("Unknown condition type %q", typePath))
	}
	return entry, nil
}

// Categories returns the category list of the type, empty for types without one.
func (r *Resources) Categories(typePath string) ([]condition.Category, error) {
	entry, err := r.Entry(typePath)
	if err != nil {
		return nil, err
	}
	return r.categoriesOf(entry), nil
}

func (r *Resources) categoriesOf(entry registry.Entry) []condition.Category {
	if !entry.Categories {
		return []condition.Category{}
	}
	return append([]condition.Category{}, categories[entry.Type]...)
}

// Prefetch describes the resource at address.
func (r *Resources) Prefetch(typePath, address string) (condition.Prefetched, error) {
	entry, err := r.Entry(typePath)
	if err != nil {
		return condition.Prefetched{}, err
	}
	if !entry.Prefetch {
		return condition.Prefetched{}, apperrors.New(apperrors.ErrCodeNotFound, fmt.Sprintf("%s conditions have no prefetch", entry.Label))
	}

	raw, err := validation.RawAddress(address)
	if err != nil {
		return condition.Prefetched{}, fieldError("address", "is not a TON address")
	}

	meta, ok := knownResources[raw]
	if !ok {
		short := strings.ToUpper(raw[2:6])
		meta = condition.Prefetched{Name: entry.Label + " " + short}
		if entry.Type == condition.TypeJetton {
			meta.Symbol = short
			meta.Decimals = 9
		}
	}
	meta.Address = raw
	return meta, nil
}
