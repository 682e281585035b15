package registry

import (
	"errors"
	"fmt"
	"slices"

	apperrors "access-tool/internal/common/errors"
	"access-tool/internal/common/validation"
	"access-tool/internal/features/condition/models"
)

var (
	ErrUnknownType     = errors.New("unknown condition type")
	ErrPayloadMismatch = errors.New("payload does not match condition type")
)

// Validate checks draft against the policy of its type. It never touches the network.
func Validate(draft models.Condition, categories []models.Category) error {
	if draft.Payload == nil {
		return fmt.Errorf("%w: %q", ErrUnknownType, draft.Type)
	}
	if draft.Payload.Type() != draft.Type {
		return fmt.Errorf("%w: %s vs %s", ErrPayloadMismatch, draft.Type, draft.Payload.Type())
	}
	err, _ := models.Visit[error](draft.Payload, validator{categories: models.Values(categories)})
	return err
}

type validator struct {
	categories []string
}

func (v validator) Jetton(p *models.Jetton) error {
	return structErr(p)
}

func (v validator) Toncoin(p *models.Toncoin) error {
	if err := structErr(p); err != nil {
		return err
	}
	if !slices.Contains(v.categories, p.Category) {
		return apperrors.NewClientValidationError("category", "not in the server category list")
	}
	return nil
}

func (v validator) NFTCollection(p *models.NFTCollection) error {
	return structErr(p)
}

func (v validator) Whitelist(p *models.Whitelist) error {
	return structErr(p)
}

func (validator) StickerCollection(*models.StickerCollection) error { return nil }
func (validator) GiftCollection(*models.GiftCollection) error       { return nil }
func (validator) Premium(*models.Premium) error                     { return nil }
func (validator) Emoji(*models.Emoji) error                         { return nil }
func (validator) ExternalSource(*models.ExternalSource) error       { return nil }

func structErr(p interface{}) error {
	err := validation.Struct(p)
	if err == nil {
		return nil
	}
	if field, tag, ok := validation.FirstError(err); ok {
		return apperrors.NewClientValidationError(field, tag)
	}
	return apperrors.Wrap(err, apperrors.ErrCodeClientValidation, "Validation failed")
}
