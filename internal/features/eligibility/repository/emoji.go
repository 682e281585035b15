package repository

import (
	"context"
	"fmt"

	condition "access-tool/internal/features/condition/models"
	"access-tool/internal/features/eligibility/models"
	"access-tool/internal/platform/localstore"
)

const completedValue = "1"

// EmojiLedger хранит отметки о выполненных emoji-условиях в локальном хранилище
type EmojiLedger struct {
	store localstore.KV
}

func NewEmojiLedger(store localstore.KV) *EmojiLedger {
	return &EmojiLedger{store: store}
}

func emojiKey(slug string, conditionID int64) string {
	return fmt.Sprintf("emoji:%s:%d", slug, conditionID)
}

// MarkCompleted records that the user has set the emoji status for the condition.
func (l *EmojiLedger) MarkCompleted(ctx context.Context, slug string, conditionID int64) error {
	if err := l.store.Set(ctx, emojiKey(slug, conditionID), completedValue); err != nil {
		return fmt.Errorf("failed to mark emoji condition %d: %w", conditionID, err)
	}
	return nil
}

func (l *EmojiLedger) IsCompleted(ctx context.Context, slug string, conditionID int64) (bool, error) {
	value, ok, err := l.store.Get(ctx, emojiKey(slug, conditionID))
	if err != nil {
		return false, fmt.Errorf("failed to read emoji condition %d: %w", conditionID, err)
	}
	return ok && value == completedValue, nil
}

func (l *EmojiLedger) Reset(ctx context.Context, slug string, conditionID int64) error {
	return l.store.Delete(ctx, emojiKey(slug, conditionID))
}

// Completions loads the flags of all emoji conditions of a chat in one pass.
func (l *EmojiLedger) Completions(ctx context.Context, slug string, conditions []condition.Condition) (models.CompletionSet, error) {
	set := models.CompletionSet{}
	for _, c := range conditions {
		if c.Type != condition.TypeEmoji {
			continue
		}
		done, err := l.IsCompleted(ctx, slug, c.ID)
		if err != nil {
			return nil, err
		}
		if done {
			set[c.ID] = true
		}
	}
	return set, nil
}
