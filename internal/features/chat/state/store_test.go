package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"access-tool/internal/features/chat/models"
	condition "access-tool/internal/features/condition/models"
)

func rule(id, group int64, t condition.Type) condition.Condition {
	c := condition.Condition{ID: id, GroupID: group, Type: t, IsEnabled: true}
	c.Payload, _ = condition.NewPayload(t)
	return c
}

func ids(items []condition.Condition) []int64 {
	out := make([]int64, 0, len(items))
	for _, c := range items {
		out = append(out, c.ID)
	}
	return out
}

func loaded() *Store {
	s := NewStore()
	s.Replace(models.Aggregate{
		View: models.ViewAdmin,
		Chat: models.Chat{ID: 1, Slug: "club"},
		Groups: []models.Group{
			{ID: 1, Items: []condition.Condition{rule(10, 1, condition.TypePremium), rule(11, 1, condition.TypeEmoji)}},
			{ID: 2, Items: []condition.Condition{rule(20, 2, condition.TypeWhitelist), rule(21, 2, condition.TypeToncoin)}},
		},
	})
	return s
}

func TestStore_MoveBetweenGroups(t *testing.T) {
	s := loaded()

	applied, err := s.Move(models.Move{RuleID: 10, FromGroupID: 1, ToGroupID: 2, Index: 1})
	require.NoError(t, err)
	assert.Equal(t, condition.TypePremium, applied.Type)
	assert.Equal(t, 1, applied.Move.Index)

	agg := s.Snapshot().Aggregate
	assert.Equal(t, []int64{11}, ids(agg.Groups[0].Items))
	assert.Equal(t, []int64{20, 10, 21}, ids(agg.Groups[1].Items))
	assert.Equal(t, int64(2), agg.Groups[1].Items[1].GroupID)
	assert.Equal(t, []int64{11, 20, 10, 21}, ids(agg.Rules))
}

func TestStore_MoveWithinGroupAndClamp(t *testing.T) {
	s := loaded()

	applied, err := s.Move(models.Move{RuleID: 10, FromGroupID: 1, ToGroupID: 1, Index: 99})
	require.NoError(t, err)
	assert.Equal(t, 1, applied.Move.Index)
	assert.Equal(t, []int64{11, 10}, ids(s.Snapshot().Aggregate.Groups[0].Items))

	_, err = s.Move(models.Move{RuleID: 20, FromGroupID: 2, ToGroupID: 1, Index: -3})
	require.NoError(t, err)
	assert.Equal(t, []int64{20, 11, 10}, ids(s.Snapshot().Aggregate.Groups[0].Items))
}

func TestStore_MoveErrors(t *testing.T) {
	_, err := NewStore().Move(models.Move{RuleID: 1, FromGroupID: 1, ToGroupID: 1})
	assert.ErrorIs(t, err, ErrNoChat)

	s := loaded()
	_, err = s.Move(models.Move{RuleID: 10, FromGroupID: 1, ToGroupID: 9})
	assert.ErrorIs(t, err, ErrGroupNotFound)
	_, err = s.Move(models.Move{RuleID: 20, FromGroupID: 1, ToGroupID: 2})
	assert.ErrorIs(t, err, ErrRuleNotFound)
}

func TestStore_RollbackRestoresOrder(t *testing.T) {
	s := loaded()
	before := s.Snapshot().Aggregate

	applied, err := s.Move(models.Move{RuleID: 11, FromGroupID: 1, ToGroupID: 2, Index: 0})
	require.NoError(t, err)
	require.True(t, s.Rollback(applied))

	after := s.Snapshot().Aggregate
	assert.Equal(t, ids(before.Rules), ids(after.Rules))
	assert.Equal(t, ids(before.Groups[1].Items), ids(after.Groups[1].Items))
}

func TestStore_RollbackLosesToNewerReplace(t *testing.T) {
	s := loaded()
	applied, err := s.Move(models.Move{RuleID: 11, FromGroupID: 1, ToGroupID: 2, Index: 0})
	require.NoError(t, err)

	s.Replace(models.Aggregate{Groups: []models.Group{{ID: 3, Items: []condition.Condition{rule(30, 3, condition.TypePremium)}}}})
	assert.False(t, s.Rollback(applied))
	assert.Equal(t, []int64{30}, ids(s.Snapshot().Aggregate.Rules))
}

func TestStore_StaleFlag(t *testing.T) {
	s := loaded()
	assert.False(t, s.IsStale())
	s.MarkStale()
	assert.True(t, s.IsStale())
	assert.True(t, s.Snapshot().Stale)

	s.Replace(s.Snapshot().Aggregate)
	assert.False(t, s.IsStale())
}

func TestStore_SnapshotIsACopy(t *testing.T) {
	s := loaded()
	snap := s.Snapshot()
	snap.Aggregate.Groups[0].Items[0].ID = 999

	assert.Equal(t, int64(10), s.Snapshot().Aggregate.Groups[0].Items[0].ID)
}

func TestStore_UpdateChatKeepsGroups(t *testing.T) {
	s := loaded()
	var seen []bool
	unsubscribe := s.Subscribe(func(snap Snapshot) { seen = append(seen, snap.Aggregate.Chat.IsEnabled) })
	defer unsubscribe()

	s.UpdateChat(models.Chat{ID: 1, Slug: "club", IsEnabled: true})

	snap := s.Snapshot()
	assert.True(t, snap.Aggregate.Chat.IsEnabled)
	assert.Len(t, snap.Aggregate.Rules, 4)
	assert.Equal(t, []bool{true}, seen)
}
