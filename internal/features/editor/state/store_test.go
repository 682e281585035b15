package state

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"access-tool/internal/features/condition/models"
	"access-tool/internal/features/condition/registry"
)

var rawAddress = "0:" + strings.Repeat("a", 64)

func newJettonStore(t *testing.T) *Store {
	t.Helper()
	reg := registry.New()
	s := NewStore(reg)
	entry, _ := reg.Lookup(models.TypeJetton)
	s.SetInitialCondition(entry.Initial())
	return s
}

func TestStore_UpdateWithoutDraft(t *testing.T) {
	s := NewStore(registry.New())
	assert.ErrorIs(t, s.UpdateCondition(models.Patch{"expected": 1}), ErrNoDraft)
	assert.False(t, s.CanSave())
}

func TestStore_SetInitialMarksSaved(t *testing.T) {
	s := newJettonStore(t)
	assert.True(t, s.IsSaved())

	require.NoError(t, s.UpdateCondition(models.Patch{"expected": 5}))
	assert.False(t, s.IsSaved())

	s.SetInitialCondition(models.Condition{ID: 3, Type: models.TypePremium, Payload: &models.Premium{}})
	assert.True(t, s.IsSaved())
	d, ok := s.Draft()
	require.True(t, ok)
	assert.Equal(t, int64(3), d.Condition.ID)
}

func TestStore_RepeatedMergeIsIdempotent(t *testing.T) {
	s := newJettonStore(t)
	patch := models.Patch{"address": rawAddress, "expected": 100}

	require.NoError(t, s.UpdateCondition(patch))
	once, _ := s.Draft()
	require.NoError(t, s.UpdateCondition(patch))
	twice, _ := s.Draft()

	assert.True(t, models.Equal(once.Condition, twice.Condition))
	assert.Equal(t, once, twice)
}

func TestStore_TypeSwitchResetsPayloadAndPrefetch(t *testing.T) {
	s := newJettonStore(t)
	require.NoError(t, s.UpdateCondition(models.Patch{"address": rawAddress, "expected": 100}))
	s.SetPrefetched(&models.Prefetched{Address: rawAddress, Symbol: "USDT"})
	s.SetCategories([]models.Category{{Value: "holders"}})

	require.NoError(t, s.UpdateCondition(models.Patch{"type": "toncoin"}))

	d, _ := s.Draft()
	assert.Equal(t, models.TypeToncoin, d.Condition.Type)
	assert.Equal(t, &models.Toncoin{}, d.Condition.Payload)
	assert.Nil(t, d.Prefetched)
	assert.Nil(t, d.Categories)
	assert.False(t, d.IsSaved)
}

func TestStore_CleanConditionResetsToInitial(t *testing.T) {
	s := newJettonStore(t)
	require.NoError(t, s.UpdateCondition(models.Patch{"address": rawAddress, "isEnabled": false}))

	s.CleanCondition()

	d, _ := s.Draft()
	assert.True(t, d.IsSaved)
	assert.True(t, d.Condition.IsEnabled)
	assert.Equal(t, &models.Jetton{}, d.Condition.Payload)
}

func TestStore_CanSaveFollowsValidation(t *testing.T) {
	s := newJettonStore(t)
	assert.False(t, s.CanSave())

	require.NoError(t, s.UpdateCondition(models.Patch{"address": rawAddress, "expected": 100}))
	assert.True(t, s.CanSave())

	require.NoError(t, s.UpdateCondition(models.Patch{"address": ""}))
	assert.False(t, s.CanSave())
}

func TestStore_ToncoinNeedsLoadedCategories(t *testing.T) {
	reg := registry.New()
	s := NewStore(reg)
	entry, _ := reg.Lookup(models.TypeToncoin)
	s.SetInitialCondition(entry.Initial())
	require.NoError(t, s.UpdateCondition(models.Patch{"expected": 10, "category": "balance"}))
	assert.False(t, s.CanSave())

	s.SetCategories([]models.Category{{Value: "balance", Label: "Balance"}})
	assert.True(t, s.CanSave())
}

func TestStore_DraftIsACopy(t *testing.T) {
	s := newJettonStore(t)
	d, _ := s.Draft()
	d.Condition.Payload.(*models.Jetton).Address = rawAddress

	again, _ := s.Draft()
	assert.Empty(t, again.Condition.Payload.(*models.Jetton).Address)
}

func TestStore_SubscribeAndUnsubscribe(t *testing.T) {
	s := newJettonStore(t)
	var seen []bool
	unsubscribe := s.Subscribe(func(d Draft) { seen = append(seen, d.IsSaved) })

	require.NoError(t, s.UpdateCondition(models.Patch{"expected": 1}))
	s.CleanCondition()
	unsubscribe()
	require.NoError(t, s.UpdateCondition(models.Patch{"expected": 2}))

	assert.Equal(t, []bool{false, true}, seen)
}

func TestStore_Clear(t *testing.T) {
	s := newJettonStore(t)
	s.Clear()
	_, ok := s.Draft()
	assert.False(t, ok)
	assert.ErrorIs(t, s.Validate(), ErrNoDraft)
}
