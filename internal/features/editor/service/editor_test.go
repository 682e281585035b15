package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"access-tool/internal/features/condition/models"
	"access-tool/internal/features/condition/registry"
	"access-tool/internal/features/editor/state"
)

var rawAddress = "0:" + strings.Repeat("a", 64)

type fakeAPI struct {
	fetched    models.Condition
	categories []models.Category
	prefetched *models.Prefetched
	failWith   error

	creates, updates, deletes, prefetches, categoryCalls int
	lastSaved                                            models.Condition
}

func (f *fakeAPI) Fetch(context.Context, string, models.Type, int64) (models.Condition, error) {
	return f.fetched.Clone(), f.failWith
}

func (f *fakeAPI) Create(_ context.Context, _ string, c models.Condition) (models.Condition, error) {
	f.creates++
	if f.failWith != nil {
		return models.Condition{}, f.failWith
	}
	f.lastSaved = c
	c.ID = 100
	return c, nil
}

func (f *fakeAPI) Update(_ context.Context, _ string, c models.Condition) (models.Condition, error) {
	f.updates++
	f.lastSaved = c
	return c, f.failWith
}

func (f *fakeAPI) Delete(context.Context, string, models.Type, int64) error {
	f.deletes++
	return f.failWith
}

func (f *fakeAPI) Prefetch(context.Context, models.Type, string) (*models.Prefetched, error) {
	f.prefetches++
	return f.prefetched, nil
}

func (f *fakeAPI) Categories(context.Context, models.Type) ([]models.Category, error) {
	f.categoryCalls++
	return f.categories, nil
}

type staleFlag struct{ marked int }

func (s *staleFlag) MarkStale() { s.marked++ }

func newEditor(api *fakeAPI) (*Editor, *staleFlag) {
	reg := registry.New()
	chat := &staleFlag{}
	return NewEditor(state.NewStore(reg), api, reg, chat, nil), chat
}

func TestEditor_NewJettonSavesWhenValid(t *testing.T) {
	api := &fakeAPI{}
	ed, chat := newEditor(api)

	require.NoError(t, ed.New(models.TypeJetton, 2))
	require.NoError(t, ed.Store().UpdateCondition(models.Patch{"address": rawAddress, "expected": 100}))
	assert.True(t, ed.Store().CanSave())

	saved, err := ed.Save(context.Background(), "club")
	require.NoError(t, err)
	assert.Equal(t, int64(100), saved.ID)
	assert.Equal(t, 1, api.creates)
	assert.Equal(t, int64(2), api.lastSaved.GroupID)
	assert.Equal(t, 1, chat.marked)

	_, ok := ed.Store().Draft()
	assert.False(t, ok, "draft is cleared after save")
}

func TestEditor_InvalidDraftMakesNoCall(t *testing.T) {
	api := &fakeAPI{}
	ed, chat := newEditor(api)

	require.NoError(t, ed.New(models.TypeJetton, 1))
	require.NoError(t, ed.Store().UpdateCondition(models.Patch{"address": "", "expected": 100}))
	assert.False(t, ed.Store().CanSave())

	_, err := ed.Save(context.Background(), "club")
	assert.ErrorIs(t, err, ErrInvalidDraft)
	assert.Zero(t, api.creates+api.updates)
	assert.Zero(t, chat.marked)

	_, ok := ed.Store().Draft()
	assert.True(t, ok, "draft survives a blocked save")
}

func TestEditor_SaveFailureKeepsDraft(t *testing.T) {
	api := &fakeAPI{failWith: errors.New("boom")}
	ed, chat := newEditor(api)

	require.NoError(t, ed.New(models.TypePremium, 1))
	_, err := ed.Save(context.Background(), "club")
	assert.Error(t, err)
	assert.Equal(t, 1, api.creates)
	assert.Zero(t, chat.marked)

	_, ok := ed.Store().Draft()
	assert.True(t, ok)
}

func TestEditor_LoadEditFlow(t *testing.T) {
	api := &fakeAPI{
		fetched: models.Condition{
			ID:        7,
			Type:      models.TypeJetton,
			IsEnabled: true,
			Payload:   &models.Jetton{Address: rawAddress, Expected: 10},
		},
		categories: []models.Category{{Value: "holders"}},
		prefetched: &models.Prefetched{Address: rawAddress, Symbol: "USDT"},
	}
	ed, _ := newEditor(api)

	require.NoError(t, ed.Load(context.Background(), "club", models.TypeJetton, 7))

	d, ok := ed.Store().Draft()
	require.True(t, ok)
	assert.True(t, d.IsSaved)
	assert.Equal(t, "USDT", d.Prefetched.Symbol)
	assert.Equal(t, []models.Category{{Value: "holders"}}, d.Categories)
	assert.Equal(t, 1, api.prefetches)

	require.NoError(t, ed.Store().UpdateCondition(models.Patch{"expected": 20}))
	_, err := ed.Save(context.Background(), "club")
	require.NoError(t, err)
	assert.Equal(t, 1, api.updates)
	assert.Zero(t, api.creates)
}

func TestEditor_LoadWithoutPrefetchOrCategories(t *testing.T) {
	api := &fakeAPI{fetched: models.Condition{ID: 1, Type: models.TypeEmoji, Payload: &models.Emoji{EmojiID: "1"}}}
	ed, _ := newEditor(api)

	require.NoError(t, ed.Load(context.Background(), "club", models.TypeEmoji, 1))
	assert.Zero(t, api.prefetches)
	assert.Zero(t, api.categoryCalls)
}

func TestEditor_UnknownType(t *testing.T) {
	ed, _ := newEditor(&fakeAPI{})
	assert.ErrorIs(t, ed.New("ai_vibes", 1), registry.ErrUnknownType)
	assert.ErrorIs(t, ed.Load(context.Background(), "club", "ai_vibes", 1), registry.ErrUnknownType)
}

func TestEditor_Delete(t *testing.T) {
	api := &fakeAPI{}
	ed, chat := newEditor(api)

	require.NoError(t, ed.New(models.TypePremium, 1))
	assert.ErrorIs(t, ed.Delete(context.Background(), "club"), ErrNotSaved)

	ed.Store().SetInitialCondition(models.Condition{ID: 4, Type: models.TypePremium, Payload: &models.Premium{}})
	require.NoError(t, ed.Delete(context.Background(), "club"))
	assert.Equal(t, 1, api.deletes)
	assert.Equal(t, 1, chat.marked)
}

func TestEditor_PrefetchSkipsEmptyAddress(t *testing.T) {
	api := &fakeAPI{}
	ed, _ := newEditor(api)
	require.NoError(t, ed.New(models.TypeJetton, 1))

	meta, err := ed.Prefetch(context.Background())
	require.NoError(t, err)
	assert.Nil(t, meta)
	assert.Zero(t, api.prefetches)
}

func TestEditor_Discard(t *testing.T) {
	ed, _ := newEditor(&fakeAPI{})
	require.NoError(t, ed.New(models.TypePremium, 1))
	ed.Discard()
	_, err := ed.Save(context.Background(), "club")
	assert.ErrorIs(t, err, state.ErrNoDraft)
}

// validatingAPI fails the test when a draft that does not pass validation is sent.
type validatingAPI struct {
	fakeAPI
	t *testing.T
}

func (v *validatingAPI) Create(ctx context.Context, slug string, c models.Condition) (models.Condition, error) {
	assert.NoError(v.t, registry.Validate(c, nil))
	return v.fakeAPI.Create(ctx, slug, c)
}

func TestEditor_SaveSendsTheValidatedSnapshot(t *testing.T) {
	api := &validatingAPI{t: t}
	reg := registry.New()
	ed := NewEditor(state.NewStore(reg), api, reg, nil, nil)

	for i := 0; i < 200; i++ {
		require.NoError(t, ed.New(models.TypeJetton, 0))
		require.NoError(t, ed.Store().UpdateCondition(models.Patch{"address": rawAddress, "expected": 100}))

		stop := make(chan struct{})
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := 0; ; n++ {
				select {
				case <-stop:
					return
				default:
				}
				// The draft flips between valid and invalid while Save runs.
				_ = ed.Store().UpdateCondition(models.Patch{"expected": (n % 2) * 100})
			}
		}()

		_, err := ed.Save(context.Background(), "club")
		close(stop)
		wg.Wait()
		if err != nil {
			assert.ErrorIs(t, err, ErrInvalidDraft)
		}
	}
}
