package models

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var rawAddress = "0:" + strings.Repeat("a", 64)

func TestCondition_MarshalIsFlat(t *testing.T) {
	actual := 150.0
	c := Condition{
		ID:         7,
		Type:       TypeJetton,
		GroupID:    2,
		IsEnabled:  true,
		IsEligible: true,
		Actual:     &actual,
		Title:      "USDT",
		Payload:    &Jetton{Address: rawAddress, Expected: 100},
	}

	data, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id": 7,
		"type": "jetton",
		"groupId": 2,
		"isEnabled": true,
		"isEligible": true,
		"actual": 150,
		"title": "USDT",
		"address": "`+rawAddress+`",
		"expected": 100
	}`, string(data))
}

func TestCondition_UnmarshalPicksPayloadByType(t *testing.T) {
	var c Condition
	require.NoError(t, json.Unmarshal([]byte(`{
		"id": 3, "type": "whitelist", "groupId": 1, "isEnabled": true,
		"name": "VIP", "users": [1, 2, 3], "address": "ignored"
	}`), &c))

	wl, ok := c.Payload.(*Whitelist)
	require.True(t, ok)
	assert.Equal(t, []int64{1, 2, 3}, wl.Users)
	assert.Equal(t, "VIP", wl.Name)
	assert.Equal(t, int64(1), c.GroupID)
}

func TestCondition_UnknownTypeDegradesGracefully(t *testing.T) {
	var c Condition
	require.NoError(t, json.Unmarshal([]byte(`{"id": 9, "type": "ai_vibes", "isEnabled": true}`), &c))
	assert.Nil(t, c.Payload)
	assert.Equal(t, Type("ai_vibes"), c.Type)
	assert.False(t, c.Type.Known())
}

func TestCondition_RoundTripEveryType(t *testing.T) {
	for _, typ := range AllTypes {
		t.Run(string(typ), func(t *testing.T) {
			p, ok := NewPayload(typ)
			require.True(t, ok)
			c := Condition{ID: 1, Type: typ, IsEnabled: true, Payload: p}

			data, err := json.Marshal(c)
			require.NoError(t, err)

			var back Condition
			require.NoError(t, json.Unmarshal(data, &back))
			assert.Equal(t, typ, back.Payload.Type())
		})
	}
}

func TestRequiresWallet(t *testing.T) {
	required := map[Type]bool{TypeToncoin: true, TypeNFTCollection: true, TypeJetton: true}
	for _, typ := range AllTypes {
		assert.Equal(t, required[typ], typ.RequiresWallet(), typ)
	}
}

func TestApply_IsIdempotent(t *testing.T) {
	patches := map[Type]Patch{
		TypeJetton:            {"address": rawAddress, "expected": 100, "category": "holders"},
		TypeToncoin:           {"expected": 2.5, "category": "balance"},
		TypeNFTCollection:     {"address": rawAddress, "expected": json.Number("3"), "asset": "any"},
		TypeStickerCollection: {"collectionId": 5, "characterId": 7, "category": "rare", "expected": 1},
		TypeGiftCollection:    {"collection": "Plush Pepe", "model": "Gold", "backdrop": nil, "expected": 1},
		TypeWhitelist:         {"name": "VIP", "users": []interface{}{1.0, 2.0}},
		TypePremium:           {"isEnabled": false},
		TypeEmoji:             {"emojiId": "5368324170671202286"},
		TypeExternalSource:    {"url": "https://example.org/check", "authKey": "X-Key", "authValue": "s3cr3t"},
	}

	for _, typ := range AllTypes {
		t.Run(string(typ), func(t *testing.T) {
			p, _ := NewPayload(typ)
			draft := Condition{Type: typ, IsEnabled: true, Payload: p}

			once, err := draft.Apply(patches[typ])
			require.NoError(t, err)
			twice, err := once.Apply(patches[typ])
			require.NoError(t, err)

			assert.True(t, Equal(once, twice))
			assert.False(t, Equal(draft, once), "patch must change the draft")
		})
	}
}

func TestApply_DoesNotMutateReceiver(t *testing.T) {
	draft := Condition{Type: TypeWhitelist, Payload: &Whitelist{Users: []int64{1}}}
	_, err := draft.Apply(Patch{"users": []int64{1, 2}})
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, draft.Payload.(*Whitelist).Users)
}

func TestApply_TypeSwitchClearsForeignFields(t *testing.T) {
	draft := Condition{
		GroupID:   4,
		Type:      TypeJetton,
		IsEnabled: true,
		Payload:   &Jetton{Address: rawAddress, Expected: 100, Category: "holders"},
	}

	switched, err := draft.Apply(Patch{"type": "toncoin", "address": rawAddress})
	require.NoError(t, err)

	assert.Equal(t, TypeToncoin, switched.Type)
	assert.Equal(t, int64(4), switched.GroupID)
	assert.Equal(t, &Toncoin{}, switched.Payload)

	fields, err := switched.Fields()
	require.NoError(t, err)
	assert.NotContains(t, fields, "address")
	assert.Equal(t, json.Number("0"), fields["expected"])
	assert.Equal(t, "", fields["category"])

	// Back to jetton: the old address does not come back.
	again, err := switched.Apply(Patch{"type": TypeJetton})
	require.NoError(t, err)
	assert.Equal(t, &Jetton{}, again.Payload)
}

func TestApply_SameTypeKeepsPayload(t *testing.T) {
	draft := Condition{Type: TypeJetton, Payload: &Jetton{Address: rawAddress}}
	out, err := draft.Apply(Patch{"type": "jetton", "expected": 10})
	require.NoError(t, err)
	assert.Equal(t, &Jetton{Address: rawAddress, Expected: 10}, out.Payload)
}

func TestApply_UnknownFieldsAreDropped(t *testing.T) {
	draft := Condition{Type: TypePremium, Payload: &Premium{}}
	out, err := draft.Apply(Patch{"address": rawAddress, "users": []int64{1}})
	require.NoError(t, err)
	assert.True(t, Equal(draft, out))
}

func TestApply_KeepsNonFiniteNumbers(t *testing.T) {
	draft := Condition{Type: TypeJetton, Payload: &Jetton{}}
	out, err := draft.Apply(Patch{"expected": math.NaN()})
	require.NoError(t, err)
	assert.True(t, math.IsNaN(out.Payload.(*Jetton).Expected))
}

func TestApply_RejectsMismatchedValue(t *testing.T) {
	draft := Condition{Type: TypeJetton, Payload: &Jetton{}}
	_, err := draft.Apply(Patch{"expected": map[string]int{"x": 1}})
	assert.Error(t, err)

	_, err = draft.Apply(Patch{"type": 5})
	assert.Error(t, err)
}

func TestClone_IsDeep(t *testing.T) {
	name := "Plush Pepe"
	c := Condition{Type: TypeGiftCollection, Payload: &GiftCollection{Collection: &name}}
	cl := c.Clone()
	*cl.Payload.(*GiftCollection).Collection = "other"
	assert.Equal(t, "Plush Pepe", *c.Payload.(*GiftCollection).Collection)
}

func TestApply_IntegerFieldsRejectFractions(t *testing.T) {
	draft := Condition{Type: TypeStickerCollection, Payload: &StickerCollection{}}

	for _, v := range []interface{}{1.5, json.Number("2.5"), math.NaN(), math.Inf(1)} {
		_, err := draft.Apply(Patch{"collectionId": v})
		assert.Error(t, err, "%v", v)
	}
	_, err := draft.Apply(Patch{"groupId": 1e20})
	assert.Error(t, err)

	out, err := draft.Apply(Patch{"collectionId": json.Number("3"), "characterId": 4.0, "groupId": 2})
	require.NoError(t, err)
	sticker := out.Payload.(*StickerCollection)
	assert.Equal(t, int64(3), *sticker.CollectionID)
	assert.Equal(t, int64(4), *sticker.CharacterID)
	assert.Equal(t, int64(2), out.GroupID)

	// Float fields still take fractions.
	out, err = draft.Apply(Patch{"expected": json.Number("0.5")})
	require.NoError(t, err)
	assert.Equal(t, 0.5, out.Payload.(*StickerCollection).Expected)
}
