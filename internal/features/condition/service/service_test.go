package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"access-tool/internal/common/cache"
	"access-tool/internal/features/condition/models"
	"access-tool/internal/features/condition/registry"
	"access-tool/internal/platform/accessapi"
)

var rawAddress = "0:" + strings.Repeat("b", 64)

type recorded struct {
	method string
	path   string
	query  string
	body   map[string]interface{}
}

type recorder struct {
	mu    sync.Mutex
	calls []recorded
}

func (r *recorder) all() []recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recorded(nil), r.calls...)
}

func newService(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) (*Service, *recorder, *cache.QueryCache) {
	t.Helper()
	calls := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery}
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			_ = json.Unmarshal(data, &rec.body)
		}
		calls.mu.Lock()
		calls.calls = append(calls.calls, rec)
		calls.mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	qc := cache.NewQueryCache(cache.NewMemoryBackend(0, time.Hour), "", nil)
	api := accessapi.New(accessapi.Options{BaseURL: srv.URL, Cache: qc, RetryBackoff: time.Millisecond})
	return NewService(api, registry.New(), nil), calls, qc
}

func TestService_CreatePostsFlatBody(t *testing.T) {
	svc, calls, _ := newService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 11, "type": "jetton", "isEnabled": true, "address": "` + rawAddress + `", "expected": 100}`))
	})

	created, err := svc.Create(context.Background(), "club", models.Condition{
		Type:      models.TypeJetton,
		IsEnabled: true,
		Payload:   &models.Jetton{Address: rawAddress, Expected: 100},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(11), created.ID)

	require.Len(t, calls.all(), 1)
	call := calls.all()[0]
	assert.Equal(t, http.MethodPost, call.method)
	assert.Equal(t, "/admin/chats/club/rules/jettons", call.path)
	assert.Equal(t, rawAddress, call.body["address"])
	assert.NotContains(t, call.body, "id")
}

func TestService_FetchUpdateDeletePaths(t *testing.T) {
	svc, calls, _ := newService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		_, _ = w.Write([]byte(`{"id": 5, "type": "nft_collection", "isEnabled": true, "address": "` + rawAddress + `", "expected": 2}`))
	})
	ctx := context.Background()

	c, err := svc.Fetch(ctx, "club", models.TypeNFTCollection, 5)
	require.NoError(t, err)
	assert.Equal(t, &models.NFTCollection{Address: rawAddress, Expected: 2}, c.Payload)

	_, err = svc.Update(ctx, "club", c)
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, "club", models.TypeNFTCollection, 5))

	require.Len(t, calls.all(), 3)
	for i, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		assert.Equal(t, method, calls.all()[i].method)
		assert.Equal(t, "/admin/chats/club/rules/nft-collections/5", calls.all()[i].path)
	}
}

func TestService_MutationsInvalidateChatQueries(t *testing.T) {
	svc, _, qc := newService(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id": 5, "type": "premium", "isEnabled": true}`))
	})
	ctx := context.Background()

	_, err := svc.Fetch(ctx, "club", models.TypePremium, 5)
	require.NoError(t, err)
	require.Equal(t, 1, qc.Len())

	_, err = svc.Create(ctx, "club", models.Condition{Type: models.TypePremium, Payload: &models.Premium{}})
	require.NoError(t, err)
	assert.Equal(t, 0, qc.Len())
}

func TestService_UpdateWithoutID(t *testing.T) {
	svc, calls, _ := newService(t, func(w http.ResponseWriter, r *http.Request) {})
	_, err := svc.Update(context.Background(), "club", models.Condition{Type: models.TypePremium, Payload: &models.Premium{}})
	assert.Error(t, err)
	assert.Empty(t, calls.all())
}

func TestService_UnknownTypeMakesNoCall(t *testing.T) {
	svc, calls, _ := newService(t, func(w http.ResponseWriter, r *http.Request) {})
	_, err := svc.Fetch(context.Background(), "club", "ai_vibes", 1)
	assert.ErrorIs(t, err, registry.ErrUnknownType)
	assert.Empty(t, calls.all())
}

func TestService_PrefetchAndCategories(t *testing.T) {
	svc, calls, _ := newService(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/admin/resources/prefetch/"):
			_, _ = w.Write([]byte(`{"address": "` + rawAddress + `", "name": "Tether USD", "symbol": "USDT", "decimals": 6}`))
		case strings.HasPrefix(r.URL.Path, "/admin/resources/categories/"):
			_, _ = w.Write([]byte(`[{"value": "balance", "label": "Balance"}]`))
		}
	})
	ctx := context.Background()

	meta, err := svc.Prefetch(ctx, models.TypeJetton, rawAddress)
	require.NoError(t, err)
	assert.Equal(t, "USDT", meta.Symbol)

	cats, err := svc.Categories(ctx, models.TypeToncoin)
	require.NoError(t, err)
	assert.Equal(t, []string{"balance"}, models.Values(cats))

	none, err := svc.Categories(ctx, models.TypePremium)
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = svc.Prefetch(ctx, models.TypePremium, rawAddress)
	assert.Error(t, err)

	require.Len(t, calls.all(), 2)
	assert.Equal(t, "/admin/resources/prefetch/jettons", calls.all()[0].path)
	assert.Equal(t, "address="+strings.ReplaceAll(rawAddress, ":", "%3A"), calls.all()[0].query)
	assert.Equal(t, "/admin/resources/categories/toncoin", calls.all()[1].path)
}
