package accessapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"access-tool/internal/common/cache"
	apperrors "access-tool/internal/common/errors"
)

type chatDTO struct {
	Slug  string `json:"slug"`
	Title string `json:"title"`
}

func newTestClient(t *testing.T, url string, opts Options) *Client {
	t.Helper()
	opts.BaseURL = url
	if opts.RetryBackoff == 0 {
		opts.RetryBackoff = time.Millisecond
	}
	if opts.RetryLimit == 0 {
		opts.RetryLimit = 2
	}
	return New(opts)
}

func TestDo_DecodesAndInjectsBearer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "/api/v1/admin/chats/club", r.URL.Path)
		_ = json.NewEncoder(w).Encode(chatDTO{Slug: "club", Title: "Club"})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL+"/api/v1/", Options{
		Tokens: TokenSourceFunc(func(context.Context) (string, error) { return "secret", nil }),
	})

	res := Get[chatDTO](context.Background(), c, "/admin/chats/club", nil)
	require.True(t, res.OK)
	assert.False(t, res.Stale)
	assert.Equal(t, "Club", res.Data.Title)
}

func TestDo_NoAuthSkipsHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, Options{
		Tokens: TokenSourceFunc(func(context.Context) (string, error) { return "secret", nil }),
	})

	res := Do[struct{}](context.Background(), c, Request{Method: http.MethodPost, Path: "/auth/telegram", NoAuth: true})
	assert.True(t, res.OK)
}

func TestDo_RetriesIdempotentOnRetryableStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"slug":"club"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, Options{})
	res := Get[chatDTO](context.Background(), c, "/chats/club", nil)

	require.True(t, res.OK)
	assert.Equal(t, int32(3), calls.Load())
}

func TestDo_RetryLimitIsHonoured(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, Options{})
	res := Get[chatDTO](context.Background(), c, "/chats/club", nil)

	require.False(t, res.OK)
	assert.Equal(t, int32(3), calls.Load(), "one attempt plus two retries")
	assert.Equal(t, http.StatusBadGateway, res.Err.Status)
	assert.Equal(t, apperrors.MessageServer, apperrors.UserMessage(res.Err))
}

func TestDo_PostIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, Options{})
	res := Post[chatDTO](context.Background(), c, "/users/wallet", map[string]string{"a": "b"})

	assert.False(t, res.OK)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDo_NonRetryableStatusIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Chat not found"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, Options{})
	res := Get[chatDTO](context.Background(), c, "/chats/missing", nil)

	require.False(t, res.OK)
	assert.Equal(t, int32(1), calls.Load())
	assert.True(t, res.Err.IsNotFound())
	assert.Equal(t, "Chat not found", apperrors.UserMessage(res.Err))
}

func TestDo_ValidationDetailsAreJoined(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail":[
			{"type":"value_error","msg":"Invalid address","loc":["body","address"]},
			{"type":"greater_than","msg":"Input should be greater than 0","loc":["body","expected"]}
		]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, Options{})
	res := Post[chatDTO](context.Background(), c, "/admin/chats/club/rules/jettons", map[string]string{})

	require.False(t, res.OK)
	assert.True(t, res.Err.IsValidation())
	assert.Equal(t, "address: Invalid address; expected: Input should be greater than 0", res.Err.Message)
	assert.Equal(t, []string{"address", "expected"}, res.Err.Details["fields"])
}

func TestDo_UnauthorizedInvokesHook(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"Token expired"}`))
	}))
	defer srv.Close()

	var hooked atomic.Int32
	c := newTestClient(t, srv.URL, Options{})
	c.SetUnauthorizedHook(func(_ context.Context, err *apperrors.AppError) {
		hooked.Add(1)
		assert.True(t, err.IsUnauthorized())
	})

	res := Get[chatDTO](context.Background(), c, "/users/me", nil)
	require.False(t, res.OK)
	assert.Equal(t, int32(1), hooked.Load())
}

func TestDo_NetworkFailureServesStaleCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"slug":"club","title":"Club"}`))
	}))

	qc := cache.NewQueryCache(cache.NewMemoryBackend(0, time.Hour), "", nil)
	c := newTestClient(t, srv.URL, Options{Cache: qc})

	res := Get[chatDTO](context.Background(), c, "/chats/club", nil)
	require.True(t, res.OK)
	srv.Close()

	res = Get[chatDTO](context.Background(), c, "/chats/club", nil)
	require.True(t, res.OK)
	assert.True(t, res.Stale)
	assert.Equal(t, "Club", res.Data.Title)

	res = Get[chatDTO](context.Background(), c, "/chats/other", nil)
	require.False(t, res.OK)
	assert.True(t, res.Err.IsNetwork())
	assert.Equal(t, apperrors.MessageFallback, apperrors.UserMessage(res.Err))
}

func TestDo_InvalidateDropsCachedEntries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"slug":"club"}`))
	}))
	defer srv.Close()

	qc := cache.NewQueryCache(cache.NewMemoryBackend(0, time.Hour), "", nil)
	c := newTestClient(t, srv.URL, Options{Cache: qc})

	require.True(t, Get[chatDTO](context.Background(), c, "/admin/chats/club", nil).OK)
	require.Equal(t, 1, qc.Len())

	c.Invalidate(context.Background(), "/admin/chats/club")
	assert.Equal(t, 0, qc.Len())
}

func TestDo_BadJSONIsBadResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, Options{})
	res := Do[chatDTO](context.Background(), c, Request{Method: http.MethodGet, Path: "/chats/club", NoCache: true})

	require.False(t, res.OK)
	assert.Equal(t, apperrors.ErrCodeBadResponse, res.Err.Code)

	_, err := res.Unwrap()
	assert.Error(t, err)
}

func TestDo_CancelledContextIsAborted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newTestClient(t, srv.URL, Options{})
	res := Get[chatDTO](ctx, c, "/chats/club", nil)

	require.False(t, res.OK)
	assert.Contains(t, res.Err.Error(), "Operation aborted")
	filter := apperrors.NewToastFilter([]string{"Operation aborted"})
	assert.False(t, filter.ShouldDisplay(res.Err))
}

func TestDecodeError(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"empty body", http.StatusInternalServerError, ``, ""},
		{"string detail", http.StatusBadRequest, `{"detail":"Bad slug"}`, "Bad slug"},
		{"nested loc", http.StatusUnprocessableEntity, `{"detail":[{"msg":"required","loc":["body","users",0]}]}`, "users.0: required"},
		{"no loc", http.StatusUnprocessableEntity, `{"detail":[{"msg":"broken"}]}`, "broken"},
		{"html body", http.StatusBadGateway, `<html>bad gateway</html>`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := decodeError(tt.status, []byte(tt.body))
			assert.Equal(t, tt.message, err.Message)
			assert.Equal(t, tt.status, err.Status)
		})
	}
}
