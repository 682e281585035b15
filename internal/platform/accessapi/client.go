// Package accessapi is the REST transport of the Access Tool backend: auth header
// injection, retries, error decoding and the session query cache.
package accessapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"access-tool/internal/common/cache"
	"access-tool/internal/common/config"
	apperrors "access-tool/internal/common/errors"
)

const maxResponseBytes = 8 << 20

var defaultRetryStatusCodes = []int{
	http.StatusRequestTimeout,
	http.StatusRequestEntityTooLarge,
	http.StatusTooManyRequests,
	http.StatusInternalServerError,
	http.StatusBadGateway,
	http.StatusServiceUnavailable,
	http.StatusGatewayTimeout,
}

// TokenSource supplies the bearer token for authenticated calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

type TokenSourceFunc func(ctx context.Context) (string, error)

func (f TokenSourceFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

// UnauthorizedHook is invoked on every HTTP 401.
type UnauthorizedHook func(ctx context.Context, err *apperrors.AppError)

type Options struct {
	BaseURL          string
	Timeout          time.Duration
	RetryLimit       int
	RetryStatusCodes []int
	RetryBackoff     time.Duration

	HTTPClient     *http.Client
	Tokens         TokenSource
	Cache          *cache.QueryCache
	OnUnauthorized UnauthorizedHook
	Logger         *zap.Logger
}

// OptionsFromConfig fills the transport settings from the API section of the config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		BaseURL:          cfg.API.BaseURL,
		Timeout:          cfg.API.Timeout,
		RetryLimit:       cfg.API.RetryLimit,
		RetryStatusCodes: cfg.API.RetryStatusCodes,
		RetryBackoff:     cfg.API.RetryBackoff,
	}
}

type Client struct {
	baseURL      string
	http         *http.Client
	retryLimit   int
	retryStatus  map[int]bool
	retryBackoff time.Duration
	cache        *cache.QueryCache
	logger       *zap.Logger

	mu             sync.RWMutex
	tokens         TokenSource
	onUnauthorized UnauthorizedHook
}

func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	codes := opts.RetryStatusCodes
	if len(codes) == 0 {
		codes = defaultRetryStatusCodes
	}
	retryStatus := make(map[int]bool, len(codes))
	for _, code := range codes {
		retryStatus[code] = true
	}

	backoff := opts.RetryBackoff
	if backoff <= 0 {
		backoff = 300 * time.Millisecond
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	limit := opts.RetryLimit
	if limit < 0 {
		limit = 0
	}

	return &Client{
		baseURL:        strings.TrimRight(opts.BaseURL, "/"),
		http:           httpClient,
		retryLimit:     limit,
		retryStatus:    retryStatus,
		retryBackoff:   backoff,
		cache:          opts.Cache,
		logger:         logger,
		tokens:         opts.Tokens,
		onUnauthorized: opts.OnUnauthorized,
	}
}

// SetTokenSource wires the auth service after both were constructed.
func (c *Client) SetTokenSource(ts TokenSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = ts
}

func (c *Client) SetUnauthorizedHook(hook UnauthorizedHook) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthorized = hook
}

// Invalidate drops cached GET results whose path starts with prefix.
func (c *Client) Invalidate(ctx context.Context, pathPrefix string) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Invalidate(ctx, cacheKey(http.MethodGet, pathPrefix, nil)); err != nil {
		c.logger.Warn("Failed to invalidate query cache", zap.String("prefix", pathPrefix), zap.Error(err))
	}
}

// ClearCache drops every cached query. Called whenever the session changes hands.
func (c *Client) ClearCache(ctx context.Context) error {
	if c.cache == nil {
		return nil
	}
	return c.cache.Clear(ctx)
}

// Request describes one call relative to the base URL.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   interface{}
	// NoAuth skips the Authorization header (login call).
	NoAuth bool
	// NoCache keeps a GET result out of the session cache.
	NoCache bool
}

// Do performs req and decodes the JSON response into T.
func Do[T any](ctx context.Context, c *Client, req Request) Result[T] {
	data, stale, appErr := c.send(ctx, req)
	if appErr != nil {
		return fail[T](appErr)
	}

	var out T
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &out); err != nil {
			return fail[T](apperrors.Wrap(err, apperrors.ErrCodeBadResponse, "Unexpected response from server").
				WithContext("path", req.Path))
		}
	}
	return ok(out, stale)
}

func Get[T any](ctx context.Context, c *Client, path string, query url.Values) Result[T] {
	return Do[T](ctx, c, Request{Method: http.MethodGet, Path: path, Query: query})
}

func Post[T any](ctx context.Context, c *Client, path string, body interface{}) Result[T] {
	return Do[T](ctx, c, Request{Method: http.MethodPost, Path: path, Body: body})
}

func Put[T any](ctx context.Context, c *Client, path string, body interface{}) Result[T] {
	return Do[T](ctx, c, Request{Method: http.MethodPut, Path: path, Body: body})
}

func Delete[T any](ctx context.Context, c *Client, path string) Result[T] {
	return Do[T](ctx, c, Request{Method: http.MethodDelete, Path: path})
}

func (c *Client) send(ctx context.Context, req Request) ([]byte, bool, *apperrors.AppError) {
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}

	var body []byte
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return nil, false, apperrors.Wrap(err, apperrors.ErrCodeInternal, "Failed to encode request")
		}
		body = b
	}

	idempotent := isIdempotent(method)
	backoff := retry.WithMaxRetries(uint64(c.retryLimit), retry.NewExponential(c.retryBackoff))

	attempt := 0
	data, err := retry.DoValue(ctx, backoff, func(ctx context.Context) ([]byte, error) {
		attempt++
		data, appErr := c.roundTrip(ctx, method, req, body)
		if appErr == nil {
			return data, nil
		}
		if idempotent && c.shouldRetry(appErr) {
			c.logger.Debug("Retrying request",
				zap.String("method", method),
				zap.String("path", req.Path),
				zap.Int("attempt", attempt),
				zap.Error(appErr))
			return nil, retry.RetryableError(appErr)
		}
		return nil, appErr
	})

	key := cacheKey(method, req.Path, req.Query)
	if err == nil {
		if method == http.MethodGet && !req.NoCache && c.cache != nil {
			if cerr := c.cache.Put(ctx, key, data); cerr != nil {
				c.logger.Warn("Failed to cache query result", zap.String("key", key), zap.Error(cerr))
			}
		}
		return data, false, nil
	}

	appErr := toAppError(ctx, err)
	if appErr.IsNetwork() && method == http.MethodGet && ctx.Err() == nil && c.cache != nil {
		if cached, found := c.cache.Get(key); found {
			c.logger.Info("Serving stale query result", zap.String("key", key), zap.Error(appErr))
			return cached, true, nil
		}
	}
	return nil, false, appErr
}

func (c *Client) roundTrip(ctx context.Context, method string, req Request, body []byte) ([]byte, *apperrors.AppError) {
	op := method + " " + req.Path

	u := c.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "Failed to build request").WithContext("operation", op)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	if !req.NoAuth {
		c.mu.RLock()
		tokens := c.tokens
		c.mu.RUnlock()
		if tokens != nil {
			token, err := tokens.Token(ctx)
			if err != nil {
				c.logger.Debug("No access token for request", zap.String("operation", op), zap.Error(err))
			} else if token != "" {
				httpReq.Header.Set("Authorization", "Bearer "+token)
			}
		}
	}

	started := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, aborted(ctx.Err())
		}
		return nil, apperrors.NewNetworkError(op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, apperrors.NewNetworkError(op, err)
	}

	c.logger.Debug("API call",
		zap.String("operation", op),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(started)))

	if resp.StatusCode >= http.StatusBadRequest {
		appErr := decodeError(resp.StatusCode, data).WithContext("operation", op)
		if resp.StatusCode == http.StatusUnauthorized {
			c.mu.RLock()
			hook := c.onUnauthorized
			c.mu.RUnlock()
			if hook != nil {
				hook(ctx, appErr)
			}
		}
		return nil, appErr
	}

	return data, nil
}

func (c *Client) shouldRetry(err *apperrors.AppError) bool {
	if err.IsNetwork() {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	return c.retryStatus[err.Status]
}

func isIdempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodPut, http.MethodDelete, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

func cacheKey(method, path string, query url.Values) string {
	key := method + " /" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		key += "?" + query.Encode()
	}
	return key
}

func aborted(err error) *apperrors.AppError {
	return apperrors.Wrap(err, apperrors.ErrCodeNetwork, "Operation aborted")
}

func toAppError(ctx context.Context, err error) *apperrors.AppError {
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr
	}
	if ctx.Err() != nil {
		return aborted(err)
	}
	return apperrors.Wrap(err, apperrors.ErrCodeInternal, fmt.Sprintf("Request failed: %v", err))
}
