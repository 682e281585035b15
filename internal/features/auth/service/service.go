package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	initdata "github.com/telegram-mini-apps/init-data-golang"
	"go.uber.org/zap"

	apperrors "access-tool/internal/common/errors"
	"access-tool/internal/features/auth/models"
	"access-tool/internal/platform/accessapi"
	"access-tool/internal/platform/localstore"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrTokenExpired     = errors.New("access token expired")
	ErrInvalidInitData  = errors.New("invalid init data")
	ErrNoDevToken       = errors.New("dev mode is on but DEV_ACCESS_TOKEN is empty")
)

type Options struct {
	DevMode        bool
	DevAccessToken string
}

// Service issues and stores the bearer token. It is the TokenSource of the API client.
type Service struct {
	api    *accessapi.Client
	store  localstore.KV
	opts   Options
	logger *zap.Logger
	now    func() time.Time
}

func NewService(api *accessapi.Client, store localstore.KV, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		api:    api,
		store:  store,
		opts:   opts,
		logger: logger,
		now:    time.Now,
	}
}

// Authenticate exchanges Telegram init data for an access token and stores it.
func (s *Service) Authenticate(ctx context.Context, initDataRaw string) (*models.Session, error) {
	if s.opts.DevMode {
		return s.authenticateDev(ctx)
	}

	initDataRaw = strings.TrimSpace(initDataRaw)
	if initDataRaw == "" {
		return nil, apperrors.NewClientValidationError("initDataRaw", "is empty")
	}
	parsed, err := initdata.Parse(initDataRaw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInitData, err)
	}
	if parsed.Hash == "" || parsed.User.ID == 0 {
		return nil, fmt.Errorf("%w: missing hash or user", ErrInvalidInitData)
	}

	res := accessapi.Do[models.TokenResponse](ctx, s.api, accessapi.Request{
		Method: "POST",
		Path:   "/auth/telegram",
		Body:   models.TelegramAuthRequest{InitDataRaw: initDataRaw},
		NoAuth: true,
	})
	token, err := res.Unwrap()
	if err != nil {
		return nil, err
	}
	if token.AccessToken == "" {
		return nil, apperrors.New(apperrors.ErrCodeBadResponse, "Empty access token in response")
	}

	session := &models.Session{
		AccessToken: token.AccessToken,
		UserID:      parsed.User.ID,
		Username:    parsed.User.Username,
	}
	if token.ExpiresIn > 0 {
		session.ExpiresAt = s.now().Add(time.Duration(token.ExpiresIn) * time.Second).UTC()
	}

	if err := s.save(ctx, session); err != nil {
		return nil, err
	}

	s.logger.Info("Authenticated",
		zap.Int64("user_id", session.UserID),
		zap.Time("expires_at", session.ExpiresAt))
	return session, nil
}

func (s *Service) authenticateDev(ctx context.Context) (*models.Session, error) {
	if s.opts.DevAccessToken == "" {
		return nil, ErrNoDevToken
	}
	session := &models.Session{AccessToken: s.opts.DevAccessToken}
	if exp, ok := jwtExpiry(session.AccessToken); ok {
		session.ExpiresAt = exp
	}
	if err := s.save(ctx, session); err != nil {
		return nil, err
	}
	s.logger.Debug("Dev mode: using configured access token")
	return session, nil
}

// Token returns the stored token while it is valid.
func (s *Service) Token(ctx context.Context) (string, error) {
	session, err := s.Session(ctx)
	if err != nil {
		return "", err
	}
	return session.AccessToken, nil
}

// Session reads the stored token, migrating the legacy key if needed.
func (s *Service) Session(ctx context.Context) (*models.Session, error) {
	token, found, err := s.store.Get(ctx, models.KeyAccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to read access token: %w", err)
	}
	if !found {
		token, found, err = s.migrateLegacy(ctx)
		if err != nil {
			return nil, err
		}
	}
	if !found || token == "" {
		return nil, ErrNotAuthenticated
	}

	session := &models.Session{AccessToken: token}
	if raw, ok, err := s.store.Get(ctx, models.KeyExpiresAt); err == nil && ok {
		if exp, perr := time.Parse(time.RFC3339, raw); perr == nil {
			session.ExpiresAt = exp
		}
	}
	if session.ExpiresAt.IsZero() {
		if exp, ok := jwtExpiry(token); ok {
			session.ExpiresAt = exp
		}
	}

	if session.Expired(s.now()) {
		return nil, ErrTokenExpired
	}
	return session, nil
}

// Logout clears both the current and the legacy token together with every query
// cached under them.
func (s *Service) Logout(ctx context.Context) error {
	for _, key := range []string{models.KeyAccessToken, models.KeyExpiresAt, models.KeyLegacyToken} {
		if err := s.store.Delete(ctx, key); err != nil {
			return fmt.Errorf("failed to clear %s: %w", key, err)
		}
	}
	if err := s.api.ClearCache(ctx); err != nil {
		return fmt.Errorf("failed to clear cached queries: %w", err)
	}
	return nil
}

// HandleUnauthorized is installed as the API client's 401 hook.
func (s *Service) HandleUnauthorized(ctx context.Context, err *apperrors.AppError) {
	s.logger.Warn("Backend rejected the access token", zap.Error(err))
}

func (s *Service) migrateLegacy(ctx context.Context) (string, bool, error) {
	token, found, err := s.store.Get(ctx, models.KeyLegacyToken)
	if err != nil || !found {
		return "", false, err
	}
	if err := s.store.Set(ctx, models.KeyAccessToken, token); err != nil {
		return "", false, fmt.Errorf("failed to migrate legacy token: %w", err)
	}
	if err := s.store.Delete(ctx, models.KeyLegacyToken); err != nil {
		s.logger.Warn("Failed to remove legacy token key", zap.Error(err))
	}
	return token, true, nil
}

func (s *Service) save(ctx context.Context, session *models.Session) error {
	// Результаты прошлой сессии другому пользователю не показываем
	if err := s.api.ClearCache(ctx); err != nil {
		return fmt.Errorf("failed to clear cached queries: %w", err)
	}
	if err := s.store.Set(ctx, models.KeyAccessToken, session.AccessToken); err != nil {
		return fmt.Errorf("failed to store access token: %w", err)
	}
	if session.ExpiresAt.IsZero() {
		return s.store.Delete(ctx, models.KeyExpiresAt)
	}
	return s.store.Set(ctx, models.KeyExpiresAt, session.ExpiresAt.Format(time.RFC3339))
}

// jwtExpiry reads the exp claim without verifying the signature; the backend does that.
func jwtExpiry(token string) (time.Time, bool) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
