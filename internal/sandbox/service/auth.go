package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	initdata "github.com/telegram-mini-apps/init-data-golang"
	"go.uber.org/zap"

	apperrors "access-tool/internal/common/errors"
	"access-tool/internal/common/middleware"
	authmodels "access-tool/internal/features/auth/models"
	walletmodels "access-tool/internal/features/wallet/models"
	"access-tool/internal/sandbox/models"
	"access-tool/internal/sandbox/repository"
)

const defaultTokenTTL = 24 * time.Hour

type AuthOptions struct {
	// Пустой токен бота отключает проверку подписи init data
	BotToken       string
	Secret         string
	TokenTTL       time.Duration
	InitDataMaxAge time.Duration
}

// Auth exchanges Telegram init data for HS256 access tokens.
type Auth struct {
	opts   AuthOptions
	users  repository.UserRepository
	logger *zap.Logger
	now    func() time.Time
}

var _ middleware.TokenVerifier = (*Auth)(nil)

func NewAuth(users repository.UserRepository, opts AuthOptions, logger *zap.Logger) *Auth {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = defaultTokenTTL
	}
	if opts.BotToken == "" {
		logger.Warn("BOT_TOKEN is empty, init data signatures are not checked")
	}
	return &Auth{opts: opts, users: users, logger: logger, now: time.Now}
}

// Login validates the init data, registers the user and issues a token.
func (a *Auth) Login(ctx context.Context, raw string) (authmodels.TokenResponse, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return authmodels.TokenResponse{}, fieldError("initDataRaw", "is empty")
	}

	if a.opts.BotToken != "" {
		if err := initdata.Validate(raw, a.opts.BotToken, a.opts.InitDataMaxAge); err != nil {
			return authmodels.TokenResponse{}, apperrors.Wrap(err, apperrors.ErrCodeUnauthorized, "Invalid init data")
		}
	}

	data, err := initdata.Parse(raw)
	if err != nil {
		return authmodels.TokenResponse{}, apperrors.Wrap(err, apperrors.ErrCodeValidation, "Failed to parse init data")
	}
	if data.User.ID == 0 {
		return authmodels.TokenResponse{}, fieldError("initDataRaw", "has no user")
	}

	if _, err := a.users.UpsertUser(ctx, walletmodels.User{
		ID:        data.User.ID,
		Username:  data.User.Username,
		FirstName: data.User.FirstName,
		LastName:  data.User.LastName,
		IsPremium: data.User.IsPremium,
	}); err != nil {
		return authmodels.TokenResponse{}, repoError(err)
	}

	token, err := a.Issue(data.User.ID)
	if err != nil {
		return authmodels.TokenResponse{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "Failed to issue token")
	}

	a.logger.Info("User logged in",
		zap.Int64("user_id", data.User.ID),
		zap.String("username", data.User.Username))
	return authmodels.TokenResponse{
		AccessToken: token,
		ExpiresIn:   int64(a.opts.TokenTTL / time.Second),
	}, nil
}

// Issue signs an access token for userID.
func (a *Auth) Issue(userID int64) (string, error) {
	now := a.now()
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.opts.TokenTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(a.opts.Secret))
}

// Verify checks signature and expiry and returns the user id of the token.
func (a *Auth) Verify(token string) (int64, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (interface{}, error) { return []byte(a.opts.Secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid token subject %q", claims.Subject)
	}
	return id, nil
}

// InitDataFor mints init data for a test user, signed with the sandbox bot token.
func (a *Auth) InitDataFor(req models.InitDataRequest) (string, error) {
	user, err := json.Marshal(struct {
		ID        int64  `json:"id"`
		FirstName string `json:"first_name,omitempty"`
		Username  string `json:"username,omitempty"`
		IsPremium bool   `json:"is_premium,omitempty"`
	}{req.UserID, req.FirstName, req.Username, req.IsPremium})
	if err != nil {
		return "", err
	}
	values := url.Values{
		"query_id": {uuid.NewString()},
		"user":     {string(user)},
	}
	return SignInitData(values, a.opts.BotToken, a.now()), nil
}

// SignInitData sets auth_date and signs values the way Telegram signs Mini App init data.
func SignInitData(values url.Values, botToken string, authDate time.Time) string {
	signed := url.Values{}
	for k, v := range values {
		if k != "hash" {
			signed[k] = slices.Clone(v)
		}
	}
	signed.Set("auth_date", strconv.FormatInt(authDate.Unix(), 10))

	pairs := make([]string, 0, len(signed))
	for k := range signed {
		pairs = append(pairs, k+"="+signed.Get(k))
	}
	slices.Sort(pairs)

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))
	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(strings.Join(pairs, "\n")))

	signed.Set("hash", hex.EncodeToString(mac.Sum(nil)))
	return signed.Encode()
}
