package service

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "access-tool/internal/common/errors"
	"access-tool/internal/sandbox/models"
	"access-tool/internal/sandbox/repository"
)

func TestAuth_LoginIssuesVerifiableToken(t *testing.T) {
	repo := repository.NewMemory()
	auth := NewAuth(repo, AuthOptions{BotToken: "bot-token", Secret: "secret", TokenTTL: time.Hour}, nil)

	raw, err := auth.InitDataFor(models.InitDataRequest{UserID: 7, Username: "bob", IsPremium: true})
	require.NoError(t, err)

	resp, err := auth.Login(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, int64(3600), resp.ExpiresIn)

	userID, err := auth.Verify(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(7), userID)

	user, err := repo.GetUser(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "bob", user.Profile.Username)
	assert.True(t, user.Profile.IsPremium)
}

func TestAuth_LoginRejectsForeignSignature(t *testing.T) {
	auth := NewAuth(repository.NewMemory(), AuthOptions{BotToken: "bot-token", Secret: "secret"}, nil)

	raw := SignInitData(url.Values{"user": {`{"id":7}`}}, "another-token", time.Now())
	_, err := auth.Login(context.Background(), raw)

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.True(t, appErr.IsUnauthorized())
}

func TestAuth_LoginValidatesInput(t *testing.T) {
	auth := NewAuth(repository.NewMemory(), AuthOptions{Secret: "secret"}, nil)

	_, err := auth.Login(context.Background(), "   ")
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.True(t, appErr.IsValidation())
	assert.Equal(t, "initDataRaw", appErr.Details["field"])

	// Без токена бота подпись не проверяется, но пользователь обязателен
	_, err = auth.Login(context.Background(), SignInitData(url.Values{"query_id": {"q"}}, "", time.Now()))
	appErr, ok = apperrors.AsAppError(err)
	require.True(t, ok)
	assert.True(t, appErr.IsValidation())
}

func TestAuth_VerifyRejectsExpiredAndForeignTokens(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	auth := NewAuth(repository.NewMemory(), AuthOptions{Secret: "secret", TokenTTL: time.Minute}, nil)
	auth.now = func() time.Time { return now }

	token, err := auth.Issue(9)
	require.NoError(t, err)

	_, err = auth.Verify(token)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = auth.Verify(token)
	assert.Error(t, err)

	other := NewAuth(repository.NewMemory(), AuthOptions{Secret: "other", TokenTTL: time.Minute}, nil)
	other.now = auth.now
	foreign, err := other.Issue(9)
	require.NoError(t, err)
	_, err = auth.Verify(foreign)
	assert.Error(t, err)
}

func TestSignInitData_ReplacesHashAndAuthDate(t *testing.T) {
	authDate := time.Unix(1700000000, 0)
	raw := SignInitData(url.Values{"user": {`{"id":1}`}, "hash": {"stale"}, "auth_date": {"1"}}, "token", authDate)

	values, err := url.ParseQuery(raw)
	require.NoError(t, err)
	assert.Equal(t, "1700000000", values.Get("auth_date"))
	assert.Len(t, values.Get("hash"), 64)
	assert.NotEqual(t, "stale", values.Get("hash"))
	assert.Equal(t, raw, SignInitData(values, "token", authDate))
}
