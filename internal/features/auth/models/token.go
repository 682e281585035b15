package models

import "time"

// Ключи локального хранилища
const (
	KeyAccessToken = "accessToken"
	KeyExpiresAt   = "accessTokenExpiresAt"
	// KeyLegacyToken is where older clients kept the token.
	KeyLegacyToken = "jwt"
)

// TelegramAuthRequest is the body of POST /auth/telegram.
type TelegramAuthRequest struct {
	InitDataRaw string `json:"initDataRaw" binding:"required"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Session is the locally stored authentication state.
type Session struct {
	AccessToken string
	// Zero when the token carries no expiry (dev tokens).
	ExpiresAt time.Time
	UserID    int64
	Username  string
}

func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
