package middleware

import (
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"access-tool/internal/common/errors"
)

// TokenVerifier resolves a bearer token to the user id it was issued for.
type TokenVerifier interface {
	Verify(token string) (int64, error)
}

// BearerAuth requires "Authorization: Bearer <token>" and stores the user id in the context.
func BearerAuth(tokens TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		token = strings.TrimSpace(token)
		if !ok || token == "" {
			_ = c.Error(errors.New(errors.ErrCodeUnauthorized, "Not authenticated"))
			c.Abort()
			return
		}

		userID, err := tokens.Verify(token)
		if err != nil {
			_ = c.Error(errors.Wrap(err, errors.ErrCodeUnauthorized, "Could not validate credentials"))
			c.Abort()
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// RequireAdmin пропускает только пользователей из списка. Пустой список пускает всех.
func RequireAdmin(adminIDs []int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(adminIDs) == 0 || slices.Contains(adminIDs, getUserID(c)) {
			c.Next()
			return
		}
		_ = c.Error(errors.New(errors.ErrCodeForbidden, "Admin access required"))
		c.Abort()
	}
}
