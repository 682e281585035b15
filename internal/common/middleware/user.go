package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"access-tool/internal/common/errors"
)

// UserRegistry creates the user record on first sight.
type UserRegistry interface {
	EnsureUser(ctx context.Context, userID int64) error
}

// AutoCreateUser makes sure the authenticated user exists, so a token that outlived the
// user store still works.
func AutoCreateUser(users UserRegistry) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := getUserID(c)
		if userID == 0 {
			c.Next()
			return
		}

		if err := users.EnsureUser(c.Request.Context(), userID); err != nil {
			_ = c.Error(errors.Wrap(err, errors.ErrCodeInternal, "Failed to create user"))
			c.Abort()
			return
		}

		c.Next()
	}
}
