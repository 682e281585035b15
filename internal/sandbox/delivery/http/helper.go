package http

import (
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "access-tool/internal/common/errors"
	"access-tool/internal/common/middleware"
)

// bind декодирует JSON тело и сообщает об ошибке через c.Error
func bind(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		_ = c.Error(middleware.BindingError(err))
		return false
	}
	return true
}

func ruleID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		_ = c.Error(apperrors.New(apperrors.ErrCodeValidation, "Invalid rule id").
			WithDetail("field", "id").
			WithDetail("reason", "must be a positive integer"))
		return 0, false
	}
	return id, true
}
