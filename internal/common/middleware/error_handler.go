package middleware

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"access-tool/internal/common/errors"
)

const (
	RequestIDKey = "request_id"
	UserIDKey    = "user_id"
)

// ErrorHandler middleware для обработки паник
func ErrorHandler(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Error("Panic recovered",
			zap.String("request_id", getRequestID(c)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Any("panic", recovered),
			zap.String("stack", string(debug.Stack())),
		)

		appErr := errors.New(errors.ErrCodeInternal, "Internal server error").
			WithDetail("panic", fmt.Sprintf("%v", recovered))
		sendErrorResponse(c, appErr, logger)
	})
}

// HandleErrors отправляет последнюю ошибку обработчика клиенту.
// Обработчики только вызывают c.Error(err) и выходят.
func HandleErrors(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err

		if appErr, ok := errors.AsAppError(err); ok {
			sendErrorResponse(c, appErr, logger)
			return
		}

		var verrs validator.ValidationErrors
		if stderrors.As(err, &verrs) {
			sendErrorResponse(c, BindingError(err), logger)
			return
		}

		sendErrorResponse(c, errors.Wrap(err, errors.ErrCodeInternal, "Internal server error"), logger)
	}
}

// RequestID middleware для добавления ID запроса
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set(RequestIDKey, requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// ErrorResponse is the FastAPI error shape: detail is a string or a list of DetailItem.
type ErrorResponse struct {
	Detail interface{} `json:"detail"`
}

type DetailItem struct {
	Type string   `json:"type"`
	Msg  string   `json:"msg"`
	Loc  []string `json:"loc"`
}

// BindingError converts a request binding failure into a validation error whose
// response lists every failed field.
func BindingError(err error) *errors.AppError {
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return errors.Wrap(err, errors.ErrCodeValidation, "Invalid request body")
	}

	items := make([]DetailItem, 0, len(verrs))
	for _, fe := range verrs {
		items = append(items, DetailItem{
			Type: fe.Tag(),
			Msg:  fmt.Sprintf("failed on the '%s' rule", fe.Tag()),
			Loc:  []string{"body", fe.Field()},
		})
	}
	return errors.Wrap(err, errors.ErrCodeValidation, "Request validation failed").
		WithDetail("items", items)
}

// sendErrorResponse отправляет ошибку в формате JSON
func sendErrorResponse(c *gin.Context, appErr *errors.AppError, logger *zap.Logger) {
	appErr.WithContext("request_id", getRequestID(c)).
		WithContext("path", c.Request.URL.Path).
		WithContext("method", c.Request.Method)

	logError(appErr, logger, c)

	c.AbortWithStatusJSON(getHTTPStatusCode(appErr), ErrorResponse{Detail: detail(appErr)})
}

func detail(appErr *errors.AppError) interface{} {
	if items, ok := appErr.Details["items"].([]DetailItem); ok && len(items) > 0 {
		return items
	}
	if field, ok := appErr.Details["field"].(string); ok && appErr.IsValidation() {
		reason, _ := appErr.Details["reason"].(string)
		return []DetailItem{{Type: "value_error", Msg: reason, Loc: []string{"body", field}}}
	}
	if appErr.Message != "" {
		return appErr.Message
	}
	return http.StatusText(getHTTPStatusCode(appErr))
}

// getHTTPStatusCode возвращает HTTP статус код для ошибки
func getHTTPStatusCode(appErr *errors.AppError) int {
	if appErr.Status != 0 {
		return appErr.Status
	}
	switch appErr.Code {
	case errors.ErrCodeValidation, errors.ErrCodeClientValidation:
		return http.StatusUnprocessableEntity
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case errors.ErrCodeForbidden:
		return http.StatusForbidden
	case errors.ErrCodeConflict:
		return http.StatusConflict
	case errors.ErrCodeRateLimit:
		return http.StatusTooManyRequests
	case errors.ErrCodeBadResponse:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// logError логирует ошибку с контекстом
func logError(appErr *errors.AppError, logger *zap.Logger, c *gin.Context) {
	fields := []zap.Field{
		zap.String("request_id", getRequestID(c)),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.String("error_code", string(appErr.Code)),
		zap.String("error_message", appErr.Message),
	}

	if userID := getUserID(c); userID != 0 {
		fields = append(fields, zap.Int64("user_id", userID))
	}

	if len(appErr.Details) > 0 {
		detailsJSON, _ := json.Marshal(appErr.Details)
		fields = append(fields, zap.String("details", string(detailsJSON)))
	}

	if appErr.Cause != nil {
		fields = append(fields, zap.Error(appErr.Cause))
	}

	switch {
	case appErr.IsUnauthorized():
		logger.Warn("Unauthorized access attempt", fields...)
	case appErr.IsValidation():
		logger.Info("Validation error", fields...)
	case appErr.IsNotFound():
		logger.Info("Resource not found", fields...)
	default:
		logger.Error("Application error occurred", fields...)
	}
}

// getRequestID получает ID запроса из контекста
func getRequestID(c *gin.Context) string {
	if id := c.GetString(RequestIDKey); id != "" {
		return id
	}
	return "unknown"
}

// getUserID получает ID пользователя из контекста
func getUserID(c *gin.Context) int64 {
	return c.GetInt64(UserIDKey)
}

// UserID returns the authenticated user of the request, 0 when anonymous.
func UserID(c *gin.Context) int64 {
	return getUserID(c)
}
