package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode представляет код ошибки
type ErrorCode string

const (
	// Общие ошибки
	ErrCodeInternal    ErrorCode = "INTERNAL_ERROR"
	ErrCodeBadResponse ErrorCode = "BAD_RESPONSE"

	// Транспорт
	ErrCodeNetwork ErrorCode = "NETWORK_ERROR"

	// HTTP-ошибки бэкенда
	ErrCodeValidation   ErrorCode = "VALIDATION_ERROR"
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeConflict     ErrorCode = "CONFLICT"
	ErrCodeRateLimit    ErrorCode = "RATE_LIMIT_EXCEEDED"
	ErrCodeServer       ErrorCode = "SERVER_ERROR"

	// Клиентская валидация: запрос не отправлялся
	ErrCodeClientValidation ErrorCode = "CLIENT_VALIDATION"
)

const (
	MessageFallback = "Something went wrong"
	MessageServer   = "Server error"
)

// AppError представляет типизированную ошибку приложения
type AppError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Status  int                    `json:"status,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
	Context map[string]string      `json:"context,omitempty"`
	Cause   error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) IsNetwork() bool {
	return e.Code == ErrCodeNetwork
}

func (e *AppError) IsNotFound() bool {
	return e.Code == ErrCodeNotFound
}

func (e *AppError) IsValidation() bool {
	return e.Code == ErrCodeValidation || e.Code == ErrCodeClientValidation
}

func (e *AppError) IsUnauthorized() bool {
	return e.Code == ErrCodeUnauthorized || e.Code == ErrCodeForbidden
}

func (e *AppError) IsServer() bool {
	return e.Code == ErrCodeServer || e.Status >= http.StatusInternalServerError
}

// WithContext добавляет контекст к ошибке
func (e *AppError) WithContext(key, value string) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

// WithDetail добавляет детальную информацию к ошибке
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

func (e *AppError) WithStatus(status int) *AppError {
	e.Status = status
	return e
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap оборачивает существующую ошибку
func Wrap(err error, code ErrorCode, message string) *AppError {
	appErr := New(code, message)
	appErr.Cause = err
	return appErr
}

// Конструкторы для часто используемых ошибок

func NewNetworkError(op string, err error) *AppError {
	return Wrap(err, ErrCodeNetwork, fmt.Sprintf("Network request failed: %s", op)).
		WithDetail("operation", op)
}

func NewClientValidationError(field, reason string) *AppError {
	return New(ErrCodeClientValidation, fmt.Sprintf("Validation failed for field '%s': %s", field, reason)).
		WithDetail("field", field).
		WithDetail("reason", reason)
}

// FromStatus выбирает код ошибки по HTTP-статусу ответа
func FromStatus(status int, message string) *AppError {
	code := ErrCodeServer
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		code = ErrCodeValidation
	case http.StatusUnauthorized:
		code = ErrCodeUnauthorized
	case http.StatusForbidden:
		code = ErrCodeForbidden
	case http.StatusNotFound:
		code = ErrCodeNotFound
	case http.StatusConflict:
		code = ErrCodeConflict
	case http.StatusTooManyRequests:
		code = ErrCodeRateLimit
	}
	return New(code, message).WithStatus(status)
}

// AsAppError приводит ошибку к AppError
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if err == nil {
		return nil, false
	}
	ok := stderrors.As(err, &appErr)
	return appErr, ok
}

// UserMessage возвращает текст для всплывающего уведомления
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	appErr, ok := AsAppError(err)
	if !ok {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			return msg
		}
		return MessageFallback
	}
	switch {
	case appErr.IsNetwork():
		return MessageFallback
	case appErr.Message != "":
		return appErr.Message
	case appErr.IsServer():
		return MessageServer
	default:
		return MessageFallback
	}
}

// ToastFilter отсеивает шумные ошибки, которые не нужно показывать пользователю
type ToastFilter struct {
	substrings []string
}

func NewToastFilter(substrings []string) *ToastFilter {
	f := &ToastFilter{}
	for _, s := range substrings {
		if s = strings.TrimSpace(s); s != "" {
			f.substrings = append(f.substrings, strings.ToLower(s))
		}
	}
	return f
}

// ShouldDisplay сообщает, нужно ли показывать ошибку
func (f *ToastFilter) ShouldDisplay(err error) bool {
	if err == nil {
		return false
	}
	text := strings.ToLower(err.Error() + " " + UserMessage(err))
	for _, s := range f.substrings {
		if strings.Contains(text, s) {
			return false
		}
	}
	return true
}
