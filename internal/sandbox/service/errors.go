package service

import (
	"errors"

	apperrors "access-tool/internal/common/errors"
	"access-tool/internal/sandbox/repository"
)

var (
	ErrGroupNotFound = errors.New("group not found")
	ErrRuleNotFound  = errors.New("rule not found")
	ErrWalletUnknown = errors.New("wallet is not linked to the user")
)

// repoError maps storage errors to API errors.
func repoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrChatNotFound):
		return apperrors.Wrap(err, apperrors.ErrCodeNotFound, "Chat not found")
	case errors.Is(err, repository.ErrUserNotFound):
		return apperrors.Wrap(err, apperrors.ErrCodeNotFound, "User not found")
	case errors.Is(err, repository.ErrTaskNotFound):
		return apperrors.Wrap(err, apperrors.ErrCodeNotFound, "Task not found")
	case errors.Is(err, repository.ErrChatExists):
		return apperrors.Wrap(err, apperrors.ErrCodeConflict, "Chat already exists")
	case errors.Is(err, ErrGroupNotFound):
		return apperrors.Wrap(err, apperrors.ErrCodeNotFound, "Group not found")
	case errors.Is(err, ErrRuleNotFound):
		return apperrors.Wrap(err, apperrors.ErrCodeNotFound, "Rule not found")
	case errors.Is(err, ErrWalletUnknown):
		return apperrors.Wrap(err, apperrors.ErrCodeNotFound, "Wallet not linked")
	}
	if _, ok := apperrors.AsAppError(err); ok {
		return err
	}
	return apperrors.Wrap(err, apperrors.ErrCodeInternal, "Storage error")
}

// fieldError is a request validation failure of one body field.
func fieldError(field, reason string) *apperrors.AppError {
	appErr := apperrors.NewClientValidationError(field, reason)
	appErr.Code = apperrors.ErrCodeValidation
	return appErr
}

// invalid reports a payload validation failure to the caller as a 422.
func invalid(err error) error {
	if appErr, ok := apperrors.AsAppError(err); ok {
		if field, ok := appErr.Details["field"].(string); ok {
			reason, _ := appErr.Details["reason"].(string)
			return fieldError(field, reason).WithContext("cause", appErr.Message)
		}
		return apperrors.Wrap(err, apperrors.ErrCodeValidation, appErr.Message)
	}
	return apperrors.Wrap(err, apperrors.ErrCodeValidation, err.Error())
}
