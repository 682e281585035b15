package accessapi

import (
	apperrors "access-tool/internal/common/errors"
)

// Result is the normalized outcome of every API call. Callers check OK (or use Unwrap);
// no other error shape leaves this package.
type Result[T any] struct {
	OK   bool
	Data T
	Err  *apperrors.AppError
	// Stale is set when Data was served from the session cache after a network failure.
	Stale bool
}

// Unwrap converts the result into the usual (value, error) pair.
func (r Result[T]) Unwrap() (T, error) {
	if !r.OK {
		var zero T
		if r.Err == nil {
			return zero, apperrors.New(apperrors.ErrCodeInternal, apperrors.MessageFallback)
		}
		return zero, r.Err
	}
	return r.Data, nil
}

func ok[T any](data T, stale bool) Result[T] {
	return Result[T]{OK: true, Data: data, Stale: stale}
}

func fail[T any](err *apperrors.AppError) Result[T] {
	return Result[T]{Err: err}
}
