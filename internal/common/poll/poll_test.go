package poll

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUntil_StopsWhenConditionMet(t *testing.T) {
	var calls atomic.Int32
	err := Until(context.Background(), Options{Interval: time.Millisecond, Immediate: true}, func(context.Context) (bool, error) {
		return calls.Add(1) >= 3, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestUntil_ErrorsAreReportedAndPollingContinues(t *testing.T) {
	var calls atomic.Int32
	var reported atomic.Int32
	err := Until(context.Background(), Options{
		Interval: time.Millisecond,
		OnError:  func(error) { reported.Add(1) },
	}, func(context.Context) (bool, error) {
		if calls.Add(1) == 1 {
			return false, errors.New("temporary")
		}
		return true, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), reported.Load())
}

func TestUntil_CancelledContextStopsPolling(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := Until(ctx, Options{Interval: 2 * time.Millisecond}, func(context.Context) (bool, error) {
		calls.Add(1)
		return false, nil
	})
	require.ErrorIs(t, err, ErrStopped)
	assert.ErrorIs(t, err, context.Canceled)

	seen := calls.Load()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, seen, calls.Load(), "no checks after cancellation")
}
