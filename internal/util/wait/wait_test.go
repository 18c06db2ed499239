package wait

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUntil_ImmediateSuccess(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Until(context.Background(), time.Hour, time.Hour, func(_ context.Context) (bool, error) {
		calls++
		return true, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "condition should be evaluated exactly once")
}

func TestUntil_EventualSuccess(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Until(context.Background(), time.Millisecond, time.Second, func(_ context.Context) (bool, error) {
		calls++
		return calls >= 3, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestUntil_Timeout(t *testing.T) {
	t.Parallel()

	err := Until(context.Background(), time.Millisecond, 20*time.Millisecond, func(_ context.Context) (bool, error) {
		return false, nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestUntil_ConditionError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	err := Until(context.Background(), time.Millisecond, time.Second, func(_ context.Context) (bool, error) {
		return false, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestUntil_ContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Until(ctx, time.Millisecond, time.Second, func(_ context.Context) (bool, error) {
		return false, nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrTimeout)
}
