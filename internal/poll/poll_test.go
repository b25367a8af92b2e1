package poll

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUntilCountsPolls(t *testing.T) {
	calls := 0
	polls, err := Until(time.Second, DefaultConfig(), func() (bool, error) {
		calls++
		return calls == 3, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, polls)
}

func TestUntilTimeout(t *testing.T) {
	start := time.Now()
	polls, err := Until(5*time.Millisecond, DefaultConfig(), func() (bool, error) {
		return false, nil
	})
	assert.ErrorIs(t, err, ErrTimeout)
	assert.GreaterOrEqual(t, polls, 2)
	assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)
}

func TestUntilZeroTimeoutChecksOnce(t *testing.T) {
	polls, err := Until(0, DefaultConfig(), func() (bool, error) { return false, nil })
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, 1, polls)

	polls, err = Until(0, DefaultConfig(), func() (bool, error) { return true, nil })
	assert.NoError(t, err)
	assert.Equal(t, 1, polls)
}

func TestUntilConditionError(t *testing.T) {
	boom := errors.New("read failed")
	polls, err := Until(time.Second, DefaultConfig(), func() (bool, error) { return false, boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, polls)
}

func TestRetry(t *testing.T) {
	busy := errors.New("busy")
	isBusy := func(err error) bool { return errors.Is(err, busy) }

	t.Run("SucceedsAfterBusy", func(t *testing.T) {
		calls := 0
		err := Retry(3, time.Microsecond, isBusy, func() error {
			calls++
			if calls < 3 {
				return busy
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("Exhausted", func(t *testing.T) {
		calls := 0
		err := Retry(2, time.Microsecond, isBusy, func() error {
			calls++
			return busy
		})
		assert.ErrorIs(t, err, busy)
		assert.Equal(t, 2, calls)
	})

	t.Run("NonRetryable", func(t *testing.T) {
		other := errors.New("dead")
		calls := 0
		err := Retry(5, time.Microsecond, isBusy, func() error {
			calls++
			return other
		})
		assert.ErrorIs(t, err, other)
		assert.Equal(t, 1, calls)
	})
}
