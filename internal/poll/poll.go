// Package poll implements bounded hardware polling and retry loops.
package poll

import (
	"errors"
	"time"

	"github.com/jpillora/backoff"
)

// Default poll intervals. The interval grows from Min to Max between checks.
const (
	DefaultMinInterval = 10 * time.Microsecond
	DefaultMaxInterval = time.Millisecond
)

// ErrTimeout is returned when the condition was not observed before the deadline.
var ErrTimeout = errors.New("poll timeout")

// Config controls the interval between checks.
type Config struct {
	MinInterval time.Duration
	MaxInterval time.Duration
}

// DefaultConfig returns the default poll intervals.
func DefaultConfig() Config {
	return Config{MinInterval: DefaultMinInterval, MaxInterval: DefaultMaxInterval}
}

// Until calls cond until it reports true, returns an error, or timeout
// elapses. cond is always called at least once. The number of calls made is
// returned in every case.
func Until(timeout time.Duration, cfg Config, cond func() (bool, error)) (int, error) {
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = DefaultMinInterval
	}
	if cfg.MaxInterval < cfg.MinInterval {
		cfg.MaxInterval = cfg.MinInterval
	}
	b := &backoff.Backoff{
		Min:    cfg.MinInterval,
		Max:    cfg.MaxInterval,
		Factor: 2,
	}

	deadline := time.Now().Add(timeout)
	polls := 0
	for {
		polls++
		ok, err := cond()
		if err != nil {
			return polls, err
		}
		if ok {
			return polls, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return polls, ErrTimeout
		}
		d := b.Duration()
		if d > remaining {
			d = remaining
		}
		time.Sleep(d)
	}
}

// Retry calls f until it succeeds, returns an error for which retryable is
// false, or attempts calls were made. A fixed interval separates attempts.
// The last error is returned when attempts are exhausted.
func Retry(attempts int, interval time.Duration, retryable func(error) bool, f func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	if interval <= 0 {
		interval = time.Microsecond
	}
	b := &backoff.Backoff{Min: interval, Max: interval}

	var err error
	for i := 0; i < attempts; i++ {
		if err = f(); err == nil || !retryable(err) {
			return err
		}
		if i < attempts-1 {
			time.Sleep(b.Duration())
		}
	}
	return err
}
