package fetch

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/maltedev/pet-products-scraper/internal/ratelimit"
)

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Retrier runs an operation up to MaxAttempts times with a random delay
// drawn from [MinDelay, MaxDelay] between attempts.
type Retrier struct {
	MaxAttempts int
	MinDelay    time.Duration
	MaxDelay    time.Duration
	Sleep       func(ctx context.Context, d time.Duration) error
	Logger      *slog.Logger
}

func NewRetrier(maxAttempts int, minDelay, maxDelay time.Duration, logger *slog.Logger) *Retrier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retrier{
		MaxAttempts: maxAttempts,
		MinDelay:    minDelay,
		MaxDelay:    maxDelay,
		Sleep:       ratelimit.Sleep,
		Logger:      logger.With("component", "retrier"),
	}
}

// Do returns the number of attempts made and the last error, if any.
func (r *Retrier) Do(ctx context.Context, op func(ctx context.Context, attempt int) error) (int, error) {
	maxAttempts := r.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	sleep := r.Sleep
	if sleep == nil {
		sleep = ratelimit.Sleep
	}
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr == nil {
				lastErr = err
			}
			return attempt - 1, lastErr
		}

		lastErr = op(ctx, attempt)
		if lastErr == nil {
			return attempt, nil
		}

		if IsPermanent(lastErr) || errors.Is(lastErr, context.Canceled) {
			logger.Warn("attempt failed permanently", "attempt", attempt, "error", lastErr)
			return attempt, lastErr
		}

		if attempt == maxAttempts {
			logger.Warn("attempt failed, giving up", "attempt", attempt, "max_attempts", maxAttempts, "error", lastErr)
			break
		}

		delay := ratelimit.Jitter(r.MinDelay, r.MaxDelay)
		logger.Info("attempt failed, retrying",
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"sleep", delay,
			"error", lastErr)

		if err := sleep(ctx, delay); err != nil {
			return attempt, lastErr
		}
	}

	return maxAttempts, lastErr
}
