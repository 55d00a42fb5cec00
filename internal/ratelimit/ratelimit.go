package ratelimit

import (
	"context"
	"math/rand"
	"net/url"
	"sync"
	"time"
)

type RateLimiter interface {
	Wait(ctx context.Context) error
	SetDelay(min, max time.Duration)
}

// Jitter returns a random duration in [min, max].
func Jitter(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)+1))
}

// Sleep blocks for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type SimpleRateLimiter struct {
	minDelay   time.Duration
	maxDelay   time.Duration
	lastAction time.Time
	mu         sync.Mutex
}

func NewSimpleRateLimiter(minDelay, maxDelay time.Duration) *SimpleRateLimiter {
	return &SimpleRateLimiter{
		minDelay: minDelay,
		maxDelay: maxDelay,
	}
}

// Wait sleeps until a jittered delay has passed since the previous call.
func (r *SimpleRateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.lastAction.IsZero() {
		delay := Jitter(r.minDelay, r.maxDelay)
		if elapsed := time.Since(r.lastAction); elapsed < delay {
			if err := Sleep(ctx, delay-elapsed); err != nil {
				return err
			}
		}
	}

	r.lastAction = time.Now()
	return nil
}

func (r *SimpleRateLimiter) SetDelay(min, max time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.minDelay = min
	r.maxDelay = max
}

// Delay returns the current window.
func (r *SimpleRateLimiter) Delay() (time.Duration, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.minDelay, r.maxDelay
}

// AdaptiveRateLimiter widens its window after consecutive errors and
// narrows it back towards the floor after a run of successes.
type AdaptiveRateLimiter struct {
	*SimpleRateLimiter
	floor         time.Duration
	ceiling       time.Duration
	errorCount    int
	successCount  int
	maxErrorCount int
	backoffFactor float64
}

func NewAdaptiveRateLimiter(minDelay, maxDelay time.Duration) *AdaptiveRateLimiter {
	return &AdaptiveRateLimiter{
		SimpleRateLimiter: NewSimpleRateLimiter(minDelay, maxDelay),
		floor:             minDelay,
		ceiling:           120 * time.Second,
		maxErrorCount:     3,
		backoffFactor:     1.5,
	}
}

func (a *AdaptiveRateLimiter) RecordSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.successCount++
	a.errorCount = 0

	if a.successCount > 5 {
		newMin := time.Duration(float64(a.minDelay) * 0.9)
		if newMin < a.floor {
			newMin = a.floor
		}
		if newMin > a.maxDelay {
			newMin = a.maxDelay
		}
		a.minDelay = newMin
		a.successCount = 0
	}
}

func (a *AdaptiveRateLimiter) RecordError() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.errorCount++
	a.successCount = 0

	if a.errorCount >= a.maxErrorCount {
		newMin := time.Duration(float64(a.minDelay) * a.backoffFactor)
		newMax := time.Duration(float64(a.maxDelay) * a.backoffFactor)

		if newMax > a.ceiling {
			newMax = a.ceiling
		}
		if newMin > newMax {
			newMin = newMax
		}

		a.minDelay = newMin
		a.maxDelay = newMax
		a.errorCount = 0
	}
}

// OriginLimiters hands out one adaptive limiter per URL host.
type OriginLimiters struct {
	minDelay time.Duration
	maxDelay time.Duration
	mu       sync.Mutex
	limiters map[string]*AdaptiveRateLimiter
}

func NewOriginLimiters(minDelay, maxDelay time.Duration) *OriginLimiters {
	return &OriginLimiters{
		minDelay: minDelay,
		maxDelay: maxDelay,
		limiters: make(map[string]*AdaptiveRateLimiter),
	}
}

// For returns the limiter for rawURL's host.
func (o *OriginLimiters) For(rawURL string) *AdaptiveRateLimiter {
	host := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		host = u.Host
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	l, ok := o.limiters[host]
	if !ok {
		l = NewAdaptiveRateLimiter(o.minDelay, o.maxDelay)
		o.limiters[host] = l
	}
	return l
}
