package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"igfetch/pkg/config"
	"k8s.io/utils/clock"
)

// Limiter defines the interface for rate limiting
type Limiter interface {
	// Allow checks if a request is allowed under the current rate limit
	Allow() bool
	// Wait blocks until the rate limit allows another request or ctx is done
	Wait(ctx context.Context) error
	// Reset resets the rate limiter state
	Reset()
}

// Strategy names accepted by New
const (
	StrategyTokenBucket   = "token_bucket"
	StrategySlidingWindow = "sliding_window"
)

// New builds a limiter from the rate limit section of the application config.
// It returns nil when rate limiting is disabled.
func New(cfg config.RateLimitConfig, clk clock.Clock) (Limiter, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if cfg.RequestsPerMinute <= 0 {
		return nil, fmt.Errorf("requests per minute must be positive, got %d", cfg.RequestsPerMinute)
	}
	if clk == nil {
		clk = clock.RealClock{}
	}

	switch cfg.Strategy {
	case StrategyTokenBucket, "":
		return newTokenBucket(cfg.RequestsPerMinute, time.Minute, clk), nil
	case StrategySlidingWindow:
		return newSlidingWindow(cfg.RequestsPerMinute, time.Minute, clk), nil
	default:
		return nil, fmt.Errorf("unknown rate limit strategy: %s", cfg.Strategy)
	}
}

// TokenBucket implements a token bucket rate limiter
type TokenBucket struct {
	capacity     int           // Maximum number of tokens
	tokens       int           // Current number of tokens
	refillPeriod time.Duration // Period after which bucket is refilled
	lastRefill   time.Time
	clock        clock.Clock
	mu           sync.Mutex
}

// NewTokenBucket creates a new token bucket rate limiter
func NewTokenBucket(capacity int, refillPeriod time.Duration) *TokenBucket {
	return newTokenBucket(capacity, refillPeriod, clock.RealClock{})
}

func newTokenBucket(capacity int, refillPeriod time.Duration, clk clock.Clock) *TokenBucket {
	return &TokenBucket{
		capacity:     capacity,
		tokens:       capacity,
		refillPeriod: refillPeriod,
		lastRefill:   clk.Now(),
		clock:        clk,
	}
}

// Allow checks if a request can proceed
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()

	if tb.tokens > 0 {
		tb.tokens--
		return true
	}
	return false
}

// Wait blocks until a token is available
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for !tb.Allow() {
		tb.mu.Lock()
		delay := tb.refillPeriod - tb.clock.Since(tb.lastRefill)
		tb.mu.Unlock()

		if err := sleep(ctx, tb.clock, delay); err != nil {
			return err
		}
	}
	return nil
}

// Reset resets the token bucket to full capacity
func (tb *TokenBucket) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.tokens = tb.capacity
	tb.lastRefill = tb.clock.Now()
}

func (tb *TokenBucket) refill() {
	now := tb.clock.Now()
	if now.Sub(tb.lastRefill) >= tb.refillPeriod {
		tb.tokens = tb.capacity
		tb.lastRefill = now
	}
}

// SlidingWindow implements a sliding window rate limiter
type SlidingWindow struct {
	windowSize  time.Duration
	maxRequests int
	requests    []time.Time
	clock       clock.Clock
	mu          sync.Mutex
}

// NewSlidingWindow creates a new sliding window rate limiter
func NewSlidingWindow(maxRequests int, windowSize time.Duration) *SlidingWindow {
	return newSlidingWindow(maxRequests, windowSize, clock.RealClock{})
}

func newSlidingWindow(maxRequests int, windowSize time.Duration, clk clock.Clock) *SlidingWindow {
	return &SlidingWindow{
		windowSize:  windowSize,
		maxRequests: maxRequests,
		requests:    make([]time.Time, 0, maxRequests),
		clock:       clk,
	}
}

// Allow checks if a request can proceed
func (sw *SlidingWindow) Allow() bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := sw.clock.Now()
	sw.cleanOldRequests(now)

	if len(sw.requests) < sw.maxRequests {
		sw.requests = append(sw.requests, now)
		return true
	}
	return false
}

// Wait blocks until a request is allowed
func (sw *SlidingWindow) Wait(ctx context.Context) error {
	for !sw.Allow() {
		var delay time.Duration
		sw.mu.Lock()
		if len(sw.requests) > 0 {
			delay = sw.windowSize - sw.clock.Since(sw.requests[0])
		}
		sw.mu.Unlock()

		if err := sleep(ctx, sw.clock, delay); err != nil {
			return err
		}
	}
	return nil
}

// Reset clears all recorded requests
func (sw *SlidingWindow) Reset() {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.requests = sw.requests[:0]
}

// cleanOldRequests removes requests outside the sliding window
func (sw *SlidingWindow) cleanOldRequests(now time.Time) {
	cutoff := now.Add(-sw.windowSize)

	i := 0
	for i < len(sw.requests) && !sw.requests[i].After(cutoff) {
		i++
	}
	if i > 0 {
		copy(sw.requests, sw.requests[i:])
		sw.requests = sw.requests[:len(sw.requests)-i]
	}
}

// sleep waits for delay on clk, with a short floor to avoid busy waiting
func sleep(ctx context.Context, clk clock.Clock, delay time.Duration) error {
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}

	timer := clk.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
