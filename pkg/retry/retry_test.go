package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"igfetch/pkg/config"
	errs "igfetch/pkg/errors"
)

func TestExponentialBackoff(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:    100 * time.Millisecond,
		MaxDelay:     1 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.0,
	}

	tests := []struct {
		attempt     int
		expected    time.Duration
		description string
	}{
		{0, 0, "No attempt yet"},
		{1, 100 * time.Millisecond, "First attempt"},
		{2, 200 * time.Millisecond, "Second attempt"},
		{3, 400 * time.Millisecond, "Third attempt"},
		{4, 800 * time.Millisecond, "Fourth attempt"},
		{5, 1 * time.Second, "Fifth attempt (capped at max)"},
	}

	for _, test := range tests {
		t.Run(test.description, func(t *testing.T) {
			if delay := backoff.NextDelay(test.attempt); delay != test.expected {
				t.Errorf("Expected delay %v, got %v", test.expected, delay)
			}
		})
	}
}

func TestExponentialBackoffJitterStaysInRange(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:    100 * time.Millisecond,
		MaxDelay:     1 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.3,
	}

	for i := 0; i < 20; i++ {
		delay := backoff.NextDelay(2)
		if delay < 140*time.Millisecond || delay > 260*time.Millisecond {
			t.Fatalf("Jittered delay %v outside expected range", delay)
		}
	}
}

func noDelay() *Config {
	return &Config{
		MaxAttempts: 3,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		RetryIf:     DefaultRetryIf,
	}
}

func TestDoRetriesServerErrors(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errs.FromStatus(503)
		}
		return nil
	}, noDelay())

	if err != nil {
		t.Errorf("Expected success, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
}

func TestDoDoesNotRetryRateLimit(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return errs.FromStatus(429)
	}, noDelay())

	if errs.TypeOf(err) != errs.ErrorTypeRateLimit {
		t.Errorf("Expected rate limit error, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", attempts)
	}
}

func TestDoDoesNotRetryPlainErrors(t *testing.T) {
	attempts := 0
	_ = Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return errors.New("decode failure")
	}, noDelay())

	if attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", attempts)
	}
}

func TestDoMaxAttempts(t *testing.T) {
	attempts := 0
	retries := 0
	cfg := noDelay()
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) { retries++ }

	err := Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return &errs.Error{Type: errs.ErrorTypeNetwork, Message: "connection reset"}
	}, cfg)

	if err == nil {
		t.Fatal("Expected error after max attempts")
	}
	if errs.TypeOf(err) != errs.ErrorTypeNetwork {
		t.Errorf("Expected wrapped network error, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts)
	}
	if retries != 2 {
		t.Errorf("Expected 2 retry callbacks, got %d", retries)
	}
}

func TestDoContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := &Config{
		MaxAttempts: 5,
		Backoff:     &ConstantBackoff{Delay: time.Hour},
		OnRetry:     func(int, error, time.Duration) { cancel() },
	}

	err := Do(ctx, func(ctx context.Context) error {
		return errs.FromStatus(500)
	}, cfg)

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestDoWithResult(t *testing.T) {
	attempts := 0
	got, err := DoWithResult(context.Background(), func(ctx context.Context) (string, error) {
		attempts++
		if attempts == 1 {
			return "", errs.FromStatus(502)
		}
		return "ok", nil
	}, noDelay())

	if err != nil || got != "ok" {
		t.Errorf("Expected ok, got %q (%v)", got, err)
	}
}

func TestFromSettings(t *testing.T) {
	disabled := FromSettings(config.RetryConfig{Enabled: false, MaxAttempts: 5}, nil)
	if disabled.MaxAttempts != 1 {
		t.Errorf("Expected disabled retry to make one attempt, got %d", disabled.MaxAttempts)
	}

	enabled := FromSettings(config.RetryConfig{
		Enabled:     true,
		MaxAttempts: 4,
		BaseDelay:   time.Second,
		MaxDelay:    5 * time.Second,
		Multiplier:  3,
	}, nil)
	if enabled.MaxAttempts != 4 {
		t.Errorf("Expected 4 attempts, got %d", enabled.MaxAttempts)
	}
	backoff, ok := enabled.Backoff.(*ExponentialBackoff)
	if !ok {
		t.Fatalf("Expected exponential backoff, got %T", enabled.Backoff)
	}
	if backoff.Multiplier != 3 || backoff.MaxDelay != 5*time.Second {
		t.Errorf("Unexpected backoff settings: %+v", backoff)
	}
}
