package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"igfetch/pkg/config"
	testingclock "k8s.io/utils/clock/testing"
)

func TestTokenBucket(t *testing.T) {
	fc := testingclock.NewFakeClock(time.Now())
	tb := newTokenBucket(5, time.Second, fc)

	for i := 0; i < 5; i++ {
		if !tb.Allow() {
			t.Errorf("Expected token %d to be available", i+1)
		}
	}

	if tb.Allow() {
		t.Error("Expected no more tokens to be available")
	}

	fc.Step(time.Second)
	if !tb.Allow() {
		t.Error("Expected tokens to be refilled after the period")
	}

	tb.Reset()
	if tb.tokens != tb.capacity {
		t.Error("Expected tokens to be reset to capacity")
	}
}

func TestSlidingWindow(t *testing.T) {
	fc := testingclock.NewFakeClock(time.Now())
	sw := newSlidingWindow(3, time.Second, fc)

	for i := 0; i < 3; i++ {
		if !sw.Allow() {
			t.Errorf("Expected request %d to be allowed", i+1)
		}
	}

	if sw.Allow() {
		t.Error("Expected request to be denied when limit is reached")
	}

	fc.Step(time.Second)
	if !sw.Allow() {
		t.Error("Expected request to be allowed after window slides")
	}

	sw.Reset()
	if len(sw.requests) != 0 {
		t.Error("Expected requests to be cleared after reset")
	}
}

func TestTokenBucketWaitUnblocksOnRefill(t *testing.T) {
	fc := testingclock.NewFakeClock(time.Now())
	tb := newTokenBucket(1, time.Minute, fc)
	tb.Allow()

	done := make(chan error, 1)
	go func() { done <- tb.Wait(context.Background()) }()

	deadline := time.Now().Add(2 * time.Second)
	for !fc.HasWaiters() {
		if time.Now().After(deadline) {
			t.Fatal("Wait never armed a timer")
		}
		time.Sleep(time.Millisecond)
	}
	fc.Step(time.Minute)

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Expected nil error, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after refill")
	}
}

func TestWaitHonoursContext(t *testing.T) {
	fc := testingclock.NewFakeClock(time.Now())
	sw := newSlidingWindow(1, time.Minute, fc)
	sw.Allow()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := sw.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.RateLimitConfig
		wantNil  bool
		wantErr  bool
		wantType string
	}{
		{name: "disabled", cfg: config.RateLimitConfig{Enabled: false}, wantNil: true},
		{name: "token bucket", cfg: config.RateLimitConfig{Enabled: true, Strategy: StrategyTokenBucket, RequestsPerMinute: 60}, wantType: "bucket"},
		{name: "sliding window", cfg: config.RateLimitConfig{Enabled: true, Strategy: StrategySlidingWindow, RequestsPerMinute: 60}, wantType: "window"},
		{name: "zero rate", cfg: config.RateLimitConfig{Enabled: true, RequestsPerMinute: 0}, wantErr: true},
		{name: "unknown strategy", cfg: config.RateLimitConfig{Enabled: true, Strategy: "leaky", RequestsPerMinute: 10}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter, err := New(tt.cfg, testingclock.NewFakeClock(time.Now()))
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantNil && limiter != nil {
				t.Errorf("Expected nil limiter, got %T", limiter)
			}
			switch tt.wantType {
			case "bucket":
				if _, ok := limiter.(*TokenBucket); !ok {
					t.Errorf("Expected *TokenBucket, got %T", limiter)
				}
			case "window":
				if _, ok := limiter.(*SlidingWindow); !ok {
					t.Errorf("Expected *SlidingWindow, got %T", limiter)
				}
			}
		})
	}
}
