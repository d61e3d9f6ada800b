// Package ratelimit paces outgoing Instagram requests.
//
// Two strategies are available. TokenBucket refills to full capacity once per
// period and suits short bursts; SlidingWindow counts requests over a moving
// window and gives a steadier rate. New picks one from config.RateLimitConfig
// and returns nil when rate limiting is disabled.
//
//	limiter, err := ratelimit.New(cfg.RateLimit, nil)
//	if limiter != nil {
//		if err := limiter.Wait(ctx); err != nil {
//			return err
//		}
//	}
//
// Both limiters read time from a k8s.io/utils clock so tests can drive them
// with a fake clock.
package ratelimit
