// Package retry re-runs upstream calls that fail transiently.
//
// Only network failures and 5xx responses are retried. A 429 from Instagram
// is returned immediately, as are auth and parsing failures, so the caller
// can decide what to do with it.
//
//	cfg := retry.FromSettings(appCfg.Retry, log)
//	err := retry.Do(ctx, func(ctx context.Context) error {
//		return fetch(ctx)
//	}, cfg)
//
// Delays between attempts come from a BackoffStrategy; Wait honours context
// cancellation so a cancelled request never sleeps out its backoff.
package retry
