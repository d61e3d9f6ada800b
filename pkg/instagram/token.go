package instagram

import (
	"context"
	"regexp"
	"sync"
	"time"

	"igfetch/pkg/auth"
	errs "igfetch/pkg/errors"
	"igfetch/pkg/logger"
	"k8s.io/utils/clock"
)

// DefaultTokenTTL is how long a scraped anti-forgery token is reused
const DefaultTokenTTL = 24 * time.Hour

// TokenExtractor pulls the anti-forgery token out of a landing page
type TokenExtractor interface {
	Extract(page []byte) (string, error)
}

// MarkerExtractor finds the token by a marker pattern whose first group is
// the value
type MarkerExtractor struct {
	pattern *regexp.Regexp
}

var dtsgMarker = regexp.MustCompile(`"dtsg":\{"token":"(.*?)"`)

// NewMarkerExtractor returns an extractor for the dtsg marker
func NewMarkerExtractor() *MarkerExtractor {
	return &MarkerExtractor{pattern: dtsgMarker}
}

// Extract returns errs.ErrTokenNotFound when the marker is absent or empty
func (m *MarkerExtractor) Extract(page []byte) (string, error) {
	match := m.pattern.FindSubmatch(page)
	if len(match) < 2 || len(match[1]) == 0 {
		return "", errs.ErrTokenNotFound
	}
	return string(match[1]), nil
}

// TokenCache holds the last scraped anti-forgery token. The mutex guards
// the slot only; it is never held while fetching.
type TokenCache struct {
	client     *Client
	landingURL string
	extractor  TokenExtractor
	ttl        time.Duration
	clock      clock.PassiveClock
	logger     logger.Logger

	mu        sync.Mutex
	value     string
	expiresAt time.Time
}

// NewTokenCache creates a cache that scrapes landingURL through client
func NewTokenCache(client *Client, landingURL string, ttl time.Duration, log logger.Logger) *TokenCache {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &TokenCache{
		client:     client,
		landingURL: landingURL,
		extractor:  NewMarkerExtractor(),
		ttl:        ttl,
		clock:      clock.RealClock{},
		logger:     log,
	}
}

// WithClock sets the clock expiry is measured against
func (tc *TokenCache) WithClock(clk clock.PassiveClock) *TokenCache {
	tc.clock = clk
	return tc
}

// WithExtractor replaces the page extractor
func (tc *TokenCache) WithExtractor(e TokenExtractor) *TokenCache {
	tc.extractor = e
	return tc
}

// Get returns the cached token while it is fresh, otherwise scrapes a new
// one using session's cookies. Failures are returned and never cached.
func (tc *TokenCache) Get(ctx context.Context, session *auth.Session) (string, error) {
	if token, ok := tc.cached(); ok {
		return token, nil
	}

	page, err := tc.client.Page(ctx, tc.landingURL, session)
	if err != nil {
		return "", err
	}

	token, err := tc.extractor.Extract(page)
	if err != nil {
		return "", err
	}

	tc.mu.Lock()
	tc.value = token
	tc.expiresAt = tc.clock.Now().Add(tc.ttl)
	tc.mu.Unlock()

	tc.logger.WithField("expires_in", tc.ttl).Debug("anti-forgery token refreshed")
	return token, nil
}

func (tc *TokenCache) cached() (string, bool) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	if tc.value != "" && tc.clock.Now().Before(tc.expiresAt) {
		return tc.value, true
	}
	return "", false
}
