// Package stream issues and verifies short-lived references that let
// clients fetch Instagram CDN assets through igfetch instead of directly.
package stream

import (
	"crypto/rand"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"k8s.io/utils/clock"
)

// Config describes one proxied asset
type Config struct {
	Service   string `json:"service"`
	Mode      string `json:"type"`
	SourceURL string `json:"u"`
	Filename  string `json:"filename"`
}

// ProxyFactory turns an upstream asset into a reference clients can fetch
type ProxyFactory interface {
	CreateProxyReference(cfg Config) string
}

// DefaultTTL is how long a reference stays valid when none is configured
const DefaultTTL = 90 * time.Second

var (
	ErrInvalidReference = errors.New("invalid stream reference")
	ErrHostNotAllowed   = errors.New("upstream host not allowed")
)

type claims struct {
	Config
	jwt.RegisteredClaims
}

// Signer issues HS256-signed references of the form <public_url>/stream?t=<jwt>
type Signer struct {
	secret    []byte
	publicURL string
	ttl       time.Duration
	clock     clock.PassiveClock
}

// NewSigner creates a Signer. An empty secret is replaced by a random one,
// which makes references valid only for this process.
func NewSigner(secret, publicURL string, ttl time.Duration) (*Signer, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("failed to generate stream secret: %w", err)
		}
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Signer{
		secret:    key,
		publicURL: strings.TrimRight(publicURL, "/"),
		ttl:       ttl,
		clock:     clock.RealClock{},
	}, nil
}

// WithClock sets the clock used for issuing and expiry checks
func (s *Signer) WithClock(clk clock.PassiveClock) *Signer {
	s.clock = clk
	return s
}

// Sign returns the signed token for cfg
func (s *Signer) Sign(cfg Config) (string, error) {
	now := s.clock.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Config: cfg,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	})
	return token.SignedString(s.secret)
}

// CreateProxyReference returns a fetchable reference for cfg, or "" if
// signing failed
func (s *Signer) CreateProxyReference(cfg Config) string {
	token, err := s.Sign(cfg)
	if err != nil {
		return ""
	}
	return s.publicURL + "/stream?t=" + url.QueryEscape(token)
}

// Verify checks a token's signature and expiry and returns the asset it names
func (s *Signer) Verify(token string) (Config, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidReference, err)
	}
	if err := CheckHost(c.SourceURL); err != nil {
		return Config{}, err
	}
	return c.Config, nil
}

// allowedHostSuffixes are the CDN domains Instagram serves media from
var allowedHostSuffixes = []string{".cdninstagram.com", ".fbcdn.net"}

// CheckHost rejects anything that is not an https Instagram CDN URL
func CheckHost(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "https" {
		return ErrHostNotAllowed
	}

	host := strings.ToLower(u.Hostname())
	for _, suffix := range allowedHostSuffixes {
		if strings.HasSuffix(host, suffix) {
			return nil
		}
	}
	return ErrHostNotAllowed
}
