package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"
)

// ServiceInstagram is the service name sessions are stored under
const ServiceInstagram = "instagram"

// Session is the cookie jar and claim for one upstream service
type Session struct {
	Service      string            `json:"service"`
	Cookies      map[string]string `json:"cookies"`
	Claim        string            `json:"claim,omitempty"`
	UserAgent    string            `json:"user_agent,omitempty"`
	LastModified time.Time         `json:"last_modified"`
}

// NewSession builds an Instagram session from the two browser cookies it needs
func NewSession(sessionID, csrfToken string) *Session {
	return &Session{
		Service: ServiceInstagram,
		Cookies: map[string]string{
			"sessionid": sessionID,
			"csrftoken": csrfToken,
		},
	}
}

// CookieHeader renders the cookies as a Cookie request header value
func (s *Session) CookieHeader() string {
	if s == nil || len(s.Cookies) == 0 {
		return ""
	}

	names := make([]string, 0, len(s.Cookies))
	for name := range s.Cookies {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+"="+s.Cookies[name])
	}
	return strings.Join(parts, "; ")
}

// CSRFToken returns the csrftoken cookie value
func (s *Session) CSRFToken() string {
	if s == nil {
		return ""
	}
	return s.Cookies["csrftoken"]
}

// Clone returns a deep copy of the session
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Cookies = make(map[string]string, len(s.Cookies))
	for k, v := range s.Cookies {
		c.Cookies[k] = v
	}
	return &c
}

// ApplySetCookies folds Set-Cookie headers from a response into the session.
// Expired or emptied cookies are removed. It reports whether anything changed.
func (s *Session) ApplySetCookies(header http.Header) bool {
	if s == nil || len(header.Values("Set-Cookie")) == 0 {
		return false
	}
	if s.Cookies == nil {
		s.Cookies = make(map[string]string)
	}

	changed := false
	for _, c := range (&http.Response{Header: header}).Cookies() {
		if c.MaxAge < 0 || c.Value == "" || c.Value == "deleted" {
			if _, ok := s.Cookies[c.Name]; ok {
				delete(s.Cookies, c.Name)
				changed = true
			}
			continue
		}
		if s.Cookies[c.Name] != c.Value {
			s.Cookies[c.Name] = c.Value
			changed = true
		}
	}
	return changed
}

// Valid reports whether the session carries the cookies Instagram requires
func (s *Session) Valid() bool {
	return s != nil && s.Cookies["sessionid"] != "" && s.Cookies["csrftoken"] != ""
}

// SessionStore is what the resolvers depend on
type SessionStore interface {
	// Get returns the stored session for service, or nil, nil when there is none
	Get(ctx context.Context, service string) (*Session, error)

	// Persist applies Set-Cookie rotations from header to session and saves
	// it, including its claim
	Persist(ctx context.Context, session *Session, header http.Header) error
}

// Backend is one place sessions can be kept
type Backend interface {
	// Name identifies the backend in logs and CLI output
	Name() string

	// Load returns ErrSessionNotFound when nothing is stored for service
	Load(ctx context.Context, service string) (*Session, error)

	Save(ctx context.Context, session *Session) error

	Delete(ctx context.Context, service string) error
}

// SanitizeSession creates a copy of the session with cookie values masked
func SanitizeSession(session *Session) *Session {
	if session == nil {
		return nil
	}

	masked := session.Clone()
	for k, v := range masked.Cookies {
		masked.Cookies[k] = maskString(v)
	}
	if masked.Claim != "" && masked.Claim != "0" {
		masked.Claim = maskString(masked.Claim)
	}
	return masked
}

// maskString masks all but the first 4 and last 4 characters of a string
func maskString(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

// configDir returns the per-user configuration directory, creating it
func configDir() (string, error) {
	var dir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, "Library", "Application Support", "igfetch")
	case "windows":
		dir = filepath.Join(os.Getenv("APPDATA"), "igfetch")
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			dir = filepath.Join(xdgConfig, "igfetch")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dir = filepath.Join(home, ".config", "igfetch")
		}
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return dir, nil
}

// Errors
var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrInvalidSession   = errors.New("invalid session")
	ErrStoreUnavailable = errors.New("session store unavailable")
)
