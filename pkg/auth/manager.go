package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"igfetch/pkg/config"
	"igfetch/pkg/logger"
	"k8s.io/utils/clock"
)

// Manager chains session backends: the first backend holding a session
// answers reads, the first backend accepting a write keeps it
type Manager struct {
	backends []Backend
	clock    clock.PassiveClock
	logger   logger.Logger
}

// NewManager builds the backend chain selected by the configuration
func NewManager(cfg *config.Config, log logger.Logger) (*Manager, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	var backends []Backend
	switch strings.ToLower(cfg.SessionStore.Backend) {
	case config.BackendKeyring:
		ks, err := NewKeyringStore()
		if err != nil {
			return nil, err
		}
		backends = append(backends, ks)
	case config.BackendFile:
		fs, err := newFileBackend(cfg.SessionStore.File)
		if err != nil {
			return nil, err
		}
		backends = append(backends, fs)
	case config.BackendEnv:
		backends = append(backends, NewEnvironmentStore(cfg.Instagram))
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.SessionStore.RedisAddr,
			Password: cfg.SessionStore.RedisPassword,
			DB:       cfg.SessionStore.RedisDB,
		})
		backends = append(backends, NewRedisStore(client))
	case config.BackendMemory:
		backends = append(backends, NewMemoryStore())
	case config.BackendAuto, "":
		if ks, err := NewKeyringStore(); err == nil {
			backends = append(backends, ks)
		} else {
			log.WithError(err).Debug("system keyring unavailable, skipping")
		}
		fs, err := newFileBackend(cfg.SessionStore.File)
		if err != nil {
			return nil, err
		}
		backends = append(backends, fs)
		backends = append(backends, NewEnvironmentStore(cfg.Instagram))
	default:
		return nil, fmt.Errorf("unknown session backend: %s", cfg.SessionStore.Backend)
	}

	m := NewManagerWithBackends(backends...)
	m.logger = log
	return m, nil
}

func newFileBackend(path string) (*EncryptedFileStore, error) {
	if path == "" {
		dir, err := configDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get config directory: %w", err)
		}
		path = filepath.Join(dir, "sessions.enc")
	}

	fs, err := NewEncryptedFileStore(path, "")
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	return fs, nil
}

// NewManagerWithBackends creates a Manager over an explicit backend chain
func NewManagerWithBackends(backends ...Backend) *Manager {
	return &Manager{
		backends: backends,
		clock:    clock.RealClock{},
		logger:   logger.NewNopLogger(),
	}
}

// WithClock sets the clock used to stamp LastModified
func (m *Manager) WithClock(clk clock.PassiveClock) *Manager {
	m.clock = clk
	return m
}

// Backends returns the names of the configured backends in lookup order
func (m *Manager) Backends() []string {
	names := make([]string, 0, len(m.backends))
	for _, b := range m.backends {
		names = append(names, b.Name())
	}
	return names
}

// Get returns a copy of the first stored session for service, or nil, nil
func (m *Manager) Get(ctx context.Context, service string) (*Session, error) {
	var lastErr error
	for _, b := range m.backends {
		s, err := b.Load(ctx, service)
		if err == nil && s != nil {
			return s.Clone(), nil
		}
		if err != nil && !errors.Is(err, ErrSessionNotFound) {
			m.logger.WithFields(map[string]interface{}{
				"backend": b.Name(),
				"service": service,
			}).WithError(err).Warn("session backend read failed")
			lastErr = err
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("failed to load session: %w", lastErr)
	}
	return nil, nil
}

// Persist applies cookie rotations from header to session and saves it
func (m *Manager) Persist(ctx context.Context, session *Session, header http.Header) error {
	if session == nil {
		return ErrInvalidSession
	}

	if session.ApplySetCookies(header) {
		m.logger.WithField("service", session.Service).Debug("session cookies rotated")
	}
	return m.Save(ctx, session)
}

// Save stores a copy of session in the first backend that accepts it
func (m *Manager) Save(ctx context.Context, session *Session) error {
	if session == nil || session.Service == "" {
		return ErrInvalidSession
	}

	stored := session.Clone()
	stored.LastModified = m.clock.Now()

	var lastErr error
	for _, b := range m.backends {
		err := b.Save(ctx, stored)
		if err == nil {
			return nil
		}
		lastErr = err
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store session: %w", lastErr)
	}
	return ErrStoreUnavailable
}

// Delete removes the session for service from every backend
func (m *Manager) Delete(ctx context.Context, service string) error {
	deleted := false
	var lastErr error

	for _, b := range m.backends {
		err := b.Delete(ctx, service)
		switch {
		case err == nil:
			deleted = true
		case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrStoreUnavailable):
		default:
			lastErr = err
		}
	}

	if lastErr != nil {
		return fmt.Errorf("failed to delete session: %w", lastErr)
	}
	if !deleted {
		return ErrSessionNotFound
	}
	return nil
}

// Login stores a fresh Instagram session built from browser cookies
func (m *Manager) Login(ctx context.Context, sessionID, csrfToken, userAgent string) (*Session, error) {
	session := NewSession(sessionID, csrfToken)
	session.UserAgent = userAgent
	if !session.Valid() {
		return nil, ErrInvalidSession
	}

	if err := m.Save(ctx, session); err != nil {
		return nil, err
	}
	session.LastModified = m.clock.Now()
	return session, nil
}

// Age reports how long ago the session was last written
func (m *Manager) Age(session *Session) time.Duration {
	if session == nil || session.LastModified.IsZero() {
		return 0
	}
	return m.clock.Since(session.LastModified)
}
