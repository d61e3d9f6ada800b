package auth

import (
	"context"

	"igfetch/pkg/config"
)

// EnvironmentStore serves a read-only Instagram session from configuration,
// which already carries IGFETCH_SESSION_ID and IGFETCH_CSRF_TOKEN
type EnvironmentStore struct {
	cfg config.InstagramConfig
}

// NewEnvironmentStore creates a store over the instagram config section
func NewEnvironmentStore(cfg config.InstagramConfig) *EnvironmentStore {
	return &EnvironmentStore{cfg: cfg}
}

func (e *EnvironmentStore) Name() string { return "env" }

// Load returns the configured session for the instagram service
func (e *EnvironmentStore) Load(ctx context.Context, service string) (*Session, error) {
	if service != ServiceInstagram || e.cfg.SessionID == "" || e.cfg.CSRFToken == "" {
		return nil, ErrSessionNotFound
	}

	session := NewSession(e.cfg.SessionID, e.cfg.CSRFToken)
	session.UserAgent = e.cfg.UserAgent
	return session, nil
}

// Save is not supported for environment variables
func (e *EnvironmentStore) Save(ctx context.Context, session *Session) error {
	return ErrStoreUnavailable
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(ctx context.Context, service string) error {
	return ErrStoreUnavailable
}
