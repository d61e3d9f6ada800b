package instagram

import (
	"context"
	"net/url"

	"igfetch/pkg/auth"
	"igfetch/pkg/logger"
	"igfetch/pkg/stream"
)

// Service resolves Instagram posts and stories into media descriptors
type Service struct {
	client    *Client
	tokens    *TokenCache
	store     auth.SessionStore
	proxy     stream.ProxyFactory
	endpoints Endpoints
	logger    logger.Logger
}

// ServiceOptions collects the collaborators a Service needs
type ServiceOptions struct {
	Client    *Client
	Tokens    *TokenCache
	Store     auth.SessionStore
	Proxy     stream.ProxyFactory
	Endpoints Endpoints
	Logger    logger.Logger
}

// NewService wires a Service. A missing token cache is created over the
// client and the endpoints' landing page.
func NewService(opts ServiceOptions) *Service {
	log := opts.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}
	endpoints := opts.Endpoints
	if endpoints.base == "" {
		endpoints = NewEndpoints("")
	}
	tokens := opts.Tokens
	if tokens == nil {
		tokens = NewTokenCache(opts.Client, endpoints.Landing(), DefaultTokenTTL, log)
	}

	return &Service{
		client:    opts.Client,
		tokens:    tokens,
		store:     opts.Store,
		proxy:     opts.Proxy,
		endpoints: endpoints,
		logger:    log,
	}
}

// session loads the instagram session; a store failure is logged and
// treated as no session
func (s *Service) session(ctx context.Context) *auth.Session {
	if s.store == nil {
		return nil
	}

	session, err := s.store.Get(ctx, auth.ServiceInstagram)
	if err != nil {
		s.logger.WithError(err).Warn("session store unavailable, continuing without session")
		return nil
	}
	return session
}

// exchange performs one request and folds the response's claim and cookie
// rotation into session before persisting it. session may be nil.
func (s *Service) exchange(ctx context.Context, method, rawURL string, session *auth.Session, form url.Values, target interface{}) error {
	result, err := s.client.Request(ctx, method, rawURL, session, form, target)

	if result != nil && session != nil && s.store != nil {
		rotated := len(result.Header.Values("Set-Cookie")) > 0
		if result.Claim != "" {
			session.Claim = result.Claim
			rotated = true
		}
		if rotated {
			if perr := s.store.Persist(ctx, session, result.Header); perr != nil {
				s.logger.WithError(perr).Warn("failed to persist session update")
			}
		}
	}
	return err
}
