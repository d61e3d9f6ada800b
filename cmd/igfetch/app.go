package main

import (
	"fmt"

	"igfetch/pkg/auth"
	"igfetch/pkg/config"
	"igfetch/pkg/instagram"
	"igfetch/pkg/logger"
	"igfetch/pkg/ratelimit"
	"igfetch/pkg/retry"
	"igfetch/pkg/stream"
	"k8s.io/utils/clock"
)

// app holds the collaborators shared by fetch and serve
type app struct {
	cfg      *config.Config
	log      logger.Logger
	sessions *auth.Manager
	signer   *stream.Signer
	service  *instagram.Service
}

// newApp wires the resolver stack from configuration
func newApp(cfg *config.Config, log logger.Logger) (*app, error) {
	sessions, err := auth.NewManager(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}

	limiter, err := ratelimit.New(cfg.RateLimit, clock.RealClock{})
	if err != nil {
		return nil, err
	}

	signer, err := stream.NewSigner(cfg.Stream.Secret, cfg.Stream.PublicURL, cfg.Stream.TTL)
	if err != nil {
		return nil, err
	}

	opts := []instagram.Option{
		instagram.WithUserAgent(cfg.Instagram.UserAgent),
		instagram.WithRetry(retry.FromSettings(cfg.Retry, log)),
	}
	if limiter != nil {
		opts = append(opts, instagram.WithLimiter(limiter))
	}
	client := instagram.NewClient(cfg.HTTP.Timeout, log, opts...)

	endpoints := instagram.NewEndpoints(cfg.Instagram.BaseURL)
	tokens := instagram.NewTokenCache(client, endpoints.Landing(), cfg.Instagram.TokenTTL, log)

	service := instagram.NewService(instagram.ServiceOptions{
		Client:    client,
		Tokens:    tokens,
		Store:     sessions,
		Proxy:     signer,
		Endpoints: endpoints,
		Logger:    log,
	})

	log.WithFields(map[string]interface{}{
		"session_backends": sessions.Backends(),
		"rate_limited":     limiter != nil,
	}).Debug("resolver ready")

	return &app{
		cfg:      cfg,
		log:      log,
		sessions: sessions,
		signer:   signer,
		service:  service,
	}, nil
}
