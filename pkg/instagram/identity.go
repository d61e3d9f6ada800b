package instagram

import (
	"context"
	"net/http"

	"igfetch/pkg/auth"
	errs "igfetch/pkg/errors"
)

// UsernameToID resolves a username to its numeric owner id. Any error means
// the id is unknown.
func (s *Service) UsernameToID(ctx context.Context, username string, session *auth.Session) (string, error) {
	var resp profileResponse
	if err := s.exchange(ctx, http.MethodGet, s.endpoints.Profile(username), session, nil, &resp); err != nil {
		return "", err
	}

	if resp.Data == nil || resp.Data.User == nil || resp.Data.User.ID == "" {
		return "", errs.ErrUserNotFound
	}
	return string(resp.Data.User.ID), nil
}
