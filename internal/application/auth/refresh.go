package auth

import (
	"context"

	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/domain"
)

var revokedCodes = []string{"invalid_credentials", "token_invalid", "token_expired", "account_disabled", "user_not_found"}

type RefreshResult struct {
	User   domain.Profile
	Tokens AuthTokens
}

// Refresh renews the provider ID token held by the session and issues a new
// access token. The cached user is reloaded so changes made on the provider
// side (verified e-mail, new name) show up.
func (s *Service) Refresh(ctx context.Context, sessionID string) (RefreshResult, error) {
	if sessionID == "" {
		return RefreshResult{}, domain.ErrSessionNotFound()
	}

	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return RefreshResult{}, err
	}

	toks, err := s.idp.Refresh(ctx, sess.ProviderRefreshToken)
	if err != nil {
		if providerRevoked(err) {
			// The provider no longer honours this session.
			_ = s.sessions.Delete(ctx, sessionID)
		}
		return RefreshResult{}, err
	}
	if toks.UID != "" && toks.UID != sess.UID {
		_ = s.sessions.Delete(ctx, sessionID)
		return RefreshResult{}, domain.ErrTokenInvalid()
	}

	sess.ProviderIDToken = toks.IDToken
	if toks.RefreshToken != "" {
		sess.ProviderRefreshToken = toks.RefreshToken
	}

	if u, err := s.idp.Lookup(ctx, toks.IDToken); err == nil {
		name := u.DisplayName
		if name == "" {
			name = sess.User.DisplayName
		}
		sess.User = domain.ProfileFrom(u, name)
	} else {
		s.audit("profile_lookup_failed", map[string]string{
			"user_id": sess.UID,
			"error":   err.Error(),
		})
	}
	sess.UpdatedAt = s.now()

	if err := s.sessions.Update(ctx, sess, s.sessionTTL); err != nil {
		return RefreshResult{}, err
	}

	tokens, err := s.issueTokens(sess.UID, sessionID)
	if err != nil {
		return RefreshResult{}, err
	}

	s.audit("refresh", map[string]string{
		"user_id":    sess.UID,
		"session_id": sessionID,
	})
	return RefreshResult{User: sess.User, Tokens: tokens}, nil
}

// providerRevoked reports whether a refresh failure means the provider
// account or refresh token is gone for good, as opposed to an outage.
func providerRevoked(err error) bool {
	for _, code := range revokedCodes {
		if domain.Is(err, code) {
			return true
		}
	}
	return false
}

// RefreshEndsSession reports whether a failed Refresh left no session behind,
// so the client should drop its session cookie.
func RefreshEndsSession(err error) bool {
	return domain.Is(err, "session_not_found") || providerRevoked(err)
}
