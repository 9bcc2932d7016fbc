package auth

import (
	"context"
	"time"

	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/domain"
)

type Service struct {
	idp      IdentityProvider
	profiles ProfileStore
	sessions SessionStore
	signer   TokenSigner
	pub      EventPublisher

	accessTTL  time.Duration
	sessionTTL time.Duration
	now        func() time.Time
	audit      func(action string, fields map[string]string)
}

type Config struct {
	AccessTTL  time.Duration
	SessionTTL time.Duration
}

func NewService(
	idp IdentityProvider,
	profiles ProfileStore,
	sessions SessionStore,
	signer TokenSigner,
	pub EventPublisher,
	cfg Config,
) *Service {
	accessTTL := cfg.AccessTTL
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	sessionTTL := cfg.SessionTTL
	if sessionTTL <= 0 {
		sessionTTL = 7 * 24 * time.Hour
	}
	return &Service{
		idp:      idp,
		profiles: profiles,
		sessions: sessions,
		signer:   signer,
		pub:      pub,

		accessTTL:  accessTTL,
		sessionTTL: sessionTTL,
		now:        time.Now,
		audit:      func(string, map[string]string) {},
	}
}

func (s *Service) WithAudit(fn func(action string, fields map[string]string)) *Service {
	if fn != nil {
		s.audit = fn
	}
	return s
}

// SessionTTL is exposed for the cookie max-age.
func (s *Service) SessionTTL() time.Duration { return s.sessionTTL }

// AuthTokens is the common token output for handlers/DTO mapping.
type AuthTokens struct {
	AccessToken string
	TokenType   string // "Bearer"
	ExpiresIn   int64  // seconds
	SessionID   string // travels in an HttpOnly cookie
}

// SignInResult is returned by every successful registration or sign-in.
// Notification and Navigate are the UI side effects of the operation.
type SignInResult struct {
	User         domain.Profile
	Provider     domain.Provider
	IsNewUser    bool
	Tokens       AuthTokens
	Notification domain.Notification
	Navigate     string
}

type SignOutResult struct {
	Navigate string
}

type SessionState struct {
	LoggedIn bool
	User     *domain.Profile
}

// completeSignIn runs the shared tail of every sign-in flow: mirror the
// profile, open a session, issue an access token and announce the event.
func (s *Service) completeSignIn(
	ctx context.Context,
	u domain.ProviderUser,
	displayName string,
	provider domain.Provider,
	notice domain.Notification,
	publish func(context.Context, UserEvent) error,
) (SignInResult, error) {
	profile := domain.ProfileFrom(u, displayName)

	// Mirroring is best effort: the provider account exists either way.
	if err := s.profiles.Set(ctx, profile); err != nil {
		s.audit("profile_mirror_failed", map[string]string{
			"user_id": u.UID,
			"code":    domainCode(err),
			"error":   err.Error(),
		})
	}

	now := s.now()
	sid, err := s.sessions.Create(ctx, domain.Session{
		UID:                  u.UID,
		Provider:             provider,
		User:                 profile,
		ProviderIDToken:      u.IDToken,
		ProviderRefreshToken: u.RefreshToken,
		CreatedAt:            now,
		UpdatedAt:            now,
	}, s.sessionTTL)
	if err != nil {
		return SignInResult{}, err
	}

	toks, err := s.issueTokens(u.UID, sid)
	if err != nil {
		_ = s.sessions.Delete(ctx, sid)
		return SignInResult{}, err
	}

	if publish != nil {
		if err := publish(ctx, UserEvent{
			UserID:      u.UID,
			Email:       u.Email,
			DisplayName: displayName,
			Provider:    string(provider),
			At:          now,
		}); err != nil {
			s.audit("event_publish_failed", map[string]string{
				"user_id": u.UID,
				"error":   err.Error(),
			})
		}
	}

	return SignInResult{
		User:         profile,
		Provider:     provider,
		IsNewUser:    u.IsNewUser,
		Tokens:       toks,
		Notification: notice,
		Navigate:     domain.NavigateHome,
	}, nil
}

func (s *Service) issueTokens(userID, sessionID string) (AuthTokens, error) {
	access, err := s.signer.SignAccessToken(userID, sessionID, s.accessTTL)
	if err != nil {
		return AuthTokens{}, domain.ErrTokenSignFailed(err)
	}
	return AuthTokens{
		AccessToken: access,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.accessTTL.Seconds()),
		SessionID:   sessionID,
	}, nil
}
