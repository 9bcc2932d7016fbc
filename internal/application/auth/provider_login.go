package auth

import (
	"context"

	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/domain"
)

// SignInWithProvider exchanges a credential obtained by the client from
// Google, GitHub or Twitter for a provider session. First-time users are
// created on the fly by the identity provider.
func (s *Service) SignInWithProvider(ctx context.Context, provider string, cred domain.IdPCredential) (SignInResult, error) {
	p, ok := domain.ParseFederatedProvider(provider)
	if !ok {
		return SignInResult{}, domain.ErrUnsupportedProvider(provider)
	}
	if err := cred.Validate(p); err != nil {
		return SignInResult{}, err
	}

	u, err := s.idp.SignInWithIdp(ctx, p, cred)
	if err != nil {
		s.audit("provider_login_failed", map[string]string{
			"provider": string(p),
			"code":     domainCode(err),
		})
		return SignInResult{}, err
	}

	publish := s.pub.PublishUserSignedIn
	if u.IsNewUser {
		publish = s.pub.PublishUserRegistered
	}

	res, err := s.completeSignIn(ctx, u, u.DisplayName, p,
		domain.Success(domain.MsgSuccessSummary, domain.Welcome(u.DisplayName)),
		publish,
	)
	if err != nil {
		return SignInResult{}, err
	}

	s.audit("login", map[string]string{
		"user_id":  u.UID,
		"provider": string(p),
		"new_user": boolString(u.IsNewUser),
	})
	return res, nil
}
