package auth

import (
	"context"

	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/domain"
)

func (s *Service) SignIn(ctx context.Context, email, password string) (SignInResult, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		// Same answer as a wrong password; callers learn nothing about the account.
		return SignInResult{}, domain.ErrInvalidCredentials()
	}

	u, err := s.idp.SignInWithPassword(ctx, email, password)
	if err != nil {
		s.audit("login_failed", map[string]string{
			"email": email,
			"code":  domainCode(err),
		})
		return SignInResult{}, err
	}

	res, err := s.completeSignIn(ctx, u, u.DisplayName, domain.ProviderPassword,
		domain.Success(domain.MsgSuccessSummary, domain.Welcome(u.DisplayName)),
		s.pub.PublishUserSignedIn,
	)
	if err != nil {
		return SignInResult{}, err
	}

	s.audit("login", map[string]string{
		"user_id":  u.UID,
		"provider": string(domain.ProviderPassword),
	})
	return res, nil
}
