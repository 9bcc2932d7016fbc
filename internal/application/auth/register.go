package auth

import (
	"context"
	"strings"

	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/domain"
)

// Register creates the provider account, names it, asks the provider to send
// the verification e-mail and signs the new user in.
func (s *Service) Register(ctx context.Context, email, password, displayName string) (SignInResult, error) {
	email = domain.NormalizeEmail(email)
	displayName = strings.TrimSpace(displayName)

	if email == "" {
		return SignInResult{}, domain.ErrMissingField("email")
	}
	if password == "" {
		return SignInResult{}, domain.ErrMissingField("password")
	}

	u, err := s.idp.SignUp(ctx, email, password)
	if err != nil {
		s.audit("register_failed", map[string]string{
			"email": email,
			"code":  domainCode(err),
		})
		return SignInResult{}, err
	}

	if displayName != "" {
		if err := s.idp.UpdateProfile(ctx, u.IDToken, displayName); err != nil {
			s.audit("display_name_update_failed", map[string]string{
				"user_id": u.UID,
				"error":   err.Error(),
			})
		} else {
			u.DisplayName = displayName
		}
	}

	if err := s.idp.SendEmailVerification(ctx, u.IDToken); err != nil {
		s.audit("verify_email_send_failed", map[string]string{
			"user_id": u.UID,
			"error":   err.Error(),
		})
	}

	u.IsNewUser = true
	res, err := s.completeSignIn(ctx, u, displayName, domain.ProviderPassword,
		domain.Success(domain.MsgRegisteredSummary, domain.Welcome(displayName)),
		s.pub.PublishUserRegistered,
	)
	if err != nil {
		return SignInResult{}, err
	}

	s.audit("register", map[string]string{
		"user_id": u.UID,
		"email":   email,
	})
	return res, nil
}
