package auth

import (
	"context"

	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/domain"
)

// ResetPassword asks the provider to e-mail a reset link.
// An unknown address gets the same answer as a known one.
func (s *Service) ResetPassword(ctx context.Context, email string) (domain.Notification, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return domain.Notification{}, domain.ErrMissingField("email")
	}

	sent := domain.Notification{
		Severity: domain.SeverityInfo,
		Summary:  domain.MsgResetSentSummary,
		Detail:   domain.MsgResetSentDetail,
	}

	if err := s.idp.SendPasswordReset(ctx, email); err != nil {
		if domain.Is(err, "user_not_found") {
			s.audit("password_reset_unknown_email", map[string]string{"email": email})
			return sent, nil
		}
		return domain.Notification{}, err
	}

	if err := s.pub.PublishPasswordResetRequested(ctx, PasswordResetEvent{
		Email: email,
		At:    s.now(),
	}); err != nil {
		s.audit("event_publish_failed", map[string]string{
			"email": email,
			"error": err.Error(),
		})
	}

	s.audit("password_reset_requested", map[string]string{"email": email})
	return sent, nil
}
