package auth

import (
	"context"

	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/domain"
)

// SignOut drops the session. It is idempotent: an unknown or empty session id
// still navigates to the login page.
func (s *Service) SignOut(ctx context.Context, sessionID string) (SignOutResult, error) {
	out := SignOutResult{Navigate: domain.NavigateLogin}
	if sessionID == "" {
		return out, nil
	}

	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if domain.Is(err, "session_not_found") {
			return out, nil
		}
		return SignOutResult{}, err
	}

	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return SignOutResult{}, err
	}

	if err := s.pub.PublishUserSignedOut(ctx, UserEvent{
		UserID:      sess.UID,
		Email:       sess.User.Email,
		DisplayName: sess.User.DisplayName,
		Provider:    string(sess.Provider),
		At:          s.now(),
	}); err != nil {
		s.audit("event_publish_failed", map[string]string{
			"user_id": sess.UID,
			"error":   err.Error(),
		})
	}

	s.audit("logout", map[string]string{
		"user_id":    sess.UID,
		"session_id": sessionID,
	})
	return out, nil
}
