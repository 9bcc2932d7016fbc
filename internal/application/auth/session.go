package auth

import (
	"context"

	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/domain"
)

// CurrentSession reports the cached user for a session id. A missing or
// expired session is not an error; it just means "not logged in".
func (s *Service) CurrentSession(ctx context.Context, sessionID string) (SessionState, error) {
	if sessionID == "" {
		return SessionState{}, nil
	}
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if domain.Is(err, "session_not_found") {
			return SessionState{}, nil
		}
		return SessionState{}, err
	}
	user := sess.User
	return SessionState{LoggedIn: true, User: &user}, nil
}

func (s *Service) IsLoggedIn(ctx context.Context, sessionID string) bool {
	st, err := s.CurrentSession(ctx, sessionID)
	return err == nil && st.LoggedIn
}

// Me returns the cached profile of an authenticated caller. The session must
// still belong to the user named in the access token.
func (s *Service) Me(ctx context.Context, userID, sessionID string) (domain.Profile, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return domain.Profile{}, err
	}
	if sess.UID != userID {
		return domain.Profile{}, domain.ErrSessionNotFound()
	}
	return sess.User, nil
}
