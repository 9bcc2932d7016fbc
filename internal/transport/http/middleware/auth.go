package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/application/auth"
	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/domain"
)

type TokenVerifier interface {
	VerifyAccessToken(token string) (auth.TokenClaims, error)
}

type WriteErrFunc func(http.ResponseWriter, *http.Request, error)

// SessionChecker confirms that the session named in the token still exists
// and belongs to the same user. Signing out revokes outstanding tokens this
// way.
type SessionChecker interface {
	Me(ctx context.Context, userID, sessionID string) (domain.Profile, error)
}

// Auth verifies Authorization: Bearer <access_token>, checks the backing
// session, and injects the identity into the request context.
func Auth(verifier TokenVerifier, sessions SessionChecker, writeErr WriteErrFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if h == "" {
				writeErr(w, r, domain.ErrTokenMissing())
				return
			}

			parts := strings.SplitN(h, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				writeErr(w, r, domain.ErrTokenInvalid())
				return
			}

			raw := strings.TrimSpace(parts[1])
			if raw == "" {
				writeErr(w, r, domain.ErrTokenInvalid())
				return
			}

			claims, err := verifier.VerifyAccessToken(raw)
			if err != nil {
				writeErr(w, r, err)
				return
			}

			if strings.TrimSpace(claims.UserID) == "" || strings.TrimSpace(claims.SessionID) == "" {
				writeErr(w, r, domain.ErrTokenInvalid())
				return
			}

			if sessions != nil {
				if _, err := sessions.Me(r.Context(), claims.UserID, claims.SessionID); err != nil {
					writeErr(w, r, err)
					return
				}
			}

			ctx := WithUser(r.Context(), claims.UserID, claims.SessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
