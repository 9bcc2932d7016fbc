package auth

import (
	"context"
	"time"

	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/domain"
)

/*
IdentityProvider
----------------
The hosted identity product. Credential checks, token issuance and
e-mail delivery all happen on the provider side.
*/
type IdentityProvider interface {
	SignUp(ctx context.Context, email, password string) (domain.ProviderUser, error)
	SignInWithPassword(ctx context.Context, email, password string) (domain.ProviderUser, error)
	SignInWithIdp(ctx context.Context, provider domain.Provider, cred domain.IdPCredential) (domain.ProviderUser, error)

	SendEmailVerification(ctx context.Context, idToken string) error
	SendPasswordReset(ctx context.Context, email string) error
	UpdateProfile(ctx context.Context, idToken, displayName string) error

	Lookup(ctx context.Context, idToken string) (domain.ProviderUser, error)
	Refresh(ctx context.Context, refreshToken string) (ProviderTokens, error)
}

// ProviderTokens is the provider's answer to a token refresh.
type ProviderTokens struct {
	UID          string
	IDToken      string
	RefreshToken string
	ExpiresIn    int64
}

/*
ProfileStore
------------
The "user" document collection. Set merges the profile fields into the
document keyed by UID; List is ordered by displayName ascending.
*/
type ProfileStore interface {
	Set(ctx context.Context, p domain.Profile) error
	Add(ctx context.Context, fields map[string]any) (string, error)
	Get(ctx context.Context, id string) (domain.Document, error)
	List(ctx context.Context) ([]domain.Document, error)
	Delete(ctx context.Context, id string) error
}

// ProfileWatcher is implemented by stores that can push the ordered listing
// whenever the collection changes. The channel closes when ctx is done.
type ProfileWatcher interface {
	Watch(ctx context.Context) (<-chan []domain.Document, error)
}

/*
SessionStore
------------
Server-side replacement of the browser cache holding the last known user.
*/
type SessionStore interface {
	Create(ctx context.Context, s domain.Session, ttl time.Duration) (id string, err error)
	Get(ctx context.Context, id string) (domain.Session, error)
	Update(ctx context.Context, s domain.Session, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

/*
TokenSigner
-----------
Issues and verifies our short-lived access tokens.
Used by service + auth middleware.
*/
type TokenClaims struct {
	UserID    string
	SessionID string
	Exp       time.Time
}

type TokenSigner interface {
	SignAccessToken(userID, sessionID string, ttl time.Duration) (string, error)
	VerifyAccessToken(token string) (TokenClaims, error)
}

/*
EventPublisher
--------------
Publishes account events to RabbitMQ so other services can react
(welcome mails, analytics, cache busting).
*/
type EventPublisher interface {
	PublishUserRegistered(ctx context.Context, evt UserEvent) error
	PublishUserSignedIn(ctx context.Context, evt UserEvent) error
	PublishUserSignedOut(ctx context.Context, evt UserEvent) error
	PublishPasswordResetRequested(ctx context.Context, evt PasswordResetEvent) error
}

type UserEvent struct {
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name,omitempty"`
	Provider    string    `json:"provider,omitempty"`
	At          time.Time `json:"at"`
}

type PasswordResetEvent struct {
	Email string    `json:"email"`
	At    time.Time `json:"at"`
}
