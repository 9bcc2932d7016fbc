package http_handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/application/auth"
	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/domain"
	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/infrastructure/memory"
	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/infrastructure/security"
	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/transport/http/middleware"
)

// -------------------------
// Test wiring (pure unit)
// -------------------------

type account struct {
	user     domain.ProviderUser
	password string
}

// fakeIdP keeps accounts in memory and speaks the same domain errors as the
// real client.
type fakeIdP struct {
	mu       sync.Mutex
	byEmail  map[string]*account
	seq      int
	idpUser  domain.ProviderUser
	idpErr   error
	resetErr error
}

func newFakeIdP() *fakeIdP {
	return &fakeIdP{byEmail: map[string]*account{}}
}

func (f *fakeIdP) SignUp(_ context.Context, email, password string) (domain.ProviderUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byEmail[email]; ok {
		return domain.ProviderUser{}, domain.ErrEmailAlreadyInUse()
	}
	f.seq++
	u := domain.ProviderUser{
		UID:          "uid-" + string(rune('0'+f.seq)),
		Email:        email,
		IDToken:      "idt-" + email,
		RefreshToken: "rt-" + email,
		IsNewUser:    true,
	}
	f.byEmail[email] = &account{user: u, password: password}
	return u, nil
}

func (f *fakeIdP) SignInWithPassword(_ context.Context, email, password string) (domain.ProviderUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byEmail[email]
	if !ok || a.password != password {
		return domain.ProviderUser{}, domain.ErrInvalidCredentials()
	}
	u := a.user
	u.IsNewUser = false
	return u, nil
}

func (f *fakeIdP) SignInWithIdp(_ context.Context, _ domain.Provider, _ domain.IdPCredential) (domain.ProviderUser, error) {
	if f.idpErr != nil {
		return domain.ProviderUser{}, f.idpErr
	}
	return f.idpUser, nil
}

func (f *fakeIdP) SendEmailVerification(context.Context, string) error { return nil }

func (f *fakeIdP) SendPasswordReset(_ context.Context, email string) error {
	if f.resetErr != nil {
		return f.resetErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byEmail[email]; !ok {
		return domain.ErrUserNotFound()
	}
	return nil
}

func (f *fakeIdP) UpdateProfile(_ context.Context, idToken, displayName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.byEmail {
		if a.user.IDToken == idToken {
			a.user.DisplayName = displayName
		}
	}
	return nil
}

func (f *fakeIdP) Lookup(_ context.Context, idToken string) (domain.ProviderUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.byEmail {
		if a.user.IDToken == idToken {
			return a.user, nil
		}
	}
	return domain.ProviderUser{}, domain.ErrTokenInvalid()
}

func (f *fakeIdP) Refresh(_ context.Context, refreshToken string) (auth.ProviderTokens, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.byEmail {
		if a.user.RefreshToken == refreshToken {
			return auth.ProviderTokens{UID: a.user.UID, IDToken: a.user.IDToken, RefreshToken: refreshToken, ExpiresIn: 3600}, nil
		}
	}
	return auth.ProviderTokens{}, domain.ErrTokenInvalid()
}

type testEnv struct {
	idp      *fakeIdP
	profiles *memory.ProfileStore
	sessions *memory.SessionStore
	signer   *security.JWTSigner
	svc      *auth.Service
	auth     *AuthHandler
	users    *UsersHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		idp:      newFakeIdP(),
		profiles: memory.NewProfileStore(),
		sessions: memory.NewSessionStore(),
		signer:   security.NewJWTSigner("test-secret", "identity-bridge"),
	}
	env.svc = auth.NewService(env.idp, env.profiles, env.sessions, env.signer, memory.NewNoopPublisher(), auth.Config{
		AccessTTL:  time.Minute,
		SessionTTL: time.Hour,
	})
	env.auth = NewAuthHandler(env.svc, time.Hour, false)
	env.users = NewUsersHandler(env.svc)
	return env
}

// mustJSONBody marshals v to JSON and returns an io.Reader for request body.
func mustJSONBody(t *testing.T, v any) io.Reader {
	t.Helper()

	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("json marshal: %v", err)
	}
	return bytes.NewReader(b)
}

// mustReadData decodes the {"data": ...} envelope into out.
func mustReadData(t *testing.T, r io.Reader, out any) {
	t.Helper()

	raw, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	wrapped := struct {
		Data json.RawMessage `json:"data"`
	}{}
	if err := json.Unmarshal(raw, &wrapped); err != nil || len(wrapped.Data) == 0 {
		t.Fatalf("decode envelope failed; body=%s", string(raw))
	}
	if err := json.Unmarshal(wrapped.Data, out); err != nil {
		t.Fatalf("decode data failed; body=%s err=%v", string(raw), err)
	}
}

type errorEnvelope struct {
	Error struct {
		Code string `json:"code"`
	} `json:"error"`
	Notification *domain.Notification `json:"notification"`
}

func mustReadError(t *testing.T, r io.Reader) errorEnvelope {
	t.Helper()
	var e errorEnvelope
	if err := json.NewDecoder(r).Decode(&e); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return e
}

// readCookie finds cookie by name from response headers.
func readCookie(res *http.Response, name string) *http.Cookie {
	for _, c := range res.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// withUserCtx injects user_id + session_id into request context.
func withUserCtx(req *http.Request, userID, sessionID string) *http.Request {
	return req.WithContext(middleware.WithUser(req.Context(), userID, sessionID))
}

// withURLParam injects chi URL param (e.g. /users/{id}) into request context.
func withURLParam(req *http.Request, key, val string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, val)

	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	return req.WithContext(ctx)
}

func jsonReq(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var rd io.Reader = strings.NewReader("")
	if body != nil {
		rd = mustJSONBody(t, body)
	}
	req, err := http.NewRequest(method, target, rd)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req
}
