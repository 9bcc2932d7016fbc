package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

// ---------- fakes ----------

func write(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(msg))
}

type fakeHealth struct{}

func (fakeHealth) Healthz(w http.ResponseWriter, r *http.Request) { write(w, "healthz") }
func (fakeHealth) Readyz(w http.ResponseWriter, r *http.Request)  { write(w, "readyz") }

type fakeAuth struct{}

func (fakeAuth) Register(w http.ResponseWriter, r *http.Request) { write(w, "register") }
func (fakeAuth) Login(w http.ResponseWriter, r *http.Request)    { write(w, "login") }
func (fakeAuth) ProviderLogin(w http.ResponseWriter, r *http.Request) {
	write(w, "provider:"+chiParam(r, "provider"))
}
func (fakeAuth) PasswordReset(w http.ResponseWriter, r *http.Request) { write(w, "pw_reset") }
func (fakeAuth) Logout(w http.ResponseWriter, r *http.Request)        { write(w, "logout") }
func (fakeAuth) Refresh(w http.ResponseWriter, r *http.Request)       { write(w, "refresh") }
func (fakeAuth) Session(w http.ResponseWriter, r *http.Request)       { write(w, "session") }
func (fakeAuth) Me(w http.ResponseWriter, r *http.Request)            { write(w, "me") }

type fakeUsers struct{}

func (fakeUsers) List(w http.ResponseWriter, r *http.Request)    { write(w, "list") }
func (fakeUsers) Create(w http.ResponseWriter, r *http.Request)  { write(w, "create") }
func (fakeUsers) Get(w http.ResponseWriter, r *http.Request)     { write(w, "get:"+chiParam(r, "id")) }
func (fakeUsers) Delete(w http.ResponseWriter, r *http.Request)  { write(w, "delete:"+chiParam(r, "id")) }
func (fakeUsers) SetMine(w http.ResponseWriter, r *http.Request) { write(w, "set_mine") }
func (fakeUsers) Stream(w http.ResponseWriter, r *http.Request)  { write(w, "stream") }

// Middleware helper
func headerMW(key, val string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set(key, val)
			next.ServeHTTP(w, r)
		})
	}
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	h, err := New(Deps{
		Health:         fakeHealth{},
		Auth:           fakeAuth{},
		Users:          fakeUsers{},
		AuthMW:         headerMW("X-Auth", "1"),
		AuthRateMW:     headerMW("X-Rate", "1"),
		AllowedOrigins: []string{"http://localhost:5173"},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return h
}

func TestNew_RequiresDeps(t *testing.T) {
	cases := []Deps{
		{Auth: fakeAuth{}, Users: fakeUsers{}, AuthMW: headerMW("a", "b")},
		{Health: fakeHealth{}, Users: fakeUsers{}, AuthMW: headerMW("a", "b")},
		{Health: fakeHealth{}, Auth: fakeAuth{}, AuthMW: headerMW("a", "b")},
		{Health: fakeHealth{}, Auth: fakeAuth{}, Users: fakeUsers{}},
	}
	for i, d := range cases {
		if _, err := New(d); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}

func TestRoutes(t *testing.T) {
	h := newTestRouter(t)

	cases := []struct {
		method   string
		path     string
		body     string
		wantAuth bool
		wantRate bool
	}{
		{http.MethodGet, "/healthz", "healthz", false, false},
		{http.MethodGet, "/readyz", "readyz", false, false},
		{http.MethodPost, "/auth/v1/register", "register", false, true},
		{http.MethodPost, "/auth/v1/login", "login", false, true},
		{http.MethodPost, "/auth/v1/login/google", "provider:google", false, true},
		{http.MethodPost, "/auth/v1/password/reset", "pw_reset", false, true},
		{http.MethodPost, "/auth/v1/logout", "logout", false, false},
		{http.MethodPost, "/auth/v1/refresh", "refresh", false, false},
		{http.MethodGet, "/auth/v1/session", "session", false, false},
		{http.MethodGet, "/auth/v1/me", "me", true, false},
		{http.MethodPut, "/users/v1/me", "set_mine", true, false},
		{http.MethodGet, "/users/v1/users", "list", true, false},
		{http.MethodPost, "/users/v1/users", "create", true, false},
		{http.MethodGet, "/users/v1/users/stream", "stream", true, false},
		{http.MethodGet, "/users/v1/users/abc", "get:abc", true, false},
		{http.MethodDelete, "/users/v1/users/abc", "delete:abc", true, false},
	}

	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(tc.method, tc.path, nil))

			if rr.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rr.Code)
			}
			if rr.Body.String() != tc.body {
				t.Fatalf("expected body %q, got %q", tc.body, rr.Body.String())
			}
			if got := rr.Header().Get("X-Auth") == "1"; got != tc.wantAuth {
				t.Fatalf("auth middleware applied=%v, want %v", got, tc.wantAuth)
			}
			if got := rr.Header().Get("X-Rate") == "1"; got != tc.wantRate {
				t.Fatalf("rate middleware applied=%v, want %v", got, tc.wantRate)
			}
			if rr.Header().Get("X-Request-Id") == "" {
				t.Fatalf("expected request id header")
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestRouter(t)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestCORS_Preflight(t *testing.T) {
	h := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/auth/v1/login", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("expected allowed origin echoed, got %q", got)
	}
	if rr.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatalf("expected credentials allowed")
	}
}

func TestUnknownRoute_404(t *testing.T) {
	h := newTestRouter(t)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func chiParam(r *http.Request, key string) string {
	return chi.URLParam(r, key)
}
