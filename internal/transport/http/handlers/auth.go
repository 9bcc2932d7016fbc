package http_handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/application/auth"
	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/domain"
	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/infrastructure/security"
	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/logger"
	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/transport/http/dto"
	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/transport/http/middleware"
	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/transport/http/response"
)

type AuthHandler struct {
	svc           *auth.Service
	sessionTTL    time.Duration
	secureCookies bool
}

func NewAuthHandler(svc *auth.Service, sessionTTL time.Duration, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		svc:           svc,
		sessionTTL:    sessionTTL,
		secureCookies: secureCookies,
	}
}

func (h *AuthHandler) fail(w http.ResponseWriter, r *http.Request, op auth.Op, err error) {
	response.WriteErrorNotice(w, r, err, auth.FailureNotice(op, err))
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := response.DecodeJSON(w, r, &req); err != nil {
		h.fail(w, r, auth.OpRegister, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.fail(w, r, auth.OpRegister, err)
		return
	}

	res, err := h.svc.Register(r.Context(), req.Email, req.Password, req.DisplayName)
	countSignIn("register", err)
	if err != nil {
		h.fail(w, r, auth.OpRegister, err)
		return
	}

	logger.WithCtx(r.Context()).Info().
		Str("user_id", res.User.UID).
		Msg("user_registered")

	security.SetSession(w, res.Tokens.SessionID, h.sessionTTL, h.secureCookies)
	response.Created(w, dto.NewAuthData(res))
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := response.DecodeJSON(w, r, &req); err != nil {
		h.fail(w, r, auth.OpSignIn, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.fail(w, r, auth.OpSignIn, err)
		return
	}

	res, err := h.svc.SignIn(r.Context(), req.Email, req.Password)
	countSignIn(string(domain.ProviderPassword), err)
	if err != nil {
		h.fail(w, r, auth.OpSignIn, err)
		return
	}

	logger.WithCtx(r.Context()).Info().
		Str("user_id", res.User.UID).
		Msg("user_logged_in")

	security.SetSession(w, res.Tokens.SessionID, h.sessionTTL, h.secureCookies)
	response.OK(w, dto.NewAuthData(res))
}

// ProviderLogin handles POST /auth/v1/login/{provider} with the credential
// the client obtained from the provider popup.
func (h *AuthHandler) ProviderLogin(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")

	var req dto.ProviderLoginRequest
	if err := response.DecodeJSON(w, r, &req); err != nil {
		h.fail(w, r, auth.OpProviderSignIn, err)
		return
	}

	res, err := h.svc.SignInWithProvider(r.Context(), provider, req.Credential())
	countSignIn(providerLabel(provider), err)
	if err != nil {
		h.fail(w, r, auth.OpProviderSignIn, err)
		return
	}

	logger.WithCtx(r.Context()).Info().
		Str("user_id", res.User.UID).
		Str("provider", string(res.Provider)).
		Bool("new_user", res.IsNewUser).
		Msg("user_logged_in")

	security.SetSession(w, res.Tokens.SessionID, h.sessionTTL, h.secureCookies)
	response.OK(w, dto.NewAuthData(res))
}

func (h *AuthHandler) PasswordReset(w http.ResponseWriter, r *http.Request) {
	var req dto.PasswordResetRequest
	if err := response.DecodeJSON(w, r, &req); err != nil {
		h.fail(w, r, auth.OpResetPassword, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.fail(w, r, auth.OpResetPassword, err)
		return
	}

	notice, err := h.svc.ResetPassword(r.Context(), req.Email)
	if err != nil {
		h.fail(w, r, auth.OpResetPassword, err)
		return
	}
	response.OK(w, dto.PasswordResetData{Notification: notice})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.SignOut(r.Context(), security.ReadSession(r))
	if err != nil {
		h.fail(w, r, auth.OpSignOut, err)
		return
	}

	security.ClearSession(w, h.secureCookies)
	response.OK(w, dto.LogoutData{Navigate: res.Navigate})
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	sid := security.ReadSession(r)

	res, err := h.svc.Refresh(r.Context(), sid)
	if err != nil {
		middleware.TokenRefreshTotal.WithLabelValues(statusLabel(err)).Inc()
		if auth.RefreshEndsSession(err) {
			security.ClearSession(w, h.secureCookies)
		}
		h.fail(w, r, auth.OpSessionLifecycle, err)
		return
	}
	middleware.TokenRefreshTotal.WithLabelValues("success").Inc()

	// sliding expiry
	security.SetSession(w, sid, h.sessionTTL, h.secureCookies)
	response.OK(w, dto.RefreshData{
		Tokens: dto.NewTokensView(res.Tokens),
		User:   dto.NewUserView(res.User),
	})
}

// Session reports the cached user and the logged-in flag.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	sid := security.ReadSession(r)

	st, err := h.svc.CurrentSession(r.Context(), sid)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	if !st.LoggedIn && sid != "" {
		security.ClearSession(w, h.secureCookies)
	}
	response.OK(w, dto.NewSessionData(st))
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrTokenInvalid())
		return
	}
	sid, _ := middleware.SessionIDFromContext(r.Context())

	u, err := h.svc.Me(r.Context(), userID, sid)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}
	response.OK(w, dto.MeData{User: dto.NewUserView(u)})
}

func countSignIn(method string, err error) {
	middleware.SignInAttemptsTotal.WithLabelValues(method, statusLabel(err)).Inc()
}

func statusLabel(err error) string {
	if err == nil {
		return "success"
	}
	if code := domain.CodeOf(err); code != "" {
		return code
	}
	return "error"
}

// providerLabel keeps metric cardinality bounded to the known providers.
func providerLabel(s string) string {
	if p, ok := domain.ParseFederatedProvider(s); ok {
		return string(p)
	}
	return "unknown"
}
