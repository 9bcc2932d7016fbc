package dto

import (
	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/application/auth"
	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/domain"
)

// UserView is the standard user payload.
type UserView struct {
	UID           string `json:"uid"`
	Email         string `json:"email"`
	DisplayName   string `json:"displayName"`
	PhotoURL      string `json:"photoURL,omitempty"`
	EmailVerified bool   `json:"emailVerified"`
}

func NewUserView(p domain.Profile) UserView {
	return UserView{
		UID:           p.UID,
		Email:         p.Email,
		DisplayName:   p.DisplayName,
		PhotoURL:      p.PhotoURL,
		EmailVerified: p.EmailVerified,
	}
}

// TokensView is the standard access token payload.
// (The session id is in an HttpOnly cookie, so it is never returned in JSON.)
type TokensView struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"` // "Bearer"
	ExpiresIn   int64  `json:"expires_in"` // seconds
}

func NewTokensView(t auth.AuthTokens) TokensView {
	return TokensView{
		AccessToken: t.AccessToken,
		TokenType:   t.TokenType,
		ExpiresIn:   t.ExpiresIn,
	}
}

// AuthData is returned by register and every sign-in.
type AuthData struct {
	User         UserView            `json:"user"`
	Provider     string              `json:"provider"`
	IsNewUser    bool                `json:"is_new_user"`
	Tokens       TokensView          `json:"tokens"`
	Notification domain.Notification `json:"notification"`
	Navigate     string              `json:"navigate"`
}

func NewAuthData(res auth.SignInResult) AuthData {
	return AuthData{
		User:         NewUserView(res.User),
		Provider:     string(res.Provider),
		IsNewUser:    res.IsNewUser,
		Tokens:       NewTokensView(res.Tokens),
		Notification: res.Notification,
		Navigate:     res.Navigate,
	}
}

type RefreshData struct {
	Tokens TokensView `json:"tokens"`
	User   UserView   `json:"user"`
}

type LogoutData struct {
	Navigate string `json:"navigate"`
}

type PasswordResetData struct {
	Notification domain.Notification `json:"notification"`
}

// SessionData mirrors the cached user plus the logged-in flag the browser
// used to keep locally.
type SessionData struct {
	LoggedIn bool      `json:"logged_in"`
	User     *UserView `json:"user,omitempty"`
}

func NewSessionData(st auth.SessionState) SessionData {
	out := SessionData{LoggedIn: st.LoggedIn}
	if st.User != nil {
		v := NewUserView(*st.User)
		out.User = &v
	}
	return out
}

type MeData struct {
	User UserView `json:"user"`
}

// -------- User documents --------

type DocumentView struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

func NewDocumentView(d domain.Document) DocumentView {
	fields := d.Fields
	if fields == nil {
		fields = map[string]any{}
	}
	return DocumentView{ID: d.ID, Fields: fields}
}

func NewDocumentList(docs []domain.Document) []DocumentView {
	out := make([]DocumentView, 0, len(docs))
	for _, d := range docs {
		out = append(out, NewDocumentView(d))
	}
	return out
}

type UsersData struct {
	Users []DocumentView `json:"users"`
}

type CreatedDocData struct {
	ID string `json:"id"`
}
