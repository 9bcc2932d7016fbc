package identitytoolkit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/application/auth"
	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/domain"
)

const (
	defaultToolkitURL     = "https://identitytoolkit.googleapis.com/v1"
	defaultSecureTokenURL = "https://securetoken.googleapis.com/v1"
	defaultRequestURI     = "http://localhost"
)

type Config struct {
	APIKey string

	// EmulatorHost is host:port of the Auth emulator. When set it wins over
	// the production endpoints.
	EmulatorHost string

	// Overrides, mostly for tests.
	ToolkitURL     string
	SecureTokenURL string

	// RequestURI is sent with signInWithIdp; any URI authorised for the
	// project works since the credential is passed in postBody.
	RequestURI string
	Timeout    time.Duration
}

// Client talks to the Identity Toolkit and Secure Token REST APIs.
type Client struct {
	apiKey         string
	toolkitURL     string
	secureTokenURL string
	requestURI     string
	emulator       bool
	httpClient     *http.Client
}

var _ auth.IdentityProvider = (*Client)(nil)

func New(cfg Config) *Client {
	c := &Client{
		apiKey:         cfg.APIKey,
		toolkitURL:     defaultToolkitURL,
		secureTokenURL: defaultSecureTokenURL,
		requestURI:     cfg.RequestURI,
		httpClient:     &http.Client{Timeout: 10 * time.Second},
	}
	if cfg.Timeout > 0 {
		c.httpClient.Timeout = cfg.Timeout
	}
	if c.requestURI == "" {
		c.requestURI = defaultRequestURI
	}
	if h := strings.TrimSpace(cfg.EmulatorHost); h != "" {
		c.emulator = true
		c.toolkitURL = "http://" + h + "/identitytoolkit.googleapis.com/v1"
		c.secureTokenURL = "http://" + h + "/securetoken.googleapis.com/v1"
	}
	if cfg.ToolkitURL != "" {
		c.toolkitURL = strings.TrimRight(cfg.ToolkitURL, "/")
	}
	if cfg.SecureTokenURL != "" {
		c.secureTokenURL = strings.TrimRight(cfg.SecureTokenURL, "/")
	}
	return c
}

// IsConfigured returns true if an API key is set
func (c *Client) IsConfigured() bool {
	return c.apiKey != "" || c.emulator
}

// ---- wire types ----

type authResponse struct {
	LocalID       string `json:"localId"`
	Email         string `json:"email"`
	DisplayName   string `json:"displayName"`
	PhotoURL      string `json:"photoUrl"`
	EmailVerified bool   `json:"emailVerified"`
	ProviderID    string `json:"providerId"`
	IDToken       string `json:"idToken"`
	RefreshToken  string `json:"refreshToken"`
	ExpiresIn     string `json:"expiresIn"`

	// signInWithIdp only
	IsNewUser        bool   `json:"isNewUser"`
	NeedConfirmation bool   `json:"needConfirmation"`
	ErrorMessage     string `json:"errorMessage"`
}

func (r authResponse) user(provider string) domain.ProviderUser {
	if r.ProviderID != "" {
		provider = r.ProviderID
	}
	return domain.ProviderUser{
		UID:           r.LocalID,
		Email:         r.Email,
		DisplayName:   r.DisplayName,
		PhotoURL:      r.PhotoURL,
		EmailVerified: r.EmailVerified,
		ProviderID:    provider,
		IsNewUser:     r.IsNewUser,
		IDToken:       r.IDToken,
		RefreshToken:  r.RefreshToken,
		ExpiresIn:     parseSeconds(r.ExpiresIn),
	}
}

type lookupResponse struct {
	Users []struct {
		LocalID       string `json:"localId"`
		Email         string `json:"email"`
		DisplayName   string `json:"displayName"`
		PhotoURL      string `json:"photoUrl"`
		EmailVerified bool   `json:"emailVerified"`
		Disabled      bool   `json:"disabled"`
	} `json:"users"`
}

type tokenResponse struct {
	ExpiresIn    string `json:"expires_in"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token"`
	IDToken      string `json:"id_token"`
	UserID       string `json:"user_id"`
}

// ---- operations ----

func (c *Client) SignUp(ctx context.Context, email, password string) (domain.ProviderUser, error) {
	var out authResponse
	err := c.postJSON(ctx, opSignUp, "accounts:signUp", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &out)
	if err != nil {
		return domain.ProviderUser{}, err
	}
	u := out.user(string(domain.ProviderPassword))
	u.IsNewUser = true
	return u, nil
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (domain.ProviderUser, error) {
	var out authResponse
	err := c.postJSON(ctx, opSignIn, "accounts:signInWithPassword", map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &out)
	if err != nil {
		return domain.ProviderUser{}, err
	}
	return out.user(string(domain.ProviderPassword)), nil
}

func (c *Client) SignInWithIdp(ctx context.Context, provider domain.Provider, cred domain.IdPCredential) (domain.ProviderUser, error) {
	var out authResponse
	err := c.postJSON(ctx, opSignInIdp, "accounts:signInWithIdp", map[string]any{
		"postBody":            idpPostBody(provider, cred),
		"requestUri":          c.requestURI,
		"returnSecureToken":   true,
		"returnIdpCredential": true,
	}, &out)
	if err != nil {
		return domain.ProviderUser{}, err
	}
	if out.NeedConfirmation {
		// the e-mail already belongs to an account with another sign-in method
		return domain.ProviderUser{}, domain.ErrEmailAlreadyInUse()
	}
	if out.ErrorMessage != "" && out.IDToken == "" {
		return domain.ProviderUser{}, mapError(opSignInIdp, http.StatusOK, out.ErrorMessage)
	}
	return out.user(string(provider)), nil
}

func (c *Client) SendEmailVerification(ctx context.Context, idToken string) error {
	return c.postJSON(ctx, opVerifyEmail, "accounts:sendOobCode", map[string]any{
		"requestType": "VERIFY_EMAIL",
		"idToken":     idToken,
	}, nil)
}

func (c *Client) SendPasswordReset(ctx context.Context, email string) error {
	return c.postJSON(ctx, opPasswordReset, "accounts:sendOobCode", map[string]any{
		"requestType": "PASSWORD_RESET",
		"email":       email,
	}, nil)
}

func (c *Client) UpdateProfile(ctx context.Context, idToken, displayName string) error {
	return c.postJSON(ctx, opUpdate, "accounts:update", map[string]any{
		"idToken":           idToken,
		"displayName":       displayName,
		"returnSecureToken": false,
	}, nil)
}

func (c *Client) Lookup(ctx context.Context, idToken string) (domain.ProviderUser, error) {
	var out lookupResponse
	if err := c.postJSON(ctx, opLookup, "accounts:lookup", map[string]any{
		"idToken": idToken,
	}, &out); err != nil {
		return domain.ProviderUser{}, err
	}
	if len(out.Users) == 0 {
		return domain.ProviderUser{}, domain.ErrUserNotFound()
	}
	u := out.Users[0]
	if u.Disabled {
		return domain.ProviderUser{}, domain.ErrAccountDisabled()
	}
	return domain.ProviderUser{
		UID:           u.LocalID,
		Email:         u.Email,
		DisplayName:   u.DisplayName,
		PhotoURL:      u.PhotoURL,
		EmailVerified: u.EmailVerified,
		IDToken:       idToken,
	}, nil
}

// Refresh exchanges a provider refresh token at the Secure Token endpoint.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (auth.ProviderTokens, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return auth.ProviderTokens{}, domain.ErrTokenInvalid()
	}
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(c.secureTokenURL, "token"),
		strings.NewReader(form.Encode()))
	if err != nil {
		return auth.ProviderTokens{}, domain.ErrInternal(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var out tokenResponse
	if err := c.do(req, opRefresh, &out); err != nil {
		return auth.ProviderTokens{}, err
	}
	return auth.ProviderTokens{
		UID:          out.UserID,
		IDToken:      out.IDToken,
		RefreshToken: out.RefreshToken,
		ExpiresIn:    parseSeconds(out.ExpiresIn),
	}, nil
}

// ---- transport ----

func (c *Client) endpoint(base, method string) string {
	u := base + "/" + method
	if c.apiKey != "" {
		u += "?key=" + url.QueryEscape(c.apiKey)
	}
	return u
}

func (c *Client) postJSON(ctx context.Context, op operation, method string, in any, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return domain.ErrInternal(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(c.toolkitURL, method), bytes.NewReader(body))
	if err != nil {
		return domain.ErrInternal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.emulator {
		// the emulator accepts any key but requires this bearer for admin-only fields
		req.Header.Set("Authorization", "Bearer owner")
	}
	return c.do(req, op, out)
}

func (c *Client) do(req *http.Request, op operation, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return domain.ErrProviderUnavailable(fmt.Errorf("%s request failed: %w", op, err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.ErrProviderUnavailable(fmt.Errorf("failed to read %s response: %w", op, err))
	}

	if resp.StatusCode != http.StatusOK {
		return mapError(op, resp.StatusCode, providerMessage(raw))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return domain.ErrProvider("", fmt.Errorf("failed to parse %s response: %w", op, err))
	}
	return nil
}

// idpPostBody builds the form-encoded credential the provider expects.
func idpPostBody(p domain.Provider, cred domain.IdPCredential) string {
	v := url.Values{}
	v.Set("providerId", string(p))
	if cred.IDToken != "" {
		v.Set("id_token", cred.IDToken)
	}
	if cred.AccessToken != "" {
		v.Set("access_token", cred.AccessToken)
	}
	if cred.TokenSecret != "" {
		v.Set("oauth_token_secret", cred.TokenSecret)
	}
	return v.Encode()
}

// parseSeconds reads expiresIn, which the provider sends as a string.
func parseSeconds(s string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return n
}
