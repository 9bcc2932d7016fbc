package dto

import (
	"strings"

	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/domain"
)

// -------- Core auth --------

// Password min mirrors the provider's own rule so weak passwords fail
// before the round trip.
type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email,max=254"`
	Password    string `json:"password" validate:"required,min=6,max=128"`
	DisplayName string `json:"display_name" validate:"max=100"`
}

func (r *RegisterRequest) Validate() error {
	r.Email = domain.NormalizeEmail(r.Email)
	r.DisplayName = strings.TrimSpace(r.DisplayName)
	return validateStruct(r)
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (r *LoginRequest) Validate() error {
	r.Email = domain.NormalizeEmail(r.Email)
	return validateStruct(r)
}

// ProviderLoginRequest carries the credential obtained from the third-party
// popup. Which fields are required depends on the provider.
type ProviderLoginRequest struct {
	IDToken     string `json:"id_token,omitempty"`
	AccessToken string `json:"access_token,omitempty"`
	TokenSecret string `json:"token_secret,omitempty"`
}

func (r *ProviderLoginRequest) Credential() domain.IdPCredential {
	return domain.IdPCredential{
		IDToken:     strings.TrimSpace(r.IDToken),
		AccessToken: strings.TrimSpace(r.AccessToken),
		TokenSecret: strings.TrimSpace(r.TokenSecret),
	}
}

// -------- Password reset --------

// Always answered with 200 to avoid enumeration.
type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

func (r *PasswordResetRequest) Validate() error {
	r.Email = domain.NormalizeEmail(r.Email)
	return validateStruct(r)
}

// -------- User documents --------

// SetUserDataRequest writes the caller's own profile with a chosen name.
type SetUserDataRequest struct {
	DisplayName string `json:"display_name" validate:"required,max=100"`
}

func (r *SetUserDataRequest) Validate() error {
	r.DisplayName = strings.TrimSpace(r.DisplayName)
	return validateStruct(r)
}
