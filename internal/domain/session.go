package domain

import "time"

// Session replaces the browser-side cache of the last known user. Its
// existence is what "logged in" means.
type Session struct {
	ID       string   `json:"id"`
	UID      string   `json:"uid"`
	Provider Provider `json:"provider"`
	User     Profile  `json:"user"`

	ProviderIDToken      string `json:"provider_id_token"`
	ProviderRefreshToken string `json:"provider_refresh_token"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
