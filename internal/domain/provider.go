package domain

import "strings"

// Provider identifies how a user proved their identity. Values match the
// provider ids used by the hosted identity product.
type Provider string

const (
	ProviderPassword Provider = "password"
	ProviderGoogle   Provider = "google.com"
	ProviderGitHub   Provider = "github.com"
	ProviderTwitter  Provider = "twitter.com"
)

// ParseFederatedProvider accepts either the provider id or its short alias
// (google, github, twitter). Password is not a federated provider.
func ParseFederatedProvider(s string) (Provider, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "google", "google.com":
		return ProviderGoogle, true
	case "github", "github.com":
		return ProviderGitHub, true
	case "twitter", "twitter.com":
		return ProviderTwitter, true
	default:
		return "", false
	}
}

// IdPCredential is the credential obtained by the client from the third-party
// identity provider popup. Which fields are required depends on the provider:
// google accepts an id_token or access_token, github an access_token,
// twitter an access_token plus its token secret.
type IdPCredential struct {
	IDToken     string
	AccessToken string
	TokenSecret string
}

func (c IdPCredential) Validate(p Provider) error {
	switch p {
	case ProviderGoogle:
		if c.IDToken == "" && c.AccessToken == "" {
			return ErrMissingField("id_token")
		}
	case ProviderGitHub:
		if c.AccessToken == "" {
			return ErrMissingField("access_token")
		}
	case ProviderTwitter:
		if c.AccessToken == "" {
			return ErrMissingField("access_token")
		}
		if c.TokenSecret == "" {
			return ErrMissingField("token_secret")
		}
	default:
		return ErrUnsupportedProvider(string(p))
	}
	return nil
}
