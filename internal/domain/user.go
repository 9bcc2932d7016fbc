package domain

import "strings"

// Profile is the user record mirrored from the identity provider into the
// "user" document collection. UID is the provider-issued id and doubles as
// the document id.
type Profile struct {
	UID           string `json:"uid" firestore:"uid"`
	Email         string `json:"email" firestore:"email"`
	DisplayName   string `json:"displayName" firestore:"displayName"`
	PhotoURL      string `json:"photoURL" firestore:"photoURL"`
	EmailVerified bool   `json:"emailVerified" firestore:"emailVerified"`
}

// ProviderUser is what the identity provider hands back after a successful
// sign-up or sign-in.
type ProviderUser struct {
	UID           string
	Email         string
	DisplayName   string
	PhotoURL      string
	EmailVerified bool
	ProviderID    string
	IsNewUser     bool

	IDToken      string
	RefreshToken string
	ExpiresIn    int64 // seconds
}

// ProfileFrom builds the mirrored record. displayName wins over the provider's
// value because registration collects it separately.
func ProfileFrom(u ProviderUser, displayName string) Profile {
	return Profile{
		UID:           u.UID,
		Email:         u.Email,
		DisplayName:   displayName,
		PhotoURL:      u.PhotoURL,
		EmailVerified: u.EmailVerified,
	}
}

// Fields returns the document representation used for merge writes.
func (p Profile) Fields() map[string]any {
	return map[string]any{
		"uid":           p.UID,
		"email":         p.Email,
		"displayName":   p.DisplayName,
		"photoURL":      p.PhotoURL,
		"emailVerified": p.EmailVerified,
	}
}

// Document is an arbitrary entry of the user collection. Entries written by
// the sign-in flows look like a Profile, entries added through AddUser may
// carry any fields.
type Document struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

// DisplayName reads the ordering key of the collection.
func (d Document) DisplayName() string {
	if d.Fields == nil {
		return ""
	}
	s, _ := d.Fields["displayName"].(string)
	return s
}

// Profile projects a document onto the known profile fields.
func (d Document) Profile() Profile {
	str := func(k string) string {
		s, _ := d.Fields[k].(string)
		return s
	}
	verified, _ := d.Fields["emailVerified"].(bool)
	uid := str("uid")
	if uid == "" {
		uid = d.ID
	}
	return Profile{
		UID:           uid,
		Email:         str("email"),
		DisplayName:   str("displayName"),
		PhotoURL:      str("photoURL"),
		EmailVerified: verified,
	}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
