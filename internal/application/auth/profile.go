package auth

import (
	"context"
	"strings"

	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/domain"
)

// SetUserData writes the public profile of u into the user collection,
// merging with whatever the document already holds.
func (s *Service) SetUserData(ctx context.Context, u domain.ProviderUser, displayName string) error {
	if u.UID == "" {
		return domain.ErrMissingField("uid")
	}
	return s.profiles.Set(ctx, domain.ProfileFrom(u, displayName))
}

func (s *Service) AddUser(ctx context.Context, fields map[string]any) (string, error) {
	if len(fields) == 0 {
		return "", domain.ErrMissingField("document")
	}
	id, err := s.profiles.Add(ctx, fields)
	if err != nil {
		return "", err
	}
	s.audit("user_doc_added", map[string]string{"doc_id": id})
	return id, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]domain.Document, error) {
	return s.profiles.List(ctx)
}

func (s *Service) GetUser(ctx context.Context, id string) (domain.Document, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Document{}, domain.ErrMissingField("id")
	}
	return s.profiles.Get(ctx, id)
}

func (s *Service) DeleteUser(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.ErrMissingField("id")
	}
	if err := s.profiles.Delete(ctx, id); err != nil {
		return err
	}
	s.audit("user_doc_deleted", map[string]string{"doc_id": id})
	return nil
}

// WatchUsers streams the ordered listing every time the collection changes.
// Stores without change feeds report not_supported.
func (s *Service) WatchUsers(ctx context.Context) (<-chan []domain.Document, error) {
	w, ok := s.profiles.(ProfileWatcher)
	if !ok {
		return nil, domain.ErrNotSupported("watch")
	}
	return w.Watch(ctx)
}
