package firestore

import (
	"context"
	"errors"
	"fmt"

	gfs "cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/application/auth"
	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/domain"
	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/logger"
)

// Collection holds the mirrored user profiles.
const Collection = "user"

var (
	_ auth.ProfileStore   = (*ProfileStore)(nil)
	_ auth.ProfileWatcher = (*ProfileStore)(nil)
)

type ProfileStore struct {
	client     *gfs.Client
	collection string
}

// Open connects to Firestore. credentialsFile may be empty to use
// application default credentials; FIRESTORE_EMULATOR_HOST is honoured by
// the client library.
func Open(ctx context.Context, projectID, credentialsFile string) (*gfs.Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	c, err := gfs.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}
	return c, nil
}

func NewProfileStore(client *gfs.Client) *ProfileStore {
	return &ProfileStore{client: client, collection: Collection}
}

func (s *ProfileStore) col() *gfs.CollectionRef {
	return s.client.Collection(s.collection)
}

func (s *ProfileStore) ordered() gfs.Query {
	return s.col().OrderBy("displayName", gfs.Asc)
}

// Set merges the profile into user/<uid>; other fields of the document survive.
func (s *ProfileStore) Set(ctx context.Context, p domain.Profile) error {
	if p.UID == "" {
		return domain.ErrMissingField("uid")
	}
	if _, err := s.col().Doc(p.UID).Set(ctx, p.Fields(), gfs.MergeAll); err != nil {
		return mapWriteError(err)
	}
	return nil
}

func (s *ProfileStore) Add(ctx context.Context, fields map[string]any) (string, error) {
	ref, _, err := s.col().Add(ctx, fields)
	if err != nil {
		return "", mapWriteError(err)
	}
	return ref.ID, nil
}

func (s *ProfileStore) Get(ctx context.Context, id string) (domain.Document, error) {
	snap, err := s.col().Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return domain.Document{}, domain.ErrUserNotFound()
		}
		return domain.Document{}, mapReadError(err)
	}
	return domain.Document{ID: snap.Ref.ID, Fields: snap.Data()}, nil
}

func (s *ProfileStore) List(ctx context.Context) ([]domain.Document, error) {
	snaps, err := s.ordered().Documents(ctx).GetAll()
	if err != nil {
		return nil, mapReadError(err)
	}
	return toDocuments(snaps), nil
}

func (s *ProfileStore) Delete(ctx context.Context, id string) error {
	if _, err := s.col().Doc(id).Delete(ctx); err != nil {
		return mapWriteError(err)
	}
	return nil
}

// Watch follows the ordered listing with a snapshot listener. The first
// value is the current listing.
func (s *ProfileStore) Watch(ctx context.Context) (<-chan []domain.Document, error) {
	it := s.ordered().Snapshots(ctx)
	out := make(chan []domain.Document, 1)

	go func() {
		defer close(out)
		defer it.Stop()

		for {
			snap, err := it.Next()
			if err != nil {
				if ctx.Err() == nil && !errors.Is(err, iterator.Done) && status.Code(err) != codes.Canceled {
					logger.WithCtx(ctx).Warn().Err(err).Msg("firestore watch stopped")
				}
				return
			}
			snaps, err := snap.Documents.GetAll()
			if err != nil {
				logger.WithCtx(ctx).Warn().Err(err).Msg("firestore watch read failed")
				return
			}
			select {
			case out <- toDocuments(snaps):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func toDocuments(snaps []*gfs.DocumentSnapshot) []domain.Document {
	out := make([]domain.Document, 0, len(snaps))
	for _, ds := range snaps {
		out = append(out, domain.Document{ID: ds.Ref.ID, Fields: ds.Data()})
	}
	return out
}

// mapWriteError keeps the backend message because it is shown to the user.
func mapWriteError(err error) error {
	if status.Code(err) == codes.AlreadyExists {
		return domain.ErrEmailAlreadyInUse()
	}
	return domain.ErrPersistence(status.Convert(err).Message(), err)
}

func mapReadError(err error) error {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded:
		return domain.ErrDBUnavailable(err)
	}
	return domain.ErrPersistence(status.Convert(err).Message(), err)
}

// Ping reads at most one document; an empty collection is healthy.
func (s *ProfileStore) Ping(ctx context.Context) error {
	it := s.col().Limit(1).Documents(ctx)
	defer it.Stop()
	if _, err := it.Next(); err != nil && !errors.Is(err, iterator.Done) {
		return mapReadError(err)
	}
	return nil
}
