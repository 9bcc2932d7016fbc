package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/application/auth"
	"github.com/baechuer/real-time-ressys/services/identity-bridge/internal/domain"
)

var _ auth.ProfileStore = (*ProfileRepo)(nil)

// ProfileRepo stores the user collection in Postgres. It has no change feed,
// so it does not implement auth.ProfileWatcher.
type ProfileRepo struct {
	db *sql.DB
}

func NewProfileRepo(db *sql.DB) *ProfileRepo {
	return &ProfileRepo{db: db}
}

// ---------- auth.ProfileStore ----------

// Set merges the profile fields into the stored document (jsonb ||).
func (r *ProfileRepo) Set(ctx context.Context, p domain.Profile) error {
	if strings.TrimSpace(p.UID) == "" {
		return domain.ErrMissingField("uid")
	}
	doc, err := json.Marshal(p.Fields())
	if err != nil {
		return domain.ErrInternal(err)
	}

	const q = `
INSERT INTO user_profiles (id, doc)
VALUES ($1, $2::jsonb)
ON CONFLICT (id) DO UPDATE
SET doc = user_profiles.doc || EXCLUDED.doc,
    updated_at = now();
`
	if _, err := r.db.ExecContext(ctx, q, p.UID, doc); err != nil {
		return mapWriteError(err)
	}
	return nil
}

func (r *ProfileRepo) Add(ctx context.Context, fields map[string]any) (string, error) {
	doc, err := json.Marshal(fields)
	if err != nil {
		return "", domain.ErrInvalidField("document", "not serialisable")
	}
	id := uuid.NewString()

	const q = `INSERT INTO user_profiles (id, doc) VALUES ($1, $2::jsonb);`
	if _, err := r.db.ExecContext(ctx, q, id, doc); err != nil {
		return "", mapWriteError(err)
	}
	return id, nil
}

func (r *ProfileRepo) Get(ctx context.Context, id string) (domain.Document, error) {
	const q = `SELECT doc FROM user_profiles WHERE id = $1 LIMIT 1;`

	var raw []byte
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Document{}, domain.ErrUserNotFound()
		}
		return domain.Document{}, domain.ErrDBUnavailable(err)
	}
	fields, err := decodeDoc(raw)
	if err != nil {
		return domain.Document{}, domain.ErrInternal(err)
	}
	return domain.Document{ID: id, Fields: fields}, nil
}

// List returns documents that carry a displayName key, null included,
// ordered by it byte-wise like the document store's orderBy.
func (r *ProfileRepo) List(ctx context.Context) ([]domain.Document, error) {
	const q = `
SELECT id, doc
FROM user_profiles
WHERE doc ? 'displayName'
ORDER BY coalesce(display_name, '') COLLATE "C" ASC, id ASC;
`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, domain.ErrDBUnavailable(err)
	}
	defer rows.Close()

	var out []domain.Document
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, domain.ErrDBUnavailable(err)
		}
		fields, err := decodeDoc(raw)
		if err != nil {
			return nil, domain.ErrInternal(err)
		}
		out = append(out, domain.Document{ID: id, Fields: fields})
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrDBUnavailable(err)
	}
	return out, nil
}

// Delete is idempotent.
func (r *ProfileRepo) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM user_profiles WHERE id = $1;`
	if _, err := r.db.ExecContext(ctx, q, id); err != nil {
		return mapWriteError(err)
	}
	return nil
}

// Ping is used by /readyz.
func (r *ProfileRepo) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ---------- helpers ----------

func decodeDoc(raw []byte) (map[string]any, error) {
	fields := map[string]any{}
	if len(raw) == 0 {
		return fields, nil
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

const (
	pgUniqueViolation = "23505"
	primaryKey        = "user_profiles_pkey"
)

// mapWriteError turns a document id collision into the store's "already
// exists" error. Every other failure keeps the backend message.
func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == primaryKey {
			return domain.ErrEmailAlreadyInUse()
		}
		return domain.ErrPersistence(pgErr.Message, err)
	}
	return domain.ErrDBUnavailable(err)
}
