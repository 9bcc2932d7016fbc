package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// schema keeps each profile as a JSON document so arbitrary fields survive
// merge writes. display_name is derived for the ordered listing.
const schema = `
CREATE TABLE IF NOT EXISTS user_profiles (
    id           TEXT PRIMARY KEY,
    doc          JSONB NOT NULL DEFAULT '{}'::jsonb,
    display_name TEXT GENERATED ALWAYS AS (doc->>'displayName') STORED,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS user_profiles_display_name_idx ON user_profiles (display_name);
-- document ids are the only unique key; older deployments carried an e-mail index
DROP INDEX IF EXISTS user_profiles_email_uq;
`

// EnsureSchema creates the profile table if it does not exist yet.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure user_profiles schema: %w", err)
	}
	return nil
}
