package testutil

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// catalogSchema mirrors the production content_items table
const catalogSchema = `
CREATE TABLE IF NOT EXISTS content_items (
	id      TEXT PRIMARY KEY,
	title   TEXT NOT NULL,
	kind    TEXT NOT NULL,
	scopes  TEXT[] NOT NULL,
	price   BIGINT NOT NULL DEFAULT 0,
	is_free BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS idx_content_items_kind ON content_items (kind);
CREATE INDEX IF NOT EXISTS idx_content_items_scopes ON content_items USING GIN (scopes);
`

// ApplyCatalogSchema creates the catalog tables in the test database
func ApplyCatalogSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, catalogSchema); err != nil {
		return fmt.Errorf("failed to apply catalog schema: %w", err)
	}
	return nil
}
