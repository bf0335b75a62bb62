package catalog

import (
	"context"
	"fmt"

	"jobharvest/internal/database"
)

var postingsDDL = []string{
	`CREATE TABLE IF NOT EXISTS postings (
		id UUID PRIMARY KEY,
		external_id TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL,
		company TEXT,
		location TEXT,
		country TEXT,
		description TEXT,
		source_url TEXT,
		origin TEXT NOT NULL DEFAULT 'scraper',
		status TEXT NOT NULL DEFAULT 'approved',
		posted_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_postings_country ON postings (country)`,
}

// EnsureSchema creates the postings table if it does not exist yet.
func EnsureSchema(ctx context.Context, db database.DB) error {
	if db == nil {
		return fmt.Errorf("nil db")
	}
	for _, stmt := range postingsDDL {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
