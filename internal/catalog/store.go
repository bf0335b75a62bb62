package catalog

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"jobharvest/internal/database"

	"github.com/google/uuid"
)

// Store upserts postings keyed by external id. The single-statement
// ON CONFLICT upsert is what keeps concurrent workers from producing
// duplicate rows.
type Store struct {
	db     database.DB
	logger *log.Logger
}

func NewStore(db database.DB, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Default()
	}
	return &Store{db: db, logger: logger}
}

// UpsertByExternalID inserts the summary or, if a row with the same
// external id exists, overwrites every scraped field and resets status to
// approved. id and created_at survive the conflict.
func (s *Store) UpsertByExternalID(ctx context.Context, p PostingSummary) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("nil store/db")
	}
	externalID := strings.TrimSpace(p.ExternalID)
	if externalID == "" {
		return fmt.Errorf("empty external id (title=%q)", p.Title)
	}

	origin := strings.TrimSpace(p.Origin)
	if origin == "" {
		origin = OriginScraper
	}
	postedAt := p.PostedAt
	if postedAt.IsZero() {
		postedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO postings (
			id, external_id, title, company, location, country,
			description, source_url, origin, status, posted_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,now())
		ON CONFLICT (external_id) DO UPDATE SET
			title = EXCLUDED.title,
			company = EXCLUDED.company,
			location = EXCLUDED.location,
			country = EXCLUDED.country,
			description = EXCLUDED.description,
			source_url = EXCLUDED.source_url,
			posted_at = EXCLUDED.posted_at,
			status = EXCLUDED.status,
			updated_at = now()`,
		uuid.New(),
		externalID,
		strings.TrimSpace(p.Title),
		strings.TrimSpace(p.Company),
		strings.TrimSpace(p.Location),
		strings.TrimSpace(p.Country),
		p.Description,
		strings.TrimSpace(p.SourceURL),
		origin,
		StatusApproved,
		postedAt,
	)
	return err
}

// UpsertBatch upserts each summary, skipping individual failures so one
// malformed record cannot abort the rest of the batch. Returns the number
// stored and the number skipped.
func (s *Store) UpsertBatch(ctx context.Context, batch []PostingSummary) (stored, skipped int) {
	for _, p := range batch {
		if err := s.UpsertByExternalID(ctx, p); err != nil {
			skipped++
			s.logger.Printf("[catalog] upsert skipped external_id=%s: %v", p.ExternalID, err)
			continue
		}
		stored++
	}
	return stored, skipped
}
