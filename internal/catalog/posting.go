// Package catalog holds the posting model and the deduplicating store the
// scrape pipeline writes into.
package catalog

import "time"

const (
	OriginScraper  = "scraper"
	StatusApproved = "approved"
)

// PostingSummary is the normalised output of one scraped listing. It is
// produced by a strategy and consumed immediately by the store; the
// pipeline never holds on to it.
type PostingSummary struct {
	Title       string
	Company     string
	Location    string
	Country     string
	Description string
	SourceURL   string
	ExternalID  string
	Origin      string
	PostedAt    time.Time
}

// PersistedPosting is the stored form of a summary. Rows are created on
// first sighting of an external id and overwritten in place on every
// subsequent sighting; the pipeline never deletes them.
type PersistedPosting struct {
	ID          string
	ExternalID  string
	Title       string
	Company     string
	Location    string
	Country     string
	Description string
	SourceURL   string
	Origin      string
	Status      string
	PostedAt    time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
