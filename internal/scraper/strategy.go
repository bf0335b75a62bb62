// Package scraper contains the three scraping strategies, the extraction
// heuristics they share, the browser session abstraction, and the cycle
// worker that runs them per country.
package scraper

import (
	"context"
	"math/rand"
	"time"

	"jobharvest/internal/catalog"
)

// Strategy is one self-contained scraping approach. A returned error is a
// strategy-level failure; source-local failures inside a strategy are
// logged and swallowed so the other sources still run.
type Strategy interface {
	Name() string
	Scrape(ctx context.Context, country, searchTerm string) ([]catalog.PostingSummary, error)
}

// sleepJittered pauses for a random duration in [min, max], honouring
// cancellation. The dork strategy depends on this between domains.
func sleepJittered(ctx context.Context, min, max time.Duration) error {
	d := min
	if max > min {
		d = min + time.Duration(rand.Int63n(int64(max-min)+1))
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
