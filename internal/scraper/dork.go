package scraper

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"jobharvest/internal/catalog"
)

const searchBaseURL = "https://www.google.com/search?q="

// dorkExtractJS collects title/link/snippet triples from the result list.
const dorkExtractJS = `
Array.from(document.querySelectorAll('a h3')).map(h => {
	const a = h.closest('a');
	const block = a.closest('div.g') || a.parentElement;
	const snippet = block && block.parentElement ? (block.parentElement.innerText || '') : '';
	return { title: h.innerText || '', url: a.href || '', snippet: snippet.slice(0, 500) };
}).filter(r => r.url.startsWith('http'))
`

type dorkResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// DorkStrategy queries the search engine's index of known ATS domains with
// site: operators instead of crawling the domains directly. One hardened
// browser session is reused across all domains within a cycle.
type DorkStrategy struct {
	domains  []string
	sessions SessionFactory
	delayMin time.Duration
	delayMax time.Duration
	logger   *log.Logger
}

func NewDorkStrategy(domains []string, sessions SessionFactory, delayMin, delayMax time.Duration, logger *log.Logger) *DorkStrategy {
	if logger == nil {
		logger = log.Default()
	}
	return &DorkStrategy{
		domains:  domains,
		sessions: sessions,
		delayMin: delayMin,
		delayMax: delayMax,
		logger:   logger,
	}
}

func (s *DorkStrategy) Name() string { return "dork" }

func (s *DorkStrategy) Scrape(ctx context.Context, country, searchTerm string) ([]catalog.PostingSummary, error) {
	if s == nil || s.sessions == nil {
		return nil, fmt.Errorf("nil strategy/session factory")
	}

	session, err := s.sessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	defer session.Close()

	var out []catalog.PostingSummary
	for i, domain := range s.domains {
		if i > 0 {
			// Politeness pause between domains; skipping it gets the
			// whole strategy blocked by the engine's abuse defences.
			if err := sleepJittered(ctx, s.delayMin, s.delayMax); err != nil {
				return out, err
			}
		}

		results, err := s.scrapeDomain(ctx, session, domain, country, searchTerm)
		if err != nil {
			s.logger.Printf("[dork] country=%s domain=%s: %v", country, domain, err)
			continue
		}
		out = append(out, results...)
	}
	return out, nil
}

func (s *DorkStrategy) scrapeDomain(ctx context.Context, session Session, domain, country, searchTerm string) ([]catalog.PostingSummary, error) {
	query := fmt.Sprintf("site:%s (%s OR developer OR engineer) %q", domain, searchTerm, country)
	if err := session.Navigate(ctx, searchBaseURL+url.QueryEscape(query)); err != nil {
		return nil, fmt.Errorf("navigate: %w", err)
	}

	var results []dorkResult
	if err := session.Evaluate(ctx, dorkExtractJS, &results); err != nil {
		return nil, fmt.Errorf("extract results: %w", err)
	}

	now := time.Now().UTC()
	out := make([]catalog.PostingSummary, 0, len(results))
	for _, r := range results {
		if strings.TrimSpace(r.Title) == "" || strings.TrimSpace(r.URL) == "" {
			continue
		}
		title, company := SplitTitleCompany(r.Title)
		out = append(out, catalog.PostingSummary{
			Title:       title,
			Company:     company,
			Location:    country,
			Country:     country,
			Description: strings.TrimSpace(r.Snippet),
			SourceURL:   r.URL,
			ExternalID:  StableExternalID(domain, r.URL),
			Origin:      catalog.OriginScraper,
			PostedAt:    now,
		})
	}
	return out, nil
}
