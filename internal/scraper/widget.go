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

// widgetListSelector is the engine's job-card container. The widget markup
// shifts now and then; absence is tolerated, not fatal.
const widgetListSelector = "div.iFjolb"

const widgetWaitTimeout = 10 * time.Second

// widgetExtractJS pulls heading/sibling-text pairs out of the rendered job
// cards.
const widgetExtractJS = `
Array.from(document.querySelectorAll('div.iFjolb')).map(card => {
	const heading = card.querySelector('div[role="heading"], h2, h3');
	const title = heading ? (heading.innerText || '') : '';
	const sib = heading && heading.nextElementSibling ? (heading.nextElementSibling.innerText || '') : '';
	const company = sib.split('\n')[0] || '';
	return { title: title, company: company };
}).filter(r => r.title)
`

type widgetResult struct {
	Title   string `json:"title"`
	Company string `json:"company"`
}

// WidgetStrategy scrapes the search engine's structured job-listing widget
// with a single query per country. The widget rarely exposes stable per-
// listing URLs, so identity is a hash of title+company, an accepted
// imprecision of this surface.
type WidgetStrategy struct {
	sessions SessionFactory
	logger   *log.Logger
}

func NewWidgetStrategy(sessions SessionFactory, logger *log.Logger) *WidgetStrategy {
	if logger == nil {
		logger = log.Default()
	}
	return &WidgetStrategy{sessions: sessions, logger: logger}
}

func (s *WidgetStrategy) Name() string { return "widget" }

func (s *WidgetStrategy) Scrape(ctx context.Context, country, searchTerm string) ([]catalog.PostingSummary, error) {
	if s == nil || s.sessions == nil {
		return nil, fmt.Errorf("nil strategy/session factory")
	}

	session, err := s.sessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	defer session.Close()

	query := fmt.Sprintf("%s jobs in %s", searchTerm, country)
	target := searchBaseURL + url.QueryEscape(query) + "&ibp=htl;jobs"
	if err := session.Navigate(ctx, target); err != nil {
		return nil, fmt.Errorf("navigate: %w", err)
	}

	if err := session.WaitVisible(ctx, widgetListSelector, widgetWaitTimeout); err != nil {
		// Non-fatal: extract whatever rendered.
		s.logger.Printf("[widget] country=%s listing container not visible: %v", country, err)
	}

	var results []widgetResult
	if err := session.Evaluate(ctx, widgetExtractJS, &results); err != nil {
		return nil, fmt.Errorf("extract widget: %w", err)
	}

	now := time.Now().UTC()
	out := make([]catalog.PostingSummary, 0, len(results))
	for _, r := range results {
		title := strings.TrimSpace(r.Title)
		if title == "" {
			continue
		}
		company := strings.TrimSpace(r.Company)
		if company == "" {
			company = unknownCompany
		}
		out = append(out, catalog.PostingSummary{
			Title:      title,
			Company:    company,
			Location:   country,
			Country:    country,
			SourceURL:  target,
			ExternalID: StableExternalID("gjobs", title+"|"+company),
			Origin:     catalog.OriginScraper,
			PostedAt:   now,
		})
	}
	return out, nil
}
