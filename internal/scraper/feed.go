package scraper

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"jobharvest/internal/catalog"

	"github.com/gocolly/colly/v2"
)

const feedTimeout = 10 * time.Second

var pubDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC3339,
}

// FeedStrategy polls syndication feeds over plain HTTP. Feeds carry no
// structured location, so items are country-tagged by substring match
// against the configured country list, defaulting to "Remote".
type FeedStrategy struct {
	feedURLs  []string
	countries []string
	logger    *log.Logger
}

func NewFeedStrategy(feedURLs, countries []string, logger *log.Logger) *FeedStrategy {
	if logger == nil {
		logger = log.Default()
	}
	return &FeedStrategy{feedURLs: feedURLs, countries: countries, logger: logger}
}

func (s *FeedStrategy) Name() string { return "feed" }

func (s *FeedStrategy) Scrape(ctx context.Context, country, searchTerm string) ([]catalog.PostingSummary, error) {
	if s == nil {
		return nil, fmt.Errorf("nil strategy")
	}

	var out []catalog.PostingSummary
	for _, feedURL := range s.feedURLs {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		items, err := s.pollFeed(feedURL)
		if err != nil {
			s.logger.Printf("[feed] url=%s: %v", feedURL, err)
			continue
		}
		out = append(out, items...)
	}
	return out, nil
}

func (s *FeedStrategy) pollFeed(feedURL string) ([]catalog.PostingSummary, error) {
	c := colly.NewCollector(
		colly.UserAgent(desktopUserAgent),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(feedTimeout)

	var items []catalog.PostingSummary
	c.OnXML("//item", func(e *colly.XMLElement) {
		item, ok := s.extractItem(e)
		if ok {
			items = append(items, item)
		}
	})

	var fetchErr error
	c.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	if err := c.Visit(feedURL); err != nil {
		return nil, err
	}
	c.Wait()
	if fetchErr != nil {
		return nil, fetchErr
	}
	return items, nil
}

func (s *FeedStrategy) extractItem(e *colly.XMLElement) (catalog.PostingSummary, bool) {
	rawTitle := strings.TrimSpace(e.ChildText("title"))
	link := strings.TrimSpace(e.ChildText("link"))
	if rawTitle == "" {
		return catalog.PostingSummary{}, false
	}

	guid := strings.TrimSpace(e.ChildText("guid"))
	if guid == "" {
		guid = link
	}
	if guid == "" {
		return catalog.PostingSummary{}, false
	}

	description := strings.TrimSpace(e.ChildText("description"))
	title, company := SplitTitleCompany(rawTitle)
	country := TagCountry(rawTitle+" "+description, s.countries)

	return catalog.PostingSummary{
		Title:       title,
		Company:     company,
		Location:    country,
		Country:     country,
		Description: description,
		SourceURL:   link,
		ExternalID:  StableExternalID("feed", guid),
		Origin:      catalog.OriginScraper,
		PostedAt:    parsePubDate(e.ChildText("pubDate")),
	}, true
}

func parsePubDate(s string) time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range pubDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Now().UTC()
}
