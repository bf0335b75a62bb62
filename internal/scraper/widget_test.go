package scraper

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestWidgetStrategy_ExtractsHeadingSiblingPairs(t *testing.T) {
	session := newFakeSession()
	session.pages["ibp=htl"] = `[
		{"title": "Backend Engineer", "company": "Zalando"},
		{"title": "Platform Engineer", "company": ""}
	]`

	s := NewWidgetStrategy(factoryFor(session), discardLogger())
	out, err := s.Scrape(context.Background(), "Germany", "software engineer")
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 postings, got %d", len(out))
	}

	if out[0].Title != "Backend Engineer" || out[0].Company != "Zalando" {
		t.Fatalf("unexpected first posting: %+v", out[0])
	}
	if out[0].Location != "Germany" || out[0].Country != "Germany" {
		t.Fatal("widget postings default location to the queried country")
	}
	if !strings.HasPrefix(out[0].ExternalID, "gjobs-") {
		t.Fatalf("external id should be namespaced gjobs, got %q", out[0].ExternalID)
	}
	if out[1].Company != "Unknown" {
		t.Fatalf("missing company should fall back to Unknown, got %q", out[1].Company)
	}

	// Identity is a hash of title+company, stable across runs.
	again, err := s.Scrape(context.Background(), "Germany", "software engineer")
	if err != nil {
		t.Fatalf("rescrape: %v", err)
	}
	if again[0].ExternalID != out[0].ExternalID {
		t.Fatal("identical title+company must derive the same external id")
	}
}

func TestWidgetStrategy_QueryShape(t *testing.T) {
	session := newFakeSession()
	s := NewWidgetStrategy(factoryFor(session), discardLogger())
	if _, err := s.Scrape(context.Background(), "Netherlands", "software engineer"); err != nil {
		t.Fatalf("scrape: %v", err)
	}
	if len(session.navigated) != 1 {
		t.Fatalf("expected 1 navigation, got %d", len(session.navigated))
	}
	nav := session.navigated[0]
	if !strings.Contains(nav, "software+engineer+jobs+in+Netherlands") {
		t.Fatalf("unexpected query url %q", nav)
	}
	if !strings.Contains(nav, "ibp=htl;jobs") {
		t.Fatalf("query must target the jobs surface, got %q", nav)
	}
}

func TestWidgetStrategy_MissingMarkupIsNonFatal(t *testing.T) {
	session := newFakeSession()
	session.waitErr = errors.New("waiting for selector timed out")
	session.pages["ibp=htl"] = `[{"title": "Rendered Anyway", "company": "Acme"}]`

	s := NewWidgetStrategy(factoryFor(session), discardLogger())
	out, err := s.Scrape(context.Background(), "Germany", "software engineer")
	if err != nil {
		t.Fatalf("wait timeout must not fail the strategy: %v", err)
	}
	if len(out) != 1 || out[0].Title != "Rendered Anyway" {
		t.Fatalf("expected extraction of whatever rendered, got %+v", out)
	}
	if session.closed != 1 {
		t.Fatalf("session must be closed, closed=%d", session.closed)
	}
}
