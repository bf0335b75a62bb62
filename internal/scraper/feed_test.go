package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const feedFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Remote Programming Jobs</title>
    <item>
      <title>Go Developer at Acme</title>
      <link>https://example.com/jobs/go-developer</link>
      <description>Backend role in Germany, Berlin office</description>
      <guid>jobs-1001</guid>
      <pubDate>Mon, 02 Jan 2006 15:04:05 +0000</pubDate>
    </item>
    <item>
      <title>Frontend Engineer</title>
      <link>https://example.com/jobs/frontend</link>
      <description>Work from anywhere</description>
      <guid>jobs-1002</guid>
      <pubDate>not a date</pubDate>
    </item>
    <item>
      <title></title>
      <link>https://example.com/jobs/broken</link>
    </item>
  </channel>
</rss>`

func serveFeed(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFeedStrategy_ParsesItems(t *testing.T) {
	srv := serveFeed(t, http.StatusOK, feedFixture)
	countries := []string{"Germany", "Netherlands"}

	s := NewFeedStrategy([]string{srv.URL}, countries, discardLogger())
	out, err := s.Scrape(context.Background(), "Germany", "software engineer")
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 postings (empty-title item dropped), got %d", len(out))
	}

	first := out[0]
	if first.Title != "Go Developer" || first.Company != "Acme" {
		t.Fatalf("title split wrong: %+v", first)
	}
	if first.Country != "Germany" {
		t.Fatalf("description mentions Germany, expected that tag, got %q", first.Country)
	}
	if !strings.HasPrefix(first.ExternalID, "feed-") {
		t.Fatalf("external id should be namespaced feed, got %q", first.ExternalID)
	}
	want := time.Date(2006, 1, 2, 15, 4, 5, 0, time.UTC)
	if !first.PostedAt.Equal(want) {
		t.Fatalf("pubDate parsed wrong: %v", first.PostedAt)
	}

	second := out[1]
	if second.Country != "Remote" {
		t.Fatalf("item mentioning no country should tag Remote, got %q", second.Country)
	}
	if second.Company != "Unknown" {
		t.Fatalf("delimiterless feed title should fall back to Unknown, got %q", second.Company)
	}
	if second.PostedAt.IsZero() {
		t.Fatal("unparsable pubDate should fall back to scrape time")
	}
}

func TestFeedStrategy_ExternalIDFromGUID(t *testing.T) {
	srv := serveFeed(t, http.StatusOK, feedFixture)
	s := NewFeedStrategy([]string{srv.URL}, []string{"Germany"}, discardLogger())

	first, err := s.Scrape(context.Background(), "Germany", "software engineer")
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	second, err := s.Scrape(context.Background(), "Germany", "software engineer")
	if err != nil {
		t.Fatalf("rescrape: %v", err)
	}
	if first[0].ExternalID != second[0].ExternalID {
		t.Fatal("same guid must derive the same external id across polls")
	}
}

func TestFeedStrategy_FailingFeedDoesNotBlockOthers(t *testing.T) {
	bad := serveFeed(t, http.StatusInternalServerError, "boom")
	good := serveFeed(t, http.StatusOK, feedFixture)

	s := NewFeedStrategy([]string{bad.URL, good.URL}, []string{"Germany"}, discardLogger())
	out, err := s.Scrape(context.Background(), "Germany", "software engineer")
	if err != nil {
		t.Fatalf("one failing feed must not fail the strategy: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected the healthy feed's postings, got %d", len(out))
	}
}

func TestFeedStrategy_MalformedFeedIsSkipped(t *testing.T) {
	malformed := serveFeed(t, http.StatusOK, "<rss><channel><item><title>Oops")
	good := serveFeed(t, http.StatusOK, feedFixture)

	s := NewFeedStrategy([]string{malformed.URL, good.URL}, []string{"Germany"}, discardLogger())
	out, err := s.Scrape(context.Background(), "Germany", "software engineer")
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	if len(out) < 2 {
		t.Fatalf("healthy feed should still contribute postings, got %d", len(out))
	}
}
