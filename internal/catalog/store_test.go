package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"jobharvest/internal/database"

	"github.com/google/uuid"
)

type fakeRow struct {
	err error
}

func (r fakeRow) Scan(dest ...any) error { return r.err }

type storedRow struct {
	id          uuid.UUID
	title       string
	company     string
	location    string
	country     string
	description string
	sourceURL   string
	status      string
	writes      int
}

// fakeDB emulates the postings upsert: insert on a new external_id,
// overwrite scraped fields (keeping the row id) on conflict.
type fakeDB struct {
	mu   sync.Mutex
	rows map[string]*storedRow

	failExternalIDs map[string]bool
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		rows:            map[string]*storedRow{},
		failExternalIDs: map[string]bool{},
	}
}

func (db *fakeDB) Ping(ctx context.Context) error { return nil }
func (db *fakeDB) Close() error                   { return nil }

func (db *fakeDB) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	q := strings.ToLower(strings.TrimSpace(query))
	if !strings.HasPrefix(q, "insert into postings") {
		return 0, nil
	}

	// args: id, external_id, title, company, location, country,
	// description, source_url, origin, status, posted_at
	externalID := args[1].(string)
	if db.failExternalIDs[externalID] {
		return 0, fmt.Errorf("forced failure for %s", externalID)
	}

	row, ok := db.rows[externalID]
	if !ok {
		row = &storedRow{id: args[0].(uuid.UUID)}
		db.rows[externalID] = row
	}
	row.title = args[2].(string)
	row.company = args[3].(string)
	row.location = args[4].(string)
	row.country = args[5].(string)
	row.description = args[6].(string)
	row.sourceURL = args[7].(string)
	row.status = args[9].(string)
	row.writes++
	return 1, nil
}

func (db *fakeDB) Query(ctx context.Context, query string, args ...any) (database.Rows, error) {
	return nil, fmt.Errorf("not implemented")
}

func (db *fakeDB) QueryRow(ctx context.Context, query string, args ...any) database.Row {
	return fakeRow{err: fmt.Errorf("not implemented")}
}

func summary(externalID, title, company string) PostingSummary {
	return PostingSummary{
		Title:       title,
		Company:     company,
		Location:    "Berlin",
		Country:     "Germany",
		Description: "desc",
		SourceURL:   "https://example.com/job",
		ExternalID:  externalID,
		Origin:      OriginScraper,
		PostedAt:    time.Now().UTC(),
	}
}

func TestUpsertByExternalID_Idempotent(t *testing.T) {
	db := newFakeDB()
	s := NewStore(db, nil)
	ctx := context.Background()

	first := summary("dork-abc", "Backend Engineer", "Zalando")
	if err := s.UpsertByExternalID(ctx, first); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	second := first
	second.Title = "Senior Backend Engineer"
	if err := s.UpsertByExternalID(ctx, second); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	if got := len(db.rows); got != 1 {
		t.Fatalf("expected 1 row, got %d", got)
	}
	row := db.rows["dork-abc"]
	if row.title != "Senior Backend Engineer" {
		t.Fatalf("expected second summary's title to win, got %q", row.title)
	}
	if row.status != StatusApproved {
		t.Fatalf("expected status reset to approved, got %q", row.status)
	}
	if row.writes != 2 {
		t.Fatalf("expected 2 writes to the same row, got %d", row.writes)
	}
}

func TestUpsertByExternalID_RejectsEmptyID(t *testing.T) {
	s := NewStore(newFakeDB(), nil)
	err := s.UpsertByExternalID(context.Background(), summary("", "Engineer", "Acme"))
	if err == nil {
		t.Fatal("expected error for empty external id")
	}
}

func TestUpsertBatch_SkipsFailuresAndContinues(t *testing.T) {
	db := newFakeDB()
	db.failExternalIDs["feed-bad"] = true
	s := NewStore(db, nil)

	batch := []PostingSummary{
		summary("feed-one", "Go Developer", "Acme"),
		summary("feed-bad", "Broken", "Broken"),
		{Title: "No ID"}, // empty external id
		summary("feed-two", "Platform Engineer", "Mollie"),
	}

	stored, skipped := s.UpsertBatch(context.Background(), batch)
	if stored != 2 {
		t.Fatalf("expected 2 stored, got %d", stored)
	}
	if skipped != 2 {
		t.Fatalf("expected 2 skipped, got %d", skipped)
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.rows["feed-one"]; !ok {
		t.Fatal("feed-one should have been stored")
	}
	if _, ok := db.rows["feed-two"]; !ok {
		t.Fatal("feed-two should have been stored despite earlier failures")
	}
}
