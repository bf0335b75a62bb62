package scraper

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
)

// titleDelimiters are tried in priority order; the first one present wins
// and the split happens at its first occurrence.
var titleDelimiters = []string{" at ", " - ", " | "}

const unknownCompany = "Unknown"

// SplitTitleCompany separates a raw result title into job title and
// company. This is a known-imprecise heuristic: titles with ambiguous
// delimiter usage split at the first match and that is accepted behaviour.
func SplitTitleCompany(raw string) (title, company string) {
	raw = strings.TrimSpace(raw)
	for _, delim := range titleDelimiters {
		idx := strings.Index(raw, delim)
		if idx < 0 {
			continue
		}
		title = strings.TrimSpace(raw[:idx])
		company = strings.TrimSpace(raw[idx+len(delim):])
		if title == "" {
			title = raw
		}
		if company == "" {
			company = unknownCompany
		}
		return title, company
	}
	return raw, unknownCompany
}

// TagCountry tags text with the first configured country whose name
// appears in it (case-insensitive), defaulting to "Remote". Feeds rarely
// carry structured locations so substring matching is the best available.
func TagCountry(text string, countries []string) string {
	lower := strings.ToLower(text)
	for _, c := range countries {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(c)) {
			return c
		}
	}
	return "Remote"
}

// StableExternalID derives the deterministic upsert key for a scraped
// listing: a namespaced sha1 of source-specific data, so repeated scrapes
// of the same listing collide onto one row.
func StableExternalID(namespace, key string) string {
	h := sha1.Sum([]byte(strings.TrimSpace(key)))
	return namespace + "-" + hex.EncodeToString(h[:])
}
