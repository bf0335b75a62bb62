package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	App    AppConfig
	Store  StoreConfig
	Queue  QueueConfig
	Scrape ScrapeConfig
}

type AppConfig struct {
	AppName     string
	Environment string
	HTTPPort    string
}

type StoreConfig struct {
	DatabaseURL string
}

type QueueConfig struct {
	RedisURL          string
	MaxAttempts       int
	VisibilityTimeout time.Duration
}

type ScrapeConfig struct {
	Countries     []string
	SearchTerm    string
	IntervalHours int
	ATSDomains    []string
	FeedURLs      []string
	Workers       int
	CycleTimeout  time.Duration
	DorkDelayMin  time.Duration
	DorkDelayMax  time.Duration
}

var errMissingRequiredEnv = errors.New("missing required environment variables")

var defaultATSDomains = []string{
	"boards.greenhouse.io",
	"jobs.lever.co",
	"apply.workable.com",
	"jobs.ashbyhq.com",
	"jobs.smartrecruiters.com",
}

var defaultFeedURLs = []string{
	"https://weworkremotely.com/categories/remote-programming-jobs.rss",
	"https://remoteok.com/remote-dev-jobs.rss",
}

func Load() (Config, error) {
	cfg := Config{}

	var missing []string
	req := func(key string) string {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}
	opt := func(key, fallback string) string {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			return fallback
		}
		return v
	}

	cfg.App = AppConfig{
		AppName:     opt("APP_NAME", "jobharvest"),
		Environment: opt("APP_ENV", "development"),
		HTTPPort:    opt("HTTP_PORT", "8080"),
	}

	cfg.Store = StoreConfig{
		DatabaseURL: req("DATABASE_URL"),
	}

	maxAttempts, err := optInt("SCRAPE_MAX_ATTEMPTS", 4)
	if err != nil {
		return Config{}, err
	}
	cfg.Queue = QueueConfig{
		RedisURL:          req("REDIS_URL"),
		MaxAttempts:       maxAttempts,
		VisibilityTimeout: 30 * time.Minute,
	}

	interval, err := optInt("SCRAPE_INTERVAL_HOURS", 6)
	if err != nil {
		return Config{}, err
	}
	workers, err := optInt("SCRAPE_WORKERS", 2)
	if err != nil {
		return Config{}, err
	}
	delayMin, err := optInt("DORK_DELAY_MIN_SECONDS", 3)
	if err != nil {
		return Config{}, err
	}
	delayMax, err := optInt("DORK_DELAY_MAX_SECONDS", 7)
	if err != nil {
		return Config{}, err
	}
	if delayMax < delayMin {
		return Config{}, fmt.Errorf("DORK_DELAY_MAX_SECONDS (%d) must be >= DORK_DELAY_MIN_SECONDS (%d)", delayMax, delayMin)
	}

	cfg.Scrape = ScrapeConfig{
		Countries:     splitList(opt("SCRAPE_COUNTRIES", "Germany,Netherlands,United Kingdom")),
		SearchTerm:    opt("SCRAPE_SEARCH_TERM", "software engineer"),
		IntervalHours: interval,
		ATSDomains:    splitListOr(os.Getenv("ATS_DOMAINS"), defaultATSDomains),
		FeedURLs:      splitListOr(os.Getenv("FEED_URLS"), defaultFeedURLs),
		Workers:       workers,
		CycleTimeout:  20 * time.Minute,
		DorkDelayMin:  time.Duration(delayMin) * time.Second,
		DorkDelayMax:  time.Duration(delayMax) * time.Second,
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("%w: %s", errMissingRequiredEnv, strings.Join(missing, ", "))
	}

	return cfg, nil
}

func optInt(key string, fallback int) (int, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, s)
	}
	return v, nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

func splitListOr(s string, fallback []string) []string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return splitList(s)
}
