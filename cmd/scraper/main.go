// Operator CLI: enqueue a scrape cycle without waiting for the scheduler.
// With -country it targets one country; without it, every configured one.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"jobharvest/internal/config"
	"jobharvest/internal/queue"

	"github.com/redis/go-redis/v9"
)

func main() {
	country := flag.String("country", "", "enqueue one country only (default: all configured)")
	term := flag.String("term", "", "override the configured search term")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	searchTerm := strings.TrimSpace(*term)
	if searchTerm == "" {
		searchTerm = cfg.Scrape.SearchTerm
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	opts, err := redis.ParseURL(cfg.Queue.RedisURL)
	if err != nil {
		log.Fatalf("redis url: %v", err)
	}
	rdb := redis.NewClient(opts)
	defer func() { _ = rdb.Close() }()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("redis ping: %v", err)
	}

	q := queue.New(rdb, cfg.Queue, log.Default())

	countries := cfg.Scrape.Countries
	if c := strings.TrimSpace(*country); c != "" {
		countries = []string{c}
	}

	var enqueued int
	for _, c := range countries {
		if err := q.Enqueue(ctx, c, searchTerm); err != nil {
			log.Printf("enqueue %s: %v", c, err)
			continue
		}
		enqueued++
	}
	fmt.Printf("enqueued %d scrape task(s)\n", enqueued)
}
