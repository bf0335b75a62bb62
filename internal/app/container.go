package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"jobharvest/internal/catalog"
	"jobharvest/internal/config"
	"jobharvest/internal/database"
	dbpostgres "jobharvest/internal/database/postgres"
	"jobharvest/internal/queue"
	"jobharvest/internal/scheduler"
	"jobharvest/internal/scraper"

	"github.com/redis/go-redis/v9"
)

type Container struct {
	Config    config.Config
	DB        database.DB
	Redis     *redis.Client
	Queue     *queue.Queue
	Store     *catalog.Store
	Worker    *scraper.Worker
	Scheduler *scheduler.Scheduler
}

func NewContainer(cfg config.Config) (*Container, error) {
	logger := log.Default()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := dbpostgres.Connect(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := catalog.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	rdb, err := newRedisClient(ctx, cfg.Queue.RedisURL)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	q := queue.New(rdb, cfg.Queue, logger)
	store := catalog.NewStore(db, logger)

	sessions := scraper.SessionFactory(scraper.NewChromedpSession)
	strategies := []scraper.Strategy{
		scraper.NewDorkStrategy(cfg.Scrape.ATSDomains, sessions, cfg.Scrape.DorkDelayMin, cfg.Scrape.DorkDelayMax, logger),
		scraper.NewWidgetStrategy(sessions, logger),
		scraper.NewFeedStrategy(cfg.Scrape.FeedURLs, cfg.Scrape.Countries, logger),
	}

	worker := scraper.NewWorker(q, store, strategies, cfg.Scrape.Workers, cfg.Scrape.CycleTimeout, logger)
	sched := scheduler.New(q, cfg.Scrape.Countries, cfg.Scrape.SearchTerm, cfg.Scrape.IntervalHours, logger)

	return &Container{
		Config:    cfg,
		DB:        db,
		Redis:     rdb,
		Queue:     q,
		Store:     store,
		Worker:    worker,
		Scheduler: sched,
	}, nil
}

func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

func newRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
