// Package scheduler owns the fixed-interval trigger that fans scrape
// tasks out to the queue, one per configured country.
package scheduler

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"
)

// Enqueuer is the queue surface the scheduler needs.
type Enqueuer interface {
	Enqueue(ctx context.Context, country, searchTerm string) error
}

// Scheduler is started once at process init and stopped on shutdown; it
// holds no state beyond its own configuration and never scrapes directly.
type Scheduler struct {
	cron       *cron.Cron
	queue      Enqueuer
	countries  []string
	searchTerm string
	spec       string
	logger     *log.Logger
}

func New(q Enqueuer, countries []string, searchTerm string, intervalHours int, logger *log.Logger) *Scheduler {
	if intervalHours < 1 {
		intervalHours = 6
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Scheduler{
		cron:       cron.New(),
		queue:      q,
		countries:  countries,
		searchTerm: searchTerm,
		spec:       fmt.Sprintf("@every %dh", intervalHours),
		logger:     logger,
	}
}

// Start registers the interval job and fires one immediate fan-out so the
// catalog fills without waiting for the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		if _, err := s.TriggerGlobalScrape(ctx); err != nil {
			s.logger.Printf("[scheduler] scheduled fan-out: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	s.logger.Printf("[scheduler] started, spec=%s countries=%d", s.spec, len(s.countries))

	go func() {
		if _, err := s.TriggerGlobalScrape(ctx); err != nil {
			s.logger.Printf("[scheduler] initial fan-out: %v", err)
		}
	}()

	return nil
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.logger.Printf("[scheduler] stopped")
}

// TriggerGlobalScrape enqueues one task per configured country. A failed
// enqueue for one country never aborts the fan-out; the count of enqueued
// tasks and the first error are returned.
func (s *Scheduler) TriggerGlobalScrape(ctx context.Context) (int, error) {
	var (
		enqueued int
		firstErr error
	)
	for _, country := range s.countries {
		if err := s.queue.Enqueue(ctx, country, s.searchTerm); err != nil {
			s.logger.Printf("[scheduler] enqueue country=%s: %v", country, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		enqueued++
	}
	s.logger.Printf("[scheduler] fan-out complete, enqueued=%d/%d", enqueued, len(s.countries))
	return enqueued, firstErr
}
