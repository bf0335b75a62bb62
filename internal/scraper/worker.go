package scraper

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"jobharvest/internal/catalog"
	"jobharvest/internal/queue"
)

const lockDeferDelay = 30 * time.Second

// TaskQueue is the worker-side queue contract: blocking dequeue, ack,
// requeue-with-backoff, and the per-country single-flight lock.
type TaskQueue interface {
	Dequeue(ctx context.Context) (*queue.Task, error)
	Ack(ctx context.Context, t *queue.Task) error
	Nack(ctx context.Context, t *queue.Task, cause error) error
	Defer(ctx context.Context, t *queue.Task, delay time.Duration) error
	AcquireCountryLock(ctx context.Context, country, token string, ttl time.Duration) (bool, error)
	ReleaseCountryLock(ctx context.Context, country, token string)
}

// Sink receives each strategy's batch as soon as it is produced.
type Sink interface {
	UpsertBatch(ctx context.Context, batch []catalog.PostingSummary) (stored, skipped int)
}

// Worker pulls scrape tasks off the queue and runs the three strategies
// in sequence. The pool is kept small: every cycle launches heavyweight
// browser processes, so queue depth must never translate into unbounded
// concurrent launches.
type Worker struct {
	queue        TaskQueue
	sink         Sink
	strategies   []Strategy
	workers      int
	cycleTimeout time.Duration
	logger       *log.Logger
}

func NewWorker(q TaskQueue, sink Sink, strategies []Strategy, workers int, cycleTimeout time.Duration, logger *log.Logger) *Worker {
	if workers < 1 {
		workers = 1
	}
	if cycleTimeout <= 0 {
		cycleTimeout = 20 * time.Minute
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Worker{
		queue:        q,
		sink:         sink,
		strategies:   strategies,
		workers:      workers,
		cycleTimeout: cycleTimeout,
		logger:       logger,
	}
}

// Run blocks until ctx is cancelled, processing tasks on a bounded number
// of goroutines.
func (w *Worker) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(w.workers)
	for i := 0; i < w.workers; i++ {
		go func(id int) {
			defer wg.Done()
			w.loop(ctx, id)
		}(i)
	}
	wg.Wait()
}

func (w *Worker) loop(ctx context.Context, id int) {
	for {
		task, err := w.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, queue.ErrClosed) || ctx.Err() != nil {
				return
			}
			w.logger.Printf("[worker:%d] dequeue error: %v", id, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		w.process(ctx, id, task)
	}
}

func (w *Worker) process(ctx context.Context, id int, task *queue.Task) {
	acquired, err := w.queue.AcquireCountryLock(ctx, task.Country, task.ID, w.cycleTimeout+time.Minute)
	if err != nil || !acquired {
		// Another worker is scraping this country; try again shortly
		// without burning an attempt.
		if derr := w.queue.Defer(ctx, task, lockDeferDelay); derr != nil {
			w.logger.Printf("[worker:%d] defer country=%s: %v", id, task.Country, derr)
		}
		return
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		w.queue.ReleaseCountryLock(releaseCtx, task.Country, task.ID)
	}()
	defer func() {
		if r := recover(); r != nil {
			if nerr := w.queue.Nack(ctx, task, fmt.Errorf("task panicked: %v", r)); nerr != nil {
				w.logger.Printf("[worker:%d] nack country=%s: %v", id, task.Country, nerr)
			}
		}
	}()

	w.logger.Printf("[worker:%d] cycle start country=%s attempt=%d", id, task.Country, task.Attempt)

	cycleCtx, cancel := context.WithTimeout(ctx, w.cycleTimeout)
	defer cancel()

	if err := w.runCycle(cycleCtx, task); err != nil {
		if nerr := w.queue.Nack(ctx, task, err); nerr != nil {
			w.logger.Printf("[worker:%d] nack country=%s: %v", id, task.Country, nerr)
		}
		return
	}
	if err := w.queue.Ack(ctx, task); err != nil {
		w.logger.Printf("[worker:%d] ack country=%s: %v", id, task.Country, err)
	}
	w.logger.Printf("[worker:%d] cycle done country=%s", id, task.Country)
}

// runCycle executes all strategies in sequence, each inside its own error
// boundary, persisting every batch as it arrives. It fails the task only
// when the cycle deadline is hit or every strategy errored with nothing
// persisted; those are the failures retrying can help with.
func (w *Worker) runCycle(ctx context.Context, task *queue.Task) error {
	var (
		failed      int
		lastErr     error
		totalStored int
	)

	for _, strat := range w.strategies {
		batch, err := w.runStrategy(ctx, strat, task)
		if err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("cycle timed out during %s: %w", strat.Name(), ctx.Err())
			}
			failed++
			lastErr = err
			w.logger.Printf("[worker] strategy=%s country=%s failed: %v", strat.Name(), task.Country, err)
			continue
		}
		if len(batch) == 0 {
			continue
		}
		stored, skipped := w.sink.UpsertBatch(ctx, batch)
		totalStored += stored
		w.logger.Printf("[worker] strategy=%s country=%s stored=%d skipped=%d", strat.Name(), task.Country, stored, skipped)
	}

	if len(w.strategies) > 0 && failed == len(w.strategies) && totalStored == 0 {
		return fmt.Errorf("all strategies failed for %s: %w", task.Country, lastErr)
	}
	return nil
}

// runStrategy contains a single strategy call, converting panics into
// strategy-local errors so one bad source can never take down the worker.
func (w *Worker) runStrategy(ctx context.Context, strat Strategy, task *queue.Task) (batch []catalog.PostingSummary, err error) {
	defer func() {
		if r := recover(); r != nil {
			batch = nil
			err = fmt.Errorf("strategy %s panicked: %v", strat.Name(), r)
		}
	}()
	return strat.Scrape(ctx, task.Country, task.SearchTerm)
}
