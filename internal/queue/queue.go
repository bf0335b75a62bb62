// Package queue implements the durable scrape-task queue on Redis: a
// pending list, a processing list with deadline tracking for at-least-once
// redelivery, a sorted-set delay queue for backoff, and per-country locks.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"jobharvest/internal/config"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	keyPending    = "jobharvest:scrape:pending"
	keyProcessing = "jobharvest:scrape:processing"
	keyDelayed    = "jobharvest:scrape:delayed"
	keyDeadlines  = "jobharvest:scrape:deadlines"
	keyDead       = "jobharvest:scrape:dead"
	keyLockPrefix = "jobharvest:scrape:lock:"

	pollInterval = 2 * time.Second
	backoffBase  = 30 * time.Second
	backoffCap   = 15 * time.Minute
)

// ErrClosed is returned by Dequeue once the context driving it is done.
var ErrClosed = errors.New("queue: closed")

// Task is one "scrape country C" unit of work. Attempt starts at 1 and is
// incremented on every requeue-after-failure.
type Task struct {
	ID         string    `json:"id"`
	Country    string    `json:"country"`
	SearchTerm string    `json:"searchTerm"`
	Attempt    int       `json:"attempt"`
	EnqueuedAt time.Time `json:"enqueuedAt"`

	payload string
}

type Queue struct {
	rdb         *redis.Client
	maxAttempts int
	visibility  time.Duration
	logger      *log.Logger
}

func New(rdb *redis.Client, cfg config.QueueConfig, logger *log.Logger) *Queue {
	if logger == nil {
		logger = log.Default()
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 4
	}
	visibility := cfg.VisibilityTimeout
	if visibility <= 0 {
		visibility = 30 * time.Minute
	}
	return &Queue{rdb: rdb, maxAttempts: maxAttempts, visibility: visibility, logger: logger}
}

// Enqueue appends a fresh attempt-1 task for the given country. It never
// blocks on queue depth.
func (q *Queue) Enqueue(ctx context.Context, country, searchTerm string) error {
	if q == nil || q.rdb == nil {
		return fmt.Errorf("nil queue")
	}
	t := Task{
		ID:         uuid.NewString(),
		Country:    country,
		SearchTerm: searchTerm,
		Attempt:    1,
		EnqueuedAt: time.Now().UTC(),
	}
	b, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal task: %w", err)
	}
	return q.rdb.LPush(ctx, keyPending, string(b)).Err()
}

// Dequeue blocks until a task is available or ctx is done. The task is
// moved atomically onto the processing list and given a redelivery
// deadline; exactly one worker receives it.
func (q *Queue) Dequeue(ctx context.Context) (*Task, error) {
	if q == nil || q.rdb == nil {
		return nil, fmt.Errorf("nil queue")
	}
	for {
		if err := ctx.Err(); err != nil {
			return nil, ErrClosed
		}

		q.promoteDelayed(ctx)
		q.reapExpired(ctx)

		payload, err := q.rdb.BLMove(ctx, keyPending, keyProcessing, "RIGHT", "LEFT", pollInterval).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, ErrClosed
			}
			return nil, fmt.Errorf("blmove: %w", err)
		}

		deadline := float64(time.Now().Add(q.visibility).UnixMilli())
		if err := q.rdb.ZAdd(ctx, keyDeadlines, redis.Z{Score: deadline, Member: payload}).Err(); err != nil {
			q.logger.Printf("[queue] deadline tracking for claimed task: %v", err)
		}

		var t Task
		if err := json.Unmarshal([]byte(payload), &t); err != nil {
			// Unparseable payloads go straight to the dead list.
			q.discard(ctx, payload)
			q.rdb.LPush(ctx, keyDead, payload)
			q.logger.Printf("[queue] dead-lettered malformed payload: %v", err)
			continue
		}
		t.payload = payload
		return &t, nil
	}
}

// Ack removes a successfully executed task.
func (q *Queue) Ack(ctx context.Context, t *Task) error {
	if q == nil || q.rdb == nil || t == nil {
		return fmt.Errorf("nil queue/task")
	}
	q.discard(ctx, t.payload)
	return nil
}

// Nack requeues a failed task with attempt+1 after an exponential backoff
// delay. Once the attempt ceiling is reached the task is moved to the dead
// list and the failure logged; the caller carries on.
func (q *Queue) Nack(ctx context.Context, t *Task, cause error) error {
	if q == nil || q.rdb == nil || t == nil {
		return fmt.Errorf("nil queue/task")
	}
	q.discard(ctx, t.payload)

	if t.Attempt >= q.maxAttempts {
		if err := q.rdb.LPush(ctx, keyDead, t.payload).Err(); err != nil {
			return err
		}
		q.logger.Printf("[queue] abandoned task country=%s after %d attempts: %v", t.Country, t.Attempt, cause)
		return nil
	}

	delay := backoffDelay(t.Attempt)
	retry := *t
	retry.Attempt = t.Attempt + 1
	b, err := json.Marshal(retry)
	if err != nil {
		return fmt.Errorf("marshal retry: %w", err)
	}
	q.logger.Printf("[queue] requeue country=%s attempt=%d delay=%s cause=%v", t.Country, retry.Attempt, delay, cause)
	return q.rdb.ZAdd(ctx, keyDelayed, redis.Z{
		Score:  float64(time.Now().Add(delay).UnixMilli()),
		Member: string(b),
	}).Err()
}

// Defer puts a task back on the delay queue without counting a failure,
// used when its country is already being scraped by another worker.
func (q *Queue) Defer(ctx context.Context, t *Task, delay time.Duration) error {
	if q == nil || q.rdb == nil || t == nil {
		return fmt.Errorf("nil queue/task")
	}
	q.discard(ctx, t.payload)
	return q.rdb.ZAdd(ctx, keyDelayed, redis.Z{
		Score:  float64(time.Now().Add(delay).UnixMilli()),
		Member: t.payload,
	}).Err()
}

// AcquireCountryLock claims single-flight execution for a country. The
// lock expires on its own so a crashed worker cannot wedge a country
// forever.
func (q *Queue) AcquireCountryLock(ctx context.Context, country, token string, ttl time.Duration) (bool, error) {
	if q == nil || q.rdb == nil {
		return false, fmt.Errorf("nil queue")
	}
	return q.rdb.SetNX(ctx, keyLockPrefix+country, token, ttl).Result()
}

// ReleaseCountryLock releases the lock only if this holder still owns it.
func (q *Queue) ReleaseCountryLock(ctx context.Context, country, token string) {
	if q == nil || q.rdb == nil {
		return
	}
	key := keyLockPrefix + country
	held, err := q.rdb.Get(ctx, key).Result()
	if err != nil || held != token {
		return
	}
	_ = q.rdb.Del(ctx, key).Err()
}

// Depth reports the number of tasks waiting in the pending list.
func (q *Queue) Depth(ctx context.Context) (int64, error) {
	if q == nil || q.rdb == nil {
		return 0, fmt.Errorf("nil queue")
	}
	return q.rdb.LLen(ctx, keyPending).Result()
}

// DeadCount reports the number of abandoned tasks.
func (q *Queue) DeadCount(ctx context.Context) (int64, error) {
	if q == nil || q.rdb == nil {
		return 0, fmt.Errorf("nil queue")
	}
	return q.rdb.LLen(ctx, keyDead).Result()
}

func (q *Queue) discard(ctx context.Context, payload string) {
	if payload == "" {
		return
	}
	_ = q.rdb.LRem(ctx, keyProcessing, 0, payload).Err()
	_ = q.rdb.ZRem(ctx, keyDeadlines, payload).Err()
}

// promoteDelayed moves delayed tasks whose ready-time has passed back onto
// the pending list.
func (q *Queue) promoteDelayed(ctx context.Context) {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	due, err := q.rdb.ZRangeByScore(ctx, keyDelayed, &redis.ZRangeBy{Min: "-inf", Max: now}).Result()
	if err != nil || len(due) == 0 {
		return
	}
	for _, payload := range due {
		removed, err := q.rdb.ZRem(ctx, keyDelayed, payload).Result()
		if err != nil || removed == 0 {
			continue // another worker promoted it first
		}
		_ = q.rdb.LPush(ctx, keyPending, payload).Err()
	}
}

// reapExpired redelivers processing tasks whose visibility deadline has
// passed, covering workers that crashed mid-task.
func (q *Queue) reapExpired(ctx context.Context) {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	expired, err := q.rdb.ZRangeByScore(ctx, keyDeadlines, &redis.ZRangeBy{Min: "-inf", Max: now}).Result()
	if err == nil {
		for _, payload := range expired {
			removed, err := q.rdb.ZRem(ctx, keyDeadlines, payload).Result()
			if err != nil || removed == 0 {
				continue
			}
			_ = q.rdb.LRem(ctx, keyProcessing, 0, payload).Err()
			_ = q.rdb.LPush(ctx, keyPending, payload).Err()
			q.logger.Printf("[queue] redelivered task past visibility timeout")
		}
	}

	// A crash between claim and deadline tracking leaves a payload on the
	// processing list with no deadline entry; sweep those back too.
	orphans, err := q.rdb.LRange(ctx, keyProcessing, 0, -1).Result()
	if err != nil {
		return
	}
	for _, payload := range orphans {
		if err := q.rdb.ZScore(ctx, keyDeadlines, payload).Err(); !errors.Is(err, redis.Nil) {
			continue
		}
		removed, err := q.rdb.LRem(ctx, keyProcessing, 0, payload).Result()
		if err != nil || removed == 0 {
			continue
		}
		_ = q.rdb.LPush(ctx, keyPending, payload).Err()
		q.logger.Printf("[queue] redelivered task with no visibility deadline")
	}
}

func backoffDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := backoffBase << (attempt - 1)
	if d > backoffCap || d <= 0 {
		d = backoffCap
	}
	return d
}
