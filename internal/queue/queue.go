// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Config describes one queue's retry/retention policy (spec §4.5's
// configuration table).
type Config struct {
	Name             string
	Attempts         int
	BackoffBase      time.Duration
	KeepCompleted    int
	KeepCompletedFor time.Duration
	KeepFailed       int
	KeepFailedFor    time.Duration
}

// ScanQueueConfig matches spec §4.5's "scan" row.
func ScanQueueConfig() Config {
	return Config{
		Name:             "maintenance",
		Attempts:         3,
		BackoffBase:      2 * time.Second,
		KeepCompleted:    100,
		KeepCompletedFor: 24 * time.Hour,
		KeepFailed:       1000,
		KeepFailedFor:    7 * 24 * time.Hour,
	}
}

// DeletionQueueConfig matches spec §4.5's "deletion" row.
func DeletionQueueConfig() Config {
	return Config{
		Name:             "deletion",
		Attempts:         2,
		BackoffBase:      5 * time.Second,
		KeepCompleted:    100,
		KeepCompletedFor: 24 * time.Hour,
		KeepFailed:       1000,
		KeepFailedFor:    30 * 24 * time.Hour,
	}
}

// Job is one unit of work moving through a Queue.
type Job struct {
	ID         string          `json:"id"`
	Payload    json.RawMessage `json:"payload"`
	Attempt    int             `json:"attempt"`
	MaxAttempt int             `json:"maxAttempt"`
	EnqueuedAt time.Time       `json:"enqueuedAt"`
}

// Queue is one named, durable job queue backed by Redis lists (pending
// FIFO) and a sorted set (scheduled retries), all under one hash-tagged
// key prefix so a Redis Cluster deployment keeps every key for this
// queue in a single slot.
type Queue struct {
	cfg    Config
	client *Client
	log    zerolog.Logger
}

// NewQueue binds cfg to client. Construction never touches the network.
func NewQueue(cfg Config, client *Client, log zerolog.Logger) *Queue {
	return &Queue{cfg: cfg, client: client, log: log.With().Str("queue", cfg.Name).Logger()}
}

func (q *Queue) pendingKey() string      { return key(q.cfg.Name, "pending") }
func (q *Queue) retryKey() string        { return key(q.cfg.Name, "retry") }
func (q *Queue) completedKey() string    { return key(q.cfg.Name, "completed") }
func (q *Queue) failedKey() string       { return key(q.cfg.Name, "failed") }
func (q *Queue) jobKey(id string) string { return key(q.cfg.Name, "job", id) }

// Enqueue pushes payload onto the pending list under a fresh job id, and
// returns that id. If Redis is unreachable, the error is returned and
// the caller decides whether that is fatal (manual trigger) or ignorable
// (a best-effort scheduler tick).
func (q *Queue) Enqueue(ctx context.Context, payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("queue: marshaling payload: %w", err)
	}
	job := Job{
		ID:         uuid.NewString(),
		Payload:    data,
		MaxAttempt: q.cfg.Attempts,
		EnqueuedAt: time.Now(),
	}
	return job.ID, q.push(ctx, job)
}

func (q *Queue) push(ctx context.Context, job Job) error {
	cli, err := q.client.Raw()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, noOpDeadline)
	defer cancel()

	encoded, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("queue: marshaling job: %w", err)
	}
	pipe := cli.TxPipeline()
	pipe.Set(ctx, q.jobKey(job.ID), encoded, 0)
	pipe.LPush(ctx, q.pendingKey(), job.ID)
	_, err = pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("queue: enqueueing job %s: %w", job.ID, err)
	}
	return nil
}

// Reserve blocks (up to timeout) for the next pending job, loading its
// full Job record. A zero Job with ok=false means nothing was ready.
func (q *Queue) Reserve(ctx context.Context, timeout time.Duration) (Job, bool, error) {
	cli, err := q.client.Raw()
	if err != nil {
		return Job{}, false, err
	}

	res, err := cli.BRPop(ctx, timeout, q.pendingKey()).Result()
	if err == redis.Nil {
		return Job{}, false, nil
	}
	if err != nil {
		return Job{}, false, fmt.Errorf("queue: reserving job: %w", err)
	}
	if len(res) != 2 {
		return Job{}, false, fmt.Errorf("queue: unexpected BRPOP reply shape")
	}

	id := res[1]
	raw, err := cli.Get(ctx, q.jobKey(id)).Result()
	if err == redis.Nil {
		// The job hash expired or was never written; drop silently.
		return Job{}, false, nil
	}
	if err != nil {
		return Job{}, false, fmt.Errorf("queue: loading job %s: %w", id, err)
	}

	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return Job{}, false, fmt.Errorf("queue: decoding job %s: %w", id, err)
	}
	return job, true, nil
}

// Complete archives a successfully processed job and trims the
// completed archive to the queue's retention policy.
func (q *Queue) Complete(ctx context.Context, job Job) error {
	cli, err := q.client.Raw()
	if err != nil {
		return err
	}
	pipe := cli.TxPipeline()
	pipe.Del(ctx, q.jobKey(job.ID))
	pipe.LPush(ctx, q.completedKey(), job.ID)
	pipe.LTrim(ctx, q.completedKey(), 0, int64(q.cfg.KeepCompleted-1))
	pipe.Expire(ctx, q.completedKey(), q.cfg.KeepCompletedFor)
	_, err = pipe.Exec(ctx)
	return err
}

// Fail either schedules a backoff retry (attempts remaining) or moves
// the job to the failed archive (attempts exhausted).
func (q *Queue) Fail(ctx context.Context, job Job, cause error) error {
	cli, err := q.client.Raw()
	if err != nil {
		return err
	}

	job.Attempt++
	if job.Attempt < job.MaxAttempt {
		delay := backoffFor(q.cfg.BackoffBase, job.Attempt)
		due := time.Now().Add(delay).Unix()

		encoded, merr := json.Marshal(job)
		if merr != nil {
			return fmt.Errorf("queue: marshaling retried job: %w", merr)
		}
		pipe := cli.TxPipeline()
		pipe.Set(ctx, q.jobKey(job.ID), encoded, 0)
		pipe.ZAdd(ctx, q.retryKey(), redis.Z{Score: float64(due), Member: job.ID})
		_, err = pipe.Exec(ctx)
		if err != nil {
			return fmt.Errorf("queue: scheduling retry for job %s: %w", job.ID, err)
		}
		q.log.Warn().Str("job_id", job.ID).Int("attempt", job.Attempt).Dur("delay", delay).Err(cause).Msg("job failed, retry scheduled")
		return nil
	}

	pipe := cli.TxPipeline()
	pipe.Del(ctx, q.jobKey(job.ID))
	pipe.LPush(ctx, q.failedKey(), job.ID)
	pipe.LTrim(ctx, q.failedKey(), 0, int64(q.cfg.KeepFailed-1))
	pipe.Expire(ctx, q.failedKey(), q.cfg.KeepFailedFor)
	_, err = pipe.Exec(ctx)
	q.log.Error().Str("job_id", job.ID).Err(cause).Msg("job exhausted retries")
	return err
}

// backoffFor returns an exponential backoff: base * 2^(attempt-1).
func backoffFor(base time.Duration, attempt int) time.Duration {
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
	}
	return d
}

// PromoteDueRetries moves any retry-scheduled job whose due time has
// passed back onto the pending list. Intended to be called periodically
// by the worker loop (there is no Redis-native delayed-queue primitive
// this corpus's stack provides, so polling the sorted set is the
// idiomatic approach here).
func (q *Queue) PromoteDueRetries(ctx context.Context) (int, error) {
	cli, err := q.client.Raw()
	if err != nil {
		return 0, err
	}

	now := float64(time.Now().Unix())
	ids, err := cli.ZRangeByScore(ctx, q.retryKey(), &redis.ZRangeBy{Min: "-inf", Max: fmt.Sprintf("%f", now)}).Result()
	if err != nil {
		return 0, fmt.Errorf("queue: scanning due retries: %w", err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	pipe := cli.TxPipeline()
	for _, id := range ids {
		pipe.ZRem(ctx, q.retryKey(), id)
		pipe.LPush(ctx, q.pendingKey(), id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("queue: promoting due retries: %w", err)
	}
	return len(ids), nil
}
