// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package queue

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// ProgressFunc reports a job's 0-100 percent completion.
type ProgressFunc func(percent int)

// Handler processes one Job's payload and returns a JSON-marshalable
// result, or an error to trigger the queue's retry/backoff policy.
type Handler func(ctx context.Context, job Job, onProgress ProgressFunc) (any, error)

// reserveTimeout bounds each BRPOP call so a worker loop wakes up
// periodically to check for shutdown and due retries even when the
// queue is idle.
const reserveTimeout = 2 * time.Second

// retrySweepInterval controls how often PromoteDueRetries runs.
const retrySweepInterval = 1 * time.Second

// Worker drains one Queue with a fixed concurrency cap and an optional
// admission rate limit (spec §4.5's per-queue "worker concurrency" and
// "rate limit" columns), built directly on golang.org/x/time/rate's
// token bucket, adapted from per-IP HTTP admission to per-queue job
// admission.
type Worker struct {
	queue       *Queue
	concurrency int
	limiter     *rate.Limiter
	handler     Handler
	log         zerolog.Logger
}

// NewWorker builds a Worker. A nil limiter means unlimited admission
// (the deletion queue has none, per spec).
func NewWorker(q *Queue, concurrency int, limiter *rate.Limiter, handler Handler, log zerolog.Logger) *Worker {
	return &Worker{
		queue:       q,
		concurrency: concurrency,
		limiter:     limiter,
		handler:     handler,
		log:         log.With().Str("queue", q.cfg.Name).Logger(),
	}
}

// Run blocks, draining jobs until ctx is canceled. In-flight jobs are
// allowed to finish (spec §4.5: "allow in-flight jobs to run to
// completion"); Run returns once every worker goroutine has exited.
// Cancellation propagates promptly to any blocked Reserve/limiter.Wait
// call; the archival writes that record a job's outcome use a detached
// context so a shutdown in progress doesn't also lose that bookkeeping.
func (w *Worker) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		w.sweepRetries(gctx)
		return nil
	})

	for i := 0; i < w.concurrency; i++ {
		g.Go(func() error {
			w.loop(gctx)
			return nil
		})
	}

	return g.Wait()
}

func (w *Worker) sweepRetries(ctx context.Context) {
	ticker := time.NewTicker(retrySweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.queue.PromoteDueRetries(ctx); err != nil {
				w.log.Warn().Err(err).Msg("failed to promote due retries")
			}
		}
	}
}

func (w *Worker) loop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		job, ok, err := w.queue.Reserve(ctx, reserveTimeout)
		if err != nil {
			w.log.Error().Err(err).Msg("reserve failed")
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		if !ok {
			continue
		}

		if w.limiter != nil {
			if err := w.limiter.Wait(ctx); err != nil {
				// ctx was canceled mid-wait; the job was already popped
				// off pending, so send it to retry rather than lose it.
				w.finalize(job, err)
				return
			}
		}

		w.process(ctx, job)
	}
}

func (w *Worker) process(ctx context.Context, job Job) {
	onProgress := func(percent int) {
		w.log.Debug().Str("job_id", job.ID).Int("percent", percent).Msg("job progress")
	}
	_, err := w.handler(ctx, job, onProgress)
	w.finalize(job, err)
}

// finalize records a job's outcome on a context detached from the
// worker loop's, so a shutdown-in-progress cancellation doesn't also
// prevent the completion/failure bookkeeping from being written.
func (w *Worker) finalize(job Job, handlerErr error) {
	ctx, cancel := context.WithTimeout(context.Background(), noOpDeadline)
	defer cancel()

	if handlerErr != nil {
		if ferr := w.queue.Fail(ctx, job, handlerErr); ferr != nil {
			w.log.Error().Err(ferr).Str("job_id", job.ID).Msg("failed to record job failure")
		}
		return
	}
	if cerr := w.queue.Complete(ctx, job); cerr != nil {
		w.log.Error().Err(cerr).Str("job_id", job.ID).Msg("failed to archive completed job")
	}
}

// InterpolateProgress implements spec §4.5's job-progress scheme: 10%
// at job start, then linearly interpolating the remaining 90% from the
// wrapped operation's own 0-100 callback.
func InterpolateProgress(orchestratorPercent int) int {
	return 10 + int(float64(orchestratorPercent)*0.9)
}
