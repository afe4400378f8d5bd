// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ScanJobPayload is the scan queue's job payload shape (spec §4.5).
type ScanJobPayload struct {
	RuleID        string `json:"ruleId"`
	ManualTrigger bool   `json:"manualTrigger"`
}

// DeletionJobPayload is the deletion queue's job payload shape (spec §4.5).
type DeletionJobPayload struct {
	CandidateIDs []string `json:"candidateIds"`
	DeleteFiles  bool     `json:"deleteFiles"`
	UserID       string   `json:"userId"`
}

// SchedulerID returns the stable registration key for a rule (spec §6).
func SchedulerID(ruleID string) string { return "maintenance-rule-" + ruleID }

// Registration is one active cron registration, reported by ListActive.
type Registration struct {
	SchedulerID string
	RuleID      string
	Pattern     string
	Next        time.Time
}

type activeSchedule struct {
	ruleID   string
	schedule *Schedule
	next     time.Time
}

// Scheduler maintains one persistent cron registration per enabled,
// scheduled Rule and enqueues a scan job onto the scan Queue when each
// one comes due. Registrations live in memory — sync_all rebuilds them
// from the authoritative relational store on every worker boot (spec
// §4.5), so there is no independent Redis-side durability requirement
// for the schedule table itself, only for the jobs it enqueues.
type Scheduler struct {
	scanQueue *Queue
	log       zerolog.Logger

	mu        sync.Mutex
	schedules map[string]*activeSchedule // keyed by SchedulerID
}

// NewScheduler binds a Scheduler to the queue it enqueues scan jobs onto.
func NewScheduler(scanQueue *Queue, log zerolog.Logger) *Scheduler {
	return &Scheduler{scanQueue: scanQueue, log: log, schedules: make(map[string]*activeSchedule)}
}

// Sync upserts a registration when cron is non-empty and enabled is
// true, and removes it otherwise (spec §4.5 S8).
func (s *Scheduler) Sync(ruleID, cron string, enabled bool) error {
	id := SchedulerID(ruleID)

	if !enabled || cron == "" {
		s.Remove(ruleID)
		return nil
	}

	schedule, err := ParseSchedule(cron)
	if err != nil {
		return fmt.Errorf("queue: syncing scheduler %s: %w", id, err)
	}
	next, ok := schedule.Next(time.Now())
	if !ok {
		return fmt.Errorf("queue: syncing scheduler %s: no future occurrence for %q", id, cron)
	}

	s.mu.Lock()
	s.schedules[id] = &activeSchedule{ruleID: ruleID, schedule: schedule, next: next}
	s.mu.Unlock()
	return nil
}

// Remove is idempotent (spec §4.5).
func (s *Scheduler) Remove(ruleID string) {
	s.mu.Lock()
	delete(s.schedules, SchedulerID(ruleID))
	s.mu.Unlock()
}

// ListActive reports every currently registered scheduler.
func (s *Scheduler) ListActive() []Registration {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Registration, 0, len(s.schedules))
	for id, a := range s.schedules {
		out = append(out, Registration{SchedulerID: id, RuleID: a.ruleID, Pattern: a.schedule.String(), Next: a.next})
	}
	return out
}

// ScheduledRuleSource is the subset of the Persistence Gateway SyncAll
// needs: every enabled rule carrying a non-empty cron schedule.
type ScheduledRuleSource interface {
	FindAllScheduledEnabled(ctx context.Context) ([]ScheduledRule, error)
}

// ScheduledRule is the minimal rule shape SyncAll consumes; callers
// adapt their domain.Rule into this to avoid this package importing
// the domain package for a three-field read.
type ScheduledRule struct {
	ID       string
	Schedule string
	Enabled  bool
}

// SyncAll re-registers one scheduler per enabled, scheduled rule (spec
// §4.5 S9). A failure syncing one rule is logged and does not abort the
// loop; the return values are success/fail counts for the caller to log
// or expose.
func (s *Scheduler) SyncAll(ctx context.Context, rules []ScheduledRule) (succeeded, failed int) {
	for _, r := range rules {
		if err := s.Sync(r.ID, r.Schedule, r.Enabled); err != nil {
			s.log.Warn().Err(err).Str("rule_id", r.ID).Msg("failed to sync scheduler for rule")
			failed++
			continue
		}
		succeeded++
	}
	s.log.Info().Int("succeeded", succeeded).Int("failed", failed).Msg("scheduler sync_all complete")
	return succeeded, failed
}

// startupRetryDelay matches spec §4.5: one retry 30s after a total
// sync_all failure at boot.
const startupRetryDelay = 30 * time.Second

// SyncAllWithStartupRetry runs SyncAll once; if every rule failed to
// sync, it retries exactly once after startupRetryDelay. Further
// failures are logged only — the worker continues serving manually
// triggered jobs regardless (spec §4.5).
func (s *Scheduler) SyncAllWithStartupRetry(ctx context.Context, rules []ScheduledRule) {
	succeeded, failed := s.SyncAll(ctx, rules)
	if succeeded > 0 || failed == 0 {
		return
	}

	s.log.Warn().Dur("retry_in", startupRetryDelay).Msg("sync_all failed entirely at startup, scheduling single retry")
	select {
	case <-ctx.Done():
		return
	case <-time.After(startupRetryDelay):
	}
	if succeeded, failed := s.SyncAll(ctx, rules); succeeded == 0 && failed > 0 {
		s.log.Error().Msg("sync_all retry also failed entirely; continuing with manual-trigger-only scheduling")
	}
}

// tickInterval is how often Run checks for due registrations. One
// minute matches cron's own minute-level resolution.
const tickInterval = time.Minute

// Run blocks, firing due registrations onto the scan queue until ctx is
// canceled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	now := time.Now()

	s.mu.Lock()
	due := make([]*activeSchedule, 0)
	for _, a := range s.schedules {
		if !a.next.After(now) {
			due = append(due, a)
		}
	}
	s.mu.Unlock()

	for _, a := range due {
		_, err := s.scanQueue.Enqueue(ctx, ScanJobPayload{RuleID: a.ruleID, ManualTrigger: false})
		if err != nil {
			s.log.Error().Err(err).Str("rule_id", a.ruleID).Msg("failed to enqueue scheduled scan job")
		}

		next, ok := a.schedule.Next(now)
		s.mu.Lock()
		if ok {
			a.next = next
		} else {
			delete(s.schedules, SchedulerID(a.ruleID))
		}
		s.mu.Unlock()
	}
}
