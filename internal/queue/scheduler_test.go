package queue

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(t *testing.T) (*Scheduler, *Queue) {
	t.Helper()
	_, client := newTestClient(t)
	q := NewQueue(ScanQueueConfig(), client, zerolog.Nop())
	return NewScheduler(q, zerolog.Nop()), q
}

func TestSchedulerSyncUpsertsThenRemoves(t *testing.T) {
	s, _ := newTestScheduler(t)

	require.NoError(t, s.Sync("rule-1", "* * * * *", true))
	active := s.ListActive()
	require.Len(t, active, 1)
	require.Equal(t, SchedulerID("rule-1"), active[0].SchedulerID)
	require.Equal(t, "rule-1", active[0].RuleID)

	require.NoError(t, s.Sync("rule-1", "* * * * *", false))
	require.Empty(t, s.ListActive())
}

func TestSchedulerSyncAllPartialFailureDoesNotAbortLoop(t *testing.T) {
	s, _ := newTestScheduler(t)

	rules := []ScheduledRule{
		{ID: "good-1", Schedule: "* * * * *", Enabled: true},
		{ID: "bad", Schedule: "not a cron", Enabled: true},
		{ID: "good-2", Schedule: "0 0 * * *", Enabled: true},
	}

	succeeded, failed := s.SyncAll(context.Background(), rules)
	require.Equal(t, 2, succeeded)
	require.Equal(t, 1, failed)

	active := s.ListActive()
	require.Len(t, active, 2)
}

func TestSchedulerTickEnqueuesDueJobs(t *testing.T) {
	s, q := newTestScheduler(t)

	// Force an already-due registration directly, bypassing Sync's
	// Next()-from-now computation.
	schedule, err := ParseSchedule("* * * * *")
	require.NoError(t, err)
	s.mu.Lock()
	s.schedules[SchedulerID("rule-1")] = &activeSchedule{
		ruleID:   "rule-1",
		schedule: schedule,
		next:     time.Now().Add(-time.Minute),
	}
	s.mu.Unlock()

	s.tick(context.Background())

	job, ok, err := q.Reserve(context.Background(), time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotEmpty(t, job.Payload)

	active := s.ListActive()
	require.Len(t, active, 1)
	require.True(t, active[0].Next.After(time.Now()))
}
