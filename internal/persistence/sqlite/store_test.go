package sqlite

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mchestr/plex-maintenance-engine/internal/domain"
	"github.com/mchestr/plex-maintenance-engine/internal/persistence"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", "file::memory:?cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, Migrate(db))
	return NewStore(db)
}

func seedRule(t *testing.T, s *Store, id string) {
	t.Helper()
	criteria := &domain.Group{
		ID:       "g1",
		Operator: domain.GroupAND,
		Conditions: []domain.Node{
			&domain.Condition{ID: "c1", Field: "playCount", Operator: domain.OpEquals, Value: float64(0)},
		},
	}
	data, err := criteria.MarshalJSON()
	require.NoError(t, err)

	_, err = s.db.Exec(`
		INSERT INTO maintenance_rule (id, name, enabled, media_type, library_ids, criteria, schedule, action_type, created_at)
		VALUES (?, ?, 1, ?, ?, ?, ?, ?, ?)`,
		id, "Stale Movies", string(domain.MediaTypeMovie), `["lib-1"]`, string(data), "0 3 * * *", "FLAG",
		time.Now().Format(time.RFC3339Nano))
	require.NoError(t, err)
}

func TestFindRuleRoundTripsCriteria(t *testing.T) {
	s := newTestStore(t)
	seedRule(t, s, "rule-1")

	rule, err := s.FindRule(context.Background(), "rule-1")
	require.NoError(t, err)
	require.Equal(t, "Stale Movies", rule.Name)
	require.True(t, rule.Enabled)
	require.Equal(t, domain.MediaTypeMovie, rule.MediaType)
	require.Equal(t, []string{"lib-1"}, rule.LibraryIDs)
	require.NotNil(t, rule.Criteria)
	require.Len(t, rule.Criteria.Conditions, 1)
}

func TestFindRuleNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.FindRule(context.Background(), "missing")
	require.Error(t, err)
}

func TestScanAndCandidateLifecycle(t *testing.T) {
	s := newTestStore(t)
	seedRule(t, s, "rule-1")
	ctx := context.Background()

	scan, err := s.CreateRunningScan(ctx, "rule-1")
	require.NoError(t, err)
	require.Equal(t, domain.ScanStatusRunning, scan.Status)

	year := 2015
	candidates, err := s.CreateCandidates(ctx, scan.ID, []persistence.CandidateInit{
		{MediaType: domain.MediaTypeMovie, PlexRatingKey: "pk-1", Title: "Old Movie", Year: &year, MatchedRules: []string{"Stale Movies"}},
	})
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	require.Equal(t, domain.ReviewStatusPending, candidates[0].ReviewStatus)

	require.NoError(t, s.FinishScan(ctx, scan.ID, domain.ScanStatusCompleted, 1, 1, ""))

	// Approve via direct SQL (approval is outside the gateway's surface).
	_, err = s.db.Exec(`UPDATE maintenance_candidate SET review_status = 'APPROVED' WHERE id = ?`, candidates[0].ID)
	require.NoError(t, err)

	approved, err := s.FindApprovedCandidates(ctx, []string{candidates[0].ID})
	require.NoError(t, err)
	require.Len(t, approved, 1)
	require.Equal(t, "Old Movie", approved[0].Title)

	require.NoError(t, s.TransitionCandidateDeleted(ctx, candidates[0].ID, time.Now()))

	require.NoError(t, s.InsertAuditEntry(ctx, domain.AuditEntry{
		CandidateID: candidates[0].ID,
		MediaType:   domain.MediaTypeMovie,
		Title:       "Old Movie",
		DeletedBy:   "system",
		DeletedFrom: "radarr",
		RuleNames:   []string{"Stale Movies"},
		Timestamp:   time.Now(),
	}))
}

func TestFindApprovedCandidatesSkipsNonApproved(t *testing.T) {
	s := newTestStore(t)
	seedRule(t, s, "rule-1")
	ctx := context.Background()

	scan, err := s.CreateRunningScan(ctx, "rule-1")
	require.NoError(t, err)

	candidates, err := s.CreateCandidates(ctx, scan.ID, []persistence.CandidateInit{
		{MediaType: domain.MediaTypeMovie, PlexRatingKey: "pk-1", Title: "Pending Movie"},
	})
	require.NoError(t, err)

	approved, err := s.FindApprovedCandidates(ctx, []string{candidates[0].ID})
	require.NoError(t, err)
	require.Empty(t, approved)
}
