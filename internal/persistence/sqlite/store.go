// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package sqlite is the SQLite-backed implementation of
// internal/persistence.Gateway, grounded on the teacher's own
// connection-pool and migration-ledger code in this package.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mchestr/plex-maintenance-engine/internal/apperr"
	"github.com/mchestr/plex-maintenance-engine/internal/domain"
	"github.com/mchestr/plex-maintenance-engine/internal/persistence"
	"github.com/mchestr/plex-maintenance-engine/internal/registry"
)

// Store implements persistence.Gateway on top of a *sql.DB opened via
// Open/DefaultConfig.
type Store struct {
	db *sql.DB
}

// NewStore wraps an already-opened, already-migrated *sql.DB.
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

var _ persistence.Gateway = (*Store)(nil)

func (s *Store) FindRule(ctx context.Context, id string) (*domain.Rule, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, enabled, media_type, library_ids, criteria, schedule, action_type, last_run_at, next_run_at, created_at
		FROM maintenance_rule WHERE id = ?`, id)

	var (
		rule          domain.Rule
		enabled       int
		libraryIDsRaw string
		criteriaRaw   string
		schedule      sql.NullString
		lastRunAt     sql.NullString
		nextRunAt     sql.NullString
		createdAt     string
	)
	if err := row.Scan(&rule.ID, &rule.Name, &enabled, &rule.MediaType, &libraryIDsRaw, &criteriaRaw, &schedule, &rule.ActionType, &lastRunAt, &nextRunAt, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: rule %q", apperr.ErrRuleNotFound, id)
		}
		return nil, fmt.Errorf("%w: loading rule %q: %v", apperr.ErrPersistence, id, err)
	}

	rule.Enabled = enabled != 0
	rule.Schedule = schedule.String
	if err := json.Unmarshal([]byte(libraryIDsRaw), &rule.LibraryIDs); err != nil {
		return nil, fmt.Errorf("%w: decoding library_ids for rule %q: %v", apperr.ErrPersistence, id, err)
	}
	if err := registry.ValidateCriteriaJSON([]byte(criteriaRaw)); err != nil {
		return nil, fmt.Errorf("%w: criteria for rule %q is malformed: %v", apperr.ErrPersistence, id, err)
	}
	group, err := domain.UnmarshalGroupJSON([]byte(criteriaRaw))
	if err != nil {
		return nil, fmt.Errorf("%w: decoding criteria for rule %q: %v", apperr.ErrPersistence, id, err)
	}
	rule.Criteria = group

	if createdAt != "" {
		rule.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	}
	rule.LastRunAt = parseNullableTime(lastRunAt)
	rule.NextRunAt = parseNullableTime(nextRunAt)

	return &rule, nil
}

func (s *Store) FindAllScheduledEnabled(ctx context.Context) ([]domain.Rule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM maintenance_rule
		WHERE enabled = 1 AND schedule IS NOT NULL AND schedule != ''`)
	if err != nil {
		return nil, fmt.Errorf("%w: listing scheduled rules: %v", apperr.ErrPersistence, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%w: scanning rule id: %v", apperr.ErrPersistence, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrPersistence, err)
	}

	rules := make([]domain.Rule, 0, len(ids))
	for _, id := range ids {
		r, err := s.FindRule(ctx, id)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *r)
	}
	return rules, nil
}

func (s *Store) UpdateRuleLastRun(ctx context.Context, id string, ts time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE maintenance_rule SET last_run_at = ? WHERE id = ?`, ts.Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("%w: updating rule %q last_run_at: %v", apperr.ErrPersistence, id, err)
	}
	return nil
}

func (s *Store) CreateRunningScan(ctx context.Context, ruleID string) (*domain.Scan, error) {
	scan := domain.Scan{
		ID:        uuid.NewString(),
		RuleID:    ruleID,
		Status:    domain.ScanStatusRunning,
		StartedAt: time.Now(),
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO maintenance_scan (id, rule_id, status, started_at, items_scanned, items_flagged)
		VALUES (?, ?, ?, ?, 0, 0)`,
		scan.ID, scan.RuleID, string(scan.Status), scan.StartedAt.Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("%w: creating scan for rule %q: %v", apperr.ErrPersistence, ruleID, err)
	}
	return &scan, nil
}

func (s *Store) FinishScan(ctx context.Context, scanID string, status domain.ScanStatus, itemsScanned, itemsFlagged int, scanErr string) error {
	var errVal any
	if scanErr != "" {
		errVal = scanErr
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE maintenance_scan
		SET status = ?, completed_at = ?, items_scanned = ?, items_flagged = ?, error = ?
		WHERE id = ?`,
		string(status), time.Now().Format(time.RFC3339Nano), itemsScanned, itemsFlagged, errVal, scanID)
	if err != nil {
		return fmt.Errorf("%w: finishing scan %q: %v", apperr.ErrPersistence, scanID, err)
	}
	return nil
}

func (s *Store) CreateCandidates(ctx context.Context, scanID string, items []persistence.CandidateInit) ([]domain.Candidate, error) {
	if len(items) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: beginning candidate batch for scan %q: %v", apperr.ErrPersistence, scanID, err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO maintenance_candidate (
			id, scan_id, media_type, plex_rating_key, external_id, radarr_id, sonarr_id,
			title, year, poster, file_path, file_size, play_count, last_watched_at, added_at,
			matched_rules, review_status
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("%w: preparing candidate insert: %v", apperr.ErrPersistence, err)
	}
	defer stmt.Close()

	out := make([]domain.Candidate, 0, len(items))
	for _, item := range items {
		matchedRulesJSON, err := json.Marshal(item.MatchedRules)
		if err != nil {
			return nil, fmt.Errorf("%w: encoding matchedRules: %v", apperr.ErrPersistence, err)
		}

		candidate := domain.Candidate{
			ID:            uuid.NewString(),
			ScanID:        scanID,
			MediaType:     item.MediaType,
			PlexRatingKey: item.PlexRatingKey,
			ExternalID:    item.ExternalID,
			Title:         item.Title,
			Year:          item.Year,
			Poster:        item.Poster,
			FilePath:      item.FilePath,
			FileSize:      item.FileSize,
			PlayCount:     item.PlayCount,
			LastWatchedAt: item.LastWatchedAt,
			AddedAt:       item.AddedAt,
			MatchedRules:  item.MatchedRules,
			ReviewStatus:  domain.ReviewStatusPending,
			RadarrID:      item.RadarrID,
			SonarrID:      item.SonarrID,
		}

		_, err = stmt.ExecContext(ctx,
			candidate.ID, candidate.ScanID, string(candidate.MediaType), candidate.PlexRatingKey,
			candidate.ExternalID, candidate.RadarrID, candidate.SonarrID,
			candidate.Title, candidate.Year, candidate.Poster, candidate.FilePath, candidate.FileSize,
			candidate.PlayCount, formatNullableTime(candidate.LastWatchedAt), formatNullableTime(candidate.AddedAt),
			string(matchedRulesJSON), string(candidate.ReviewStatus))
		if err != nil {
			return nil, fmt.Errorf("%w: inserting candidate for scan %q: %v", apperr.ErrPersistence, scanID, err)
		}
		out = append(out, candidate)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: committing candidate batch for scan %q: %v", apperr.ErrPersistence, scanID, err)
	}
	return out, nil
}

func (s *Store) FindApprovedCandidates(ctx context.Context, ids []string) ([]domain.Candidate, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids)+1)
	args[0] = string(domain.ReviewStatusApproved)
	for i, id := range ids {
		placeholders[i] = "?"
		args[i+1] = id
	}

	query := fmt.Sprintf(`
		SELECT id, scan_id, media_type, plex_rating_key, external_id, radarr_id, sonarr_id,
		       title, year, poster, file_path, file_size, play_count, last_watched_at, added_at,
		       matched_rules, review_status, deletion_error, deleted_at
		FROM maintenance_candidate
		WHERE review_status = ? AND id IN (%s)`, joinPlaceholders(placeholders))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: loading approved candidates: %v", apperr.ErrPersistence, err)
	}
	defer rows.Close()

	var out []domain.Candidate
	for rows.Next() {
		var (
			c             domain.Candidate
			externalID    sql.NullString
			radarrID      sql.NullString
			sonarrID      sql.NullString
			poster        sql.NullString
			filePath      sql.NullString
			lastWatchedAt sql.NullString
			addedAt       sql.NullString
			deletedAt     sql.NullString
			deletionError sql.NullString
			matchedRules  string
		)
		if err := rows.Scan(&c.ID, &c.ScanID, &c.MediaType, &c.PlexRatingKey, &externalID, &radarrID, &sonarrID,
			&c.Title, &c.Year, &poster, &filePath, &c.FileSize, &c.PlayCount, &lastWatchedAt, &addedAt,
			&matchedRules, &c.ReviewStatus, &deletionError, &deletedAt); err != nil {
			return nil, fmt.Errorf("%w: scanning candidate row: %v", apperr.ErrPersistence, err)
		}
		c.ExternalID = externalID.String
		c.RadarrID = radarrID.String
		c.SonarrID = sonarrID.String
		c.Poster = poster.String
		c.FilePath = filePath.String
		c.DeletionError = deletionError.String
		c.LastWatchedAt = parseNullableTime(lastWatchedAt)
		c.AddedAt = parseNullableTime(addedAt)
		c.DeletedAt = parseNullableTime(deletedAt)
		_ = json.Unmarshal([]byte(matchedRules), &c.MatchedRules)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrPersistence, err)
	}
	return out, nil
}

func (s *Store) TransitionCandidateDeleted(ctx context.Context, id string, deletedAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE maintenance_candidate SET review_status = ?, deleted_at = ? WHERE id = ?`,
		string(domain.ReviewStatusDeleted), deletedAt.Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("%w: transitioning candidate %q to DELETED: %v", apperr.ErrPersistence, id, err)
	}
	return nil
}

func (s *Store) RecordCandidateDeletionError(ctx context.Context, id string, msg string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE maintenance_candidate SET deletion_error = ? WHERE id = ?`, msg, id)
	if err != nil {
		return fmt.Errorf("%w: recording deletion error on candidate %q: %v", apperr.ErrPersistence, id, err)
	}
	return nil
}

func (s *Store) InsertAuditEntry(ctx context.Context, entry domain.AuditEntry) error {
	ruleNamesJSON, err := json.Marshal(entry.RuleNames)
	if err != nil {
		return fmt.Errorf("%w: encoding ruleNames: %v", apperr.ErrPersistence, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO maintenance_deletion_log (
			id, candidate_id, media_type, title, year, file_size, deleted_by, deleted_from, files_deleted, rule_names, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), entry.CandidateID, string(entry.MediaType), entry.Title, entry.Year, entry.FileSize,
		entry.DeletedBy, entry.DeletedFrom, entry.FilesDeleted, string(ruleNamesJSON), entry.Timestamp.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("%w: inserting audit entry for candidate %q: %v", apperr.ErrPersistence, entry.CandidateID, err)
	}
	return nil
}

func parseNullableTime(v sql.NullString) *time.Time {
	if !v.Valid || v.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, v.String)
	if err != nil {
		return nil
	}
	return &t
}

func formatNullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339Nano)
}

func joinPlaceholders(ph []string) string {
	out := ph[0]
	for _, p := range ph[1:] {
		out += "," + p
	}
	return out
}
