// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package scan runs the Scan Orchestrator: loads a Rule, fetches every
// configured library from the bound media source, evaluates each item
// against the rule's predicate tree, and persists matches as Candidate
// rows. Grounded on the teacher's deleted internal/jobs/types.go shape
// (Deps bundling collaborators, Options{Force,DryRun,...}, an
// Artifacts+Stats result) and its deleted internal/pipeline/fsm state
// machine, now internal/fsm, driving the Scan row's lifecycle.
package scan

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/mchestr/plex-maintenance-engine/internal/apperr"
	"github.com/mchestr/plex-maintenance-engine/internal/audit"
	"github.com/mchestr/plex-maintenance-engine/internal/domain"
	"github.com/mchestr/plex-maintenance-engine/internal/fsm"
	"github.com/mchestr/plex-maintenance-engine/internal/mediasource"
	"github.com/mchestr/plex-maintenance-engine/internal/persistence"
	"github.com/mchestr/plex-maintenance-engine/internal/predicate"
	"github.com/mchestr/plex-maintenance-engine/internal/report"
)

// ProgressReportInterval matches spec §4.4: emit onProgress every Nth
// evaluated item.
const ProgressReportInterval = 10

// ProgressFunc receives a monotonic non-decreasing 0-100 percent.
type ProgressFunc func(percent int)

// Result is the Orchestrator's public return shape; scan() never raises
// across this boundary (spec §4.4 step 8).
type Result struct {
	ScanID       string
	Status       domain.ScanStatus
	ItemsScanned int
	ItemsFlagged int
	Error        string
}

// Deps bundles the Orchestrator's collaborators.
type Deps struct {
	Persistence persistence.Gateway
	Sources     *mediasource.Registry
	Evaluator   *predicate.Evaluator
	Audit       *audit.Logger
	Log         zerolog.Logger
	Now         func() time.Time

	// ReportWriter, when set, receives a snapshot of every scan's
	// outcome for the admin surface's last-scan endpoint. Nil disables
	// snapshotting entirely.
	ReportWriter *report.Writer
}

// Orchestrator runs scans for a single rule invocation at a time; it
// holds no per-scan state between calls.
type Orchestrator struct {
	deps Deps
}

// New constructs an Orchestrator. Now defaults to time.Now when unset.
func New(deps Deps) *Orchestrator {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Orchestrator{deps: deps}
}

type scanState string
type scanEvent string

const (
	stateRunning   scanState = scanState(domain.ScanStatusRunning)
	stateCompleted scanState = scanState(domain.ScanStatusCompleted)
	stateFailed    scanState = scanState(domain.ScanStatusFailed)

	eventSucceed scanEvent = "succeed"
	eventFail    scanEvent = "fail"
)

func newScanMachine() *fsm.Machine[scanState, scanEvent] {
	m, err := fsm.New(stateRunning, []fsm.Transition[scanState, scanEvent]{
		{From: stateRunning, Event: eventSucceed, To: stateCompleted},
		{From: stateRunning, Event: eventFail, To: stateFailed},
	})
	if err != nil {
		// The transition table above is fixed and non-duplicate; this
		// can only fail if that invariant regresses.
		panic(fmt.Sprintf("scan: invalid state machine: %v", err))
	}
	return m
}

// Scan implements spec §4.4's algorithm end to end.
func (o *Orchestrator) Scan(ctx context.Context, ruleID string, onProgress ProgressFunc) Result {
	rule, err := o.deps.Persistence.FindRule(ctx, ruleID)
	if err != nil {
		return Result{Status: domain.ScanStatusFailed, Error: err.Error()}
	}
	if !rule.Enabled {
		return Result{Status: domain.ScanStatusFailed, Error: fmt.Sprintf("%v: rule %q (%s) is disabled", apperr.ErrRuleDisabled, rule.Name, rule.ID)}
	}

	scanRow, err := o.deps.Persistence.CreateRunningScan(ctx, rule.ID)
	if err != nil {
		return Result{Status: domain.ScanStatusFailed, Error: err.Error()}
	}

	o.deps.Audit.ScanStart("system", rule.ID, rule.LibraryIDs)
	machine := newScanMachine()
	started := o.deps.Now()

	result := o.run(ctx, rule, scanRow.ID, onProgress)

	if result.Status == domain.ScanStatusCompleted {
		_, _ = machine.Fire(ctx, eventSucceed)
		if err := o.deps.Persistence.UpdateRuleLastRun(ctx, rule.ID, o.deps.Now()); err != nil {
			o.deps.Log.Warn().Err(err).Str("rule_id", rule.ID).Msg("failed to update rule lastRunAt")
		}
		o.deps.Audit.ScanComplete("system", rule.ID, result.ItemsScanned, result.ItemsFlagged, time.Since(started).Milliseconds())
	} else {
		_, _ = machine.Fire(ctx, eventFail)
		o.deps.Audit.ScanError("system", rule.ID, result.Error)
	}

	if err := o.deps.Persistence.FinishScan(ctx, scanRow.ID, result.Status, result.ItemsScanned, result.ItemsFlagged, result.Error); err != nil {
		o.deps.Log.Error().Err(err).Str("scan_id", scanRow.ID).Msg("failed to persist final scan state")
	}

	result.ScanID = scanRow.ID

	if o.deps.ReportWriter != nil {
		snapshot := report.Summary{
			ScanID:       scanRow.ID,
			RuleID:       rule.ID,
			Status:       string(result.Status),
			ItemsScanned: result.ItemsScanned,
			ItemsFlagged: result.ItemsFlagged,
			Error:        result.Error,
			FinishedAt:   o.deps.Now(),
		}
		if err := o.deps.ReportWriter.Write(snapshot); err != nil {
			o.deps.Log.Warn().Err(err).Str("scan_id", scanRow.ID).Msg("failed to write scan report snapshot")
		}
	}

	return result
}

// run does the actual fetch/evaluate/insert work; Scan wraps it to
// guarantee the lifecycle transition and persistence calls always run,
// even when run returns a FAILED result.
func (o *Orchestrator) run(ctx context.Context, rule *domain.Rule, scanID string, onProgress ProgressFunc) Result {
	if len(rule.LibraryIDs) == 0 {
		return Result{
			Status: domain.ScanStatusFailed,
			Error:  fmt.Sprintf("%v: rule %q (%s) has no libraryIds configured", apperr.ErrRuleInvalid, rule.Name, rule.ID),
		}
	}
	if !rule.MediaType.IsValid() {
		return Result{
			Status: domain.ScanStatusFailed,
			Error:  fmt.Sprintf("%v: rule %q (%s) has unsupported mediaType %q", apperr.ErrRuleInvalid, rule.Name, rule.ID, rule.MediaType),
		}
	}

	var items []domain.MediaItem
	for _, libID := range rule.LibraryIDs {
		select {
		case <-ctx.Done():
			return Result{Status: domain.ScanStatusFailed, Error: "cancelled"}
		default:
		}

		lib := domain.LibraryRef{ID: libID, MediaType: rule.MediaType}
		fetched, err := o.deps.Sources.FetchItems(ctx, rule.MediaType, lib, mediasource.DefaultPageLimit)
		if err != nil {
			// A single library failure is fatal to the whole scan (§9 open
			// question, decided: keep current semantics rather than
			// continuing with remaining libraries).
			return Result{
				Status: domain.ScanStatusFailed,
				Error:  fmt.Sprintf("%v: fetching library %q for rule %q: %v", apperr.ErrUpstreamUnavailable, libID, rule.Name, err),
			}
		}
		items = append(items, fetched...)
	}

	total := len(items)
	var inits []persistence.CandidateInit
	for i, item := range items {
		select {
		case <-ctx.Done():
			return Result{Status: domain.ScanStatusFailed, Error: "cancelled", ItemsScanned: i, ItemsFlagged: len(inits)}
		default:
		}

		if o.deps.Evaluator.Evaluate(item, rule.Criteria) {
			inits = append(inits, candidateFromItem(item, rule.Name))
		}

		scanned := i + 1
		if scanned%ProgressReportInterval == 0 && onProgress != nil {
			onProgress(percentComplete(scanned, total))
		}
	}
	if onProgress != nil {
		onProgress(100)
	}

	if len(inits) > 0 {
		if _, err := o.deps.Persistence.CreateCandidates(ctx, scanID, inits); err != nil {
			return Result{
				Status:       domain.ScanStatusFailed,
				Error:        fmt.Sprintf("%v: persisting candidates for rule %q: %v", apperr.ErrPersistence, rule.Name, err),
				ItemsScanned: total,
			}
		}
	}

	return Result{
		Status:       domain.ScanStatusCompleted,
		ItemsScanned: total,
		ItemsFlagged: len(inits),
	}
}

func percentComplete(scanned, total int) int {
	if total == 0 {
		return 100
	}
	pct := (scanned * 100) / total
	if pct > 100 {
		pct = 100
	}
	return pct
}

func candidateFromItem(item domain.MediaItem, ruleName string) persistence.CandidateInit {
	source, externalID := "radarr", item.RadarrID
	if externalID == "" {
		source, externalID = "sonarr", item.SonarrID
	}

	// plexRatingKey fallback synthesis (spec §4.4 step 6): prefer a
	// stable "${source}_${externalId}" key so re-scans of the same
	// catalog entry converge on the same candidate identity; only fall
	// back to a random key when upstream gave us neither.
	plexKey := item.PlexRatingKey
	if plexKey == "" {
		if externalID != "" {
			plexKey = source + "_" + externalID
		} else {
			plexKey = "unknown_" + strconv.FormatInt(time.Now().UnixNano(), 10) + "_" + strconv.Itoa(rand.Intn(1_000_000))
		}
	}

	return persistence.CandidateInit{
		MediaType:     mediaTypeOf(item),
		PlexRatingKey: plexKey,
		ExternalID:    externalID,
		Title:         item.Title,
		Year:          item.Year,
		FilePath:      item.FilePath,
		FileSize:      item.FileSize,
		PlayCount:     item.PlayCount,
		LastWatchedAt: item.LastWatchedAt,
		AddedAt:       item.AddedAt,
		MatchedRules:  []string{ruleName},
		RadarrID:      item.RadarrID,
		SonarrID:      item.SonarrID,
	}
}

func mediaTypeOf(item domain.MediaItem) domain.MediaType {
	if item.Sonarr != nil {
		return domain.MediaTypeTVSeries
	}
	return domain.MediaTypeMovie
}
