// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package persistence abstracts the relational store behind the shapes
// the Scan Orchestrator, Deletion Executor and Scheduler need. Every
// method returns a structured error (wrapping an internal/apperr
// sentinel) rather than raising across the boundary — the only
// exception is a genuinely unreachable store, which surfaces as
// apperr.ErrPersistence like everything else here.
package persistence

import (
	"context"
	"time"

	"github.com/mchestr/plex-maintenance-engine/internal/domain"
)

// CandidateInit is the subset of Candidate fields the orchestrator has
// at insert time; ReviewStatus always starts PENDING and is assigned by
// the gateway, not the caller.
type CandidateInit struct {
	MediaType     domain.MediaType
	PlexRatingKey string
	ExternalID    string
	Title         string
	Year          *int
	Poster        string
	FilePath      string
	FileSize      *int64
	PlayCount     int
	LastWatchedAt *time.Time
	AddedAt       *time.Time
	MatchedRules  []string
	RadarrID      string
	SonarrID      string
}

// Gateway is the Persistence Gateway's full surface (spec component G).
type Gateway interface {
	// Rules
	FindRule(ctx context.Context, id string) (*domain.Rule, error)
	FindAllScheduledEnabled(ctx context.Context) ([]domain.Rule, error)
	UpdateRuleLastRun(ctx context.Context, id string, ts time.Time) error

	// Scans
	CreateRunningScan(ctx context.Context, ruleID string) (*domain.Scan, error)
	FinishScan(ctx context.Context, scanID string, status domain.ScanStatus, itemsScanned, itemsFlagged int, scanErr string) error

	// Candidates
	CreateCandidates(ctx context.Context, scanID string, items []CandidateInit) ([]domain.Candidate, error)
	FindApprovedCandidates(ctx context.Context, ids []string) ([]domain.Candidate, error)
	TransitionCandidateDeleted(ctx context.Context, id string, deletedAt time.Time) error
	RecordCandidateDeletionError(ctx context.Context, id string, msg string) error

	// Audit
	InsertAuditEntry(ctx context.Context, entry domain.AuditEntry) error
}
