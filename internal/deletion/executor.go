// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package deletion runs the Deletion Executor: translates a batch of
// approved Candidate rows into real deletes against the owning catalog
// service, one at a time, isolating each candidate's failure from the
// rest of the batch. Grounded on the per-item wrapped lookup-then-delete
// sequencing in other_examples' streammon cascade.go, adapted from a
// concurrent fan-out to this spec's required strict serialization.
package deletion

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/mchestr/plex-maintenance-engine/internal/audit"
	"github.com/mchestr/plex-maintenance-engine/internal/domain"
	"github.com/mchestr/plex-maintenance-engine/internal/mediasource"
	"github.com/mchestr/plex-maintenance-engine/internal/persistence"
)

// ProgressFunc receives floor((i+1)/n*100) after each candidate.
type ProgressFunc func(percent int)

// Result is the Executor's public return shape (spec §4.6).
type Result struct {
	Success int
	Failed  int
	Errors  []string
}

// Deps bundles the Executor's collaborators.
type Deps struct {
	Persistence persistence.Gateway
	Sources     *mediasource.Registry
	Audit       *audit.Logger
	Log         zerolog.Logger
	Now         func() time.Time
}

// Executor requires its Execute calls to be serialized by the caller
// (spec §4.5: deletion queue concurrency is strictly 1).
type Executor struct {
	deps Deps
}

// New constructs an Executor. Now defaults to time.Now when unset.
func New(deps Deps) *Executor {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Executor{deps: deps}
}

// Execute implements spec §4.6's algorithm.
func (x *Executor) Execute(ctx context.Context, candidateIDs []string, deleteFiles bool, userID string, onProgress ProgressFunc) Result {
	candidates, err := x.deps.Persistence.FindApprovedCandidates(ctx, candidateIDs)
	if err != nil {
		return Result{Errors: []string{err.Error()}}
	}

	var result Result
	n := len(candidates)
	for i, candidate := range candidates {
		if err := x.deleteOne(ctx, candidate, deleteFiles, userID); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", candidate.Title, err.Error()))
			x.deps.Audit.DeletionResult(userID, candidate.ID, err)
		} else {
			result.Success++
			x.deps.Audit.DeletionResult(userID, candidate.ID, nil)
		}

		if onProgress != nil {
			onProgress(((i + 1) * 100) / n)
		}
	}

	return result
}

func (x *Executor) deleteOne(ctx context.Context, candidate domain.Candidate, deleteFiles bool, userID string) error {
	externalID, deletedFrom, err := requiredExternalID(candidate)
	if err != nil {
		_ = x.deps.Persistence.RecordCandidateDeletionError(ctx, candidate.ID, err.Error())
		return err
	}

	if err := x.deps.Sources.DeleteMedia(ctx, candidate.MediaType, externalID, deleteFiles); err != nil {
		_ = x.deps.Persistence.RecordCandidateDeletionError(ctx, candidate.ID, err.Error())
		return err
	}

	now := x.deps.Now()
	if err := x.deps.Persistence.TransitionCandidateDeleted(ctx, candidate.ID, now); err != nil {
		return err
	}

	return x.deps.Persistence.InsertAuditEntry(ctx, domain.AuditEntry{
		CandidateID:  candidate.ID,
		MediaType:    candidate.MediaType,
		Title:        candidate.Title,
		Year:         candidate.Year,
		FileSize:     candidate.FileSize,
		DeletedBy:    userID,
		DeletedFrom:  deletedFrom,
		FilesDeleted: deleteFiles,
		RuleNames:    candidate.MatchedRules,
		Timestamp:    now,
	})
}

// requiredExternalID verifies the candidate carries the identifier its
// media type's catalog service needs to perform the delete (spec §4.6
// step 2b: movie requires radarrId, series requires sonarrId).
func requiredExternalID(candidate domain.Candidate) (externalID string, source string, err error) {
	switch candidate.MediaType {
	case domain.MediaTypeMovie:
		if candidate.RadarrID == "" {
			return "", "", fmt.Errorf("missing radarrId for movie candidate %q", candidate.Title)
		}
		return candidate.RadarrID, "radarr", nil
	case domain.MediaTypeTVSeries:
		if candidate.SonarrID == "" {
			return "", "", fmt.Errorf("missing sonarrId for series candidate %q", candidate.Title)
		}
		return candidate.SonarrID, "sonarr", nil
	default:
		return "", "", fmt.Errorf("unsupported mediaType %q for candidate %q", candidate.MediaType, candidate.Title)
	}
}
