// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package predicate

import (
	"github.com/mchestr/plex-maintenance-engine/internal/domain"
	"github.com/mchestr/plex-maintenance-engine/internal/registry"
)

// LegacyRule is the flat bag of named predicates used before the
// hierarchical tree format. Grounded on oxicleanarr's flat RulesEngine
// config shape (tag/user/watched-based keys at the top level).
type LegacyRule struct {
	NeverWatched      bool     `yaml:"neverWatched,omitempty"`
	MaxPlayCount      *int     `yaml:"maxPlayCount,omitempty"`
	LastWatchedBefore *Rel     `yaml:"lastWatchedBefore,omitempty"`
	MinFileSize       *Rel     `yaml:"minFileSize,omitempty"`
	LibraryIDs        []string `yaml:"libraryIds,omitempty"`
	Tags              []string `yaml:"tags,omitempty"`
	Operator          string   `yaml:"operator,omitempty"` // "AND" | "OR"
}

// Rel is a (value, unit) pair as used by legacy relative-date/size fields.
type Rel struct {
	Value int    `yaml:"value"`
	Unit  string `yaml:"unit"`
}

// IsLegacy reports whether raw criteria JSON/YAML lacks the hierarchical
// tree's root `type` marker, per §4.2's migration rule.
func IsLegacy(raw map[string]any) bool {
	_, hasType := raw["type"]
	return !hasType
}

// MigrateLegacy transforms a flat legacy bag into the hierarchical form,
// one-to-one, under a root group using the bag's own top-level operator.
// This transform happens before evaluation; persisted rules are not rewritten.
func MigrateLegacy(l LegacyRule) *domain.Group {
	op := domain.GroupAND
	if l.Operator == string(domain.GroupOR) {
		op = domain.GroupOR
	}

	root := &domain.Group{ID: registry.GenerateID(), Operator: op}

	if l.NeverWatched {
		root.Conditions = append(root.Conditions, &domain.Condition{
			ID: registry.GenerateID(), Field: "neverWatched", Operator: domain.OpEquals, Value: true,
		})
	}
	if l.MaxPlayCount != nil {
		root.Conditions = append(root.Conditions, &domain.Condition{
			ID: registry.GenerateID(), Field: "playCount", Operator: domain.OpLE, Value: float64(*l.MaxPlayCount),
		})
	}
	if l.LastWatchedBefore != nil {
		root.Conditions = append(root.Conditions, &domain.Condition{
			ID: registry.GenerateID(), Field: "lastWatchedAt", Operator: domain.OpOlderThan,
			Value: l.LastWatchedBefore.Value, ValueUnit: domain.RelativeUnit(l.LastWatchedBefore.Unit),
		})
	}
	if l.MinFileSize != nil {
		root.Conditions = append(root.Conditions, &domain.Condition{
			ID: registry.GenerateID(), Field: "fileSize", Operator: domain.OpGE,
			Value: relativeSizeToBytes(*l.MinFileSize),
		})
	}
	if len(l.LibraryIDs) > 0 {
		root.Conditions = append(root.Conditions, &domain.Condition{
			ID: registry.GenerateID(), Field: "libraryId", Operator: domain.OpIn, Value: l.LibraryIDs,
		})
	}
	if len(l.Tags) > 0 {
		root.Conditions = append(root.Conditions, &domain.Condition{
			ID: registry.GenerateID(), Field: "labels", Operator: domain.OpContainsAny, Value: l.Tags,
		})
	}

	return root
}

func relativeSizeToBytes(r Rel) float64 {
	const kb = 1024.0
	const mb = kb * 1024
	const gb = mb * 1024
	switch r.Unit {
	case "gb":
		return float64(r.Value) * gb
	case "mb":
		return float64(r.Value) * mb
	case "kb":
		return float64(r.Value) * kb
	default:
		return float64(r.Value)
	}
}
