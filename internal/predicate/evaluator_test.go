// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package predicate

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mchestr/plex-maintenance-engine/internal/domain"
	"github.com/mchestr/plex-maintenance-engine/internal/registry"
)

func newTestEvaluator(now time.Time) *Evaluator {
	reg := registry.New(registry.DefaultFields())
	e := NewEvaluator(reg, zerolog.Nop())
	e.Now = func() time.Time { return now }
	return e
}

func cond(id, field string, op domain.Operator, value any) *domain.Condition {
	return &domain.Condition{ID: id, Field: field, Operator: op, Value: value}
}

func group(id string, op domain.GroupOperator, nodes ...domain.Node) *domain.Group {
	return &domain.Group{ID: id, Operator: op, Conditions: nodes}
}

func TestEmptyGroupSemantics(t *testing.T) {
	e := newTestEvaluator(time.Now())
	item := domain.MediaItem{}

	assert.True(t, e.Evaluate(item, group("root", domain.GroupAND)))
	assert.False(t, e.Evaluate(item, group("root", domain.GroupOR)))
}

func TestShortCircuitAND(t *testing.T) {
	e := newTestEvaluator(time.Now())
	item := domain.MediaItem{PlayCount: 5}

	// First child false -> overall false regardless of second child's validity.
	root := group("root", domain.GroupAND,
		cond("c1", "playCount", domain.OpEquals, 0.0),
		cond("c2", "title", domain.OpRegex, "("), // invalid regex, would be false anyway
	)
	assert.False(t, e.Evaluate(item, root))
}

func TestNullSafetyFailsClosedExceptLastWatched(t *testing.T) {
	e := newTestEvaluator(time.Now())
	item := domain.MediaItem{Title: "x"} // no year set

	root := group("root", domain.GroupAND, cond("c1", "year", domain.OpEquals, 2020.0))
	assert.False(t, e.Evaluate(item, root))
}

func TestLastWatchedOlderThanMatchesNeverWatched(t *testing.T) {
	e := newTestEvaluator(time.Now())
	item := domain.MediaItem{} // LastWatchedAt absent

	root := group("root", domain.GroupAND,
		cond("c1", "lastWatchedAt", domain.OpOlderThan, 180),
	)
	assert.True(t, e.Evaluate(item, root))
}

func TestLegacyMigrationIsSemanticallyIdentity(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	e := newTestEvaluator(now)

	legacy := LegacyRule{
		NeverWatched: true,
		Operator:     "AND",
	}
	migrated := MigrateLegacy(legacy)

	matching := domain.MediaItem{PlayCount: 0}
	nonMatching := domain.MediaItem{PlayCount: 3}

	assert.True(t, e.Evaluate(matching, migrated))
	assert.False(t, e.Evaluate(nonMatching, migrated))
}

func TestScenarioS1NeverWatchedAndAged(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	e := newTestEvaluator(now)

	rule := group("root", domain.GroupAND,
		cond("c1", "playCount", domain.OpEquals, 0.0),
		cond("c2", "addedAt", domain.OpOlderThan, 180),
	)

	t1 := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	items := []domain.MediaItem{
		{Title: "a", PlayCount: 0, AddedAt: &t1},
		{Title: "b", PlayCount: 0, AddedAt: &t2},
		{Title: "c", PlayCount: 5, AddedAt: &t1},
	}

	flagged := 0
	for _, it := range items {
		if e.Evaluate(it, rule) {
			flagged++
		}
	}
	require.Equal(t, 1, flagged)
}

func TestScenarioS2NestedOrOfAnds(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	e := newTestEvaluator(now)

	rule := group("root", domain.GroupOR,
		group("g1", domain.GroupAND,
			cond("c1", "playCount", domain.OpEquals, 0.0),
			cond("c2", "addedAt", domain.OpOlderThan, 365),
		),
		group("g2", domain.GroupAND,
			cond("c3", "playCount", domain.OpLE, 2.0),
			cond("c4", "year", domain.OpLT, 2010.0),
		),
	)

	oldAdded := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	recentAdded := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	year2005 := 2005
	year2015 := 2015

	oldUnwatched := domain.MediaItem{Title: "Old Unwatched", PlayCount: 0, AddedAt: &oldAdded, Year: &year2015}
	lowPlaysOldYear := domain.MediaItem{Title: "Low Plays Old Year", PlayCount: 1, AddedAt: &recentAdded, Year: &year2005}
	neither := domain.MediaItem{Title: "Neither", PlayCount: 5, AddedAt: &recentAdded, Year: &year2015}

	assert.True(t, e.Evaluate(oldUnwatched, rule))
	assert.True(t, e.Evaluate(lowPlaysOldYear, rule))
	assert.False(t, e.Evaluate(neither, rule))
}

func TestEnumOrdinalDefaultsToStringOrdering(t *testing.T) {
	e := newTestEvaluator(time.Now())
	item := domain.MediaItem{Resolution: "720p"}

	// Under string ordering "720p" sorts after "1080p" because '7' > '1',
	// so lt is false: we assert the documented (counter-intuitive) result.
	root := group("root", domain.GroupAND, cond("c1", "resolution", domain.OpLT, "1080p"))
	assert.False(t, e.Evaluate(item, root), "string ordering: \"720p\" is NOT < \"1080p\"")
}

func TestEnumOrdinalWithOrderedValuesOptIn(t *testing.T) {
	reg := registry.New([]registry.Field{
		{
			Key: "resolution", Type: domain.FieldTypeEnum, MediaTypes: []domain.MediaType{domain.MediaTypeMovie},
			AllowedOperators: []domain.Operator{domain.OpLT, domain.OpGT},
			OrderedValues:    []string{"480p", "720p", "1080p", "4k"},
		},
	})
	e := NewEvaluator(reg, zerolog.Nop())
	item := domain.MediaItem{Resolution: "720p"}

	root := group("root", domain.GroupAND, cond("c1", "resolution", domain.OpLT, "1080p"))
	assert.True(t, e.Evaluate(item, root))
}
