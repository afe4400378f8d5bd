// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mchestr/plex-maintenance-engine/internal/domain"
)

func TestDefaultFieldsRegisterAndLookup(t *testing.T) {
	reg := New(DefaultFields())

	f, ok := reg.Lookup("playCount")
	require.True(t, ok)
	assert.Equal(t, domain.FieldTypeNumber, f.Type)
	assert.True(t, f.AppliesTo(domain.MediaTypeMovie))
	assert.True(t, f.AppliesTo(domain.MediaTypeTVSeries))

	_, ok = reg.Lookup("doesNotExist")
	assert.False(t, ok)
}

func TestFieldsForIsScopedByMediaType(t *testing.T) {
	reg := New(DefaultFields())

	movieFields := reg.FieldsFor(domain.MediaTypeMovie)
	seriesFields := reg.FieldsFor(domain.MediaTypeTVSeries)

	assertContainsKey(t, movieFields, "radarr.hasFile")
	assertNotContainsKey(t, movieFields, "sonarr.status")
	assertContainsKey(t, seriesFields, "sonarr.status")
	assertNotContainsKey(t, seriesFields, "radarr.hasFile")
}

func TestGenerateIDIsUnique(t *testing.T) {
	a := GenerateID()
	b := GenerateID()
	assert.NotEqual(t, a, b)
}

func assertContainsKey(t *testing.T, fields []Field, key string) {
	t.Helper()
	for _, f := range fields {
		if f.Key == key {
			return
		}
	}
	t.Fatalf("expected fields to contain %q", key)
}

func assertNotContainsKey(t *testing.T, fields []Field, key string) {
	t.Helper()
	for _, f := range fields {
		if f.Key == key {
			t.Fatalf("expected fields NOT to contain %q", key)
		}
	}
}
