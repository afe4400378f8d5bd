// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "redis://localhost:6379", cfg.RedisURL)
	require.Equal(t, 1, cfg.DeletionConcurrency)
	require.False(t, cfg.Radarr.enabled())
}

func TestLoadRejectsServiceURLWithoutAPIKey(t *testing.T) {
	t.Setenv("RADARR_BASE_URL", "http://radarr.local")
	t.Setenv("RADARR_API_KEY", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadAcceptsFullyConfiguredService(t *testing.T) {
	t.Setenv("RADARR_BASE_URL", "http://radarr.local")
	t.Setenv("RADARR_API_KEY", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	require.True(t, cfg.Radarr.enabled())
	require.Equal(t, "secret", cfg.Radarr.APIKey)
}

func TestParseIntFallsBackOnGarbage(t *testing.T) {
	t.Setenv("SOME_INT", "not-a-number")
	require.Equal(t, 7, ParseInt("SOME_INT", 7))
}

func TestParseBoolVariants(t *testing.T) {
	t.Setenv("SOME_BOOL", "yes")
	require.True(t, ParseBool("SOME_BOOL", false))

	t.Setenv("SOME_BOOL", "off")
	require.False(t, ParseBool("SOME_BOOL", true))
}
