// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/mchestr/plex-maintenance-engine/internal/config"
	"github.com/mchestr/plex-maintenance-engine/internal/log"
	"github.com/rs/zerolog"
)

// PerformStartupChecks validates the environment and configuration before
// the worker starts accepting scan or deletion jobs.
func PerformStartupChecks(_ context.Context, cfg config.Config) error {
	logger := log.WithComponent("startup-check")
	logger.Info().Msg("running pre-flight startup checks")

	if err := checkDatabasePath(logger, cfg.DatabasePath); err != nil {
		return fmt.Errorf("database path check failed: %w", err)
	}

	if err := checkRedisURL(logger, cfg.RedisURL); err != nil {
		return fmt.Errorf("redis url check failed: %w", err)
	}

	if err := checkCatalogService(logger, "radarr", cfg.Radarr); err != nil {
		return fmt.Errorf("radarr configuration invalid: %w", err)
	}
	if err := checkCatalogService(logger, "sonarr", cfg.Sonarr); err != nil {
		return fmt.Errorf("sonarr configuration invalid: %w", err)
	}

	logger.Info().Msg("all startup checks passed")
	return nil
}

// checkDatabasePath ensures the directory holding the SQLite database
// exists and is writable before the persistence gateway opens it.
func checkDatabasePath(logger zerolog.Logger, path string) error {
	dir := filepath.Dir(path)

	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to ensure data directory %q: %w", dir, err)
	}

	testFile := filepath.Join(dir, ".write_test")
	if err := os.WriteFile(testFile, []byte("ok"), 0600); err != nil {
		return fmt.Errorf("data directory is not writable: %s (error: %w)", dir, err)
	}
	_ = os.Remove(testFile)

	logger.Info().Str("path", dir).Msg("data directory is writable")
	return nil
}

// checkRedisURL validates the Redis connection string without connecting —
// the queue client connects lazily on first use.
func checkRedisURL(logger zerolog.Logger, redisURL string) error {
	u, err := url.Parse(redisURL)
	if err != nil {
		return fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return fmt.Errorf("REDIS_URL scheme must be redis or rediss, got: %s", u.Scheme)
	}
	logger.Info().Str("url", redisURL).Msg("redis url is valid")
	return nil
}

// checkCatalogService validates a Radarr/Sonarr base URL when configured.
// An unconfigured service passes this check; scans and deletions for rules
// targeting it fail later because no adapter is configured for it.
func checkCatalogService(logger zerolog.Logger, name string, svc config.CatalogService) error {
	if svc.BaseURL == "" {
		logger.Warn().Str("service", name).Msg("catalog service not configured; scans for rules targeting it will fail")
		return nil
	}
	u, err := url.Parse(svc.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid %s base url: %w", name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s base url scheme must be http or https, got: %s", name, u.Scheme)
	}
	if svc.APIKey == "" {
		return fmt.Errorf("%s base url configured without an api key", name)
	}
	logger.Info().Str("service", name).Str("url", svc.BaseURL).Msg("catalog service configuration is valid")
	return nil
}
