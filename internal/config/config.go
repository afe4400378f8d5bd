// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mchestr/plex-maintenance-engine/internal/validate"
)

// ParseString reads key from the environment, returning def if unset or
// blank.
func ParseString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return def
}

// ParseInt reads an integer-valued environment variable, returning def
// when unset or unparsable.
func ParseInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return n
}

// ParseBool reads a boolean-valued environment variable ("1", "true",
// "yes", "on" are truthy; "0", "false", "no", "off" are falsy), returning
// def when unset or any other value.
func ParseBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}

// ParseDuration reads a duration-valued environment variable, returning
// def when unset or unparsable.
func ParseDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return d
}

// CatalogService carries the connection details for one external media
// catalog service (Radarr or Sonarr). Only configuration is held here —
// the HTTP client itself is an out-of-scope external collaborator.
type CatalogService struct {
	BaseURL string
	APIKey  string
}

// enabled reports whether this service has a configured base URL.
func (c CatalogService) enabled() bool { return c.BaseURL != "" }

// Config is the worker's fully resolved, immutable runtime configuration.
type Config struct {
	RedisURL     string
	DatabasePath string
	ReportPath   string
	LogLevel     string

	Radarr CatalogService
	Sonarr CatalogService

	HTTPAddr string

	ScanQueueRateLimit   int
	ScanQueueConcurrency int
	DeletionConcurrency  int
}

// Load resolves Config from the process environment. It never touches
// Redis, the database, or any catalog service — those connections are
// established lazily by their owning packages.
func Load() (Config, error) {
	cfg := Config{
		RedisURL:     ParseString("REDIS_URL", "redis://localhost:6379"),
		DatabasePath: ParseString("DATABASE_PATH", resolveDefaultDBPath()),
		ReportPath:   ParseString("SCAN_REPORT_PATH", resolveDefaultReportPath()),
		LogLevel:     ParseString("LOG_LEVEL", "info"),
		Radarr: CatalogService{
			BaseURL: ParseString("RADARR_BASE_URL", ""),
			APIKey:  ParseString("RADARR_API_KEY", ""),
		},
		Sonarr: CatalogService{
			BaseURL: ParseString("SONARR_BASE_URL", ""),
			APIKey:  ParseString("SONARR_API_KEY", ""),
		},
		HTTPAddr:             ParseString("HTTP_ADDR", ":8080"),
		ScanQueueRateLimit:   ParseInt("SCAN_QUEUE_RATE_LIMIT", 10),
		ScanQueueConcurrency: ParseInt("SCAN_QUEUE_CONCURRENCY", 2),
		DeletionConcurrency:  1, // contractually fixed, spec §4.5
	}

	if cfg.Radarr.enabled() && cfg.Radarr.APIKey == "" {
		return Config{}, fmt.Errorf("config: RADARR_BASE_URL set without RADARR_API_KEY")
	}
	if cfg.Sonarr.enabled() && cfg.Sonarr.APIKey == "" {
		return Config{}, fmt.Errorf("config: SONARR_BASE_URL set without SONARR_API_KEY")
	}

	v := validate.New()
	if cfg.Radarr.enabled() {
		v.URL("RADARR_BASE_URL", cfg.Radarr.BaseURL, []string{"http", "https"})
	}
	if cfg.Sonarr.enabled() {
		v.URL("SONARR_BASE_URL", cfg.Sonarr.BaseURL, []string{"http", "https"})
	}
	v.Positive("SCAN_QUEUE_RATE_LIMIT", cfg.ScanQueueRateLimit)
	v.Positive("SCAN_QUEUE_CONCURRENCY", cfg.ScanQueueConcurrency)
	if err := v.Err(); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

func resolveDefaultDBPath() string {
	if dir := ResolveDataDirFromEnv(); dir != "" {
		return dir + "/plexmaint.db"
	}
	return "plexmaint.db"
}

func resolveDefaultReportPath() string {
	if dir := ResolveDataDirFromEnv(); dir != "" {
		return dir + "/last-scan.json"
	}
	return "last-scan.json"
}
