// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config resolves the worker's runtime configuration from the
// process environment: Redis location, database path, and the
// connection details (base URL + API key) for each configured media
// catalog service.
package config
