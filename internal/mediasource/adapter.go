// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package mediasource defines the abstraction the Scan Orchestrator and
// Deletion Executor use to reach external catalog services. The actual
// HTTP client wrappers for those services are an explicit out-of-scope
// external collaborator (spec §1) — this package only defines the
// contract and the in-process normalization/registry around it.
package mediasource

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/mchestr/plex-maintenance-engine/internal/cache"
	"github.com/mchestr/plex-maintenance-engine/internal/domain"
	"github.com/mchestr/plex-maintenance-engine/internal/metrics"
)

// fetchCacheTTL bounds how long a library's fetched item list is reused
// across scans before the catalog service is asked again. Multiple rules
// commonly target the same library; this keeps a burst of scans from
// hammering Radarr/Sonarr with identical requests.
const fetchCacheTTL = 30 * time.Second

// Adapter is implemented once per external catalog service (one for
// MOVIE, one for TV_SERIES).
type Adapter interface {
	// ListLibraries returns the library sections this adapter exposes.
	ListLibraries(ctx context.Context) ([]domain.LibraryRef, error)
	// FetchItems returns up to pageLimit normalized items from one library.
	FetchItems(ctx context.Context, lib domain.LibraryRef, pageLimit int) ([]domain.MediaItem, error)
	// DeleteMedia deletes the underlying item (and optionally its files)
	// from the owning catalog service.
	DeleteMedia(ctx context.Context, externalID string, deleteFiles bool) error
}

// DefaultPageLimit matches spec §4.3: up to 10,000 items per library section.
const DefaultPageLimit = 10_000

// ErrNoAdapterConfigured is returned when no adapter instance is wired
// for a requested media type.
var ErrNoAdapterConfigured = fmt.Errorf("mediasource: no adapter configured")

// Registry resolves an Adapter by domain.MediaType and wraps every call
// with a per-service circuit breaker.
type Registry struct {
	adapters map[domain.MediaType]Adapter
	breakers map[domain.MediaType]*gobreaker.CircuitBreaker
	cache    cache.Cache
}

// NewRegistry builds a Registry from explicit adapter bindings.
func NewRegistry(bindings map[domain.MediaType]Adapter) *Registry {
	r := &Registry{
		adapters: bindings,
		breakers: make(map[domain.MediaType]*gobreaker.CircuitBreaker, len(bindings)),
		cache:    cache.NewMemoryCache(fetchCacheTTL),
	}
	for mt := range bindings {
		mt := mt
		r.breakers[mt] = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        string(mt),
			MaxRequests: 1,
			Interval:    0,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				metrics.SetCircuitBreakerState(name, to.String())
				if to == gobreaker.StateOpen {
					metrics.RecordCircuitBreakerTrip(name, "consecutive_failures")
				}
			},
		})
	}
	return r
}

// Resolve returns the Adapter bound to mt, or ErrNoAdapterConfigured.
func (r *Registry) Resolve(mt domain.MediaType) (Adapter, error) {
	a, ok := r.adapters[mt]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoAdapterConfigured, mt)
	}
	return a, nil
}

// FetchItems resolves the adapter for mt and fetches through its circuit
// breaker, so a catalog service that starts failing mid-scan trips open
// instead of stalling every remaining library in the batch.
func (r *Registry) FetchItems(ctx context.Context, mt domain.MediaType, lib domain.LibraryRef, pageLimit int) ([]domain.MediaItem, error) {
	cacheKey := string(mt) + ":" + lib.ID
	if cached, ok := r.cache.Get(cacheKey); ok {
		return cached.([]domain.MediaItem), nil
	}

	a, err := r.Resolve(mt)
	if err != nil {
		return nil, err
	}
	items, err := r.breakers[mt].Execute(func() (any, error) {
		return a.FetchItems(ctx, lib, pageLimit)
	})
	if err != nil {
		return nil, err
	}

	result := items.([]domain.MediaItem)
	r.cache.Set(cacheKey, result, fetchCacheTTL)
	return result, nil
}

// DeleteMedia resolves the adapter for mt and calls DeleteMedia through
// its circuit breaker.
func (r *Registry) DeleteMedia(ctx context.Context, mt domain.MediaType, externalID string, deleteFiles bool) error {
	a, err := r.Resolve(mt)
	if err != nil {
		return err
	}
	breaker := r.breakers[mt]
	_, err = breaker.Execute(func() (any, error) {
		return nil, a.DeleteMedia(ctx, externalID, deleteFiles)
	})
	return err
}
