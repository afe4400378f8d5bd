// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package mediasource

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mchestr/plex-maintenance-engine/internal/domain"
)

func TestRegistryResolveUnknownMediaType(t *testing.T) {
	r := NewRegistry(map[domain.MediaType]Adapter{})
	_, err := r.Resolve(domain.MediaTypeMovie)
	require.ErrorIs(t, err, ErrNoAdapterConfigured)
}

func TestRegistryFetchItemsDelegatesAndCaches(t *testing.T) {
	lib := domain.LibraryRef{ID: "lib1", Name: "Movies", MediaType: domain.MediaTypeMovie}
	stub := NewStubAdapter()
	stub.Items[lib.ID] = []domain.MediaItem{{Title: "Movie One"}, {Title: "Movie Two"}}

	r := NewRegistry(map[domain.MediaType]Adapter{domain.MediaTypeMovie: stub})

	items, err := r.FetchItems(context.Background(), domain.MediaTypeMovie, lib, DefaultPageLimit)
	require.NoError(t, err)
	require.Len(t, items, 2)

	stub.Items[lib.ID] = nil // prove the second call is served from cache, not the adapter
	cached, err := r.FetchItems(context.Background(), domain.MediaTypeMovie, lib, DefaultPageLimit)
	require.NoError(t, err)
	require.Len(t, cached, 2)
}

func TestRegistryFetchItemsPropagatesAdapterError(t *testing.T) {
	lib := domain.LibraryRef{ID: "lib1", MediaType: domain.MediaTypeMovie}
	r := NewRegistry(map[domain.MediaType]Adapter{domain.MediaTypeMovie: AlwaysFailAdapter{}})

	_, err := r.FetchItems(context.Background(), domain.MediaTypeMovie, lib, DefaultPageLimit)
	require.Error(t, err)
}

func TestRegistryDeleteMediaDelegates(t *testing.T) {
	stub := NewStubAdapter()
	r := NewRegistry(map[domain.MediaType]Adapter{domain.MediaTypeMovie: stub})

	err := r.DeleteMedia(context.Background(), domain.MediaTypeMovie, "ext-1", true)
	require.NoError(t, err)
	require.Equal(t, []string{"ext-1"}, stub.Deleted)
}

func TestRegistryDeleteMediaUnknownMediaType(t *testing.T) {
	r := NewRegistry(map[domain.MediaType]Adapter{})
	err := r.DeleteMedia(context.Background(), domain.MediaTypeTVSeries, "ext-1", false)
	require.ErrorIs(t, err, ErrNoAdapterConfigured)
}
