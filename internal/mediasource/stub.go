// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package mediasource

import (
	"context"
	"fmt"
	"sync"

	"github.com/mchestr/plex-maintenance-engine/internal/domain"
)

// StubAdapter is an in-memory Adapter double for tests. Grounded on the
// fakeMediaServer test-double pattern (interface fake plus a slice that
// records DeleteMedia calls in order; fetches are not recorded).
type StubAdapter struct {
	mu sync.Mutex

	Libraries []domain.LibraryRef
	Items     map[string][]domain.MediaItem // keyed by LibraryRef.ID
	Deleted   []string                      // externalIDs passed to DeleteMedia, in call order

	FetchErr  error // when set, FetchItems always returns this error
	DeleteErr error // when set, DeleteMedia always returns this error
}

// NewStubAdapter returns an empty StubAdapter ready for test setup.
func NewStubAdapter() *StubAdapter {
	return &StubAdapter{Items: make(map[string][]domain.MediaItem)}
}

func (s *StubAdapter) ListLibraries(ctx context.Context) ([]domain.LibraryRef, error) {
	return s.Libraries, nil
}

func (s *StubAdapter) FetchItems(ctx context.Context, lib domain.LibraryRef, pageLimit int) ([]domain.MediaItem, error) {
	if s.FetchErr != nil {
		return nil, s.FetchErr
	}
	items := s.Items[lib.ID]
	if len(items) > pageLimit {
		items = items[:pageLimit]
	}
	return items, nil
}

func (s *StubAdapter) DeleteMedia(ctx context.Context, externalID string, deleteFiles bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.DeleteErr != nil {
		return s.DeleteErr
	}
	s.Deleted = append(s.Deleted, externalID)
	return nil
}

var _ Adapter = (*StubAdapter)(nil)

// AlwaysFailAdapter is a minimal Adapter whose every call fails, used to
// exercise UPSTREAM_UNAVAILABLE-style scan and deletion failure paths.
type AlwaysFailAdapter struct{ Err error }

func (a AlwaysFailAdapter) ListLibraries(ctx context.Context) ([]domain.LibraryRef, error) {
	return nil, a.err()
}

func (a AlwaysFailAdapter) FetchItems(ctx context.Context, lib domain.LibraryRef, pageLimit int) ([]domain.MediaItem, error) {
	return nil, a.err()
}

func (a AlwaysFailAdapter) DeleteMedia(ctx context.Context, externalID string, deleteFiles bool) error {
	return a.err()
}

func (a AlwaysFailAdapter) err() error {
	if a.Err != nil {
		return a.Err
	}
	return fmt.Errorf("mediasource: simulated upstream failure")
}

var _ Adapter = AlwaysFailAdapter{}
