// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"context"
	"fmt"
)

// Stats summarizes the cache contents.
type Stats struct {
	Packages      int
	PackageBytes  int64
	Artifacts     int
	ArtifactBytes int64
	// Skipped counts entries or subpaths that could not be read.
	Skipped int
}

// TotalBytes is the size of every readable entry.
func (s Stats) TotalBytes() int64 {
	return s.PackageBytes + s.ArtifactBytes
}

// Stats counts and sizes the package and artifact entries. Unreadable
// entries and subpaths are skipped rather than failing the computation.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	entries, skipped, err := s.Entries(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to read cache stats: %w", err)
	}

	st := Stats{Skipped: skipped}
	for _, e := range entries {
		switch e.Kind {
		case KindPackage:
			st.Packages++
			st.PackageBytes += e.Size
		case KindArtifact:
			st.Artifacts++
			st.ArtifactBytes += e.Size
		}
	}
	return st, nil
}
