// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/apex/log"
)

// Day is the unit of CleanOlderThan.
const Day = 24 * time.Hour

// EntryError records an entry a sweep could not evaluate or remove.
type EntryError struct {
	Path string
	Err  error
}

func (e EntryError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// CleanReport is the outcome of a CleanOlderThan sweep.
type CleanReport struct {
	Removed    []Entry
	Kept       int
	FreedBytes int64
	Failures   []EntryError
}

// Err joins the per-entry failures, or returns nil when there were none.
func (r CleanReport) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failures))
	for _, f := range r.Failures {
		errs = append(errs, f)
	}
	return errors.Join(errs...)
}

// CleanOlderThan removes package and artifact entries last modified strictly
// before now minus days. An entry modified exactly at the cutoff is kept.
// Each entry is evaluated on its own; a failure on one is recorded in the
// report and the sweep carries on. Lock files of packages that are gone are
// removed afterwards unless held.
func (s *Store) CleanOlderThan(ctx context.Context, days int) (CleanReport, error) {
	if days < 0 {
		return CleanReport{}, fmt.Errorf("older-than must not be negative: %d", days)
	}
	cutoff := s.now().Add(-time.Duration(days) * Day)
	log.Debugf("cleaning entries modified before %s", cutoff.Format(time.RFC3339))

	var (
		mu     sync.Mutex
		report CleanReport
	)

	failures, err := s.forEach(ctx, func(_ context.Context, c candidate) {
		e, _, err := measure(c)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				// Removed underneath us; nothing left to do.
				return
			}
			mu.Lock()
			report.Failures = append(report.Failures, EntryError{Path: c.path, Err: err})
			mu.Unlock()
			return
		}

		if !e.ModTime.Before(cutoff) {
			mu.Lock()
			report.Kept++
			mu.Unlock()
			return
		}

		rmErr := os.RemoveAll(c.path)

		mu.Lock()
		defer mu.Unlock()
		if rmErr != nil {
			log.WithError(rmErr).Warnf("failed to remove cache entry %s", c.path)
			report.Failures = append(report.Failures, EntryError{Path: c.path, Err: rmErr})
			return
		}
		log.Debugf("removed cache entry %s", c.path)
		report.Removed = append(report.Removed, e)
		report.FreedBytes += e.Size
	})
	report.Failures = append(report.Failures, failures...)
	if err != nil {
		return report, fmt.Errorf("failed to clean cache: %w", err)
	}
	report.Failures = append(report.Failures, s.pruneLocks()...)
	return report, nil
}

// CleanAll removes the whole cache root. A missing root is not an error.
func (s *Store) CleanAll() error {
	if err := os.RemoveAll(s.root); err != nil {
		return fmt.Errorf("failed to clear cache %s: %w", s.root, err)
	}
	log.Debugf("removed cache root %s", s.root)
	return nil
}
