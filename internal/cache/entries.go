// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/apex/log"
	"golang.org/x/sync/errgroup"
)

// Kind distinguishes the two kinds of cache entry.
type Kind string

const (
	KindPackage  Kind = "package"
	KindArtifact Kind = "artifact"
)

// Entry is one package directory or artifact file found in the cache.
type Entry struct {
	Kind    Kind
	Name    string
	Path    string
	Size    int64
	ModTime time.Time
}

// Key returns the cache key portion of the entry's name.
func (e Entry) Key() string {
	if e.Kind == KindArtifact {
		if i := strings.IndexByte(e.Name, '_'); i > 0 {
			return e.Name[:i]
		}
	}
	return e.Name
}

// candidate is an entry found by listing, before it has been stat'ed.
type candidate struct {
	kind Kind
	path string
}

// candidates lists the immediate children of the package and artifact areas.
// A missing area contributes nothing; an unreadable one is reported and
// skipped.
func (s *Store) candidates() ([]candidate, []EntryError) {
	var (
		out      []candidate
		failures []EntryError
	)
	for _, area := range []struct {
		kind Kind
		dir  string
	}{
		{KindPackage, s.packagesDir()},
		{KindArtifact, s.artifactsDir()},
	} {
		des, err := os.ReadDir(area.dir)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				failures = append(failures, EntryError{Path: area.dir, Err: err})
			}
			continue
		}
		for _, de := range des {
			if strings.HasPrefix(de.Name(), ".tmp-") {
				continue
			}
			out = append(out, candidate{kind: area.kind, path: filepath.Join(area.dir, de.Name())})
		}
	}
	return out, failures
}

// forEach runs fn over every candidate with at most s.workers in flight. fn
// must not fail the whole scan for a per-entry problem; only context
// cancellation stops it early. Areas that could not be listed are returned.
func (s *Store) forEach(ctx context.Context, fn func(context.Context, candidate)) ([]EntryError, error) {
	cands, failures := s.candidates()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, c := range cands {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			fn(ctx, c)
			return nil
		})
	}
	return failures, g.Wait()
}

// Entries lists every entry in the cache with its size and modification time.
// Entries that cannot be read are left out and counted in the second return.
func (s *Store) Entries(ctx context.Context) ([]Entry, int, error) {
	var (
		mu      sync.Mutex
		entries []Entry
		skipped int
	)

	failures, err := s.forEach(ctx, func(_ context.Context, c candidate) {
		e, unreadable, err := measure(c)

		mu.Lock()
		defer mu.Unlock()
		skipped += unreadable
		if err != nil {
			log.WithError(err).Debugf("skipping %s", c.path)
			skipped++
			return
		}
		entries = append(entries, e)
	})
	for _, f := range failures {
		log.WithError(f.Err).Debugf("skipping %s", f.Path)
	}
	return entries, skipped + len(failures), err
}

// measure stats one candidate. For a package directory the size is the sum of
// its regular files; unreadable subpaths are skipped and counted.
func measure(c candidate) (Entry, int, error) {
	fi, err := os.Lstat(c.path)
	if err != nil {
		return Entry{}, 0, err
	}
	e := Entry{
		Kind:    c.kind,
		Name:    filepath.Base(c.path),
		Path:    c.path,
		ModTime: fi.ModTime(),
	}
	if !fi.IsDir() {
		e.Size = fi.Size()
		return e, 0, nil
	}

	unreadable := 0
	_ = filepath.WalkDir(c.path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			unreadable++
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			unreadable++
			return nil
		}
		e.Size += info.Size()
		return nil
	})
	return e, unreadable, nil
}
