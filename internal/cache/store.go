// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/apex/log"

	"github.com/staranto/dartrun/internal/cachekey"
	"github.com/staranto/dartrun/internal/cacheutil"
)

// Layout names. Changing any of these orphans existing caches, so bump
// LayoutVersion alongside.
const (
	LayoutVersion = "v1"
	PackagesDir   = "pkgs"
	ArtifactsDir  = "aot"
	LocksDir      = "locks"
	ManifestFile  = "pubspec.yaml"
	LockFile      = "pubspec.lock"
	EntryDir      = "bin"
	EntryFile     = "main.dart"
)

const defaultWorkers = 8

// ErrNoRoot is returned by New when no cache root is given.
var ErrNoRoot = errors.New("cache root is empty")

// Store is the single source of truth for the cache root.
type Store struct {
	root     string
	now      func() time.Time
	workers  int
	platform cachekey.Platform
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now for eviction decisions.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithWorkers bounds the number of entries evaluated concurrently by
// CleanOlderThan and Stats. Values < 1 force serial evaluation.
func WithWorkers(n int) Option {
	return func(s *Store) {
		if n < 1 {
			n = 1
		}
		s.workers = n
	}
}

// WithPlatform sets the platform whose executable naming convention
// ArtifactPath follows. Defaults to the host.
func WithPlatform(p cachekey.Platform) Option {
	return func(s *Store) {
		s.platform = p
	}
}

// New returns a Store rooted at root. Nothing is created on disk until an
// entry is materialized.
func New(root string, opts ...Option) (*Store, error) {
	if root == "" {
		return nil, ErrNoRoot
	}
	s := &Store{
		root:     filepath.Clean(root),
		now:      time.Now,
		workers:  defaultWorkers,
		platform: cachekey.Host(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Root returns the cache root directory.
func (s *Store) Root() string { return s.root }

// Platform returns the platform artifacts are named for.
func (s *Store) Platform() cachekey.Platform { return s.platform }

func (s *Store) versionDir() string {
	return filepath.Join(s.root, LayoutVersion)
}

func (s *Store) packagesDir() string {
	return filepath.Join(s.versionDir(), PackagesDir)
}

func (s *Store) artifactsDir() string {
	return filepath.Join(s.versionDir(), ArtifactsDir)
}

// PackageDir returns the directory of the package entry for key.
func (s *Store) PackageDir(key cachekey.Key) string {
	return filepath.Join(s.packagesDir(), key.String())
}

// ManifestPath returns the pubspec path of the package entry for key.
func (s *Store) ManifestPath(key cachekey.Key) string {
	return filepath.Join(s.PackageDir(key), ManifestFile)
}

// LockPath returns the resolver lock file path of the package entry for key.
func (s *Store) LockPath(key cachekey.Key) string {
	return filepath.Join(s.PackageDir(key), LockFile)
}

// EntryPointPath returns the wrapped entry point of the package entry for key.
func (s *Store) EntryPointPath(key cachekey.Key) string {
	return filepath.Join(s.PackageDir(key), EntryDir, EntryFile)
}

// ArtifactPath returns the compiled artifact path for key. Windows gets its
// native .exe suffix, everything else a generic .aot.
func (s *Store) ArtifactPath(key cachekey.Key) string {
	ext := ".aot"
	if s.platform.OS == "windows" {
		ext = ".exe"
	}
	return filepath.Join(s.artifactsDir(), key.String()+"_"+s.platform.ID()+ext)
}

// IsPackageValid reports whether a complete package entry exists for key: the
// directory, the lock file and the entry point. A partially materialized or
// unresolved entry is not valid.
func (s *Store) IsPackageValid(key cachekey.Key) bool {
	fi, err := os.Stat(s.PackageDir(key))
	if err != nil || !fi.IsDir() {
		return false
	}
	return isFile(s.LockPath(key)) && isFile(s.EntryPointPath(key))
}

// IsArtifactValid reports whether the compiled artifact for key exists. The
// file's content is not verified.
func (s *Store) IsArtifactValid(key cachekey.Key) bool {
	return isFile(s.ArtifactPath(key))
}

// CreatePackageSkeleton creates the package directory for key and its
// entry-point directory. Pieces left by an interrupted run are reused.
func (s *Store) CreatePackageSkeleton(key cachekey.Key) error {
	if err := cacheutil.EnsureDir(filepath.Join(s.PackageDir(key), EntryDir)); err != nil {
		return fmt.Errorf("failed to create package skeleton for %s: %w", key, err)
	}
	return nil
}

// EnsureArtifactsDir creates the directory compiled artifacts are written to.
func (s *Store) EnsureArtifactsDir() error {
	return cacheutil.EnsureDir(s.artifactsDir())
}

// Touch marks the package entry for key as used now, so age based eviction
// measures time since last use rather than since creation.
func (s *Store) Touch(key cachekey.Key) {
	now := s.now()
	if err := os.Chtimes(s.PackageDir(key), now, now); err != nil {
		log.WithError(err).Debugf("failed to touch %s", key)
	}
}

// TouchArtifact marks the compiled artifact for key as used now.
func (s *Store) TouchArtifact(key cachekey.Key) {
	now := s.now()
	if err := os.Chtimes(s.ArtifactPath(key), now, now); err != nil {
		log.WithError(err).Debugf("failed to touch artifact %s", key)
	}
}

// RemovePackage deletes the package entry for key. Missing is not an error.
func (s *Store) RemovePackage(key cachekey.Key) error {
	if err := os.RemoveAll(s.PackageDir(key)); err != nil {
		return fmt.Errorf("failed to remove package %s: %w", key, err)
	}
	return nil
}

// RemoveArtifact deletes the compiled artifact for key. Missing is not an
// error.
func (s *Store) RemoveArtifact(key cachekey.Key) error {
	if err := os.Remove(s.ArtifactPath(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove artifact %s: %w", key, err)
	}
	return nil
}

func isFile(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}
