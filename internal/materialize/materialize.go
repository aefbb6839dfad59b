// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package materialize

import (
	"errors"
	"fmt"
	"os"

	"github.com/apex/log"

	"github.com/staranto/dartrun/internal/cache"
	"github.com/staranto/dartrun/internal/cachekey"
	"github.com/staranto/dartrun/internal/cacheutil"
)

// ErrNilStore is returned by New when no Store is given.
var ErrNilStore = errors.New("materializer needs a cache store")

// Materializer writes the files of an ephemeral package. It only ever writes
// to paths handed out by its Store.
type Materializer struct {
	store *cache.Store
}

// New returns a Materializer writing into store.
func New(store *cache.Store) (*Materializer, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	return &Materializer{store: store}, nil
}

// WriteManifest writes text verbatim as the package's pubspec.
func (m *Materializer) WriteManifest(key cachekey.Key, text string) error {
	if err := cacheutil.WriteFileAtomic(m.store.ManifestPath(key), []byte(text), 0o644); err != nil { //nolint:mnd
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// CopyEntryPoint reads the script at scriptPath and writes its wrapped form as
// the package's entry point.
func (m *Materializer) CopyEntryPoint(key cachekey.Key, scriptPath string) error {
	src, err := os.ReadFile(scriptPath)
	if err != nil {
		return fmt.Errorf("failed to read script: %w", err)
	}
	return m.WriteEntryPoint(key, src)
}

// WriteEntryPoint is CopyEntryPoint for a script already in memory.
func (m *Materializer) WriteEntryPoint(key cachekey.Key, src []byte) error {
	wrapped, ok := WrapEntryPoint(string(src))
	if !ok {
		log.Debug("no wrappable main found, entry point copied unchanged")
	}
	if err := cacheutil.WriteFileAtomic(m.store.EntryPointPath(key), []byte(wrapped), 0o644); err != nil { //nolint:mnd
		return fmt.Errorf("failed to write entry point: %w", err)
	}
	return nil
}

// Materialize creates the package skeleton for key and writes both the
// manifest and the wrapped entry point.
func (m *Materializer) Materialize(key cachekey.Key, manifestText string, script []byte) error {
	if err := m.store.CreatePackageSkeleton(key); err != nil {
		return err
	}
	if err := m.WriteManifest(key, manifestText); err != nil {
		return err
	}
	return m.WriteEntryPoint(key, script)
}
