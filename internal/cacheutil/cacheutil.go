// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cacheutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/apex/log"
)

// DefaultDirName is the hidden directory under the user's home that holds the
// cache when nothing else is configured.
const DefaultDirName = ".dartrun"

// ErrNoHome is returned when no cache root is configured and the home
// directory cannot be determined.
var ErrNoHome = errors.New("cannot determine cache root: home directory unknown")

// Dir resolves the cache root directory.
// Precedence:
//  1. flagValue, if non-empty (--cache-dir)
//  2. DARTRUN_CACHE_DIR, if set and non-empty
//  3. cfgValue, if non-empty (cache_dir in dartrun.yaml)
//  4. <home>/.dartrun
func Dir(flagValue, cfgValue string) (string, error) {
	if flagValue != "" {
		return filepath.Abs(flagValue)
	}
	if c, ok := os.LookupEnv("DARTRUN_CACHE_DIR"); ok && c != "" {
		return filepath.Abs(c)
	}
	if cfgValue != "" {
		return filepath.Abs(cfgValue)
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "", ErrNoHome
	}
	return filepath.Join(home, DefaultDirName), nil
}

// EnsureDir creates dir and any missing parents.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil { //nolint:mnd
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	return nil
}

// WriteFileAtomic writes data to path by way of a temp file in the same
// directory and a rename, so readers never see a half-written file.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := EnsureDir(dir); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}

	log.Debugf("wrote %s (%d bytes)", path, len(data))
	return nil
}
