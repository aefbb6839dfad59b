// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

//go:build linux || darwin || freebsd || openbsd || netbsd || dragonfly

package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/apex/log"
	"golang.org/x/sys/unix"

	"github.com/staranto/dartrun/internal/cachekey"
)

const lockPollInterval = 100 * time.Millisecond

// Lock takes an exclusive advisory lock on key so that two invocations do not
// materialize the same package at once. It blocks until the lock is free or
// ctx is done. The kernel drops the lock if the process dies, so an orphaned
// lock file is harmless.
func (s *Store) Lock(ctx context.Context, key cachekey.Key) (Unlock, error) {
	path := s.lockPath(key)
	waiting := false
	for {
		f, err := tryLock(path)
		if err != nil {
			return nil, err
		}
		if f != nil {
			return func() {
				if err := unix.Flock(int(f.Fd()), unix.LOCK_UN); err != nil {
					log.WithError(err).Debug("flock unlock failed")
				}
				if err := f.Close(); err != nil {
					log.WithError(err).Debug("lock file close failed")
				}
			}, nil
		}

		if !waiting {
			log.Infof("waiting for another dartrun to finish with %s", key)
			waiting = true
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockPollInterval):
		}
	}
}

// tryLock opens and flocks path without blocking. A nil file and nil error
// means the lock is held elsewhere, or the file was pruned between open and
// flock and has to be reopened.
func tryLock(path string) (*os.File, error) {
	if err := ensureParent(path); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600) //nolint:mnd
	if err != nil {
		return nil, fmt.Errorf("open lock file %s: %w", path, err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, nil
		}
		return nil, fmt.Errorf("flock %s: %w", path, err)
	}

	// The lock only counts if path still names the file we locked.
	held, herr := f.Stat()
	cur, cerr := os.Stat(path)
	if herr != nil || cerr != nil || !os.SameFile(held, cur) {
		_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
		f.Close()
		return nil, nil
	}
	return f, nil
}

// pruneLocks removes lock files whose package entry is gone. A lock that is
// held is left alone.
func (s *Store) pruneLocks() []EntryError {
	dir := filepath.Join(s.versionDir(), LocksDir)
	des, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return []EntryError{{Path: dir, Err: err}}
	}

	var failures []EntryError
	for _, de := range des {
		name, ok := strings.CutSuffix(de.Name(), ".lock")
		if !ok {
			continue
		}
		if _, err := os.Stat(s.PackageDir(cachekey.Key(name))); err == nil {
			continue
		}

		path := filepath.Join(dir, de.Name())
		f, err := os.OpenFile(path, os.O_RDWR, 0)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				failures = append(failures, EntryError{Path: path, Err: err})
			}
			continue
		}
		if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
			f.Close()
			continue
		}
		if err := os.Remove(path); err != nil {
			failures = append(failures, EntryError{Path: path, Err: err})
		} else {
			log.Debugf("removed lock %s", path)
		}
		_ = unix.Flock(int(f.Fd()), unix.LOCK_UN)
		f.Close()
	}
	return failures
}
