// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cache

import (
	"path/filepath"

	"github.com/staranto/dartrun/internal/cachekey"
	"github.com/staranto/dartrun/internal/cacheutil"
)

// Unlock releases a lock taken with Store.Lock.
type Unlock func()

func (s *Store) lockPath(key cachekey.Key) string {
	return filepath.Join(s.versionDir(), LocksDir, key.String()+".lock")
}

func ensureParent(path string) error {
	return cacheutil.EnsureDir(filepath.Dir(path))
}
