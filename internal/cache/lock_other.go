// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

//go:build !(linux || darwin || freebsd || openbsd || netbsd || dragonfly)

package cache

import (
	"context"

	"github.com/staranto/dartrun/internal/cachekey"
)

// Lock is a no-op where flock is unavailable. Concurrent invocations against
// the same key may race to materialize it.
func (s *Store) Lock(ctx context.Context, key cachekey.Key) (Unlock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return func() {}, nil
}

func (s *Store) pruneLocks() []EntryError { return nil }
