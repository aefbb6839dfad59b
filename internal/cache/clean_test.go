// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package cache

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/staranto/dartrun/internal/cachekey"
)

func keyOf(c string) cachekey.Key {
	return cachekey.Key(strings.Repeat(c, cachekey.Len))
}

func setMtime(t *testing.T, path string, when time.Time) {
	t.Helper()
	require.NoError(t, os.Chtimes(path, when, when))
}

func writeArtifact(t *testing.T, s *Store, key cachekey.Key, size int) {
	t.Helper()
	require.NoError(t, s.EnsureArtifactsDir())
	require.NoError(t, os.WriteFile(s.ArtifactPath(key), make([]byte, size), 0o755))
}

func TestCleanOlderThan_Boundary(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	cutoff := now.Add(-7 * Day)
	s := newTestStore(t, WithClock(func() time.Time { return now }))

	atCutoff, before, fresh := keyOf("1"), keyOf("2"), keyOf("3")
	for _, k := range []cachekey.Key{atCutoff, before, fresh} {
		materialize(t, s, k)
	}
	setMtime(t, s.PackageDir(atCutoff), cutoff)
	setMtime(t, s.PackageDir(before), cutoff.Add(-time.Second))
	setMtime(t, s.PackageDir(fresh), now)

	report, err := s.CleanOlderThan(context.Background(), 7)
	require.NoError(t, err)
	assert.NoError(t, report.Err())

	assert.True(t, s.IsPackageValid(atCutoff), "entry exactly at the cutoff is kept")
	assert.False(t, s.IsPackageValid(before), "entry strictly before the cutoff is evicted")
	assert.True(t, s.IsPackageValid(fresh))

	require.Len(t, report.Removed, 1)
	assert.Equal(t, before.String(), report.Removed[0].Key())
	assert.Equal(t, 2, report.Kept)
	assert.Positive(t, report.FreedBytes)
}

func TestCleanOlderThan_ScansArtifactsToo(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	s := newTestStore(t,
		WithClock(func() time.Time { return now }),
		WithPlatform(cachekey.Platform{OS: "linux", Arch: "amd64"}))

	oldArt, newArt := keyOf("a"), keyOf("b")
	writeArtifact(t, s, oldArt, 10)
	writeArtifact(t, s, newArt, 10)
	setMtime(t, s.ArtifactPath(oldArt), now.Add(-31*Day))
	setMtime(t, s.ArtifactPath(newArt), now.Add(-29*Day))

	report, err := s.CleanOlderThan(context.Background(), 30)
	require.NoError(t, err)

	assert.False(t, s.IsArtifactValid(oldArt))
	assert.True(t, s.IsArtifactValid(newArt))
	require.Len(t, report.Removed, 1)
	assert.Equal(t, KindArtifact, report.Removed[0].Kind)
	assert.Equal(t, oldArt.String(), report.Removed[0].Key())
	assert.Equal(t, int64(10), report.FreedBytes)
}

func TestCleanOlderThan_ZeroDaysRemovesEverythingOlderThanNow(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	s := newTestStore(t, WithClock(func() time.Time { return now }), WithWorkers(1))

	materialize(t, s, keyOf("4"))
	setMtime(t, s.PackageDir(keyOf("4")), now.Add(-time.Minute))

	report, err := s.CleanOlderThan(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, report.Removed, 1)
}

func TestCleanOlderThan_ManyEntriesInParallel(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	s := newTestStore(t, WithClock(func() time.Time { return now }), WithWorkers(4))

	hex := "0123456789abcdef"
	for i := 0; i < len(hex); i++ {
		k := keyOf(hex[i : i+1])
		materialize(t, s, k)
		age := 1 * Day
		if i%2 == 0 {
			age = 10 * Day
		}
		setMtime(t, s.PackageDir(k), now.Add(-age))
	}

	report, err := s.CleanOlderThan(context.Background(), 5)
	require.NoError(t, err)
	assert.Len(t, report.Removed, 8)
	assert.Equal(t, 8, report.Kept)
}

func TestCleanOlderThan_EmptyOrMissingCache(t *testing.T) {
	s := newTestStore(t)

	report, err := s.CleanOlderThan(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, report.Removed)
	assert.Empty(t, report.Failures)
}

func TestCleanOlderThan_Negative(t *testing.T) {
	s := newTestStore(t)
	_, err := s.CleanOlderThan(context.Background(), -1)
	assert.Error(t, err)
}

func TestCleanOlderThan_IgnoresTempFiles(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	s := newTestStore(t, WithClock(func() time.Time { return now }))
	require.NoError(t, s.EnsureArtifactsDir())

	tmp := filepath.Join(s.artifactsDir(), ".tmp-inflight")
	require.NoError(t, os.WriteFile(tmp, []byte("x"), 0o644))
	setMtime(t, tmp, now.Add(-100*Day))

	_, err := s.CleanOlderThan(context.Background(), 1)
	require.NoError(t, err)
	_, err = os.Stat(tmp)
	assert.NoError(t, err, "in-flight temp files belong to a running compile")
}

func TestCleanOlderThan_ContinuesPastFailures(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}

	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	s := newTestStore(t, WithClock(func() time.Time { return now }))

	stuck, loose := keyOf("5"), keyOf("6")
	materialize(t, s, stuck)
	materialize(t, s, loose)

	// Contents of a read-only directory cannot be removed.
	bin := filepath.Join(s.PackageDir(stuck), EntryDir)
	require.NoError(t, os.Chmod(bin, 0o555))
	t.Cleanup(func() { _ = os.Chmod(bin, 0o755) })

	setMtime(t, s.PackageDir(stuck), now.Add(-10*Day))
	setMtime(t, s.PackageDir(loose), now.Add(-10*Day))

	report, err := s.CleanOlderThan(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, report.Failures, 1)
	assert.Error(t, report.Err())
	assert.False(t, s.IsPackageValid(loose), "the sweep carried on past the failure")
}

func TestCleanAll(t *testing.T) {
	s := newTestStore(t)
	materialize(t, s, testKey)
	writeArtifact(t, s, testKey, 4)

	require.NoError(t, s.CleanAll())
	_, err := os.Stat(s.Root())
	assert.True(t, os.IsNotExist(err))
}

func TestCleanAll_MissingRoot(t *testing.T) {
	s := newTestStore(t)
	_, err := os.Stat(s.Root())
	require.True(t, os.IsNotExist(err))

	assert.NoError(t, s.CleanAll())
	assert.NoError(t, s.CleanAll())
}
