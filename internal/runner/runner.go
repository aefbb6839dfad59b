// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/apex/log"

	"github.com/staranto/dartrun/internal/cache"
	"github.com/staranto/dartrun/internal/cachekey"
	"github.com/staranto/dartrun/internal/manifest"
	"github.com/staranto/dartrun/internal/materialize"
	"github.com/staranto/dartrun/internal/toolchain"
)

var (
	// ErrNoScript is returned when a request names no script.
	ErrNoScript = errors.New("no script given")
	// ErrScriptNotFound is returned when the script cannot be read.
	ErrScriptNotFound = errors.New("script not found")
	// ErrFrozen is returned when a frozen run would have to resolve or
	// compile.
	ErrFrozen = errors.New("no valid cache entry and --frozen forbids resolving")
	// ErrFrozenRefresh rejects a request that is both frozen and refreshing.
	ErrFrozenRefresh = errors.New("--frozen and --refresh cannot be combined")
	// ErrNoLockFile is returned when the resolver succeeded without leaving
	// a lock file behind.
	ErrNoLockFile = errors.New("resolver did not write a lock file")
)

// Request is one invocation of a script. It is not persisted.
type Request struct {
	Script  string
	Args    []string
	Offline bool
	Refresh bool
	AOT     bool
	Frozen  bool
}

// Result describes what a run did. Stdout and Stderr hold a copy of what the
// script wrote while it was streamed.
type Result struct {
	PackageKey  cachekey.Key
	ArtifactKey cachekey.Key
	CacheHit    bool
	Resolved    bool
	Compiled    bool
	ExitCode    int
	Stdout      []byte
	Stderr      []byte
}

// Runner ties the header parser, the cache and the toolchain together.
type Runner struct {
	store  *cache.Store
	mat    *materialize.Materializer
	tc     toolchain.Toolchain
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// Option configures a Runner.
type Option func(*Runner)

// WithStdio sets the streams the script is connected to. Defaults to the
// process's own.
func WithStdio(in io.Reader, out, errOut io.Writer) Option {
	return func(r *Runner) {
		r.stdin = in
		r.stdout = out
		r.stderr = errOut
	}
}

// New returns a Runner. All three collaborators are required.
func New(store *cache.Store, mat *materialize.Materializer, tc toolchain.Toolchain, opts ...Option) (*Runner, error) {
	if store == nil || mat == nil || tc == nil {
		return nil, errors.New("runner needs a store, a materializer and a toolchain")
	}
	r := &Runner{
		store:  store,
		mat:    mat,
		tc:     tc,
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// prepared is a script read and keyed, ready to be materialized.
type prepared struct {
	path         string
	script       []byte
	manifestText string
	version      string
	key          cachekey.Key
}

// Run executes req. A script that ran to completion returns a nil error
// whatever its exit code; Result.ExitCode carries it.
func (r *Runner) Run(ctx context.Context, req Request) (Result, error) {
	if req.Frozen && req.Refresh {
		return Result{}, ErrFrozenRefresh
	}

	p, err := r.prepare(ctx, req.Script)
	if err != nil {
		return Result{}, err
	}

	res, inv, err := r.ensure(ctx, req, p)
	if err != nil {
		return res, err
	}

	var stdout, stderr bytes.Buffer
	inv.Args = req.Args
	inv.Stdin = r.stdin
	inv.Stdout = io.MultiWriter(r.stdout, &stdout)
	inv.Stderr = io.MultiWriter(r.stderr, &stderr)

	code, err := r.tc.Run(ctx, inv)
	res.ExitCode = code
	res.Stdout = stdout.Bytes()
	res.Stderr = stderr.Bytes()
	if err != nil {
		return res, err
	}

	log.WithField("exit", code).Debug("script finished")
	return res, nil
}

// ensure brings the package entry, and the artifact when asked for, into a
// valid state under the key's lock. The lock is released before the script
// runs so concurrent runs of one script do not serialize.
func (r *Runner) ensure(ctx context.Context, req Request, p prepared) (Result, toolchain.Invocation, error) {
	res := Result{PackageKey: p.key}
	inv := toolchain.Invocation{
		PackageDir: r.store.PackageDir(p.key),
		EntryPoint: r.store.EntryPointPath(p.key),
	}

	unlock, err := r.store.Lock(ctx, p.key)
	if err != nil {
		return res, inv, err
	}
	defer unlock()

	ctxLog := log.WithField("key", short(p.key))

	switch {
	case !req.Refresh && r.store.IsPackageValid(p.key):
		ctxLog.Info("cache hit")
		res.CacheHit = true
		r.store.Touch(p.key)
	case req.Frozen:
		return res, inv, ErrFrozen
	default:
		ctxLog.WithField("refresh", req.Refresh).Info("cache miss, resolving")
		if err := r.resolve(ctx, req, p); err != nil {
			return res, inv, err
		}
		res.Resolved = true
	}

	akey, err := r.artifactKey(p)
	if err != nil {
		return res, inv, err
	}

	if !req.AOT {
		// The artifact was linked against the versions just replaced.
		if req.Refresh {
			if err := r.store.RemoveArtifact(akey); err != nil {
				ctxLog.WithError(err).Warn("could not remove stale artifact")
			}
		}
		return res, inv, nil
	}

	res.ArtifactKey = akey
	inv.Artifact = r.store.ArtifactPath(akey)

	if !req.Refresh && r.store.IsArtifactValid(akey) {
		ctxLog.WithField("artifact", short(akey)).Info("artifact cache hit")
		r.store.TouchArtifact(akey)
		return res, inv, nil
	}
	if req.Frozen {
		return res, inv, ErrFrozen
	}

	ctxLog.WithField("artifact", short(akey)).Info("compiling")
	if err := r.compile(ctx, p.key, akey); err != nil {
		return res, inv, err
	}
	res.Compiled = true
	return res, inv, nil
}

func (r *Runner) resolve(ctx context.Context, req Request, p prepared) error {
	if err := r.mat.Materialize(p.key, p.manifestText, p.script); err != nil {
		return err
	}

	pkgDir := r.store.PackageDir(p.key)
	var err error
	if req.Refresh {
		err = r.tc.Upgrade(ctx, pkgDir, req.Offline)
	} else {
		err = r.tc.Resolve(ctx, pkgDir, req.Offline)
	}
	if err == nil && !r.store.IsPackageValid(p.key) {
		err = fmt.Errorf("%w in %s", ErrNoLockFile, pkgDir)
	}
	if err != nil && !req.Refresh {
		// A first resolve that failed leaves nothing behind. A failed refresh
		// keeps the previous lock file.
		if rmErr := r.store.RemovePackage(p.key); rmErr != nil {
			log.WithError(rmErr).Warn("could not remove failed package entry")
		}
	}
	return err
}

// artifactKey is the package key with the host platform mixed in.
func (r *Runner) artifactKey(p prepared) (cachekey.Key, error) {
	platform := r.store.Platform()
	return cachekey.Derive(cachekey.Inputs{
		ManifestText:     p.manifestText,
		ToolchainVersion: p.version,
		Script:           p.script,
		Platform:         &platform,
	})
}

// compile builds the artifact next to its final path and moves it into place,
// so an interrupted compile never leaves something that reads as valid.
func (r *Runner) compile(ctx context.Context, pkey, akey cachekey.Key) error {
	if err := r.store.EnsureArtifactsDir(); err != nil {
		return err
	}

	final := r.store.ArtifactPath(akey)
	tmp := filepath.Join(filepath.Dir(final), ".tmp-"+filepath.Base(final))
	if err := r.tc.Compile(ctx, r.store.EntryPointPath(pkey), tmp); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to move artifact into place: %w", err)
	}
	return nil
}

// prepare reads the script, derives its manifest and asks the toolchain for
// its version. Nothing is written.
func (r *Runner) prepare(ctx context.Context, script string) (prepared, error) {
	src, m, err := readScript(script)
	if err != nil {
		return prepared{}, err
	}

	text, err := m.Text()
	if err != nil {
		return prepared{}, err
	}

	version, err := r.tc.Version(ctx)
	if err != nil {
		return prepared{}, fmt.Errorf("failed to query toolchain version: %w", err)
	}

	key, err := cachekey.Derive(cachekey.Inputs{
		ManifestText:     text,
		ToolchainVersion: version,
		Script:           src,
	})
	if err != nil {
		return prepared{}, err
	}

	log.WithField("version", version).WithField("key", short(key)).Debug("derived package key")
	return prepared{path: script, script: src, manifestText: text, version: version, key: key}, nil
}

// ManifestText returns the pubspec a script's header yields, as it would be
// materialized.
func ManifestText(script string) (string, error) {
	_, m, err := readScript(script)
	if err != nil {
		return "", err
	}
	return m.Text()
}

func readScript(script string) ([]byte, manifest.Manifest, error) {
	if script == "" {
		return nil, manifest.Manifest{}, ErrNoScript
	}

	src, err := os.ReadFile(script)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, manifest.Manifest{}, fmt.Errorf("%w: %s", ErrScriptNotFound, script)
		}
		return nil, manifest.Manifest{}, fmt.Errorf("failed to read script: %w", err)
	}

	m, err := manifest.ParseHeader(src)
	if err != nil {
		return nil, manifest.Manifest{}, fmt.Errorf("%s: %w", script, err)
	}
	return src, m, nil
}

func short(k cachekey.Key) string {
	const n = 12
	if len(k) < n {
		return k.String()
	}
	return k.String()[:n]
}
