// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package runner

import (
	"context"
	"os"
	"time"

	"github.com/apex/log"

	"github.com/staranto/dartrun/internal/cachekey"
	"github.com/staranto/dartrun/internal/manifest"
	"github.com/staranto/dartrun/internal/toolchain"
)

// Inspection is what the cache knows about a script. Producing one has no
// side effects on the cache.
type Inspection struct {
	Script           string
	ManifestText     string
	Normalized       string
	ToolchainVersion string
	ScriptDigest     string

	PackageKey   cachekey.Key
	PackageDir   string
	PackageValid bool
	LastUsed     time.Time

	ArtifactKey   cachekey.Key
	ArtifactPath  string
	ArtifactValid bool

	// Packages is filled from the resolved package config when the package
	// entry is valid.
	Packages []toolchain.Package
}

// Inspect derives the keys for script and reports the state of its entries.
func (r *Runner) Inspect(ctx context.Context, script string) (Inspection, error) {
	p, err := r.prepare(ctx, script)
	if err != nil {
		return Inspection{}, err
	}

	akey, err := r.artifactKey(p)
	if err != nil {
		return Inspection{}, err
	}

	in := Inspection{
		Script:           p.path,
		ManifestText:     p.manifestText,
		Normalized:       manifest.Normalize(p.manifestText),
		ToolchainVersion: p.version,
		ScriptDigest:     cachekey.ScriptDigest(p.script),
		PackageKey:       p.key,
		PackageDir:       r.store.PackageDir(p.key),
		PackageValid:     r.store.IsPackageValid(p.key),
		ArtifactKey:      akey,
		ArtifactPath:     r.store.ArtifactPath(akey),
		ArtifactValid:    r.store.IsArtifactValid(akey),
	}

	if fi, err := os.Stat(in.PackageDir); err == nil {
		in.LastUsed = fi.ModTime()
	}

	if in.PackageValid {
		pkgs, err := toolchain.ResolvedPackages(in.PackageDir)
		if err != nil {
			log.WithError(err).Debug("no resolved package list")
		}
		in.Packages = pkgs
	}

	return in, nil
}
