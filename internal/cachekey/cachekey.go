// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package cachekey

import (
	_ "crypto/sha256"
	"errors"
	"runtime"
	"strings"

	"github.com/opencontainers/go-digest"

	"github.com/staranto/dartrun/internal/manifest"
)

// Len is the length of a key: hex of a 256 bit digest.
const Len = 64

// separator joins the labeled components. It cannot appear in any of them:
// manifest text and version strings are printable, the script is reduced to
// its hex digest.
const separator = "\x00"

// ErrNoToolchainVersion is returned when key derivation is attempted without
// a toolchain version.
var ErrNoToolchainVersion = errors.New("toolchain version is required to derive a cache key")

// Key identifies a cached package or compiled artifact.
type Key string

// String implements fmt.Stringer.
func (k Key) String() string { return string(k) }

// Valid reports whether k looks like a derived key: Len lowercase hex
// characters.
func (k Key) Valid() bool {
	if len(k) != Len {
		return false
	}
	for _, c := range k {
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return false
		}
	}
	return true
}

// Platform identifies the os and architecture compiled artifacts are built
// for.
type Platform struct {
	OS   string
	Arch string
}

// Host returns the platform of the running process.
func Host() Platform {
	return Platform{OS: runtime.GOOS, Arch: runtime.GOARCH}
}

// ID renders the platform as <os>_<arch>.
func (p Platform) ID() string {
	return p.OS + "_" + p.Arch
}

// Inputs are the values a key is derived from. Platform is nil for source
// package keys and set for compiled artifact keys.
type Inputs struct {
	ManifestText     string
	ToolchainVersion string
	Script           []byte
	Platform         *Platform
}

// Derive computes the key for in. The script is digested on its own first so
// the joined string stays small however large the script is.
func Derive(in Inputs) (Key, error) {
	if strings.TrimSpace(in.ToolchainVersion) == "" {
		return "", ErrNoToolchainVersion
	}

	components := []string{
		"manifest:" + manifest.Normalize(in.ManifestText),
		"toolchain:" + in.ToolchainVersion,
		"script:" + ScriptDigest(in.Script),
	}
	if in.Platform != nil {
		components = append(components, "platform:"+in.Platform.ID())
	}

	return Key(digest.SHA256.FromString(strings.Join(components, separator)).Encoded()), nil
}

// ScriptDigest returns the hex SHA-256 of the script content.
func ScriptDigest(script []byte) string {
	return digest.SHA256.FromBytes(script).Encoded()
}
