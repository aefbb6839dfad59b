// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package toolchain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Op names the toolchain step a ToolError came from.
type Op string

const (
	OpVersion Op = "version"
	OpResolve Op = "resolve"
	OpUpgrade Op = "upgrade"
	OpCompile Op = "compile"
	OpRun     Op = "run"
)

// ErrNoVersion is returned when the toolchain answered but its version could
// not be found in the output.
var ErrNoVersion = errors.New("could not determine toolchain version")

// ToolError is a toolchain step that exited non-zero. Stderr is the step's
// captured diagnostic output.
type ToolError struct {
	Op       Op
	ExitCode int
	Stderr   string
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("%s failed with exit code %d", e.Op, e.ExitCode)
	if first := firstLine(e.Stderr); first != "" {
		msg += ": " + first
	}
	return msg
}

// Invocation describes one execution of a script, either from source through
// its resolved package or as a compiled artifact.
type Invocation struct {
	PackageDir string
	EntryPoint string
	Artifact   string // when set, executed directly
	Args       []string
	Stdin      io.Reader
	Stdout     io.Writer
	Stderr     io.Writer
}

// Toolchain is what the runner needs from the external language toolchain.
// Resolve, Upgrade and Compile return a *ToolError when the tool exits
// non-zero. Run returns the script's exit code; its error is reserved for a
// script that could not be started.
type Toolchain interface {
	Version(ctx context.Context) (string, error)
	Resolve(ctx context.Context, pkgDir string, offline bool) error
	Upgrade(ctx context.Context, pkgDir string, offline bool) error
	Compile(ctx context.Context, entry, out string) error
	Run(ctx context.Context, inv Invocation) (int, error)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
