// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package toolchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"syscall"

	"github.com/apex/log"
)

// DefaultExecutable is looked up on PATH when nothing else is configured.
const DefaultExecutable = "dart"

// Separator is placed ahead of the script's own arguments.
const Separator = "--"

var versionPattern = regexp.MustCompile(`Dart SDK version:\s*(\S+)`)

// Executable resolves the dart executable to use.
// Precedence:
//  1. DARTRUN_DART, if set and non-empty
//  2. cfgValue, if non-empty (dart in dartrun.yaml)
//  3. dart on PATH
func Executable(cfgValue string) string {
	if e, ok := os.LookupEnv("DARTRUN_DART"); ok && e != "" {
		return e
	}
	if cfgValue != "" {
		return cfgValue
	}
	return DefaultExecutable
}

// Dart drives the dart command line tool.
type Dart struct {
	exe string
	env []string
}

// NewDart returns a Dart running exe. An empty exe means DefaultExecutable.
func NewDart(exe string, env ...string) *Dart {
	if exe == "" {
		exe = DefaultExecutable
	}
	return &Dart{exe: exe, env: env}
}

// Executable returns the command this Dart runs.
func (d *Dart) Executable() string { return d.exe }

// Version returns the SDK version reported by `dart --version`.
func (d *Dart) Version(ctx context.Context) (string, error) {
	out, err := d.capture(ctx, OpVersion, "", "--version")
	if err != nil {
		return "", err
	}
	return ParseVersion(out)
}

// ParseVersion extracts the version from `dart --version` output. Older SDKs
// print it on stderr, so callers pass both streams.
func ParseVersion(out string) (string, error) {
	m := versionPattern.FindStringSubmatch(out)
	if m == nil {
		return "", fmt.Errorf("%w from %q", ErrNoVersion, firstLine(out))
	}
	return m[1], nil
}

// Resolve fetches the package's dependencies with `dart pub get`.
func (d *Dart) Resolve(ctx context.Context, pkgDir string, offline bool) error {
	args := []string{"pub", "get"}
	if offline {
		args = append(args, "--offline")
	}
	_, err := d.capture(ctx, OpResolve, pkgDir, args...)
	return err
}

// Upgrade re-resolves the package to the newest allowed versions with
// `dart pub upgrade`.
func (d *Dart) Upgrade(ctx context.Context, pkgDir string, offline bool) error {
	args := []string{"pub", "upgrade"}
	if offline {
		args = append(args, "--offline")
	}
	_, err := d.capture(ctx, OpUpgrade, pkgDir, args...)
	return err
}

// Compile builds a native executable of entry at out.
func (d *Dart) Compile(ctx context.Context, entry, out string) error {
	_, err := d.capture(ctx, OpCompile, filepath.Dir(entry), "compile", "exe", entry, "-o", out)
	return err
}

// Run executes the script, streaming its output to inv's writers.
func (d *Dart) Run(ctx context.Context, inv Invocation) (int, error) {
	var cmd *exec.Cmd
	if inv.Artifact != "" {
		cmd = exec.CommandContext(ctx, inv.Artifact, scriptArgs(inv.Args)...)
	} else {
		packages := "--packages=" + PackageConfigPath(inv.PackageDir)
		args := append([]string{packages, inv.EntryPoint}, scriptArgs(inv.Args)...)
		cmd = d.command(ctx, args...)
	}
	cmd.Stdin = inv.Stdin
	cmd.Stdout = inv.Stdout
	cmd.Stderr = inv.Stderr
	if len(d.env) > 0 {
		cmd.Env = append(os.Environ(), d.env...)
	}

	log.Debugf("exec: %s", strings.Join(cmd.Args, " "))
	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitStatus(exitErr), nil
	}
	return -1, fmt.Errorf("failed to start script: %w", err)
}

// exitStatus is the process's exit code, or 128 plus the signal number for a
// process killed by a signal, as shells report it.
func exitStatus(exitErr *exec.ExitError) int {
	if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	if code := exitErr.ExitCode(); code >= 0 {
		return code
	}
	return 1
}

func scriptArgs(args []string) []string {
	return append([]string{Separator}, args...)
}

func (d *Dart) command(ctx context.Context, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, d.exe, args...)
	if len(d.env) > 0 {
		cmd.Env = append(os.Environ(), d.env...)
	}
	return cmd
}

// capture runs a toolchain step to completion with both streams buffered. The
// returned string is stdout followed by stderr.
func (d *Dart) capture(ctx context.Context, op Op, dir string, args ...string) (string, error) {
	cmd := d.command(ctx, args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Debugf("exec: %s %s", d.exe, strings.Join(args, " "))
	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", &ToolError{Op: op, ExitCode: exitStatus(exitErr), Stderr: stderr.String()}
		}
		return "", fmt.Errorf("failed to run %s: %w", d.exe, err)
	}
	log.WithField("op", string(op)).Debugf("%d bytes stdout, %d bytes stderr", stdout.Len(), stderr.Len())
	return stdout.String() + stderr.String(), nil
}
