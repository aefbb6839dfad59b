// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package toolchain

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDart stands in for the SDK. It answers --version on stderr like older
// SDKs do, fakes pub get, and echoes its arguments when running a script.
const fakeDart = `#!/bin/sh
case "$1" in
--version)
  echo "Dart SDK version: 3.5.1 (stable) (Tue Aug 13 2024) on \"linux_x64\"" >&2
  exit 0
  ;;
pub)
  if [ "$FAKE_MODE" = "fail" ]; then
    echo "Because script depends on nope any which doesn't exist" >&2
    echo "second line" >&2
    exit 65
  fi
  mkdir -p .dart_tool
  echo '{"packages":[]}' > .dart_tool/package_config.json
  echo "packages: {}" > pubspec.lock
  echo "$2 $3"
  exit 0
  ;;
*)
  echo "$@"
  exit 3
  ;;
esac
`

func installFakeDart(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake toolchain is a shell script")
	}
	exe := filepath.Join(t.TempDir(), "dart")
	require.NoError(t, os.WriteFile(exe, []byte(fakeDart), 0o755))
	return exe
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		name    string
		out     string
		want    string
		wantErr bool
	}{
		{"stable", "Dart SDK version: 3.5.1 (stable) (Tue Aug 13 2024) on \"linux_x64\"", "3.5.1", false},
		{"dev", "Dart SDK version: 3.6.0-123.0.dev (dev)", "3.6.0-123.0.dev", false},
		{"leading noise", "warning: something\nDart SDK version: 2.19.6 (stable)\n", "2.19.6", false},
		{"garbage", "command not understood", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseVersion(tt.out)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNoVersion)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExecutable(t *testing.T) {
	t.Setenv("DARTRUN_DART", "")
	assert.Equal(t, "dart", Executable(""))
	assert.Equal(t, "/opt/dart/bin/dart", Executable("/opt/dart/bin/dart"))

	t.Setenv("DARTRUN_DART", "/env/dart")
	assert.Equal(t, "/env/dart", Executable("/opt/dart/bin/dart"))
}

func TestToolError(t *testing.T) {
	err := &ToolError{Op: OpCompile, ExitCode: 254, Stderr: "\nError: bad thing\nmore detail\n"}
	assert.Equal(t, "compile failed with exit code 254: Error: bad thing", err.Error())

	bare := &ToolError{Op: OpResolve, ExitCode: 1}
	assert.Equal(t, "resolve failed with exit code 1", bare.Error())
}

func TestDart_Version(t *testing.T) {
	d := NewDart(installFakeDart(t))
	v, err := d.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "3.5.1", v)
}

func TestDart_Version_MissingExecutable(t *testing.T) {
	d := NewDart(filepath.Join(t.TempDir(), "no-such-dart"))
	_, err := d.Version(context.Background())
	require.Error(t, err)

	var te *ToolError
	assert.False(t, errors.As(err, &te), "a missing executable is not a tool exit")
}

func TestDart_Resolve(t *testing.T) {
	d := NewDart(installFakeDart(t))
	pkg := t.TempDir()

	require.NoError(t, d.Resolve(context.Background(), pkg, true))
	assert.FileExists(t, filepath.Join(pkg, "pubspec.lock"))
	assert.FileExists(t, PackageConfigPath(pkg))
}

func TestDart_Resolve_Failure(t *testing.T) {
	d := NewDart(installFakeDart(t), "FAKE_MODE=fail")

	err := d.Resolve(context.Background(), t.TempDir(), false)
	var te *ToolError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, OpResolve, te.Op)
	assert.Equal(t, 65, te.ExitCode)
	assert.Contains(t, te.Stderr, "doesn't exist")
	assert.Contains(t, te.Stderr, "second line")
}

func TestDart_Run_FromSource(t *testing.T) {
	d := NewDart(installFakeDart(t))
	var stdout, stderr bytes.Buffer

	code, err := d.Run(context.Background(), Invocation{
		PackageDir: "/pkg",
		EntryPoint: "/pkg/bin/main.dart",
		Args:       []string{"a", "b c"},
		Stdout:     &stdout,
		Stderr:     &stderr,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, code, "the script's exit code is a result, not an error")
	assert.Equal(t,
		"--packages="+filepath.Join("/pkg", ".dart_tool", "package_config.json")+" /pkg/bin/main.dart -- a b c\n",
		stdout.String())
}

func TestDart_Run_Artifact(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("artifact stand-in is a shell script")
	}
	artifact := filepath.Join(t.TempDir(), "script.aot")
	require.NoError(t, os.WriteFile(artifact, []byte("#!/bin/sh\necho \"$@\"\nexit 7\n"), 0o755))

	var stdout bytes.Buffer
	code, err := NewDart("unused").Run(context.Background(), Invocation{
		Artifact: artifact,
		Args:     []string{"x"},
		Stdout:   &stdout,
	})
	require.NoError(t, err)
	assert.Equal(t, 7, code)
	assert.Equal(t, "-- x\n", stdout.String())
}

func TestDart_Run_KilledBySignal(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("artifact stand-in is a shell script")
	}
	artifact := filepath.Join(t.TempDir(), "script.aot")
	require.NoError(t, os.WriteFile(artifact, []byte("#!/bin/sh\nkill -TERM $$\n"), 0o755))

	code, err := NewDart("unused").Run(context.Background(), Invocation{Artifact: artifact})
	require.NoError(t, err)
	assert.Equal(t, 128+int(syscall.SIGTERM), code)
}
