// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"errors"
	"io"

	"github.com/staranto/dartrun/internal/toolchain"
)

// ExitError carries the process exit code out of a command action. Err may be
// nil when a script simply exited non-zero and has already said why.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode satisfies cli.ExitCoder.
func (e *ExitError) ExitCode() int { return e.Code }

// usageError is a configuration or usage failure.
func usageError(err error) error {
	return &ExitError{Code: 1, Err: err}
}

// failure maps a pipeline error to an exit. Compile and run failures exit
// with the tool's own code; everything else exits 1. A tool's captured
// stderr is replayed to w first.
func failure(err error, w io.Writer) error {
	var te *toolchain.ToolError
	if !errors.As(err, &te) {
		return &ExitError{Code: 1, Err: err}
	}

	if te.Stderr != "" && w != nil {
		_, _ = io.WriteString(w, te.Stderr)
	}

	code := 1
	if (te.Op == toolchain.OpCompile || te.Op == toolchain.OpRun) && te.ExitCode > 0 {
		code = te.ExitCode
	}
	return &ExitError{Code: code, Err: err}
}
