// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package meta

import (
	"context"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/staranto/dartrun/internal/config"
	"github.com/staranto/dartrun/internal/toolchain"
)

// Meta are the meta-options that are available on all or most commands.
type Meta struct {
	Args        []string
	Config      config.Type
	Context     context.Context
	StartingDir string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Toolchain replaces the dart executable. Nil means the real one.
	Toolchain toolchain.Toolchain
}

// WithDefaults fills unset streams with the process's own.
func (m Meta) WithDefaults() Meta {
	if m.Context == nil {
		m.Context = context.Background()
	}
	if m.Stdin == nil {
		m.Stdin = os.Stdin
	}
	if m.Stdout == nil {
		m.Stdout = os.Stdout
	}
	if m.Stderr == nil {
		m.Stderr = os.Stderr
	}
	return m
}

// From returns the Meta a command builder stored on cmd or one of its
// ancestors.
func From(cmd *cli.Command) Meta {
	for _, c := range cmd.Lineage() {
		if m, ok := c.Metadata["meta"].(Meta); ok {
			return m
		}
	}
	return Meta{}.WithDefaults()
}
