// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/dartrun/internal/cache"
	"github.com/staranto/dartrun/internal/cacheutil"
	mylog "github.com/staranto/dartrun/internal/log"
	"github.com/staranto/dartrun/internal/materialize"
	"github.com/staranto/dartrun/internal/meta"
	"github.com/staranto/dartrun/internal/output"
	"github.com/staranto/dartrun/internal/runner"
	"github.com/staranto/dartrun/internal/toolchain"
)

// defaultWorkers bounds the goroutines used to walk the cache.
const defaultWorkers = 8

// GetMeta returns the meta.Meta stored in the command's Metadata, or in the
// nearest ancestor that has one.
func GetMeta(cmd *cli.Command) meta.Meta {
	if cmd == nil {
		return meta.Meta{}.WithDefaults()
	}
	return meta.From(cmd)
}

// setup is the common preamble of every action. It sizes the logger from
// the -v count and returns the command's meta.
func setup(cmd *cli.Command) meta.Meta {
	mylog.InitLogger(mylog.Verbosity(cmd.Count("verbose")))
	m := GetMeta(cmd)
	log.Debugf("Executing action for %v", m.Args)
	return m
}

// NewStore opens the cache named by --cache-dir, DARTRUN_CACHE_DIR or the
// config file, in that order.
func NewStore(cmd *cli.Command, m meta.Meta) (*cache.Store, error) {
	cfgDir, _ := m.Config.GetString("cache_dir", "")
	root, err := cacheutil.Dir(cmd.String("cache-dir"), cfgDir)
	if err != nil {
		return nil, err
	}

	workers, err := m.Config.GetInt("workers", defaultWorkers)
	if err != nil || workers < 1 {
		log.Warnf("ignoring invalid workers setting, using %d", defaultWorkers)
		workers = defaultWorkers
	}

	log.Debugf("cache root: %s", root)
	return cache.New(root, cache.WithWorkers(workers))
}

// NewToolchain returns the toolchain from meta when one was injected, the
// dart named by --dart when given, and otherwise the resolved default.
func NewToolchain(cmd *cli.Command, m meta.Meta) toolchain.Toolchain {
	if m.Toolchain != nil {
		return m.Toolchain
	}

	exe := cmd.String("dart")
	if exe == "" {
		cfgExe, _ := m.Config.GetString("dart", "")
		exe = toolchain.Executable(cfgExe)
	}
	log.Debugf("dart: %s", exe)
	return toolchain.NewDart(exe)
}

// NewRunner wires a runner to the command's streams.
func NewRunner(cmd *cli.Command, m meta.Meta) (*runner.Runner, *cache.Store, error) {
	store, err := NewStore(cmd, m)
	if err != nil {
		return nil, nil, err
	}

	mat, err := materialize.New(store)
	if err != nil {
		return nil, nil, err
	}

	r, err := runner.New(store, mat, NewToolchain(cmd, m),
		runner.WithStdio(m.Stdin, m.Stdout, m.Stderr))
	if err != nil {
		return nil, nil, err
	}
	return r, store, nil
}

// outputFormat parses --output. The flag's validator has already vetted it,
// so an error here means the flag was never registered.
func outputFormat(cmd *cli.Command) (output.Format, error) {
	f, err := output.ParseFormat(cmd.String("output"))
	if err != nil {
		return "", usageError(err)
	}
	return f, nil
}

// firstArg returns the first positional argument or err.
func firstArg(cmd *cli.Command, err error) (string, error) {
	if cmd.Args().Len() == 0 {
		return "", usageError(err)
	}
	return cmd.Args().First(), nil
}

// GlobalFlagsValidator rejects combinations urfave cannot express on its own.
func GlobalFlagsValidator(_ context.Context, cmd *cli.Command) error {
	if cmd.Bool("frozen") && cmd.Bool("refresh") {
		return usageError(runner.ErrFrozenRefresh)
	}
	return nil
}

var errNoScriptArg = errors.New("no script given. Usage: dartrun [options] SCRIPT [ARGS...]")
