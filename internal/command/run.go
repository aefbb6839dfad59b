// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/dartrun/internal/meta"
	"github.com/staranto/dartrun/internal/runner"
)

// RunCommandAction resolves, optionally compiles, and runs a script. The
// script's exit code becomes dartrun's.
func RunCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := setup(cmd)

	script, err := firstArg(cmd, errNoScriptArg)
	if err != nil {
		return err
	}
	args := cmd.Args().Tail()

	if cmd.Bool("print-pubspec") {
		text, err := runner.ManifestText(script)
		if err != nil {
			return usageError(err)
		}
		fmt.Fprint(m.Stdout, text)
		return nil
	}

	r, _, err := NewRunner(cmd, m)
	if err != nil {
		return usageError(err)
	}

	req := runner.Request{
		Script:  script,
		Args:    args,
		Offline: cmd.Bool("offline"),
		Refresh: cmd.Bool("refresh"),
		AOT:     cmd.Bool("aot"),
		Frozen:  cmd.Bool("frozen"),
	}
	log.Debugf("request: %+v", req)

	res, err := r.Run(ctx, req)
	if err != nil {
		if errors.Is(err, runner.ErrFrozen) || errors.Is(err, runner.ErrFrozenRefresh) {
			return usageError(err)
		}
		return failure(err, m.Stderr)
	}

	log.WithFields(log.Fields{
		"hit":      res.CacheHit,
		"resolved": res.Resolved,
		"compiled": res.Compiled,
		"exit":     res.ExitCode,
	}).Debug("run complete")

	if res.ExitCode != 0 {
		return &ExitError{Code: res.ExitCode}
	}
	return nil
}

func RunCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	// Everything after the script belongs to the script.
	stopAfterScript := 1

	return &cli.Command{
		Name:      "run",
		Usage:     "run a script, resolving its dependencies on first use",
		UsageText: "dartrun [run] [options] SCRIPT [ARGS...]",
		Description: "The dependencies a script declares in its leading comment header\n" +
			"are resolved once into a cache entry keyed by the header, the dart\n" +
			"version and the script itself. Later runs reuse the entry.",
		StopOnNthArg: &stopAfterScript,
		Metadata: map[string]any{
			"meta": meta,
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			return ctx, GlobalFlagsValidator(ctx, c)
		},
		Action: RunCommandAction,
	}
}
