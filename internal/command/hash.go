// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/staranto/dartrun/internal/manifest"
	"github.com/staranto/dartrun/internal/meta"
	"github.com/staranto/dartrun/internal/output"
	"github.com/staranto/dartrun/internal/runner"
)

// HashCommandAction prints the cache keys of a script and the state of the
// entries they name. Nothing is resolved, compiled or touched.
func HashCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := setup(cmd)

	script, err := firstArg(cmd, errNoScriptArg)
	if err != nil {
		return err
	}

	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}

	r, _, err := NewRunner(cmd, m)
	if err != nil {
		return usageError(err)
	}

	in, err := r.Inspect(ctx, script)
	if err != nil {
		return failure(err, m.Stderr)
	}

	pairs := inspectionPairs(in, time.Now())
	opts := output.DefaultTableOptions(m.Config, m.Stdout)

	if format == output.FormatTable {
		output.KeyValues(m.Stdout, pairs, opts)
	} else {
		rows := make([][]string, 0, len(pairs))
		for _, p := range pairs {
			rows = append(rows, []string{p[0], p[1]})
		}
		if err := output.Emit(m.Stdout, format, []string{"field", "value"}, rows, opts); err != nil {
			return &ExitError{Code: 1, Err: err}
		}
	}

	if cmd.Bool("canonical") {
		text, err := manifest.Canonical(in.ManifestText)
		if err != nil {
			return &ExitError{Code: 1, Err: err}
		}
		fmt.Fprintf(m.Stdout, "\n%s", text)
	}
	return nil
}

func inspectionPairs(in runner.Inspection, now time.Time) [][2]string {
	pairs := [][2]string{
		{"script", in.Script},
		{"dart", in.ToolchainVersion},
		{"script digest", in.ScriptDigest},
		{"package key", in.PackageKey.String()},
		{"package dir", in.PackageDir},
		{"package valid", output.YesNo(in.PackageValid)},
		{"last used", output.Age(in.LastUsed, now)},
	}
	if in.PackageValid {
		pairs = append(pairs, [2]string{"dependencies", output.Count(len(in.Packages))})
	}
	return append(pairs,
		[2]string{"artifact key", in.ArtifactKey.String()},
		[2]string{"artifact", in.ArtifactPath},
		[2]string{"artifact valid", output.YesNo(in.ArtifactValid)},
	)
}

func HashCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "hash",
		Usage:     "show the cache keys for a script",
		UsageText: "dartrun hash [--canonical] [-o table|json|yaml] SCRIPT",
		Metadata: map[string]any{
			"meta": meta,
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "canonical",
				Usage: "also print the header in canonical form",
			},
			NewOutputFlag("hash", meta.Config),
		},
		Action: HashCommandAction,
	}
}
