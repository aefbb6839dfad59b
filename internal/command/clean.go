// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/dartrun/internal/cache"
	"github.com/staranto/dartrun/internal/meta"
	"github.com/staranto/dartrun/internal/output"
)

var (
	errCleanNothing   = errors.New("nothing to do. Give one of --all, --older-than or --stats")
	errCleanExclusive = errors.New("--all and --older-than cannot be combined")
)

// CleanCommandAction evicts cache entries and reports on what is left.
func CleanCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := setup(cmd)

	all := cmd.Bool("all")
	older := cmd.IsSet("older-than")
	stats := cmd.Bool("stats")

	switch {
	case all && older:
		return usageError(errCleanExclusive)
	case !all && !older && !stats:
		return usageError(errCleanNothing)
	}

	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}

	store, err := NewStore(cmd, m)
	if err != nil {
		return usageError(err)
	}

	var sweepErr error
	switch {
	case all:
		if err := store.CleanAll(); err != nil {
			return &ExitError{Code: 1, Err: err}
		}
		fmt.Fprintf(m.Stdout, "removed %s\n", store.Root())

	case older:
		days := cmd.Int("older-than")
		report, err := store.CleanOlderThan(ctx, days)
		if err != nil {
			return usageError(err)
		}
		for _, e := range report.Removed {
			log.Infof("removed %s %s", e.Kind, e.Name)
		}
		for _, f := range report.Failures {
			log.Warnf("could not clean %s", f)
		}
		fmt.Fprintf(m.Stdout, "removed %s entries (%s), kept %s\n",
			output.Count(len(report.Removed)),
			output.Bytes(report.FreedBytes),
			output.Count(report.Kept))
		if report.Err() != nil {
			sweepErr = fmt.Errorf("%d entries could not be cleaned", len(report.Failures))
		}
	}

	if stats {
		st, err := store.Stats(ctx)
		if err != nil {
			return &ExitError{Code: 1, Err: err}
		}
		if err := emitStats(m, format, st); err != nil {
			return &ExitError{Code: 1, Err: err}
		}
	}

	if sweepErr != nil {
		return &ExitError{Code: 1, Err: sweepErr}
	}
	return nil
}

// emitStats writes one row per entry kind and a total.
func emitStats(m meta.Meta, format output.Format, st cache.Stats) error {
	if st.Skipped > 0 {
		log.Warnf("skipped %d unreadable entries", st.Skipped)
	}

	headers := []string{"kind", "entries", "size"}
	rows := [][]string{
		{string(cache.KindPackage), output.Count(st.Packages), output.Bytes(st.PackageBytes)},
		{string(cache.KindArtifact), output.Count(st.Artifacts), output.Bytes(st.ArtifactBytes)},
		{"total", output.Count(st.Packages + st.Artifacts), output.Bytes(st.TotalBytes())},
	}

	return output.Emit(m.Stdout, format, headers, rows, output.DefaultTableOptions(m.Config, m.Stdout))
}

func CleanCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "clean",
		Usage:     "evict cache entries or report cache usage",
		UsageText: "dartrun clean [--all | --older-than DAYS] [--stats] [-o table|json|yaml]",
		Metadata: map[string]any{
			"meta": meta,
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "all",
				Usage: "remove the whole cache root",
			},
			&cli.IntFlag{
				Name:  "older-than",
				Usage: "remove entries not used in this many days",
				Validator: func(value int) error {
					return FlagValidators(value, NonNegativeValidator)
				},
			},
			&cli.BoolFlag{
				Name:  "stats",
				Usage: "print entry counts and sizes",
			},
			NewOutputFlag("clean", meta.Config),
		},
		Action: CleanCommandAction,
	}
}
