// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/apex/log"
	"github.com/tidwall/gjson"
	"github.com/urfave/cli/v3"

	"github.com/staranto/dartrun/internal/cache"
	"github.com/staranto/dartrun/internal/cachekey"
	"github.com/staranto/dartrun/internal/filters"
	"github.com/staranto/dartrun/internal/meta"
	"github.com/staranto/dartrun/internal/output"
)

// listRow is the filterable shape of a cache entry. Filter and sort keys are
// its JSON field names.
type listRow struct {
	Kind     string    `json:"kind"`
	Key      string    `json:"key"`
	Name     string    `json:"name"`
	Path     string    `json:"path"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
	AgeDays  int       `json:"age_days"`
	// Foreign marks a name that is not a derived key.
	Foreign bool `json:"foreign"`
}

func newListRow(e cache.Entry, now time.Time) listRow {
	return listRow{
		Kind:     string(e.Kind),
		Key:      e.Key(),
		Name:     e.Name,
		Path:     e.Path,
		Size:     e.Size,
		Modified: e.ModTime,
		AgeDays:  int(now.Sub(e.ModTime) / cache.Day),
		Foreign:  !cachekey.Key(e.Key()).Valid(),
	}
}

// ListCommandAction prints the package and artifact entries in the cache.
func ListCommandAction(ctx context.Context, cmd *cli.Command) error {
	m := setup(cmd)

	fs, err := filters.BuildFilters(cmd.String("filter"))
	if err != nil {
		return usageError(err)
	}

	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}

	store, err := NewStore(cmd, m)
	if err != nil {
		return usageError(err)
	}

	entries, skipped, err := store.Entries(ctx)
	if err != nil {
		return &ExitError{Code: 1, Err: err}
	}
	if skipped > 0 {
		log.Warnf("skipped %d unreadable entries", skipped)
	}

	now := time.Now()
	all := make([]listRow, 0, len(entries))
	for _, e := range entries {
		all = append(all, newListRow(e, now))
	}

	raw, err := json.Marshal(all)
	if err != nil {
		return &ExitError{Code: 1, Err: fmt.Errorf("failed to encode entries: %w", err)}
	}

	matched := filters.FilterDataset(gjson.ParseBytes(raw), fs)
	filters.SortDataset(matched, cmd.String("sort"))
	log.Debugf("%d of %d entries matched", len(matched), len(all))

	headers := []string{"kind", "key", "size", "last used"}
	if cmd.Bool("paths") {
		headers = append(headers, "path")
	}

	rows := make([][]string, 0, len(matched))
	for _, r := range matched {
		row := []string{
			r.Get("kind").String(),
			r.Get("key").String(),
			output.Bytes(r.Get("size").Int()),
			output.Age(r.Get("modified").Time(), now),
		}
		if cmd.Bool("paths") {
			row = append(row, r.Get("path").String())
		}
		rows = append(rows, row)
	}

	return output.Emit(m.Stdout, format, headers, rows, output.DefaultTableOptions(m.Config, m.Stdout))
}

func ListCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "list",
		Aliases:   []string{"ls"},
		Usage:     "list cache entries",
		UsageText: "dartrun list [--filter EXPR] [--sort KEY] [--paths] [-o table|json|yaml]",
		Description: "Filter expressions are KEY OP VALUE joined by commas. Keys are\n" +
			"kind, key, name, path, size, modified and age_days. Operators are\n" +
			"= ^ ~ < > @ and /, each negatable with a leading !.",
		Metadata: map[string]any{
			"meta": meta,
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "filter",
				Aliases: []string{"f"},
				Usage:   "only entries matching these expressions, e.g. kind=package,age_days>30",
			},
			&cli.BoolFlag{
				Name:  "paths",
				Usage: "include the entry path",
			},
			&cli.StringFlag{
				Name:    "sort",
				Aliases: []string{"s"},
				Usage:   "sort key. Prefix with - to reverse",
				Value:   "kind",
				Validator: func(value string) error {
					return FlagValidators(value, JammedFlagValidator)
				},
			},
			NewOutputFlag("list", meta.Config),
		},
		Action: ListCommandAction,
	}
}
