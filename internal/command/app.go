// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT
package command

import (
	"context"
	"os"
	"sort"
	"strings"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"github.com/staranto/dartrun/internal/config"
	"github.com/staranto/dartrun/internal/meta"
)

// Commands are the subcommand names. Anything else in the first positional
// slot is a script.
var Commands = []string{"run", "clean", "hash", "list", "ls", "completion", "help", "h"}

// IsCommand reports whether name is one of Commands.
func IsCommand(name string) bool {
	for _, c := range Commands {
		if c == name {
			return true
		}
	}
	return false
}

func InitApp(ctx context.Context, args []string) (*cli.Command, error) {
	sd, _ := os.Getwd()

	// The arg[1] immediately following the binary (arg[0]) is the dartrun
	// subcommand once main has mangled the arguments, and also represents the
	// namespace key to be used when retrieving config values.
	var ns string
	if len(args) > 1 && !strings.HasPrefix(args[1], "-") && IsCommand(args[1]) {
		ns = args[1]
	}

	cfg, err := config.Load()
	if err != nil {
		log.Debugf("no config: %v", err)
	}
	cfg.Namespace = ns

	return NewApp(meta.Meta{
		Args:        args,
		Config:      cfg,
		Context:     ctx,
		StartingDir: sd,
	}), nil
}

// RootCommandAction only runs when no script or command was given, e.g.
// `dartrun -v`. Help is shown and the invocation fails.
func RootCommandAction(ctx context.Context, cmd *cli.Command) error {
	if err := cli.ShowRootCommandHelp(cmd); err != nil {
		log.WithError(err).Debug("failed to show help")
	}
	return usageError(errNoScriptArg)
}

// NewApp builds the command tree around m. Unset streams in m default to the
// process's own.
func NewApp(m meta.Meta) *cli.Command {
	m = m.WithDefaults()

	app := &cli.Command{
		Name:                   "dartrun",
		Usage:                  "run single-file Dart scripts with inline dependencies",
		UsageText:              "dartrun [options] SCRIPT [ARGS...]\ndartrun COMMAND [options] [ARGS...]",
		HideVersion:            true,
		UseShortOptionHandling: true,
		Reader:                 m.Stdin,
		Writer:                 m.Stdout,
		ErrWriter:              m.Stderr,
		Flags:                  NewGlobalFlags(m.Config),
		Metadata: map[string]any{
			"meta": m,
		},
		// Exit codes are main's business.
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
		Action:         RootCommandAction,
	}

	app.Commands = append(app.Commands,
		RunCommandBuilder(app, m),
		CleanCommandBuilder(app, m),
		HashCommandBuilder(app, m),
		ListCommandBuilder(app, m),
		CompletionCommandBuilder(app, m),
	)

	// Make sure flags are sorted for the --help text.
	for _, cmd := range append([]*cli.Command{app}, app.Commands...) {
		sort.Slice(cmd.Flags, func(i, j int) bool {
			return cmd.Flags[i].Names()[0] < cmd.Flags[j].Names()[0]
		})
	}

	return app
}
