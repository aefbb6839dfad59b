// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	altsrc "github.com/urfave/cli-altsrc/v3"
	yaml "github.com/urfave/cli-altsrc/v3/yaml"
	"github.com/urfave/cli/v3"

	"github.com/staranto/dartrun/internal/config"
)

// NewGlobalFlags builds the flags shared by every command. Flags are built
// fresh for each app because urfave keeps parse state on the flag values.
func NewGlobalFlags(cfg config.Type) (flags []cli.Flag) {
	flags = []cli.Flag{
		&cli.BoolFlag{
			Name:  "aot",
			Usage: "compile the script ahead of time and run the native executable",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("DARTRUN_AOT"),
				yaml.YAML("aot", altsrc.StringSourcer(cfg.Source)),
			),
		},
		&cli.StringFlag{
			Name:  "cache-dir",
			Usage: "cache root directory",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("DARTRUN_CACHE_DIR"),
				yaml.YAML("cache_dir", altsrc.StringSourcer(cfg.Source)),
			),
			Validator: func(value string) error {
				return FlagValidators(value, JammedFlagValidator)
			},
		},
		&cli.StringFlag{
			Name:  "dart",
			Usage: "dart executable. Overrides DARTRUN_DART and the dart config key",
			Validator: func(value string) error {
				return FlagValidators(value, JammedFlagValidator)
			},
		},
		&cli.BoolFlag{
			Name:  "frozen",
			Usage: "fail instead of resolving or compiling when the cache has no entry",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("DARTRUN_FROZEN"),
				yaml.YAML("frozen", altsrc.StringSourcer(cfg.Source)),
			),
		},
		&cli.BoolFlag{
			Name:  "offline",
			Usage: "resolve dependencies from the local pub cache only",
			Sources: cli.NewValueSourceChain(
				cli.EnvVar("DARTRUN_OFFLINE"),
				yaml.YAML("offline", altsrc.StringSourcer(cfg.Source)),
			),
		},
		&cli.BoolFlag{
			Name:  "print-pubspec",
			Usage: "print the pubspec derived from the script header and exit",
		},
		&cli.BoolFlag{
			Name:    "refresh",
			Aliases: []string{"U"},
			Usage:   "re-resolve dependencies to their newest allowed versions",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "more logging. Repeat for debug output",
		},
		&cli.BoolFlag{
			Name:        "version",
			Usage:       "dartrun version info",
			HideDefault: true,
		},
	}

	return
}

// NewOutputFlag constructs the --output flag for commands that emit result
// sets, namespaced to ns in the config file.
func NewOutputFlag(ns string, cfg config.Type) *cli.StringFlag {
	flag := &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "output format (table, json, yaml)",
		Sources: cli.NewValueSourceChain(),
		Value:   "table",
		Validator: func(value string) error {
			return FlagValidators(value, OutputValidator)
		},
	}
	return NameSpacedValueChainFlagFromConfigFile(ns, cfg.Source, flag)
}

// NameSpacedValueChainFlagFromConfigFile adds namespaced and global config file
// sources to the given flag's Sources chain.
func NameSpacedValueChainFlagFromConfigFile(ns string, path string, flag *cli.StringFlag) *cli.StringFlag {
	src := yaml.YAML(ns+"."+flag.Name, altsrc.StringSourcer(path))
	flag.Sources.Chain = append(flag.Sources.Chain, src)

	src = yaml.YAML(flag.Name, altsrc.StringSourcer(path))
	flag.Sources.Chain = append(flag.Sources.Chain, src)

	return flag
}
