// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/apex/log"

	"github.com/staranto/dartrun/internal/command"
	mylog "github.com/staranto/dartrun/internal/log"
	"github.com/staranto/dartrun/internal/version"
)

var ctx = context.Background()

// valueFlags are the global flags that consume the following argument.
var valueFlags = map[string]bool{
	"--cache-dir": true,
	"--dart":      true,
}

func main() {
	os.Exit(realMain(os.Args))
}

func realMain(args []string) int {
	mylog.InitLogger(mylog.Quiet)

	// With no script the root command prints help and fails.
	args = mangleArguments(args)

	// Short-circuit --version.
	if wantsVersion(args) {
		fmt.Println(version.Version)
		return 0
	}

	app, err := command.InitApp(ctx, args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	return exitCode(app.Run(ctx, args), os.Stderr)
}

// exitCode turns the error from app.Run into a process exit code, printing
// whatever message it carries. Errors that did not come from an action are
// urfave's own usage errors.
func exitCode(err error, w io.Writer) int {
	if err == nil {
		return 0
	}

	var ee *command.ExitError
	if errors.As(err, &ee) {
		if msg := ee.Error(); msg != "" {
			fmt.Fprintln(w, msg)
		}
		return ee.Code
	}

	fmt.Fprintln(w, err)
	return 2
}

// mangleArguments inserts the run command ahead of the script when the first
// positional argument is not a command, so that `dartrun script.dart` and
// `dartrun run script.dart` are the same thing.
func mangleArguments(args []string) []string {
	for i := 1; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "--":
			return insertAt(args, i, "run")
		case strings.HasPrefix(a, "-"):
			if valueFlags[a] {
				i++
			}
		case command.IsCommand(a):
			return args
		default:
			log.Debugf("treating %q as a script", a)
			return insertAt(args, i, "run")
		}
	}
	return args
}

// wantsVersion reports whether --version appears among dartrun's own
// arguments. Anything from the script onward belongs to the script.
func wantsVersion(args []string) bool {
	for i := 1; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "--version":
			return true
		case a == "--":
			return false
		case strings.HasPrefix(a, "-"):
			if valueFlags[a] {
				i++
			}
		case command.IsCommand(a):
			continue
		default:
			return false
		}
	}
	return false
}

func insertAt(args []string, i int, s string) []string {
	out := make([]string, 0, len(args)+1)
	out = append(out, args[:i]...)
	out = append(out, s)
	return append(out, args[i:]...)
}
