// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/apex/log"
)

// Verbosity is the number of times -v was given on the command line.
type Verbosity int

const (
	// Quiet only reports warnings and errors.
	Quiet Verbosity = 0
	// Info adds cache hit/miss and toolchain step reporting.
	Info Verbosity = 1
	// Debug adds paths, keys and raw toolchain output.
	Debug Verbosity = 2
)

// Level maps a verbosity count onto an apex log level. Anything above Debug
// is clamped.
func (v Verbosity) Level() log.Level {
	switch {
	case v >= Debug:
		return log.DebugLevel
	case v == Info:
		return log.InfoLevel
	default:
		return log.WarnLevel
	}
}

// InitLogger sets up Apex with a custom handler writing to stderr. The level
// comes from the DARTRUN_LOG env variable when set, otherwise from v.
func InitLogger(v Verbosity) {
	log.SetHandler(&CustomHandler{Writer: os.Stderr})
	if level := strings.ToLower(os.Getenv("DARTRUN_LOG")); level != "" {
		if l, err := log.ParseLevel(level); err == nil {
			log.SetLevel(l)
			return
		}
	}
	log.SetLevel(v.Level())
}

// CustomHandler formats log messages with a timestamp and a one letter level.
// Stdout belongs to the script being run, so the default writer is stderr.
type CustomHandler struct {
	Writer io.Writer
}

// HandleLog implements the log.Handler interface
func (h *CustomHandler) HandleLog(e *log.Entry) error {
	w := h.Writer
	if w == nil {
		w = os.Stderr
	}
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	level := strings.ToUpper(e.Level.String())

	var fields strings.Builder
	for _, name := range e.Fields.Names() {
		fmt.Fprintf(&fields, " %s=%v", name, e.Fields.Get(name))
	}

	fmt.Fprintf(w, "%s %.1s %s%s\n", timestamp, level, e.Message, fields.String())
	return nil
}
