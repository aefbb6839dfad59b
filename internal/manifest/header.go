// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"github.com/apex/log"
)

const (
	depDirective = "dep:"
	sdkDirective = "sdk:"
	anyVersion   = "any"
)

// fullDocOpeners start a verbatim pubspec block comment.
var fullDocOpeners = []string{"/* pubspec.yaml", "/*pubspec.yaml"}

// ParseHeader extracts the manifest from the leading comment block of a
// script. The header is the run of shebang, blank and comment lines at the
// top of the file; parsing stops at the first line of code.
//
//	#!/usr/bin/env dartrun
//	// dep: http ^1.2.0
//	// dep: path
//	// sdk: ^3.4.0
//
// A complete pubspec can be given instead as a block comment:
//
//	/* pubspec.yaml
//	name: tool
//	dependencies:
//	  args: ^2.4.0
//	*/
func ParseHeader(src []byte) (Manifest, error) {
	m := Manifest{Dependencies: map[string]string{}}

	scanner := bufio.NewScanner(bytes.NewReader(src))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024) //nolint:mnd

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		switch {
		case lineNo == 1 && strings.HasPrefix(line, "#!"):
			continue
		case line == "":
			continue
		case isFullDocOpener(line):
			text, consumed, err := readFullDoc(scanner)
			if err != nil {
				return Manifest{}, fmt.Errorf("line %d: %w", lineNo, err)
			}
			lineNo += consumed
			m.FullText = text
			m.IsFull = true
		case strings.HasPrefix(line, "//"):
			if err := applyDirective(&m, strings.TrimLeft(line, "/")); err != nil {
				return Manifest{}, fmt.Errorf("line %d: %w", lineNo, err)
			}
		default:
			return finish(m), nil
		}
	}
	if err := scanner.Err(); err != nil {
		return Manifest{}, fmt.Errorf("failed to read script header: %w", err)
	}

	return finish(m), nil
}

func finish(m Manifest) Manifest {
	if m.IsFull && (len(m.Dependencies) > 0 || m.SDKConstraint != "") {
		log.Warn("script has a full pubspec block; inline dep/sdk entries are ignored")
	}
	return m
}

func isFullDocOpener(line string) bool {
	for _, o := range fullDocOpeners {
		if line == o {
			return true
		}
	}
	return false
}

func applyDirective(m *Manifest, comment string) error {
	comment = strings.TrimSpace(comment)

	switch {
	case strings.HasPrefix(comment, depDirective):
		fields := strings.Fields(strings.TrimPrefix(comment, depDirective))
		if len(fields) == 0 {
			return fmt.Errorf("%s needs a package name", depDirective)
		}
		constraint := anyVersion
		if len(fields) > 1 {
			constraint = strings.Join(fields[1:], " ")
		}
		m.Dependencies[fields[0]] = constraint
	case strings.HasPrefix(comment, sdkDirective):
		constraint := strings.TrimSpace(strings.TrimPrefix(comment, sdkDirective))
		if constraint == "" {
			return fmt.Errorf("%s needs a constraint", sdkDirective)
		}
		m.SDKConstraint = constraint
	}
	return nil
}

// readFullDoc consumes lines up to the closing */ and returns the body with
// its common indentation removed.
func readFullDoc(scanner *bufio.Scanner) (string, int, error) {
	var body []string
	consumed := 0
	for scanner.Scan() {
		consumed++
		raw := scanner.Text()
		if strings.TrimSpace(raw) == "*/" {
			return dedent(body), consumed, nil
		}
		body = append(body, strings.TrimRight(raw, " \t\r"))
	}
	return "", consumed, fmt.Errorf("unterminated pubspec block")
}

func dedent(lines []string) string {
	indent := -1
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		n := len(l) - len(strings.TrimLeft(l, " \t"))
		if indent < 0 || n < indent {
			indent = n
		}
	}

	var b strings.Builder
	for _, l := range lines {
		if len(l) >= indent && indent > 0 {
			l = l[indent:]
		}
		b.WriteString(l)
		b.WriteByte('\n')
	}
	return b.String()
}
