// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package materialize

import (
	"regexp"
	"strings"
)

// Separator is the argument the runner places between its own options and the
// script's arguments. Wrapped entry points drop it.
const Separator = "--"

// DelegateName is what the script's own main is renamed to.
const DelegateName = "_dartrun$main"

// mainSignature matches a top-level main whose body opens on the same line
// and which takes exactly one parameter:
//
//	void main(List<String> args) {
//	Future<void> main(List<String> argv) async {
//	main(args) {
var mainSignature = regexp.MustCompile(
	`^(?:(?P<ret>[A-Za-z_][\w<>?, ]*?)\s+)?` +
		`(?P<name>main)\s*\(\s*` +
		`(?:(?P<ptype>[A-Za-z_][\w<>?]*)\s+)?(?P<param>[A-Za-z_$][\w$]*)\s*\)\s*` +
		`(?P<async>async)?\s*\{\s*(?://.*)?$`)

// entrySignature is what the scan learned about the script's main.
type entrySignature struct {
	line      int
	nameStart int
	nameEnd   int
	returns   string
	param     string
	async     bool
}

// WrapEntryPoint rewrites the script's main so the Separator is stripped from
// its argument list before the original body runs. The original main is
// renamed to DelegateName and a new main with the same signature forwards to
// it. When no main of the expected shape is found the source is returned
// unchanged and ok is false.
func WrapEntryPoint(src string) (out string, ok bool) {
	lines := strings.SplitAfter(src, "\n")

	sig, found := findEntry(lines)
	if !found {
		return src, false
	}

	signature := lines[sig.line]
	eol := lineEnding(signature)
	signature = strings.TrimRight(signature, "\r\n")
	delegateSignature := signature[:sig.nameStart] + DelegateName + signature[sig.nameEnd:]

	var b strings.Builder
	b.Grow(len(src) + 256) //nolint:mnd
	for _, l := range lines[:sig.line] {
		b.WriteString(l)
	}
	b.WriteString(signature + eol)
	b.WriteString("  " + forwardCall(sig) + eol)
	b.WriteString("}" + eol)
	b.WriteString(eol)
	b.WriteString(delegateSignature + eol)
	for _, l := range lines[sig.line+1:] {
		b.WriteString(l)
	}
	return b.String(), true
}

// findEntry returns the first line declaring main at the top level. Lines
// inside block comments are skipped.
func findEntry(lines []string) (entrySignature, bool) {
	inComment := false
	for i, raw := range lines {
		line := strings.TrimRight(raw, "\r\n")
		trimmed := strings.TrimSpace(line)

		if inComment {
			if strings.Contains(trimmed, "*/") {
				inComment = false
			}
			continue
		}
		if strings.HasPrefix(trimmed, "/*") {
			inComment = !strings.Contains(trimmed[2:], "*/")
			continue
		}

		// Top level only: nested functions named main are indented.
		if line == "" || line[0] == ' ' || line[0] == '\t' {
			continue
		}

		m := mainSignature.FindStringSubmatchIndex(line)
		if m == nil {
			continue
		}

		group := func(name string) (int, int) {
			idx := mainSignature.SubexpIndex(name)
			return m[2*idx], m[2*idx+1]
		}
		sub := func(name string) string {
			s, e := group(name)
			if s < 0 {
				return ""
			}
			return line[s:e]
		}

		ns, ne := group("name")
		return entrySignature{
			line:      i,
			nameStart: ns,
			nameEnd:   ne,
			returns:   strings.TrimSpace(sub("ret")),
			param:     sub("param"),
			async:     sub("async") != "",
		}, true
	}
	return entrySignature{}, false
}

// forwardCall builds the single statement of the wrapper body.
func forwardCall(sig entrySignature) string {
	call := DelegateName + "(" + sig.param + ".where((a) => a != '" + Separator + "').toList())"
	switch {
	case sig.async:
		return "return await " + call + ";"
	case sig.returns == "void":
		return call + ";"
	default:
		return "return " + call + ";"
	}
}

func lineEnding(line string) string {
	if strings.HasSuffix(line, "\r\n") {
		return "\r\n"
	}
	return "\n"
}
