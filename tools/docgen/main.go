// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	md2man "github.com/cpuguy83/go-md2man/v2/md2man"
)

// Doc generator:
// - Reads docs/commands/*.md as canonical command docs
// - Generates:
//   - docs/man/share/man1/dartrun-<cmd>.1 via md2man (convert full markdown)
//   - docs/tldr/dartrun-<cmd>.md from the summary paragraph and the Examples block

const prog = "dartrun"

func main() {
	var (
		repoRoot           string
		writeOnlyIfChanged bool
	)

	flag.StringVar(&repoRoot, "root", ".", "repo root (default current dir)")
	flag.BoolVar(&writeOnlyIfChanged, "only-if-changed", true, "only write files if content changed")
	flag.Parse()

	commandsDir := filepath.Join(repoRoot, "docs", "commands")
	manOutDir := filepath.Join(repoRoot, "docs", "man", "share", "man1")
	tldrOutDir := filepath.Join(repoRoot, "docs", "tldr")

	for _, dir := range []string{manOutDir, tldrOutDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fatalf("creating output dir %s: %v", dir, err)
		}
	}

	entries, err := os.ReadDir(commandsDir)
	if err != nil {
		fatalf("reading commands dir %s: %v", commandsDir, err)
	}

	var processed int
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		cmd := strings.TrimSuffix(e.Name(), ".md")
		inPath := filepath.Join(commandsDir, e.Name())
		raw, err := os.ReadFile(inPath)
		if err != nil {
			fatalf("reading %s: %v", inPath, err)
		}

		page := parsePage(string(raw))

		manPath := filepath.Join(manOutDir, fmt.Sprintf("%s-%s.1", prog, cmd))
		if err := writeFileIfChanged(manPath, md2man.Render(raw), writeOnlyIfChanged); err != nil {
			fatalf("writing man page for %s: %v", cmd, err)
		}

		tldrPath := filepath.Join(tldrOutDir, fmt.Sprintf("%s-%s.md", prog, cmd))
		if err := writeFileIfChanged(tldrPath, []byte(buildTLDR(cmd, page)), writeOnlyIfChanged); err != nil {
			fatalf("writing TLDR for %s: %v", cmd, err)
		}

		processed++
	}

	if processed == 0 {
		fatalf("no command markdown found under %s", commandsDir)
	}
}

func fatalf(f string, a ...any) {
	fmt.Fprintf(os.Stderr, f+"\n", a...)
	os.Exit(1)
}

func writeFileIfChanged(path string, new []byte, onlyIfChanged bool) error {
	if !onlyIfChanged {
		return os.WriteFile(path, new, 0o644)
	}
	old, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return os.WriteFile(path, new, 0o644)
		}
		return err
	}
	if bytes.Equal(bytes.TrimSpace(old), bytes.TrimSpace(new)) {
		return nil
	}
	return os.WriteFile(path, new, 0o644)
}

var (
	h1Re = regexp.MustCompile(`(?m)^#\s+(.+)$`)
	h2Re = regexp.MustCompile(`(?m)^##\s+(.+)$`)
)

type example struct {
	Desc string
	Cmd  string
}

// page is what the TLDR needs from a command doc.
type page struct {
	Title    string
	Summary  string
	Examples []example
}

// parsePage reads the H1 title, the first paragraph after it, and the first
// fenced block under an "Examples" heading.
func parsePage(md string) page {
	var p page

	loc := h1Re.FindStringSubmatchIndex(md)
	if loc == nil {
		return p
	}
	p.Title = strings.TrimSpace(md[loc[2]:loc[3]])

	var b strings.Builder
	for _, ln := range strings.Split(md[loc[1]:], "\n") {
		s := strings.TrimSpace(ln)
		if s == "" {
			if b.Len() > 0 {
				break
			}
			continue
		}
		if strings.HasPrefix(s, "#") || strings.HasPrefix(s, "```") {
			break
		}
		b.WriteString(s)
		b.WriteString(" ")
	}
	p.Summary = strings.TrimSpace(b.String())
	if p.Summary == "" {
		p.Summary = p.Title + "."
	}

	p.Examples = extractExamples(md)
	return p
}

func extractExamples(md string) []example {
	var section string
	for _, m := range h2Re.FindAllStringSubmatchIndex(md, -1) {
		if strings.EqualFold(strings.TrimSpace(md[m[2]:m[3]]), "examples") {
			section = md[m[1]:]
			break
		}
	}
	if section == "" {
		return nil
	}

	const fence = "```"
	start := strings.Index(section, fence)
	if start < 0 {
		return nil
	}
	section = section[start+len(fence):]
	// Drop the info string.
	if nl := strings.Index(section, "\n"); nl >= 0 {
		section = section[nl+1:]
	}
	end := strings.Index(section, fence)
	if end < 0 {
		return nil
	}

	var exs []example
	desc := ""
	for _, ln := range strings.Split(section[:end], "\n") {
		s := strings.TrimSpace(strings.TrimRight(ln, "\r"))
		switch {
		case s == "":
			continue
		case strings.HasPrefix(s, "#"):
			desc = strings.TrimSpace(strings.TrimLeft(s, "#"))
		default:
			if desc == "" {
				desc = "Example"
			}
			exs = append(exs, example{Desc: desc, Cmd: strings.Join(strings.Fields(s), " ")})
			desc = ""
		}
	}
	return exs
}

func buildTLDR(cmd string, p page) string {
	var b strings.Builder
	b.WriteString("# " + prog + "-" + cmd + "\n\n")
	b.WriteString("> " + p.Summary + "\n")
	b.WriteString("> More information: https://github.com/staranto/dartrun.\n\n")

	exs := p.Examples
	if len(exs) == 0 {
		exs = []example{{Desc: "Show help for the command", Cmd: prog + " " + cmd + " --help"}}
	}

	for i, ex := range exs {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("- " + ex.Desc + ":\n\n")
		b.WriteString("`" + ex.Cmd + "`\n")
	}
	return b.String()
}
