// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Normalize canonicalizes manifest text for hashing. Each line is trimmed,
// internal runs of whitespace collapse to a single space, blank lines are
// dropped and CRLF becomes LF. It does not parse the document.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		out = append(out, strings.Join(fields, " "))
	}
	return strings.Join(out, "\n")
}

// Canonical parses text as YAML and re-emits it with every mapping's keys
// sorted and comments stripped. Two documents that differ only in key order,
// quoting style or indentation yield the same output.
func Canonical(text string) (string, error) {
	var root yaml.Node
	if err := yaml.Unmarshal([]byte(text), &root); err != nil {
		return "", fmt.Errorf("failed to parse manifest: %w", err)
	}
	if root.Kind == 0 {
		return "", nil
	}

	sortNode(&root)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2) //nolint:mnd
	if err := enc.Encode(&root); err != nil {
		return "", fmt.Errorf("failed to render manifest: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("failed to render manifest: %w", err)
	}
	return buf.String(), nil
}

func sortNode(n *yaml.Node) {
	n.HeadComment, n.LineComment, n.FootComment = "", "", ""
	if n.Kind == yaml.ScalarNode {
		n.Style = 0
	}

	for _, c := range n.Content {
		sortNode(c)
	}

	if n.Kind != yaml.MappingNode {
		return
	}

	type pair struct{ key, value *yaml.Node }
	pairs := make([]pair, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		pairs = append(pairs, pair{n.Content[i], n.Content[i+1]})
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].key.Value < pairs[j].key.Value
	})

	n.Content = n.Content[:0]
	for _, p := range pairs {
		n.Content = append(n.Content, p.key, p.value)
	}
}
