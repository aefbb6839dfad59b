// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// DefaultSDKConstraint is used when a script declares dependencies but no sdk
// constraint. The pub client refuses a pubspec without one.
const DefaultSDKConstraint = "^3.0.0"

// PackageName is the name given to every synthesized package.
const PackageName = "script"

// Manifest is the resolved dependency declaration of a script.
type Manifest struct {
	// Dependencies maps package name to version constraint.
	Dependencies map[string]string
	// SDKConstraint is the environment.sdk constraint. Empty means absent.
	SDKConstraint string
	// FullText is a complete pubspec supplied verbatim by the script.
	FullText string
	// IsFull is set when FullText should be used instead of the inline
	// entries.
	IsFull bool
}

// pubspec is the synthesized document. Field order is emission order; map
// keys are sorted by the encoder.
type pubspec struct {
	Name         string            `yaml:"name"`
	PublishTo    string            `yaml:"publish_to"`
	Environment  map[string]string `yaml:"environment"`
	Dependencies map[string]string `yaml:"dependencies,omitempty"`
}

// Text returns the manifest document that is hashed and materialized. A full
// document is returned verbatim; inline entries are rendered as a pubspec.
func (m Manifest) Text() (string, error) {
	if m.IsFull {
		return m.FullText, nil
	}

	sdk := m.SDKConstraint
	if sdk == "" {
		sdk = DefaultSDKConstraint
	}

	doc := pubspec{
		Name:         PackageName,
		PublishTo:    "none",
		Environment:  map[string]string{"sdk": sdk},
		Dependencies: m.Dependencies,
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2) //nolint:mnd
	if err := enc.Encode(doc); err != nil {
		return "", fmt.Errorf("failed to render pubspec: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("failed to render pubspec: %w", err)
	}
	return buf.String(), nil
}
