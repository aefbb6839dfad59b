// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestManifest_Text_Synthesized(t *testing.T) {
	m := Manifest{
		Dependencies:  map[string]string{"path": "any", "http": "^1.2.0", "args": ">=2.0.0 <3.0.0"},
		SDKConstraint: "^3.4.0",
	}

	text, err := m.Text()
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, yaml.Unmarshal([]byte(text), &doc))
	assert.Equal(t, PackageName, doc["name"])
	assert.Equal(t, "none", doc["publish_to"])
	assert.Equal(t, map[string]interface{}{"sdk": "^3.4.0"}, doc["environment"])
	assert.Equal(t, map[string]interface{}{
		"args": ">=2.0.0 <3.0.0",
		"http": "^1.2.0",
		"path": "any",
	}, doc["dependencies"])

	// Keys are emitted sorted so map iteration order never leaks into the key.
	assert.Less(t, indexOf(text, "args:"), indexOf(text, "http:"))
	assert.Less(t, indexOf(text, "http:"), indexOf(text, "path:"))
}

func TestManifest_Text_Deterministic(t *testing.T) {
	m := Manifest{Dependencies: map[string]string{"a": "1", "b": "2", "c": "3", "d": "4"}}
	first, err := m.Text()
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := m.Text()
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestManifest_Text_NoDependencies(t *testing.T) {
	text, err := Manifest{}.Text()
	require.NoError(t, err)
	assert.NotContains(t, text, "dependencies")
	assert.Contains(t, text, "sdk: ^3.0.0")
}

func TestManifest_Text_FullDocumentWins(t *testing.T) {
	m := Manifest{
		Dependencies: map[string]string{"http": "any"},
		FullText:     "name: custom\n",
		IsFull:       true,
	}
	text, err := m.Text()
	require.NoError(t, err)
	assert.Equal(t, "name: custom\n", text)
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
