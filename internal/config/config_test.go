// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestConfig points DARTRUN_CFG at a testdata file.
func setupTestConfig(t *testing.T, testdataFile string) {
	t.Helper()

	absPath, err := filepath.Abs(filepath.Join("testdata", testdataFile))
	require.NoError(t, err, "failed to get absolute path for test config")

	t.Setenv("DARTRUN_CFG", absPath)
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		testFile  string
		checkFunc func(*testing.T, Type)
	}{
		{
			name:     "simple values",
			testFile: "simple.yaml",
			checkFunc: func(t *testing.T, cfg Type) {
				assert.NotEmpty(t, cfg.Source)
				assert.Equal(t, "/tmp/dartrun-cache", cfg.Data["cache_dir"])
				assert.Equal(t, true, cfg.Data["offline"])
			},
		},
		{
			name:     "nested structure",
			testFile: "nested.yaml",
			checkFunc: func(t *testing.T, cfg Type) {
				clean, ok := cfg.Data["clean"].(map[string]interface{})
				assert.True(t, ok, "clean should be a map")
				assert.Equal(t, 14, clean["older_than"])
			},
		},
		{
			name:     "empty file",
			testFile: "empty.yaml",
			checkFunc: func(t *testing.T, cfg Type) {
				// Empty YAML unmarshals to nil map, which is acceptable
				assert.NotEmpty(t, cfg.Source, "should have a source path")
				assert.Nil(t, cfg.Data)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupTestConfig(t, tt.testFile)

			cfg, err := Load()
			require.NoError(t, err)
			tt.checkFunc(t, cfg)
		})
	}
}

func TestLoad_ExplicitPathWins(t *testing.T) {
	setupTestConfig(t, "simple.yaml")

	cfg, err := Load(filepath.Join("testdata", "nested.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "/var/cache/dartrun", cfg.Data["cache_dir"])
}

func TestLoad_NoConfigFile(t *testing.T) {
	t.Setenv("DARTRUN_CFG", "/nonexistent/path/dartrun.yaml")

	_, err := Load()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")
}

func TestLoad_StandardLocations(t *testing.T) {
	t.Setenv("DARTRUN_CFG", "")
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("APPDATA", "")
	t.Setenv("HOME", t.TempDir())

	_, err := Load()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "standard locations")
}

func TestLoad_DARTRUN_CFG_IsDirectory(t *testing.T) {
	t.Setenv("DARTRUN_CFG", "testdata")

	_, err := Load()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "points to a directory")
}

func TestGetString(t *testing.T) {
	tests := []struct {
		name         string
		testFile     string
		key          string
		defaultValue []string
		want         string
		wantErr      bool
	}{
		{
			name:     "simple string value",
			testFile: "simple.yaml",
			key:      "dart",
			want:     "/opt/dart/bin/dart",
		},
		{
			name:         "missing key with default",
			testFile:     "simple.yaml",
			key:          "missing",
			defaultValue: []string{"default-value"},
			want:         "default-value",
		},
		{
			name:     "missing key without default",
			testFile: "simple.yaml",
			key:      "missing",
			wantErr:  true,
		},
		{
			name:     "non-string value",
			testFile: "simple.yaml",
			key:      "offline",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupTestConfig(t, tt.testFile)
			cfg, err := Load()
			require.NoError(t, err)

			got, err := cfg.GetString(tt.key, tt.defaultValue...)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetInt(t *testing.T) {
	tests := []struct {
		name         string
		testFile     string
		key          string
		defaultValue []int
		want         int
		wantErr      bool
	}{
		{
			name:     "nested int value",
			testFile: "nested.yaml",
			key:      "clean.older_than",
			want:     14,
		},
		{
			name:     "float value converted to int",
			testFile: "mixed-types.yaml",
			key:      "retention",
			want:     30,
		},
		{
			name:         "missing key with default",
			testFile:     "simple.yaml",
			key:          "missing",
			defaultValue: []int{60},
			want:         60,
		},
		{
			name:     "non-int value",
			testFile: "simple.yaml",
			key:      "dart",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupTestConfig(t, tt.testFile)
			cfg, err := Load()
			require.NoError(t, err)

			got, err := cfg.GetInt(tt.key, tt.defaultValue...)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetBool(t *testing.T) {
	setupTestConfig(t, "mixed-types.yaml")
	cfg, err := Load()
	require.NoError(t, err)

	// Quoted "yes" is a string in YAML 1.2.
	_, err = cfg.GetBool("offline")
	assert.Error(t, err)

	got, err := cfg.GetBool("aot", true)
	assert.NoError(t, err)
	assert.True(t, got)
}

func TestConfig_GetWithNamespace(t *testing.T) {
	setupTestConfig(t, "nested.yaml")
	cfg, err := Load()
	require.NoError(t, err)

	cfg.Namespace = "clean"
	workers, err := cfg.GetInt("workers")
	assert.NoError(t, err)
	assert.Equal(t, 4, workers)

	// Falls back to the top level when the namespace lacks the key.
	dir, err := cfg.GetString("cache_dir")
	assert.NoError(t, err)
	assert.Equal(t, "/var/cache/dartrun", dir)

	cfg.Namespace = "run"
	aot, err := cfg.GetBool("aot")
	assert.NoError(t, err)
	assert.True(t, aot)
}

func TestConfig_ZeroValueUsesDefaults(t *testing.T) {
	var cfg Type

	dir, err := cfg.GetString("cache_dir", "")
	assert.NoError(t, err)
	assert.Empty(t, dir)

	_, err = cfg.GetString("cache_dir")
	assert.Error(t, err)
}
