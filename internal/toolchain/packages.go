// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package toolchain

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/tidwall/gjson"
)

// Package is one entry of a resolved package config.
type Package struct {
	Name            string
	RootURI         string
	LanguageVersion string
}

// PackageConfigPath is where `dart pub get` leaves the package config for
// the package at pkgDir.
func PackageConfigPath(pkgDir string) string {
	return filepath.Join(pkgDir, ".dart_tool", "package_config.json")
}

// ResolvedPackages lists the packages the resolver recorded for pkgDir,
// sorted by name. The script's own package is included.
func ResolvedPackages(pkgDir string) ([]Package, error) {
	raw, err := os.ReadFile(PackageConfigPath(pkgDir))
	if err != nil {
		return nil, fmt.Errorf("failed to read package config: %w", err)
	}
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("package config %s is not valid JSON", PackageConfigPath(pkgDir))
	}

	var pkgs []Package
	gjson.GetBytes(raw, "packages").ForEach(func(_, p gjson.Result) bool {
		pkgs = append(pkgs, Package{
			Name:            p.Get("name").String(),
			RootURI:         p.Get("rootUri").String(),
			LanguageVersion: p.Get("languageVersion").String(),
		})
		return true
	})
	sort.Slice(pkgs, func(i, j int) bool { return pkgs[i].Name < pkgs[j].Name })
	return pkgs, nil
}
