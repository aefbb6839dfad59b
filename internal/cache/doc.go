// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: Apache-2.0

// Package cache owns the on-disk cache of materialized packages and compiled
// artifacts. It answers whether a reusable entry exists for a key, hands out
// the paths other components write to, and evicts entries by age or
// wholesale.
//
// Layout beneath the cache root:
//
//	v1/
//	  pkgs/<key>/pubspec.yaml
//	  pkgs/<key>/pubspec.lock
//	  pkgs/<key>/bin/main.dart
//	  aot/<key>_<os>_<arch><ext>
//	  locks/<key>.lock
package cache
