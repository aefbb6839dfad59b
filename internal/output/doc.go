// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

// Package output renders command results as tables, json or yaml, and
// formats sizes and ages for people.
package output
