// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package output

import (
	"time"

	"github.com/dustin/go-humanize"
)

// Bytes renders a size the way humans read it, in IEC units.
func Bytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

// Age renders t relative to now. The zero time renders as "-".
func Age(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

// Count renders an integer with thousands separators.
func Count(n int) string {
	return humanize.Comma(int64(n))
}

// YesNo renders a validity flag.
func YesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
