// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

// Package units formats byte counts and durations for human consumption.
package units

import (
	"fmt"
	"strconv"
	"time"

	"github.com/antimetal/hoststat/pkg/proc"
)

var byteUnits = []string{"bytes", "KB", "MB", "GB", "TB"}

// FormatBytes renders size using base-1024 units, e.g. "1023 bytes", "1 KB", "1.5 MB".
//
// The unit is floor(log1024(size)) capped at TB. The value is rounded to two decimals
// with trailing zeros dropped. Sizes <= 0 are returned as the plain integer.
func FormatBytes(size int64) string {
	if size <= 0 {
		return strconv.FormatInt(size, 10)
	}

	exp := 0
	div := int64(1)
	for n := size; n >= 1024 && exp < len(byteUnits)-1; n /= 1024 {
		div *= 1024
		exp++
	}

	value := proc.Round(float64(size)/float64(div), 2)
	return strconv.FormatFloat(value, 'f', -1, 64) + " " + byteUnits[exp]
}

// FormatUint is FormatBytes for unsigned counters. Values beyond int64 are clamped.
func FormatUint(size uint64) string {
	const maxInt64 = 1<<63 - 1
	if size > maxInt64 {
		size = maxInt64
	}
	return FormatBytes(int64(size))
}

// FormatUptime renders d the way uptime(1) does: "3 days, 4:05", "1 day, 0:00" or "12 min".
func FormatUptime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	days := int(d / (24 * time.Hour))
	hours := int(d/time.Hour) % 24
	minutes := int(d/time.Minute) % 60

	var clock string
	if days == 0 && hours == 0 {
		clock = fmt.Sprintf("%d min", minutes)
	} else {
		clock = fmt.Sprintf("%d:%02d", hours, minutes)
	}

	switch days {
	case 0:
		return clock
	case 1:
		return "1 day, " + clock
	default:
		return fmt.Sprintf("%d days, %s", days, clock)
	}
}

// FormatPercent formats value as a percentage with the given decimals.
func FormatPercent(value float64, decimals int) string {
	return strconv.FormatFloat(proc.Round(value, decimals), 'f', decimals, 64) + "%"
}
