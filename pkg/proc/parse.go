// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package proc

import (
	"math"
	"strconv"
	"strings"
)

// ParseDigits keeps only the ASCII digits of s and parses them as an unsigned integer.
//
// Signs, separators and unit suffixes are discarded, so "MemTotal: 16384 kB" yields 16384
// and "-5" yields 5. It returns false when s contains no digits or the digits overflow.
func ParseDigits(s string) (uint64, bool) {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b.WriteByte(s[i])
		}
	}
	if b.Len() == 0 {
		return 0, false
	}
	v, err := strconv.ParseUint(b.String(), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// NormalizeKey trims s, lowercases it and replaces inner spaces with underscores.
// "model name\t" becomes "model_name".
func NormalizeKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")
}

// SplitKeyValue splits line on its first colon. ok is false when there is no colon.
func SplitKeyValue(line string) (key, value string, ok bool) {
	idx := strings.IndexByte(line, ':')
	if idx < 0 {
		return "", "", false
	}
	return line[:idx], line[idx+1:], true
}

// Round rounds v to the given number of decimal places, halves away from zero.
// Negative places are treated as zero.
func Round(v float64, places int) float64 {
	if places < 0 {
		places = 0
	}
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}
