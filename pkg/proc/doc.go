// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

// Package proc provides low-level helpers for reading pseudo-files from the /proc filesystem.
//
// Pseudo-files are treated as optional inputs: a missing, unreadable or empty file yields
// an empty slice of lines rather than an error. Callers decide whether absence matters.
// All helpers take a procfs root so they work against a host /proc mounted inside a
// container or a fake tree built in tests.
//
// Example usage:
//
//	r := proc.NewReader("/host/proc", logger)
//	for _, line := range r.Lines("meminfo") {
//		...
//	}
//
//	// Digit extraction used for scalar /proc/stat lines
//	ctxt, ok := proc.ParseDigits("ctxt 987654321")
package proc
