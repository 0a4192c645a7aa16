// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

// Package kernel parses and compares Linux kernel release strings
package kernel

import (
	"cmp"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Version represents a parsed kernel version
type Version struct {
	Major int
	Minor int
	Patch int
	Raw   string // Original version string
}

// versionPrefix precedes the release string in /proc/version
const versionPrefix = "Linux version "

// GetCurrentVersion returns the kernel version read from <procPath>/version
func GetCurrentVersion(procPath string) (*Version, error) {
	path := filepath.Join(procPath, "version")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return ParseVersionLine(string(data))
}

// ParseVersionLine extracts the release from a /proc/version line such as
// "Linux version 5.15.0-91-generic (buildd@...) ..." and parses it.
func ParseVersionLine(line string) (*Version, error) {
	line = strings.TrimSpace(line)
	rest, ok := strings.CutPrefix(line, versionPrefix)
	if !ok {
		return nil, fmt.Errorf("unexpected /proc/version format: %q", line)
	}
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return nil, fmt.Errorf("unexpected /proc/version format: %q", line)
	}
	return ParseVersion(fields[0])
}

// ParseVersion parses a kernel version string (e.g., "5.15.0-generic" or "5.15.0")
func ParseVersion(version string) (*Version, error) {
	v := &Version{Raw: version}

	// Remove any suffix (e.g., "-generic")
	if idx := strings.Index(version, "-"); idx != -1 {
		version = version[:idx]
	}

	// Parse X.Y.Z format
	parts := strings.Split(version, ".")
	if len(parts) < 2 {
		return nil, fmt.Errorf("invalid kernel version format: %s", version)
	}

	// Parse major version
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil, fmt.Errorf("invalid major version: %s", parts[0])
	}
	v.Major = major

	// Parse minor version
	minor, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, fmt.Errorf("invalid minor version: %s", parts[1])
	}
	v.Minor = minor

	// Parse patch version if present
	if len(parts) >= 3 {
		patch, err := strconv.Atoi(parts[2])
		if err != nil {
			// Patch might have additional info, just use 0
			v.Patch = 0
		} else {
			v.Patch = patch
		}
	}

	return v, nil
}

// String returns the version as a string
func (v *Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Compare returns -1 if v < other, 0 if v == other, 1 if v > other
func (v *Version) Compare(other *Version) int {
	if c := cmp.Compare(v.Major, other.Major); c != 0 {
		return c
	}
	if c := cmp.Compare(v.Minor, other.Minor); c != 0 {
		return c
	}
	return cmp.Compare(v.Patch, other.Patch)
}
