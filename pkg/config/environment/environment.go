// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

// Package environment provides utilities for extracting configuration from environment variables
package environment

import (
	"os"
	"path/filepath"
)

// HostPaths contains the host filesystem paths for containerized environments
type HostPaths struct {
	Proc string // Path to /proc (e.g., /host/proc in containers)
	Etc  string // Path to /etc (e.g., /host/etc in containers)
	Var  string // Path to /var (e.g., /host/var in containers)
}

// GetHostPaths returns the host filesystem paths from environment variables,
// with defaults if not set.
func GetHostPaths() HostPaths {
	paths := HostPaths{
		Proc: "/proc",
		Etc:  "/etc",
		Var:  "/var",
	}

	if procPath := os.Getenv("HOST_PROC"); procPath != "" {
		paths.Proc = procPath
	}
	if etcPath := os.Getenv("HOST_ETC"); etcPath != "" {
		paths.Etc = etcPath
	}
	if varPath := os.Getenv("HOST_VAR"); varPath != "" {
		paths.Var = varPath
	}

	return paths
}

// VarFromEtc guesses the /var directory that sits next to etc, so that a host root
// mounted at /host yields /host/var for /host/etc.
func VarFromEtc(etc string) string {
	return filepath.Join(filepath.Dir(filepath.Clean(etc)), "var")
}

// ConfigFile returns the path of the hoststat configuration file from HOSTSTAT_CONFIG,
// or "" when unset.
func ConfigFile() string {
	return os.Getenv("HOSTSTAT_CONFIG")
}
