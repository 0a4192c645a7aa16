// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

// Package host provides utilities for host and machine identification
package host

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// maxHostnameLen bounds the read of the kernel hostname file; enough for a DNS name.
const maxHostnameLen = 512

// Hostname returns the hostname reported by the kernel under procPath.
// In particular it returns the hostname of the host machine when inside a
// container with the host /proc mounted.
func Hostname(procPath string) (string, error) {
	hostFile := filepath.Join(procPath, "sys/kernel/hostname")
	f, err := os.Open(hostFile)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, maxHostnameLen)
	n, err := f.Read(buf)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", hostFile, err)
	}

	name := strings.TrimSpace(string(buf[:n]))
	if name == "" {
		return "", fmt.Errorf("empty hostname in %s", hostFile)
	}
	return name, nil
}

// MachineID returns a unique machine ID of the local system that is set
// during installation or boot.
// It attempts multiple sources in order of preference:
// 1. <etcPath>/machine-id (systemd standard, most reliable)
// 2. <varPath>/lib/dbus/machine-id (D-Bus machine ID, fallback)
func MachineID(etcPath, varPath string) (string, error) {
	candidates := []string{
		filepath.Join(etcPath, "machine-id"),
		filepath.Join(varPath, "lib/dbus/machine-id"),
	}

	for _, path := range candidates {
		if data, err := os.ReadFile(path); err == nil {
			if id := strings.TrimSpace(string(data)); id != "" {
				return id, nil
			}
		}
	}

	return "", fmt.Errorf("machine-id not found")
}
