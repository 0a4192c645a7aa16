// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package performance

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// DefaultMemoryUnitScale converts meminfo "kB" values to bytes. The kernel unit is
	// really KiB; 1000 is kept as the default for compatibility with existing consumers.
	DefaultMemoryUnitScale = 1000
	// DefaultRounding is the number of decimals kept in percentages
	DefaultRounding = 2
	// DefaultSampleInterval separates the two /proc/stat snapshots of a CPU load query
	DefaultSampleInterval = time.Second
)

// DefaultAllowedFilesystems are the file system types reported as volumes
var DefaultAllowedFilesystems = []string{
	"ext2", "ext3", "ext4", "xfs", "btrfs", "zfs", "vfat", "exfat", "ntfs", "f2fs",
}

// CollectionConfig represents configuration for metric collection
type CollectionConfig struct {
	HostProcPath       string        `yaml:"hostProcPath"` // Path to /proc (useful for containers)
	HostEtcPath        string        `yaml:"hostEtcPath"`  // Path to /etc (useful for containers)
	AllowedFilesystems []string      `yaml:"allowedFilesystems"`
	Rounding           int           `yaml:"rounding"`
	SampleInterval     time.Duration `yaml:"sampleInterval"`
	MemoryUnitScale    uint64        `yaml:"memoryUnitScale"`
}

// DefaultCollectionConfig returns a default configuration
func DefaultCollectionConfig() CollectionConfig {
	return CollectionConfig{
		HostProcPath:       "/proc",
		HostEtcPath:        "/etc",
		AllowedFilesystems: append([]string(nil), DefaultAllowedFilesystems...),
		Rounding:           DefaultRounding,
		SampleInterval:     DefaultSampleInterval,
		MemoryUnitScale:    DefaultMemoryUnitScale,
	}
}

// ApplyDefaults fills in zero values with defaults.
// Rounding is left alone since zero decimals is a valid choice.
func (c *CollectionConfig) ApplyDefaults() {
	defaults := DefaultCollectionConfig()

	if c.HostProcPath == "" {
		c.HostProcPath = defaults.HostProcPath
	}
	if c.HostEtcPath == "" {
		c.HostEtcPath = defaults.HostEtcPath
	}
	if len(c.AllowedFilesystems) == 0 {
		c.AllowedFilesystems = defaults.AllowedFilesystems
	}
	if c.SampleInterval == 0 {
		c.SampleInterval = defaults.SampleInterval
	}
	if c.MemoryUnitScale == 0 {
		c.MemoryUnitScale = defaults.MemoryUnitScale
	}
}

// ValidateOptions specifies validation requirements for CollectionConfig
type ValidateOptions struct {
	RequireHostProcPath bool
	RequireHostEtcPath  bool
	// RequireProcMounted checks that HostProcPath exists and is a directory
	RequireProcMounted bool
}

// Validate ensures that all configured paths are absolute paths and that required paths are non-empty.
func (c *CollectionConfig) Validate(opt ValidateOptions) error {
	if opt.RequireHostProcPath && c.HostProcPath == "" {
		return fmt.Errorf("HostProcPath is required but not provided")
	}
	if opt.RequireHostEtcPath && c.HostEtcPath == "" {
		return fmt.Errorf("HostEtcPath is required but not provided")
	}

	if c.HostProcPath != "" && !filepath.IsAbs(c.HostProcPath) {
		return fmt.Errorf("HostProcPath must be an absolute path, got: %q", c.HostProcPath)
	}
	if c.HostEtcPath != "" && !filepath.IsAbs(c.HostEtcPath) {
		return fmt.Errorf("HostEtcPath must be an absolute path, got: %q", c.HostEtcPath)
	}

	if c.Rounding < 0 {
		return fmt.Errorf("Rounding must not be negative, got: %d", c.Rounding)
	}
	if c.SampleInterval < 0 {
		return fmt.Errorf("SampleInterval must not be negative, got: %s", c.SampleInterval)
	}

	if opt.RequireProcMounted {
		info, err := os.Stat(c.HostProcPath)
		if err != nil {
			return fmt.Errorf("procfs not available at %s: %w", c.HostProcPath, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("procfs not available at %s: not a directory", c.HostProcPath)
		}
	}
	return nil
}
