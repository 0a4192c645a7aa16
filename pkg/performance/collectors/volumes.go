// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package collectors

import (
	"context"

	"github.com/go-logr/logr"

	"github.com/antimetal/hoststat/pkg/performance"
)

func init() {
	performance.Register(performance.MetricTypeVolumes,
		func(logger logr.Logger, config performance.CollectionConfig) (performance.PointCollector, error) {
			return NewVolumeCollector(logger, config)
		},
	)
}

// Compile-time interface check
var _ performance.PointCollector = (*VolumeCollector)(nil)

// FSStats is the subset of statfs(2) output needed for volume usage
type FSStats struct {
	Blocks uint64 // Total data blocks
	Bfree  uint64 // Free blocks
	Bavail uint64 // Free blocks available to unprivileged users
	Bsize  uint64 // Preferred I/O block size in bytes
	Frsize uint64 // Fragment size in bytes; the block counts are in these units
}

// unit returns the size of the units Blocks, Bfree and Bavail count in
func (st FSStats) unit() uint64 {
	if st.Frsize != 0 {
		return st.Frsize
	}
	return st.Bsize
}

// StatFunc returns file system statistics for the file system mounted at path
type StatFunc func(path string) (FSStats, error)

// VolumeOption configures a VolumeCollector
type VolumeOption func(*VolumeCollector)

// WithStatFunc replaces the statfs(2) call, mostly for tests
func WithStatFunc(fn StatFunc) VolumeOption {
	return func(c *VolumeCollector) {
		c.statfs = fn
	}
}

// VolumeCollector reports mounts of real file systems together with live usage
//
// Mounts are taken from /proc/mounts and filtered by file system type against an
// allow-list, which keeps pseudo file systems (proc, sysfs, tmpfs, cgroup...) out.
// Each remaining mount point is passed to statfs(2):
//
//	total = f_blocks * f_bsize
//	free  = f_bavail * f_bsize
//	used  = total - free
//
// A failing statfs leaves Usage nil rather than failing the whole listing.
type VolumeCollector struct {
	performance.BasePointCollector
	mounts *MountCollector
	statfs StatFunc
}

func NewVolumeCollector(logger logr.Logger, config performance.CollectionConfig, opts ...VolumeOption) (*VolumeCollector, error) {
	mounts, err := NewMountCollector(logger, config)
	if err != nil {
		return nil, err
	}

	capabilities := performance.CollectorCapabilities{
		SupportsOneShot:  true,
		RequiresRoot:     false,
		MinKernelVersion: "2.6.0",
		Sources:          []string{"mounts"},
	}

	c := &VolumeCollector{
		BasePointCollector: performance.NewBasePointCollector(
			performance.MetricTypeVolumes,
			"Volume Usage Collector",
			logger,
			config,
			capabilities,
		),
		mounts: mounts,
		statfs: statfs,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *VolumeCollector) Collect(ctx context.Context) (any, error) {
	return c.Volumes(), nil
}

// Volumes returns the mounts whose file system type is in types, each with usage
// attached when statfs succeeds. Without types the configured allow-list is used.
func (c *VolumeCollector) Volumes(types ...string) []performance.MountRecord {
	if len(types) == 0 {
		types = c.Config().AllowedFilesystems
	}
	if len(types) == 0 {
		types = performance.DefaultAllowedFilesystems
	}
	allowed := make(map[string]bool, len(types))
	for _, t := range types {
		allowed[t] = true
	}

	volumes := []performance.MountRecord{}
	for _, m := range c.mounts.Mounts() {
		if !allowed[m.FileSystemType] {
			continue
		}

		st, err := c.statfs(m.MountPoint)
		if err != nil {
			c.Logger().V(1).Info("statfs failed, reporting volume without usage",
				"mountPoint", m.MountPoint, "error", err)
		} else {
			unit := st.unit()
			usage := performance.NewVolumeUsage(st.Blocks*unit, st.Bavail*unit, c.Config().Rounding)
			m.Usage = &usage
		}
		volumes = append(volumes, m)
	}

	return volumes
}
