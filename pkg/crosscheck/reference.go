// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package crosscheck

import (
	"context"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// Reference supplies the readings hoststat is checked against. Sizes are bytes
// and times are unix seconds.
type Reference interface {
	Name() string
	MemoryTotal(ctx context.Context) (uint64, error)
	LogicalCores(ctx context.Context) (int, error)
	BootTime(ctx context.Context) (uint64, error)
	VolumeTotal(ctx context.Context, path string) (uint64, error)
}

// Gopsutil reads the reference values through gopsutil. gopsutil locates procfs
// through the HOST_PROC environment variable, not through CollectionConfig.
type Gopsutil struct{}

var _ Reference = Gopsutil{}

func (Gopsutil) Name() string {
	return "gopsutil"
}

func (Gopsutil) MemoryTotal(ctx context.Context) (uint64, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, err
	}
	return vm.Total, nil
}

func (Gopsutil) LogicalCores(ctx context.Context) (int, error) {
	return cpu.CountsWithContext(ctx, true)
}

func (Gopsutil) BootTime(ctx context.Context) (uint64, error) {
	return host.BootTimeWithContext(ctx)
}

func (Gopsutil) VolumeTotal(ctx context.Context, path string) (uint64, error) {
	usage, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		return 0, err
	}
	return usage.Total, nil
}
