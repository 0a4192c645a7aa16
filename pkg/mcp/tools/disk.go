// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-logr/logr"

	"github.com/antimetal/hoststat/pkg/mcp"
	"github.com/antimetal/hoststat/pkg/performance"
)

// MountsTool lists every mounted file system, like `cat /proc/mounts`
type MountsTool struct {
	BaseTool
}

func NewMountsTool(logger logr.Logger) *MountsTool {
	return &MountsTool{
		BaseTool: NewBaseTool(
			"mounts",
			"List all mounted file systems with device, mount point, type and options",
			string(performance.MetricTypeMounts),
			logger,
			nil,
		),
	}
}

func (m *MountsTool) Execute(ctx context.Context, args map[string]any) (*mcp.CallToolResponse, error) {
	session, err := m.session(ctx)
	if err != nil {
		return nil, err
	}

	mounts := session.Mounts()
	return m.respond(args, mounts, func() string {
		var b strings.Builder
		fmt.Fprintf(&b, "%-30s %-30s %-10s %s", "Device", "Mounted on", "Type", "Options")
		for _, mount := range mounts {
			fmt.Fprintf(&b, "\n%-30s %-30s %-10s %s", mount.Device, mount.MountPoint, mount.FileSystemType, mount.Options)
		}
		return b.String()
	})
}

// DfTool implements the `df` command equivalent for allow-listed file systems
type DfTool struct {
	BaseTool
}

func NewDfTool(logger logr.Logger) *DfTool {
	return &DfTool{
		BaseTool: NewBaseTool(
			"df",
			"Show disk space usage of real file systems (equivalent to `df` command)",
			string(performance.MetricTypeVolumes),
			logger,
			map[string]mcp.PropertySchema{
				"types": {
					Type:        "array",
					Description: "File system types to report instead of the configured allow-list",
					Items:       &mcp.Items{Type: "string"},
				},
			},
		),
	}
}

func (d *DfTool) Execute(ctx context.Context, args map[string]any) (*mcp.CallToolResponse, error) {
	session, err := d.session(ctx)
	if err != nil {
		return nil, err
	}

	types, err := stringsArg(args, "types")
	if err != nil {
		return nil, err
	}

	volumes := session.Volumes(types...)
	rounding := session.Config().Rounding
	return d.respond(args, volumes, func() string {
		var b strings.Builder
		fmt.Fprintf(&b, "%-24s %12s %12s %12s %8s  %s", "Filesystem", "Size", "Used", "Avail", "Use%", "Mounted on")
		for _, v := range volumes {
			if v.Usage == nil {
				fmt.Fprintf(&b, "\n%-24s %12s %12s %12s %8s  %s", v.Device, "-", "-", "-", "-", v.MountPoint)
				continue
			}
			fmt.Fprintf(&b, "\n%-24s %12s %12s %12s %8s  %s", v.Device,
				formatBytes(v.Usage.TotalBytes), formatBytes(v.Usage.UsedBytes), formatBytes(v.Usage.FreeBytes),
				formatPercentage(v.Usage.UsedPercent, rounding), v.MountPoint)
		}
		return b.String()
	})
}

// PartitionsTool reports the block device table of /proc/partitions
type PartitionsTool struct {
	BaseTool
}

func NewPartitionsTool(logger logr.Logger) *PartitionsTool {
	return &PartitionsTool{
		BaseTool: NewBaseTool(
			"partitions",
			"List block devices and partitions with their major:minor numbers and sizes",
			string(performance.MetricTypePartitions),
			logger,
			nil,
		),
	}
}

func (p *PartitionsTool) Execute(ctx context.Context, args map[string]any) (*mcp.CallToolResponse, error) {
	session, err := p.session(ctx)
	if err != nil {
		return nil, err
	}

	table := session.Partitions()
	return p.respond(args, table, func() string {
		var b strings.Builder
		fmt.Fprintf(&b, "%-16s %-10s %12s", "Name", "Device", "Size")
		for _, part := range table {
			fmt.Fprintf(&b, "\n%-16s %-10s %12s", part.Name, part.Device(), formatBytes(part.Bytes))
		}
		return b.String()
	})
}
