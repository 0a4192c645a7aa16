// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package tools

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/antimetal/hoststat/pkg/mcp"
	"github.com/antimetal/hoststat/pkg/performance"
)

// VersionTool reports the kernel build strings, like `cat /proc/version`
type VersionTool struct {
	BaseTool
}

func NewVersionTool(logger logr.Logger) *VersionTool {
	return &VersionTool{
		BaseTool: NewBaseTool(
			"version",
			"Show the running kernel version and build information",
			string(performance.MetricTypeVersion),
			logger,
			nil,
		),
	}
}

func (v *VersionTool) Execute(ctx context.Context, args map[string]any) (*mcp.CallToolResponse, error) {
	session, err := v.session(ctx)
	if err != nil {
		return nil, err
	}

	info := session.Version()
	data := map[string]any{
		"version":           info.Version,
		"version_signature": info.VersionSignature,
	}
	if info.Kernel != nil {
		data["release"] = info.Kernel.Raw
		data["kernel"] = info.Kernel.String()
	}

	return v.respond(args, data, func() string {
		if info.VersionSignature == "" {
			return info.Version
		}
		return info.Version + "\n" + info.VersionSignature
	})
}

// LoadAvgTool reports /proc/loadavg
type LoadAvgTool struct {
	BaseTool
}

func NewLoadAvgTool(logger logr.Logger) *LoadAvgTool {
	return &LoadAvgTool{
		BaseTool: NewBaseTool(
			"loadavg",
			"Show 1, 5 and 15 minute load averages with runnable and total process counts",
			string(performance.MetricTypeLoad),
			logger,
			nil,
		),
	}
}

func (l *LoadAvgTool) Execute(ctx context.Context, args map[string]any) (*mcp.CallToolResponse, error) {
	session, err := l.session(ctx)
	if err != nil {
		return nil, err
	}

	stats, ok := session.LoadAverage()
	if !ok {
		return nil, fmt.Errorf("load averages not available under %s", session.Config().HostProcPath)
	}

	return l.respond(args, stats, func() string {
		return fmt.Sprintf("load average: %.2f, %.2f, %.2f, %d/%d processes running, last pid %d",
			stats.Load1Min, stats.Load5Min, stats.Load15Min,
			stats.RunningProcs, stats.TotalProcs, stats.LastPID)
	})
}
