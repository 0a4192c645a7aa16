// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/antimetal/hoststat/pkg/mcp"
	"github.com/antimetal/hoststat/pkg/performance"
)

// maxSampleInterval bounds how long a cpu_load call may block
const maxSampleInterval = 60 * time.Second

// CPUInfoTool reports processor identity from /proc/cpuinfo
type CPUInfoTool struct {
	BaseTool
}

func NewCPUInfoTool(logger logr.Logger) *CPUInfoTool {
	return &CPUInfoTool{
		BaseTool: NewBaseTool(
			"cpuinfo",
			"Show processor identity per core, optionally restricted to one core or some fields",
			string(performance.MetricTypeCPUInfo),
			logger,
			map[string]mcp.PropertySchema{
				"core": {
					Type:        "integer",
					Description: "Only report this core (0-based)",
				},
				"fields": {
					Type:        "array",
					Description: "Only report these fields, e.g. [\"model name\", \"cpu MHz\"]",
					Items:       &mcp.Items{Type: "string"},
				},
			},
		),
	}
}

func (c *CPUInfoTool) Execute(ctx context.Context, args map[string]any) (*mcp.CallToolResponse, error) {
	session, err := c.session(ctx)
	if err != nil {
		return nil, err
	}

	fields, err := stringsArg(args, "fields")
	if err != nil {
		return nil, err
	}

	var records []performance.CPUIdentityRecord
	if _, ok := args["core"]; ok {
		core, err := intArg(args, "core", 0)
		if err != nil {
			return nil, err
		}
		records = []performance.CPUIdentityRecord{session.CPUInfoCore(core, fields...)}
	} else {
		records = session.CPUInfo(fields...)
	}

	return c.respond(args, records, func() string {
		var b strings.Builder
		for i, record := range records {
			if i > 0 {
				b.WriteString("\n")
			}
			keys := make([]string, 0, len(record))
			for k := range record {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(&b, "%-20s: %s\n", k, record[k])
			}
		}
		return strings.TrimRight(b.String(), "\n")
	})
}

// CPULoadTool samples /proc/stat twice and reports utilization, like `mpstat -P ALL 1 1`
type CPULoadTool struct {
	BaseTool
}

func NewCPULoadTool(logger logr.Logger) *CPULoadTool {
	return &CPULoadTool{
		BaseTool: NewBaseTool(
			"cpu_load",
			"Show CPU utilization over a sampling interval for all CPUs and each core",
			"cpu_load",
			logger,
			map[string]mcp.PropertySchema{
				"interval": {
					Type:        "number",
					Description: "Seconds between the two samples (default: configured sample interval)",
				},
				"rounding": {
					Type:        "integer",
					Description: "Decimals kept in percentages",
				},
			},
		),
	}
}

func (c *CPULoadTool) Execute(ctx context.Context, args map[string]any) (*mcp.CallToolResponse, error) {
	session, err := c.session(ctx)
	if err != nil {
		return nil, err
	}

	seconds, err := numberArg(args, "interval", 0)
	if err != nil {
		return nil, err
	}
	interval := time.Duration(seconds * float64(time.Second))
	if interval < 0 || interval > maxSampleInterval {
		return nil, fmt.Errorf("interval must be between 0 and %s, got %s", maxSampleInterval, interval)
	}

	rounding, err := roundingArg(args, session.Config().Rounding)
	if err != nil {
		return nil, err
	}

	loads, err := session.CPULoad(ctx, interval, rounding)
	if err != nil {
		return nil, fmt.Errorf("failed to sample cpu load: %w", err)
	}

	return c.respond(args, loads, func() string {
		var b strings.Builder
		fmt.Fprintf(&b, "%-8s %8s", "CPU", "%busy")
		for _, l := range loads {
			fmt.Fprintf(&b, "\n%-8s %8s", l.Label, formatPercentage(l.Percent, rounding))
		}
		return b.String()
	})
}
