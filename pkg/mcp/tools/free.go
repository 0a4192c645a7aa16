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
	"github.com/antimetal/hoststat/pkg/sysinfo"
)

// FreeTool implements the `free` command equivalent.
//
// Memory figures are read once per session. With "fresh" set the tool reads them
// through a new session instead, which is the only way to observe changes.
type FreeTool struct {
	BaseTool
}

func NewFreeTool(logger logr.Logger) *FreeTool {
	return &FreeTool{
		BaseTool: NewBaseTool(
			"free",
			"Show memory usage statistics (equivalent to `free` command)",
			string(performance.MetricTypeMemory),
			logger,
			map[string]mcp.PropertySchema{
				"fresh": {
					Type:        "boolean",
					Description: "Read memory figures again instead of the values cached by this session",
					Default:     false,
				},
				"rounding": {
					Type:        "integer",
					Description: "Decimals kept in percentages",
				},
			},
		),
	}
}

func (f *FreeTool) Execute(ctx context.Context, args map[string]any) (*mcp.CallToolResponse, error) {
	session, err := f.session(ctx)
	if err != nil {
		return nil, err
	}

	fresh, err := boolArg(args, "fresh", false)
	if err != nil {
		return nil, err
	}
	if fresh {
		if session, err = f.freshSession(ctx); err != nil {
			return nil, err
		}
	}

	rounding, err := roundingArg(args, session.Config().Rounding)
	if err != nil {
		return nil, err
	}

	usage := session.MemoryUsage()
	load := session.MemoryLoad(rounding)
	if usage.Total == 0 {
		f.logger.V(1).Info("No memory information available", "procPath", session.Config().HostProcPath)
	}

	data := map[string]any{
		"usage": usage,
		"load":  load,
		"table": session.MemoryTable(),
	}

	return f.respond(args, data, func() string {
		var b strings.Builder
		fmt.Fprintf(&b, "%-6s %14s %14s %14s %9s\n", "", "total", "used", "available", "use%")
		fmt.Fprintf(&b, "%-6s %14s %14s %14s %9s\n", "Mem:",
			formatBytes(usage.Total), formatBytes(usage.Used), formatBytes(usage.Available),
			formatPercentage(load.Load, rounding))
		fmt.Fprintf(&b, "%-6s %14s %14s %14s %9s", "Swap:",
			formatBytes(usage.SwapTotal), formatBytes(usage.SwapUsed), formatBytes(usage.SwapFree),
			formatPercentage(load.SwapLoad, rounding))
		return b.String()
	})
}

func (f *FreeTool) freshSession(ctx context.Context) (*sysinfo.Session, error) {
	factory, ok := mcp.SessionFactoryFromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("fresh reads are not supported by this server")
	}
	s, err := factory()
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return s, nil
}
