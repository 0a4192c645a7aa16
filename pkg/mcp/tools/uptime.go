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

// UptimeTool implements the `uptime` command equivalent
type UptimeTool struct {
	BaseTool
}

func NewUptimeTool(logger logr.Logger) *UptimeTool {
	return &UptimeTool{
		BaseTool: NewBaseTool(
			"uptime",
			"Show how long the system has been running and the load averages (equivalent to `uptime` command)",
			string(performance.MetricTypeUptime),
			logger,
			nil,
		),
	}
}

func (u *UptimeTool) Execute(ctx context.Context, args map[string]any) (*mcp.CallToolResponse, error) {
	session, err := u.session(ctx)
	if err != nil {
		return nil, err
	}

	sample, ok := session.Uptime()
	if !ok {
		return nil, fmt.Errorf("uptime not available under %s", session.Config().HostProcPath)
	}
	load, hasLoad := session.LoadAverage()

	data := map[string]any{
		"now":            sample.Now,
		"started":        sample.Started,
		"uptime_seconds": sample.UptimeSeconds,
		"uptime_human":   sample.Human(),
	}
	if hasLoad {
		data["load_1min"] = load.Load1Min
		data["load_5min"] = load.Load5Min
		data["load_15min"] = load.Load15Min
	}

	return u.respond(args, data, func() string {
		// 14:25:12 up 8 days, 4:32, load average: 0.52, 0.47, 0.45
		text := fmt.Sprintf("%s up %s", sample.Now.Format("15:04:05"), sample.Human())
		if hasLoad {
			text += fmt.Sprintf(", load average: %.2f, %.2f, %.2f", load.Load1Min, load.Load5Min, load.Load15Min)
		}
		return text
	})
}
