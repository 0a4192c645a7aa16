// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package collectors

import (
	"context"
	"strconv"
	"strings"

	"github.com/go-logr/logr"

	"github.com/antimetal/hoststat/pkg/performance"
)

func init() {
	performance.Register(performance.MetricTypeLoad,
		func(logger logr.Logger, config performance.CollectionConfig) (performance.PointCollector, error) {
			return NewLoadCollector(logger, config)
		},
	)
}

// Compile-time interface check
var _ performance.PointCollector = (*LoadCollector)(nil)

// LoadCollector collects system load statistics from /proc/loadavg
//
// Format: 0.00 0.01 0.05 1/234 5678
// Where: 1min 5min 15min running/total lastpid
//
// Reference: https://man7.org/linux/man-pages/man5/proc_loadavg.5.html
type LoadCollector struct {
	performance.BasePointCollector
}

func NewLoadCollector(logger logr.Logger, config performance.CollectionConfig) (*LoadCollector, error) {
	if err := config.Validate(performance.ValidateOptions{RequireHostProcPath: true}); err != nil {
		return nil, err
	}

	capabilities := performance.CollectorCapabilities{
		SupportsOneShot:  true,
		RequiresRoot:     false,
		MinKernelVersion: "2.6.0", // /proc/loadavg has been around forever
		Sources:          []string{"loadavg"},
	}

	return &LoadCollector{
		BasePointCollector: performance.NewBasePointCollector(
			performance.MetricTypeLoad,
			"System Load Collector",
			logger,
			config,
			capabilities,
		),
	}, nil
}

func (c *LoadCollector) Collect(ctx context.Context) (any, error) {
	stats, ok := c.LoadAverage()
	if !ok {
		return nil, nil
	}
	return stats, nil
}

// LoadAverage parses /proc/loadavg. ok is false when the file is absent or has fewer
// than three fields; individual malformed fields are reported as zero.
func (c *LoadCollector) LoadAverage() (performance.LoadStats, bool) {
	fields := strings.Fields(c.Reader().FirstLine("loadavg"))
	if len(fields) < 3 {
		return performance.LoadStats{}, false
	}

	stats := performance.LoadStats{
		Load1Min:  c.parseFloat("load1", fields[0]),
		Load5Min:  c.parseFloat("load5", fields[1]),
		Load15Min: c.parseFloat("load15", fields[2]),
	}

	if len(fields) > 3 {
		running, total, found := strings.Cut(fields[3], "/")
		if found {
			stats.RunningProcs = c.parseInt32("running", running)
			stats.TotalProcs = c.parseInt32("total", total)
		} else {
			c.Logger().V(2).Info("Unexpected process format", "value", fields[3])
		}
	}
	if len(fields) > 4 {
		stats.LastPID = c.parseInt32("last_pid", fields[4])
	}

	return stats, true
}

func (c *LoadCollector) parseFloat(name, value string) float64 {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		c.Logger().V(2).Info("Failed to parse load field", "field", name, "value", value, "error", err)
		return 0
	}
	return v
}

func (c *LoadCollector) parseInt32(name, value string) int32 {
	v, err := strconv.ParseInt(value, 10, 32)
	if err != nil {
		c.Logger().V(2).Info("Failed to parse load field", "field", name, "value", value, "error", err)
		return 0
	}
	return int32(v)
}
