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
	"time"

	"github.com/go-logr/logr"

	"github.com/antimetal/hoststat/pkg/performance"
)

func init() {
	performance.Register(performance.MetricTypeUptime,
		func(logger logr.Logger, config performance.CollectionConfig) (performance.PointCollector, error) {
			return NewUptimeCollector(logger, config)
		},
	)
}

// Compile-time interface check
var _ performance.PointCollector = (*UptimeCollector)(nil)

// UptimeCollector reads the system uptime from /proc/uptime
//
// /proc/uptime holds two real numbers: seconds since boot and the summed idle time of
// all cores. Only the first is used; it is truncated to whole seconds and the boot
// instant is derived from the wall clock at sampling time.
//
// Reference: https://man7.org/linux/man-pages/man5/proc_uptime.5.html
type UptimeCollector struct {
	performance.BasePointCollector
}

func NewUptimeCollector(logger logr.Logger, config performance.CollectionConfig) (*UptimeCollector, error) {
	if err := config.Validate(performance.ValidateOptions{RequireHostProcPath: true}); err != nil {
		return nil, err
	}

	capabilities := performance.CollectorCapabilities{
		SupportsOneShot:  true,
		RequiresRoot:     false,
		MinKernelVersion: "2.6.0",
		Sources:          []string{"uptime"},
	}

	return &UptimeCollector{
		BasePointCollector: performance.NewBasePointCollector(
			performance.MetricTypeUptime,
			"System Uptime Collector",
			logger,
			config,
			capabilities,
		),
	}, nil
}

// Collect returns the current UptimeSample, or nil when /proc/uptime is unavailable
func (c *UptimeCollector) Collect(ctx context.Context) (any, error) {
	sample, ok := c.Uptime()
	if !ok {
		return nil, nil
	}
	return sample, nil
}

// Uptime samples /proc/uptime. ok is false when the file is absent or unparsable.
func (c *UptimeCollector) Uptime() (performance.UptimeSample, bool) {
	line := c.Reader().FirstLine("uptime")
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return performance.UptimeSample{}, false
	}

	seconds, err := strconv.ParseFloat(fields[0], 64)
	if err != nil || seconds < 0 {
		c.Logger().V(2).Info("Failed to parse uptime", "value", fields[0], "error", err)
		return performance.UptimeSample{}, false
	}

	now := time.Now()
	uptime := int64(seconds)
	return performance.UptimeSample{
		Now:           now,
		UptimeSeconds: uptime,
		Started:       now.Add(-time.Duration(uptime) * time.Second),
	}, true
}
