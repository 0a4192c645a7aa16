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
	"github.com/antimetal/hoststat/pkg/proc"
)

func init() {
	performance.Register(performance.MetricTypeStat,
		func(logger logr.Logger, config performance.CollectionConfig) (performance.PointCollector, error) {
			return NewStatCollector(logger, config)
		},
	)
}

// Compile-time interface check
var _ performance.PointCollector = (*StatCollector)(nil)

// StatCollector takes counter snapshots of /proc/stat
//
// Every line starting with "cpu" is a row of ten cumulative time counters in USER_HZ
// units: user nice system idle iowait irq softirq steal guest guest_nice. Older kernels
// report fewer columns; missing or malformed columns are reported as zero. The aggregate
// row is "cpu", per-core rows are "cpu0", "cpu1", ...
//
// The scalar lines ctxt, btime, processes, procs_running and procs_blocked are parsed by
// keeping only their digits. The first number of the intr line is the total interrupt
// count since boot.
//
// A snapshot on its own is not very useful; two snapshots taken some time apart are fed
// to performance.CalculateCPULoad.
//
// Reference: https://www.kernel.org/doc/html/latest/filesystems/proc.html#miscellaneous-kernel-statistics-in-proc-stat
type StatCollector struct {
	performance.BasePointCollector
}

func NewStatCollector(logger logr.Logger, config performance.CollectionConfig) (*StatCollector, error) {
	if err := config.Validate(performance.ValidateOptions{RequireHostProcPath: true}); err != nil {
		return nil, err
	}

	capabilities := performance.CollectorCapabilities{
		SupportsOneShot:  true,
		RequiresRoot:     false,
		MinKernelVersion: "2.6.0",
		Sources:          []string{"stat"},
	}

	return &StatCollector{
		BasePointCollector: performance.NewBasePointCollector(
			performance.MetricTypeStat,
			"CPU Counter Collector",
			logger,
			config,
			capabilities,
		),
	}, nil
}

func (c *StatCollector) Collect(ctx context.Context) (any, error) {
	return c.Snapshot(), nil
}

// Snapshot parses /proc/stat. A missing file yields a snapshot with no rows.
func (c *StatCollector) Snapshot() performance.CPUCounterSnapshot {
	snapshot := performance.CPUCounterSnapshot{
		Taken: time.Now(),
		CPUs:  []performance.CPUCounters{},
	}

	for _, line := range c.Reader().Lines("stat") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		key := fields[0]
		if strings.HasPrefix(key, performance.AggregateCPUID) {
			snapshot.CPUs = append(snapshot.CPUs, c.parseCPULine(key, fields[1:]))
			continue
		}

		rest := strings.Join(fields[1:], " ")
		switch key {
		case "ctxt":
			snapshot.Ctxt = c.parseScalar(key, rest)
		case "btime":
			snapshot.BTime = c.parseScalar(key, rest)
		case "processes":
			snapshot.Processes = c.parseScalar(key, rest)
		case "procs_running":
			snapshot.ProcsRunning = c.parseScalar(key, rest)
		case "procs_blocked":
			snapshot.ProcsBlocked = c.parseScalar(key, rest)
		case "intr":
			if len(fields) > 1 {
				snapshot.Interrupts = c.parseCounter(key, fields[1])
			}
		}
	}

	return snapshot
}

// parseCPULine maps the columns of a cpu row onto CPUCounters in fixed order
func (c *StatCollector) parseCPULine(id string, values []string) performance.CPUCounters {
	counters := performance.CPUCounters{ID: id}
	targets := []*uint64{
		&counters.User,
		&counters.Nice,
		&counters.System,
		&counters.Idle,
		&counters.IOWait,
		&counters.IRQ,
		&counters.SoftIRQ,
		&counters.Steal,
		&counters.Guest,
		&counters.GuestNice,
	}

	for i, target := range targets {
		if i >= len(values) {
			break
		}
		*target = c.parseCounter(id, values[i])
	}
	return counters
}

func (c *StatCollector) parseCounter(key, value string) uint64 {
	v, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		c.Logger().V(2).Info("Failed to parse counter", "key", key, "value", value, "error", err)
		return 0
	}
	return v
}

func (c *StatCollector) parseScalar(key, value string) uint64 {
	v, ok := proc.ParseDigits(value)
	if !ok {
		c.Logger().V(2).Info("Failed to parse scalar", "key", key, "value", value)
		return 0
	}
	return v
}
