// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package crosscheck

import (
	"context"
	"time"

	"github.com/go-logr/logr"

	"github.com/antimetal/hoststat/pkg/performance"
	"github.com/antimetal/hoststat/pkg/sysinfo"
)

// Metric names reported by Checker
const (
	MetricMemoryTotal  = "memory_total"
	MetricLogicalCores = "logical_cores"
	MetricUptime       = "uptime_seconds"
	MetricVolumePrefix = "volume_total:"
)

const (
	sourceCPUInfo = "cpuinfo"
	sourceStat    = "stat"
	sourceMeminfo = "meminfo"
	sourceUptime  = "uptime"
	sourceStatfs  = "statfs"

	unitKiB     = "KiB"
	unitBytes   = "bytes"
	unitCount   = "count"
	unitSeconds = "s"

	kibibyte = 1024
)

// Checker cross-checks the readings of a Session against a Reference
type Checker struct {
	logger    logr.Logger
	session   *sysinfo.Session
	reference Reference
	validator *Validator
}

func NewChecker(logger logr.Logger, session *sysinfo.Session, reference Reference, validator *Validator) *Checker {
	if validator == nil {
		validator = NewValidator()
	}
	return &Checker{
		logger:    logger.WithName("crosscheck"),
		session:   session,
		reference: reference,
		validator: validator,
	}
}

// Run checks memory total, logical core count, uptime and the size of every volume.
// A failing reference reading leaves only the procfs sources for that metric.
func (c *Checker) Run(ctx context.Context) []ValidationResult {
	results := []ValidationResult{
		c.validator.CrossCheck(MetricMemoryTotal, c.memorySources(ctx)),
		c.validator.CrossCheck(MetricLogicalCores, c.coreSources(ctx)),
		c.validator.CrossCheck(MetricUptime, c.uptimeSources(ctx)),
	}

	for _, v := range c.session.Volumes() {
		if v.Usage == nil {
			continue
		}
		sources := []Source{{Name: sourceStatfs, Value: float64(v.Usage.TotalBytes), Unit: unitBytes}}
		if total, err := c.reference.VolumeTotal(ctx, v.MountPoint); err != nil {
			c.logger.V(1).Info("Reference volume size not available", "mountPoint", v.MountPoint, "error", err)
		} else {
			sources = append(sources, Source{Name: c.reference.Name(), Value: float64(total), Unit: unitBytes})
		}
		results = append(results, c.validator.CrossCheck(MetricVolumePrefix+v.MountPoint, sources))
	}

	return results
}

// memorySources compares MemTotal in KiB whatever the session unit scale
func (c *Checker) memorySources(ctx context.Context) []Source {
	var sources []Source

	scale := c.session.Config().MemoryUnitScale
	if total := c.session.MemoryTable().Get(performance.MemTotal); total > 0 && scale > 0 {
		sources = append(sources, Source{Name: sourceMeminfo, Value: float64(total / scale), Unit: unitKiB})
	}

	if total, err := c.reference.MemoryTotal(ctx); err != nil {
		c.logger.V(1).Info("Reference memory total not available", "error", err)
	} else {
		sources = append(sources, Source{Name: c.reference.Name(), Value: float64(total / kibibyte), Unit: unitKiB})
	}
	return sources
}

func (c *Checker) coreSources(ctx context.Context) []Source {
	var sources []Source

	processors := 0
	for _, record := range c.session.CPUInfo("processor") {
		if _, ok := record["processor"]; ok {
			processors++
		}
	}
	if processors > 0 {
		sources = append(sources, Source{Name: sourceCPUInfo, Value: float64(processors), Unit: unitCount})
	}

	cores := 0
	for _, cpu := range c.session.Snapshot().CPUs {
		if cpu.ID != performance.AggregateCPUID {
			cores++
		}
	}
	if cores > 0 {
		sources = append(sources, Source{Name: sourceStat, Value: float64(cores), Unit: unitCount})
	}

	if n, err := c.reference.LogicalCores(ctx); err != nil {
		c.logger.V(1).Info("Reference core count not available", "error", err)
	} else {
		sources = append(sources, Source{Name: c.reference.Name(), Value: float64(n), Unit: unitCount})
	}
	return sources
}

// uptimeSources compares seconds since boot
func (c *Checker) uptimeSources(ctx context.Context) []Source {
	var sources []Source
	now := time.Now().Unix()

	if sample, ok := c.session.Uptime(); ok {
		sources = append(sources, Source{Name: sourceUptime, Value: float64(sample.UptimeSeconds), Unit: unitSeconds})
	}

	if btime := c.session.Snapshot().BTime; btime > 0 {
		sources = append(sources, Source{Name: sourceStat, Value: float64(now - int64(btime)), Unit: unitSeconds})
	}

	if boot, err := c.reference.BootTime(ctx); err != nil {
		c.logger.V(1).Info("Reference boot time not available", "error", err)
	} else {
		sources = append(sources, Source{Name: c.reference.Name(), Value: float64(now - int64(boot)), Unit: unitSeconds})
	}
	return sources
}
