// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

// Package sysinfo is the query engine over the procfs collectors.
//
// A Session owns one collector per source and the memory table cache. Every query
// other than the memory table reads its source again, so each call reflects the
// current state of the host. The memory table is read once per Session; callers
// that need fresh memory figures create a new Session.
package sysinfo

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/antimetal/hoststat/pkg/config/environment"
	"github.com/antimetal/hoststat/pkg/host"
	"github.com/antimetal/hoststat/pkg/performance"
	"github.com/antimetal/hoststat/pkg/performance/collectors"
)

// Options tune how a Session is built
type Options struct {
	// Validate is applied to the config after defaults are filled in
	Validate performance.ValidateOptions
	// VolumeOptions are passed to the volume collector
	VolumeOptions []collectors.VolumeOption
}

type Session struct {
	logger logr.Logger
	config performance.CollectionConfig

	uptime     *collectors.UptimeCollector
	cpuinfo    *collectors.CPUInfoCollector
	version    *collectors.VersionCollector
	stat       *collectors.StatCollector
	memory     *collectors.MemoryCollector
	mounts     *collectors.MountCollector
	volumes    *collectors.VolumeCollector
	partitions *collectors.PartitionCollector
	load       *collectors.LoadCollector

	mu       sync.Mutex
	memTable performance.MemoryTable // nil until first read
}

// NewSession fills config defaults, validates it and builds the collectors
func NewSession(logger logr.Logger, config performance.CollectionConfig, opts Options) (*Session, error) {
	config.ApplyDefaults()
	validate := opts.Validate
	validate.RequireHostProcPath = true
	if err := config.Validate(validate); err != nil {
		return nil, fmt.Errorf("invalid collection config: %w", err)
	}

	logger = logger.WithName("sysinfo")
	s := &Session{logger: logger, config: config}

	var err error
	if s.uptime, err = collectors.NewUptimeCollector(logger, config); err != nil {
		return nil, fmt.Errorf("failed to create uptime collector: %w", err)
	}
	if s.cpuinfo, err = collectors.NewCPUInfoCollector(logger, config); err != nil {
		return nil, fmt.Errorf("failed to create cpuinfo collector: %w", err)
	}
	if s.version, err = collectors.NewVersionCollector(logger, config); err != nil {
		return nil, fmt.Errorf("failed to create version collector: %w", err)
	}
	if s.stat, err = collectors.NewStatCollector(logger, config); err != nil {
		return nil, fmt.Errorf("failed to create stat collector: %w", err)
	}
	if s.memory, err = collectors.NewMemoryCollector(logger, config); err != nil {
		return nil, fmt.Errorf("failed to create memory collector: %w", err)
	}
	if s.mounts, err = collectors.NewMountCollector(logger, config); err != nil {
		return nil, fmt.Errorf("failed to create mount collector: %w", err)
	}
	if s.volumes, err = collectors.NewVolumeCollector(logger, config, opts.VolumeOptions...); err != nil {
		return nil, fmt.Errorf("failed to create volume collector: %w", err)
	}
	if s.partitions, err = collectors.NewPartitionCollector(logger, config); err != nil {
		return nil, fmt.Errorf("failed to create partition collector: %w", err)
	}
	if s.load, err = collectors.NewLoadCollector(logger, config); err != nil {
		return nil, fmt.Errorf("failed to create load collector: %w", err)
	}

	return s, nil
}

// Config returns the effective configuration of the session
func (s *Session) Config() performance.CollectionConfig {
	return s.config
}

func (s *Session) Uptime() (performance.UptimeSample, bool) {
	return s.uptime.Uptime()
}

// CPUInfo returns one identity record per core, restricted to fields when given
func (s *Session) CPUInfo(fields ...string) []performance.CPUIdentityRecord {
	return s.cpuinfo.Records(fields...)
}

// CPUInfoCore returns the identity record of a single core; out of range yields an empty record
func (s *Session) CPUInfoCore(core int, fields ...string) performance.CPUIdentityRecord {
	return s.cpuinfo.Core(core, fields...)
}

func (s *Session) Version() performance.VersionInfo {
	return s.version.Version()
}

// Snapshot reads the cumulative counters of /proc/stat
func (s *Session) Snapshot() performance.CPUCounterSnapshot {
	return s.stat.Snapshot()
}

// CPULoad samples /proc/stat twice, wait apart, and returns per-row utilization.
// A non-positive wait uses the configured sample interval. Cancelling ctx while
// waiting returns ctx.Err().
func (s *Session) CPULoad(ctx context.Context, wait time.Duration, rounding int) ([]performance.CPULoad, error) {
	if wait <= 0 {
		wait = s.config.SampleInterval
	}

	first := s.stat.Snapshot()

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}

	second := s.stat.Snapshot()
	return performance.CalculateCPULoad(first, second, rounding), nil
}

// MemoryTable returns a copy of /proc/meminfo as bytes. The file is read on the
// first call only; later calls return the same content, even if it was empty.
func (s *Session) MemoryTable() performance.MemoryTable {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.memTable == nil {
		s.memTable = s.memory.Table()
		s.logger.V(2).Info("Cached memory table", "entries", len(s.memTable))
	}
	return maps.Clone(s.memTable)
}

func (s *Session) MemoryUsage() performance.MemoryUsage {
	return performance.DeriveMemoryUsage(s.MemoryTable())
}

func (s *Session) MemoryLoad(rounding int) performance.MemoryLoad {
	return performance.DeriveMemoryLoad(s.MemoryUsage(), rounding)
}

func (s *Session) Mounts() []performance.MountRecord {
	return s.mounts.Mounts()
}

// Volumes returns mounts of the given file system types with usage attached.
// Without types the configured allow-list applies.
func (s *Session) Volumes(types ...string) []performance.MountRecord {
	return s.volumes.Volumes(types...)
}

func (s *Session) Partitions() performance.PartitionTable {
	return s.partitions.Partitions()
}

func (s *Session) LoadAverage() (performance.LoadStats, bool) {
	return s.load.LoadAverage()
}

// Identity reports the hostname and machine id. Missing sources leave the field empty.
func (s *Session) Identity() performance.HostIdentity {
	var id performance.HostIdentity

	hostname, err := host.Hostname(s.config.HostProcPath)
	if err != nil {
		s.logger.V(2).Info("Hostname not available", "error", err)
	}
	id.Hostname = hostname

	machineID, err := host.MachineID(s.config.HostEtcPath, environment.VarFromEtc(s.config.HostEtcPath))
	if err != nil {
		s.logger.V(2).Info("Machine id not available", "error", err)
	}
	id.MachineID = machineID

	return id
}
