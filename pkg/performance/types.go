// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package performance

import (
	"fmt"
	"time"

	"github.com/antimetal/hoststat/pkg/kernel"
	"github.com/antimetal/hoststat/pkg/units"
)

// MetricType represents the type of metric a collector produces
type MetricType string

const (
	// Static information
	MetricTypeUptime  MetricType = "uptime"
	MetricTypeCPUInfo MetricType = "cpu_info"
	MetricTypeVersion MetricType = "version"
	// Counters
	MetricTypeStat   MetricType = "stat"
	MetricTypeMemory MetricType = "memory"
	MetricTypeLoad   MetricType = "load"
	// Storage
	MetricTypeMounts     MetricType = "mounts"
	MetricTypeVolumes    MetricType = "volumes"
	MetricTypePartitions MetricType = "partitions"
)

// UptimeSample is a single reading of the system uptime
type UptimeSample struct {
	Now           time.Time // When the sample was taken
	UptimeSeconds int64     // First field of /proc/uptime, truncated
	Started       time.Time // Now - UptimeSeconds
}

// Duration returns the uptime as a time.Duration
func (u UptimeSample) Duration() time.Duration {
	return time.Duration(u.UptimeSeconds) * time.Second
}

// Human returns the uptime in uptime(1) style, e.g. "3 days, 4:05"
func (u UptimeSample) Human() string {
	return units.FormatUptime(u.Duration())
}

// CPUIdentityRecord holds one processor block of /proc/cpuinfo keyed by normalized
// field name ("model name" becomes "model_name").
type CPUIdentityRecord map[string]string

// VersionInfo holds the kernel build strings
type VersionInfo struct {
	Version          string          // First line of /proc/version
	VersionSignature string          // First line of /proc/version_signature (Ubuntu only)
	Kernel           *kernel.Version // Parsed from Version when possible
}

// CPUCounters represents one cpu row of /proc/stat
type CPUCounters struct {
	// Row identity: "cpu" for the aggregate row, "cpu0", "cpu1", ... for cores
	ID string
	// Time spent in different CPU states (in USER_HZ units from /proc/stat)
	User      uint64 // Time in user mode
	Nice      uint64 // Time in user mode with low priority (nice)
	System    uint64 // Time in system mode
	Idle      uint64 // Time spent idle
	IOWait    uint64 // Time waiting for I/O completion
	IRQ       uint64 // Time servicing interrupts
	SoftIRQ   uint64 // Time servicing softirqs
	Steal     uint64 // Time stolen by other operating systems in virtualized environment
	Guest     uint64 // Time spent running a virtual CPU for guest OS
	GuestNice uint64 // Time spent running a niced guest
}

// IdleTime returns idle + guest + guest_nice
func (c CPUCounters) IdleTime() uint64 {
	return c.Idle + c.Guest + c.GuestNice
}

// ActiveTime returns user + nice + system + irq + softirq + steal + iowait
func (c CPUCounters) ActiveTime() uint64 {
	return c.User + c.Nice + c.System + c.IRQ + c.SoftIRQ + c.Steal + c.IOWait
}

// TotalTime returns ActiveTime + IdleTime
func (c CPUCounters) TotalTime() uint64 {
	return c.ActiveTime() + c.IdleTime()
}

// CPUCounterSnapshot is one parse of /proc/stat
type CPUCounterSnapshot struct {
	Taken        time.Time
	CPUs         []CPUCounters // In file order
	Ctxt         uint64        // Context switches since boot
	BTime        uint64        // Boot time, seconds since epoch
	Processes    uint64        // Forks since boot
	ProcsRunning uint64        // Processes in runnable state
	ProcsBlocked uint64        // Processes blocked on I/O
	Interrupts   uint64        // First value of the intr line
}

// CPU returns the counters for the row with the given id
func (s CPUCounterSnapshot) CPU(id string) (CPUCounters, bool) {
	for _, c := range s.CPUs {
		if c.ID == id {
			return c, true
		}
	}
	return CPUCounters{}, false
}

// CPULoad is the utilization of one cpu row between two snapshots
type CPULoad struct {
	ID      string  `json:"id"`
	Label   string  `json:"label"` // "CPU" for the aggregate row, "Core#N" otherwise
	Percent float64 `json:"percent"`
}

// MemoryTable maps /proc/meminfo field names to bytes
type MemoryTable map[string]uint64

// Get returns the value for key or 0 when absent
func (m MemoryTable) Get(key string) uint64 {
	return m[key]
}

// MemoryUsage is the derived RAM and swap usage
type MemoryUsage struct {
	Total     uint64 `json:"total"`
	Available uint64 `json:"available"`
	Used      uint64 `json:"used"` // Total - Available, never below zero
	SwapTotal uint64 `json:"swap_total"`
	SwapFree  uint64 `json:"swap_free"`
	SwapUsed  uint64 `json:"swap_used"` // SwapTotal - SwapFree, never below zero
}

// MemoryLoad is MemoryUsage expressed as percentages
type MemoryLoad struct {
	Load     float64 `json:"load"`
	SwapLoad float64 `json:"swap_load"`
}

// VolumeUsage is live statfs data for a mounted file system
type VolumeUsage struct {
	TotalBytes  uint64  `json:"total"`
	FreeBytes   uint64  `json:"free"`
	UsedBytes   uint64  `json:"used"`
	UsedPercent float64 `json:"used_percent"`
}

// MountRecord is one row of /proc/mounts
type MountRecord struct {
	Device         string       `json:"device"`
	MountPoint     string       `json:"mount_point"`
	FileSystemType string       `json:"fs_type"`
	Options        string       `json:"options,omitempty"`
	Usage          *VolumeUsage `json:"usage,omitempty"` // Only set for volumes
}

// PartitionRecord is one row of /proc/partitions
type PartitionRecord struct {
	// Raw columns keyed by header name ("major", "minor", "#blocks", "name")
	Fields map[string]string `json:"fields"`
	Name   string            `json:"name"`
	Major  int               `json:"major"`
	Minor  int               `json:"minor"`
	Blocks uint64            `json:"blocks"` // 1 KiB blocks
	Bytes  uint64            `json:"bytes"`  // Blocks * 1024
}

// Device returns the "major:minor" identity of the partition
func (p PartitionRecord) Device() string {
	return fmt.Sprintf("%d:%d", p.Major, p.Minor)
}

// PartitionTable is the parsed content of /proc/partitions in file order
type PartitionTable []PartitionRecord

// Get returns the partition with the given name
func (t PartitionTable) Get(name string) (PartitionRecord, bool) {
	for _, p := range t {
		if p.Name == name {
			return p, true
		}
	}
	return PartitionRecord{}, false
}

// LoadStats represents system load information from /proc/loadavg
type LoadStats struct {
	Load1Min     float64 `json:"load1"`
	Load5Min     float64 `json:"load5"`
	Load15Min    float64 `json:"load15"`
	RunningProcs int32   `json:"running"` // 4th field before the slash
	TotalProcs   int32   `json:"total"`   // 4th field after the slash
	LastPID      int32   `json:"last_pid"`
}

// HostIdentity identifies the machine the metrics come from
type HostIdentity struct {
	Hostname  string `json:"hostname"`
	MachineID string `json:"machine_id"`
}
