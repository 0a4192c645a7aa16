// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

//go:build !integration

package sysinfo_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antimetal/hoststat/pkg/performance"
	"github.com/antimetal/hoststat/pkg/performance/collectors"
	"github.com/antimetal/hoststat/pkg/sysinfo"
)

const (
	testMeminfo = `MemTotal:        4000 kB
MemFree:         1000 kB
MemAvailable:    3000 kB
SwapTotal:       2000 kB
SwapFree:        1000 kB
`
	updatedMeminfo = `MemTotal:        8000 kB
MemAvailable:    1000 kB
`
	testStat = `cpu  100 0 100 800 0 0 0 0 0 0
cpu0 50 0 50 400 0 0 0 0 0 0
cpu1 50 0 50 400 0 0 0 0 0 0
`
	testCPUInfo = "processor : 0\nmodel name : Test CPU\n\nprocessor : 1\nmodel name : Test CPU\n"
	testMounts  = "/dev/sda1 / ext4 rw 0 0\nproc /proc proc rw 0 0\n"
	testUptime  = "3600.52 7000.00\n"
	testVersion = "Linux version 6.5.0-1024-aws (buildd@lcy02) (gcc 12.3.0) #24-Ubuntu SMP\n"
	testLoadavg = "1.00 0.50 0.25 3/300 4242\n"
	testParts   = "major minor  #blocks  name\n\n   8        0     409600 sda\n   8        1     204800 sda1\n"
)

// fakeHost lays out a proc and etc tree under one temporary root
type fakeHost struct {
	root string
}

func newFakeHost(t *testing.T) *fakeHost {
	t.Helper()
	h := &fakeHost{root: t.TempDir()}
	h.write(t, "proc/meminfo", testMeminfo)
	h.write(t, "proc/stat", testStat)
	h.write(t, "proc/cpuinfo", testCPUInfo)
	h.write(t, "proc/mounts", testMounts)
	h.write(t, "proc/uptime", testUptime)
	h.write(t, "proc/version", testVersion)
	h.write(t, "proc/loadavg", testLoadavg)
	h.write(t, "proc/partitions", testParts)
	return h
}

func (h *fakeHost) write(t *testing.T, name, content string) {
	t.Helper()
	path := filepath.Join(h.root, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func (h *fakeHost) config() performance.CollectionConfig {
	return performance.CollectionConfig{
		HostProcPath: filepath.Join(h.root, "proc"),
		HostEtcPath:  filepath.Join(h.root, "etc"),
		Rounding:     performance.DefaultRounding,
	}
}

func newSession(t *testing.T, h *fakeHost, opts sysinfo.Options) *sysinfo.Session {
	t.Helper()
	s, err := sysinfo.NewSession(logr.Discard(), h.config(), opts)
	require.NoError(t, err)
	return s
}

func TestNewSession_InvalidConfig(t *testing.T) {
	_, err := sysinfo.NewSession(logr.Discard(), performance.CollectionConfig{HostProcPath: "relative/proc"}, sysinfo.Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be an absolute path")

	_, err = sysinfo.NewSession(logr.Discard(), performance.CollectionConfig{
		HostProcPath: "/definitely/not/here/proc",
	}, sysinfo.Options{Validate: performance.ValidateOptions{RequireProcMounted: true}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "procfs not available")
}

func TestNewSession_AppliesDefaults(t *testing.T) {
	s := newSession(t, newFakeHost(t), sysinfo.Options{})

	config := s.Config()
	assert.Equal(t, performance.DefaultSampleInterval, config.SampleInterval)
	assert.Equal(t, uint64(performance.DefaultMemoryUnitScale), config.MemoryUnitScale)
	assert.Equal(t, performance.DefaultAllowedFilesystems, config.AllowedFilesystems)
}

func TestSession_MemoryTableIsMemoized(t *testing.T) {
	h := newFakeHost(t)
	s := newSession(t, h, sysinfo.Options{})

	first := s.MemoryTable()
	assert.Equal(t, uint64(4000*1000), first["MemTotal"])

	h.write(t, "proc/meminfo", updatedMeminfo)

	second := s.MemoryTable()
	assert.Equal(t, first, second)
	assert.Equal(t, uint64(4000*1000), s.MemoryUsage().Total)

	// A new session sees the new content
	fresh := newSession(t, h, sysinfo.Options{})
	assert.Equal(t, uint64(8000*1000), fresh.MemoryTable()["MemTotal"])
}

func TestSession_EmptyMemoryTableIsMemoized(t *testing.T) {
	h := newFakeHost(t)
	require.NoError(t, os.Remove(filepath.Join(h.root, "proc/meminfo")))
	s := newSession(t, h, sysinfo.Options{})

	assert.Empty(t, s.MemoryTable())

	h.write(t, "proc/meminfo", testMeminfo)
	assert.Empty(t, s.MemoryTable())
	assert.Equal(t, performance.MemoryLoad{}, s.MemoryLoad(2))
}

func TestSession_MemoryTableReturnsCopy(t *testing.T) {
	s := newSession(t, newFakeHost(t), sysinfo.Options{})

	table := s.MemoryTable()
	table["MemTotal"] = 1
	delete(table, "MemAvailable")
	table["Bogus"] = 42

	again := s.MemoryTable()
	assert.Equal(t, uint64(4000*1000), again["MemTotal"])
	assert.Equal(t, uint64(3000*1000), again["MemAvailable"])
	assert.NotContains(t, again, "Bogus")
	assert.Equal(t, uint64(4000*1000), s.MemoryUsage().Total)
	assert.Equal(t, 25.0, s.MemoryLoad(2).Load)
}

func TestSession_MemoryTableConcurrent(t *testing.T) {
	s := newSession(t, newFakeHost(t), sysinfo.Options{})

	var wg sync.WaitGroup
	results := make([]performance.MemoryTable, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = s.MemoryTable()
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, results[0], r)
	}
}

func TestSession_MemoryUsageAndLoad(t *testing.T) {
	s := newSession(t, newFakeHost(t), sysinfo.Options{})

	usage := s.MemoryUsage()
	assert.Equal(t, performance.MemoryUsage{
		Total:     4000000,
		Available: 3000000,
		Used:      1000000,
		SwapTotal: 2000000,
		SwapFree:  1000000,
		SwapUsed:  1000000,
	}, usage)

	assert.Equal(t, performance.MemoryLoad{Load: 25, SwapLoad: 50}, s.MemoryLoad(2))
}

func TestSession_CPULoad(t *testing.T) {
	s := newSession(t, newFakeHost(t), sysinfo.Options{})

	loads, err := s.CPULoad(context.Background(), time.Millisecond, 2)
	require.NoError(t, err)
	require.Len(t, loads, 3)
	assert.Equal(t, []string{"CPU", "Core#0", "Core#1"}, []string{loads[0].Label, loads[1].Label, loads[2].Label})

	// Unchanged counters have no delta
	for _, l := range loads {
		assert.Equal(t, 0.0, l.Percent)
	}
}

func TestSession_CPULoadCancelled(t *testing.T) {
	s := newSession(t, newFakeHost(t), sysinfo.Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	loads, err := s.CPULoad(ctx, time.Hour, 2)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Nil(t, loads)
}

func TestSession_StaticInfo(t *testing.T) {
	s := newSession(t, newFakeHost(t), sysinfo.Options{})

	uptime, ok := s.Uptime()
	require.True(t, ok)
	assert.Equal(t, int64(3600), uptime.UptimeSeconds)

	records := s.CPUInfo("model name")
	require.Len(t, records, 2)
	for _, r := range records {
		assert.Equal(t, performance.CPUIdentityRecord{"model_name": "Test CPU"}, r)
	}
	assert.Equal(t, "1", s.CPUInfoCore(1)["processor"])
	assert.Empty(t, s.CPUInfoCore(5))

	version := s.Version()
	assert.Equal(t, "", version.VersionSignature)
	require.NotNil(t, version.Kernel)
	assert.Equal(t, 6, version.Kernel.Major)

	snapshot := s.Snapshot()
	assert.Len(t, snapshot.CPUs, 3)

	load, ok := s.LoadAverage()
	require.True(t, ok)
	assert.Equal(t, int32(4242), load.LastPID)
}

func TestSession_MountsVolumesPartitions(t *testing.T) {
	s := newSession(t, newFakeHost(t), sysinfo.Options{
		VolumeOptions: []collectors.VolumeOption{
			collectors.WithStatFunc(func(path string) (collectors.FSStats, error) {
				return collectors.FSStats{Blocks: 100, Bavail: 40, Bsize: 1024}, nil
			}),
		},
	})

	assert.Len(t, s.Mounts(), 2)

	volumes := s.Volumes()
	require.Len(t, volumes, 1)
	require.NotNil(t, volumes[0].Usage)
	assert.Equal(t, 60.0, volumes[0].Usage.UsedPercent)

	assert.Len(t, s.Volumes("proc"), 1)

	sda1, ok := s.Partitions().Get("sda1")
	require.True(t, ok)
	assert.Equal(t, uint64(204800*1024), sda1.Bytes)
}

func TestSession_Identity(t *testing.T) {
	h := newFakeHost(t)
	s := newSession(t, h, sysinfo.Options{})

	// Nothing available
	assert.Equal(t, performance.HostIdentity{}, s.Identity())

	h.write(t, "proc/sys/kernel/hostname", "node-1\n")
	h.write(t, "var/lib/dbus/machine-id", "dbus0123\n")
	assert.Equal(t, performance.HostIdentity{Hostname: "node-1", MachineID: "dbus0123"}, s.Identity())

	h.write(t, "etc/machine-id", "abc123\n")
	assert.Equal(t, "abc123", s.Identity().MachineID)
}
