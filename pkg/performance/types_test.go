// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package performance_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antimetal/hoststat/pkg/performance"
)

func TestCollectionConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  performance.CollectionConfig
		opts    performance.ValidateOptions
		wantErr bool
		errMsg  string
	}{
		{
			name: "all valid absolute paths",
			config: performance.CollectionConfig{
				HostProcPath: "/proc",
				HostEtcPath:  "/etc",
			},
			wantErr: false,
		},
		{
			name:    "empty paths are valid",
			config:  performance.CollectionConfig{},
			wantErr: false,
		},
		{
			name: "invalid relative proc path",
			config: performance.CollectionConfig{
				HostProcPath: "proc",
				HostEtcPath:  "/etc",
			},
			wantErr: true,
			errMsg:  "HostProcPath must be an absolute path, got: \"proc\"",
		},
		{
			name: "invalid relative etc path",
			config: performance.CollectionConfig{
				HostProcPath: "/proc",
				HostEtcPath:  "etc",
			},
			wantErr: true,
			errMsg:  "HostEtcPath must be an absolute path, got: \"etc\"",
		},
		{
			name:    "required proc path missing",
			config:  performance.CollectionConfig{},
			opts:    performance.ValidateOptions{RequireHostProcPath: true},
			wantErr: true,
			errMsg:  "HostProcPath is required but not provided",
		},
		{
			name:    "required etc path missing",
			config:  performance.CollectionConfig{HostProcPath: "/proc"},
			opts:    performance.ValidateOptions{RequireHostEtcPath: true},
			wantErr: true,
			errMsg:  "HostEtcPath is required but not provided",
		},
		{
			name:    "negative rounding",
			config:  performance.CollectionConfig{HostProcPath: "/proc", Rounding: -1},
			wantErr: true,
			errMsg:  "Rounding must not be negative, got: -1",
		},
		{
			name:    "negative sample interval",
			config:  performance.CollectionConfig{HostProcPath: "/proc", SampleInterval: -time.Second},
			wantErr: true,
			errMsg:  "SampleInterval must not be negative, got: -1s",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate(tt.opts)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.errMsg, err.Error())
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCollectionConfig_ValidateProcMounted(t *testing.T) {
	tmpDir := t.TempDir()

	config := performance.CollectionConfig{HostProcPath: tmpDir}
	assert.NoError(t, config.Validate(performance.ValidateOptions{RequireProcMounted: true}))

	config.HostProcPath = filepath.Join(tmpDir, "missing")
	err := config.Validate(performance.ValidateOptions{RequireProcMounted: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "procfs not available")

	file := filepath.Join(tmpDir, "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
	config.HostProcPath = file
	err = config.Validate(performance.ValidateOptions{RequireProcMounted: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestCollectionConfig_ApplyDefaults(t *testing.T) {
	var config performance.CollectionConfig
	config.ApplyDefaults()

	defaults := performance.DefaultCollectionConfig()
	assert.Equal(t, "/proc", config.HostProcPath)
	assert.Equal(t, "/etc", config.HostEtcPath)
	assert.Equal(t, defaults.AllowedFilesystems, config.AllowedFilesystems)
	assert.Equal(t, time.Second, config.SampleInterval)
	assert.Equal(t, uint64(1000), config.MemoryUnitScale)
	assert.Equal(t, 0, config.Rounding)

	custom := performance.CollectionConfig{
		HostProcPath:       "/host/proc",
		AllowedFilesystems: []string{"ext4"},
		MemoryUnitScale:    1024,
	}
	custom.ApplyDefaults()
	assert.Equal(t, "/host/proc", custom.HostProcPath)
	assert.Equal(t, []string{"ext4"}, custom.AllowedFilesystems)
	assert.Equal(t, uint64(1024), custom.MemoryUnitScale)
}

func TestUptimeSample(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	sample := performance.UptimeSample{
		Now:           now,
		UptimeSeconds: 3*86400 + 4*3600 + 5*60 + 6,
		Started:       now.Add(-(3*86400 + 4*3600 + 5*60 + 6) * time.Second),
	}

	assert.Equal(t, 76*time.Hour+5*time.Minute+6*time.Second, sample.Duration())
	assert.Equal(t, "3 days, 4:05", sample.Human())
}

func TestPartitionRecord_Device(t *testing.T) {
	p := performance.PartitionRecord{Name: "sda1", Major: 8, Minor: 1}
	assert.Equal(t, "8:1", p.Device())

	table := performance.PartitionTable{p}
	got, ok := table.Get("sda1")
	require.True(t, ok)
	assert.Equal(t, p, got)

	_, ok = table.Get("sdb")
	assert.False(t, ok)
}

func TestCPUCounterSnapshot_CPU(t *testing.T) {
	s := performance.CPUCounterSnapshot{CPUs: []performance.CPUCounters{{ID: "cpu", User: 1}, {ID: "cpu0", User: 2}}}

	c, ok := s.CPU("cpu0")
	require.True(t, ok)
	assert.Equal(t, uint64(2), c.User)

	_, ok = s.CPU("cpu7")
	assert.False(t, ok)
}
