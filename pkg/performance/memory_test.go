// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package performance_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/antimetal/hoststat/pkg/performance"
)

func TestDeriveMemoryUsage(t *testing.T) {
	tests := []struct {
		name  string
		table performance.MemoryTable
		want  performance.MemoryUsage
	}{
		{
			name: "used is total minus available",
			table: performance.MemoryTable{
				"MemTotal":     16000000,
				"MemFree":      2000000,
				"MemAvailable": 6000000,
				"SwapTotal":    4000000,
				"SwapFree":     3000000,
			},
			want: performance.MemoryUsage{
				Total:     16000000,
				Available: 6000000,
				Used:      10000000,
				SwapTotal: 4000000,
				SwapFree:  3000000,
				SwapUsed:  1000000,
			},
		},
		{
			name: "fallback when MemAvailable is missing",
			table: performance.MemoryTable{
				"MemTotal": 1000,
				"MemFree":  100,
				"Buffers":  50,
				"Cached":   250,
			},
			want: performance.MemoryUsage{
				Total:     1000,
				Available: 400,
				Used:      600,
			},
		},
		{
			name: "available above total does not underflow",
			table: performance.MemoryTable{
				"MemTotal":     1000,
				"MemAvailable": 2000,
			},
			want: performance.MemoryUsage{
				Total:     1000,
				Available: 2000,
				Used:      0,
			},
		},
		{
			name:  "empty table",
			table: performance.MemoryTable{},
			want:  performance.MemoryUsage{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, performance.DeriveMemoryUsage(tt.table))
		})
	}
}

func TestDeriveMemoryLoad(t *testing.T) {
	usage := performance.MemoryUsage{Total: 3000, Used: 1000, SwapTotal: 0, SwapUsed: 0}
	load := performance.DeriveMemoryLoad(usage, 2)
	assert.Equal(t, 33.33, load.Load)
	assert.Equal(t, 0.0, load.SwapLoad)

	usage = performance.MemoryUsage{Total: 8000, Used: 6000, SwapTotal: 2000, SwapUsed: 500}
	load = performance.DeriveMemoryLoad(usage, 1)
	assert.Equal(t, 75.0, load.Load)
	assert.Equal(t, 25.0, load.SwapLoad)

	assert.Equal(t, performance.MemoryLoad{}, performance.DeriveMemoryLoad(performance.MemoryUsage{}, 2))
}

func TestNewVolumeUsage(t *testing.T) {
	usage := performance.NewVolumeUsage(4096*1000, 4096*250, 2)
	assert.Equal(t, uint64(4096*1000), usage.TotalBytes)
	assert.Equal(t, uint64(4096*250), usage.FreeBytes)
	assert.Equal(t, uint64(4096*750), usage.UsedBytes)
	assert.Equal(t, 75.0, usage.UsedPercent)

	empty := performance.NewVolumeUsage(0, 0, 2)
	assert.Equal(t, 0.0, empty.UsedPercent)
}
