// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

//go:build !integration

package collectors_test

import (
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antimetal/hoststat/pkg/performance"
	"github.com/antimetal/hoststat/pkg/performance/collectors"
)

const (
	// Valid scenarios
	validMeminfoContent = `MemTotal:       16384000 kB
MemFree:         8192000 kB
MemAvailable:   12288000 kB
Buffers:          512000 kB
Cached:          2048000 kB
SwapCached:            0 kB
SwapTotal:       4096000 kB
SwapFree:        3072000 kB
HugePages_Total:       0
HugePages_Free:        0
Hugepagesize:       2048 kB
`

	// Edge cases
	malformedMeminfoContent = `MemTotal:       1000 kB
MemFree:        n/a
this line has no colon
Weird Key:      7 kB
`
)

func createTestMemoryCollector(t *testing.T, content string, scale uint64) *collectors.MemoryCollector {
	files := map[string]string{}
	if content != "" {
		files["meminfo"] = content
	}
	config := testConfig(setupProc(t, files))
	config.MemoryUnitScale = scale
	collector, err := collectors.NewMemoryCollector(logr.Discard(), config)
	require.NoError(t, err)
	return collector
}

func TestMemoryCollector_Table(t *testing.T) {
	collector := createTestMemoryCollector(t, validMeminfoContent, 1000)

	table := collector.Table()
	assert.Equal(t, uint64(16384000*1000), table["MemTotal"])
	assert.Equal(t, uint64(12288000*1000), table["MemAvailable"])
	assert.Equal(t, uint64(3072000*1000), table["SwapFree"])
	assert.Equal(t, uint64(2048*1000), table["Hugepagesize"])
	assert.Equal(t, uint64(0), table["HugePages_Total"])
	assert.Len(t, table, 11)
}

func TestMemoryCollector_Scale(t *testing.T) {
	collector := createTestMemoryCollector(t, validMeminfoContent, 1024)
	assert.Equal(t, uint64(16384000*1024), collector.Table()["MemTotal"])

	// Zero scale falls back to the default
	collector = createTestMemoryCollector(t, validMeminfoContent, 0)
	assert.Equal(t, uint64(16384000*performance.DefaultMemoryUnitScale), collector.Table()["MemTotal"])
}

func TestMemoryCollector_Malformed(t *testing.T) {
	collector := createTestMemoryCollector(t, malformedMeminfoContent, 1000)

	table := collector.Table()
	assert.Equal(t, performance.MemoryTable{
		"MemTotal":  1000000,
		"MemFree":   0,
		"Weird Key": 7000,
	}, table)
}

func TestMemoryCollector_Missing(t *testing.T) {
	collector := createTestMemoryCollector(t, "", 1000)

	table := collector.Table()
	assert.NotNil(t, table)
	assert.Empty(t, table)
}

func TestMemoryCollector_Usage(t *testing.T) {
	collector := createTestMemoryCollector(t, validMeminfoContent, 1000)

	usage := performance.DeriveMemoryUsage(collector.Table())
	assert.Equal(t, uint64(16384000*1000-12288000*1000), usage.Used)
	assert.Equal(t, uint64(1024000*1000), usage.SwapUsed)

	load := performance.DeriveMemoryLoad(usage, 2)
	assert.Equal(t, 25.0, load.Load)
	assert.Equal(t, 25.0, load.SwapLoad)
}
