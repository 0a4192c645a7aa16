// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package performance

import "github.com/antimetal/hoststat/pkg/proc"

// meminfo field names used for derived usage
const (
	MemTotal     = "MemTotal"
	MemFree      = "MemFree"
	MemAvailable = "MemAvailable"
	MemBuffers   = "Buffers"
	MemCached    = "Cached"
	SwapTotal    = "SwapTotal"
	SwapFree     = "SwapFree"
)

// DeriveMemoryUsage computes used RAM and swap from a meminfo table.
//
// Used is MemTotal - MemAvailable. Kernels older than 3.14 have no MemAvailable line;
// there MemFree + Buffers + Cached stands in for it, as free(1) does.
func DeriveMemoryUsage(table MemoryTable) MemoryUsage {
	available, ok := table[MemAvailable]
	if !ok {
		available = table[MemFree] + table[MemBuffers] + table[MemCached]
	}

	usage := MemoryUsage{
		Total:     table[MemTotal],
		Available: available,
		SwapTotal: table[SwapTotal],
		SwapFree:  table[SwapFree],
	}
	usage.Used = saturatingSub(usage.Total, usage.Available)
	usage.SwapUsed = saturatingSub(usage.SwapTotal, usage.SwapFree)
	return usage
}

// DeriveMemoryLoad expresses usage as percentages rounded to rounding decimals.
// A zero total yields a zero load.
func DeriveMemoryLoad(usage MemoryUsage, rounding int) MemoryLoad {
	return MemoryLoad{
		Load:     Percentage(usage.Used, usage.Total, rounding),
		SwapLoad: Percentage(usage.SwapUsed, usage.SwapTotal, rounding),
	}
}

// NewVolumeUsage builds VolumeUsage from total and free bytes
func NewVolumeUsage(total, free uint64, rounding int) VolumeUsage {
	used := saturatingSub(total, free)
	return VolumeUsage{
		TotalBytes:  total,
		FreeBytes:   free,
		UsedBytes:   used,
		UsedPercent: Percentage(used, total, rounding),
	}
}

// Percentage returns part/total*100 rounded to rounding decimals, or 0 when total is 0
func Percentage(part, total uint64, rounding int) float64 {
	if total == 0 {
		return 0
	}
	return proc.Round(float64(part)/float64(total)*100, rounding)
}

func saturatingSub(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}
