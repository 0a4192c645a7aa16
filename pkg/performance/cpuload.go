// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package performance

import (
	"strings"

	"github.com/antimetal/hoststat/pkg/proc"
)

// AggregateCPUID is the row id of the all-cores line of /proc/stat
const AggregateCPUID = "cpu"

// CalculateCPULoad computes per-row CPU utilization between two /proc/stat snapshots.
//
// For each row present in both snapshots (in the order of first):
//
//	idle   = idle + guest + guest_nice
//	active = user + nice + system + irq + softirq + steal + iowait
//	totalDelta = (active2 + idle2) - (active1 + idle1)
//	idleDelta  = idle2 - idle1
//	util = (totalDelta - idleDelta) / totalDelta   when totalDelta > 0
//	util = totalDelta - idleDelta                  otherwise
//
// Percent is util*100 rounded to rounding decimals. Rows present in only one snapshot
// are dropped. The function does no I/O.
func CalculateCPULoad(first, second CPUCounterSnapshot, rounding int) []CPULoad {
	loads := make([]CPULoad, 0, len(first.CPUs))
	for _, prev := range first.CPUs {
		curr, ok := second.CPU(prev.ID)
		if !ok {
			continue
		}
		loads = append(loads, CPULoad{
			ID:      prev.ID,
			Label:   CPULabel(prev.ID),
			Percent: proc.Round(Utilization(prev, curr)*100, rounding),
		})
	}
	return loads
}

// Utilization returns the busy fraction of a cpu row between two readings.
// Counter wrap between readings is handled with two's complement deltas.
func Utilization(prev, curr CPUCounters) float64 {
	totalDelta := int64(curr.TotalTime() - prev.TotalTime())
	idleDelta := int64(curr.IdleTime() - prev.IdleTime())

	if totalDelta > 0 {
		return float64(totalDelta-idleDelta) / float64(totalDelta)
	}
	return float64(totalDelta - idleDelta)
}

// CPULabel maps a /proc/stat row id to its display label: "cpu" is "CPU" and
// "cpuN" is "Core#N". Unknown ids are returned unchanged.
func CPULabel(id string) string {
	if id == AggregateCPUID {
		return "CPU"
	}
	if n, ok := strings.CutPrefix(id, AggregateCPUID); ok && n != "" {
		return "Core#" + n
	}
	return id
}
