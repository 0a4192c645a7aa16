// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package collectors

import (
	"context"
	"strings"

	"github.com/go-logr/logr"

	"github.com/antimetal/hoststat/pkg/performance"
	"github.com/antimetal/hoststat/pkg/proc"
)

func init() {
	performance.Register(performance.MetricTypeCPUInfo,
		func(logger logr.Logger, config performance.CollectionConfig) (performance.PointCollector, error) {
			return NewCPUInfoCollector(logger, config)
		},
	)
}

// Compile-time interface check
var _ performance.PointCollector = (*CPUInfoCollector)(nil)

// CPUInfoCollector parses processor identity blocks from /proc/cpuinfo
//
// /proc/cpuinfo is a sequence of "key : value" blocks, one per logical processor,
// separated by blank lines. Keys are normalized (trimmed, lowercased, spaces replaced
// by underscores) so "model name" is reported as "model_name". The set of keys varies
// by architecture, which is why records are string maps rather than structs.
//
// Reference: https://www.kernel.org/doc/html/latest/filesystems/proc.html#cpuinfo
type CPUInfoCollector struct {
	performance.BasePointCollector
}

func NewCPUInfoCollector(logger logr.Logger, config performance.CollectionConfig) (*CPUInfoCollector, error) {
	if err := config.Validate(performance.ValidateOptions{RequireHostProcPath: true}); err != nil {
		return nil, err
	}

	capabilities := performance.CollectorCapabilities{
		SupportsOneShot:  true,
		RequiresRoot:     false,
		MinKernelVersion: "2.6.0",
		Sources:          []string{"cpuinfo"},
	}

	return &CPUInfoCollector{
		BasePointCollector: performance.NewBasePointCollector(
			performance.MetricTypeCPUInfo,
			"CPU Identity Collector",
			logger,
			config,
			capabilities,
		),
	}, nil
}

// Collect returns every processor record with all fields
func (c *CPUInfoCollector) Collect(ctx context.Context) (any, error) {
	return c.Records(), nil
}

// Records returns one record per processor block in file order. Every blank line
// advances the core index, so extra blank lines between blocks leave empty records;
// trailing blank lines are ignored. When fields are
// given only those keys (normalized the same way) are kept.
func (c *CPUInfoCollector) Records(fields ...string) []performance.CPUIdentityRecord {
	allow := allowSet(fields)
	records := []performance.CPUIdentityRecord{}

	var current performance.CPUIdentityRecord
	// Blank lines seen since the last block; each one advances the core index
	skipped := 0
	for _, line := range c.Reader().Lines("cpuinfo") {
		if strings.TrimSpace(line) == "" {
			if current != nil {
				records = append(records, current)
				current = nil
			} else {
				skipped++
			}
			continue
		}

		if current == nil {
			for ; skipped > 0; skipped-- {
				records = append(records, performance.CPUIdentityRecord{})
			}
			current = performance.CPUIdentityRecord{}
		}

		key, value, ok := proc.SplitKeyValue(line)
		if !ok {
			c.Logger().V(2).Info("Skipping cpuinfo line without separator", "line", line)
			continue
		}
		key = proc.NormalizeKey(key)
		if key == "" {
			continue
		}
		if allow != nil && !allow[key] {
			continue
		}
		current[key] = strings.TrimSpace(value)
	}
	if current != nil {
		records = append(records, current)
	}

	return records
}

// Core returns the record of the core-th processor block (0-based). An out of range
// core yields an empty record.
func (c *CPUInfoCollector) Core(core int, fields ...string) performance.CPUIdentityRecord {
	records := c.Records(fields...)
	if core < 0 || core >= len(records) {
		return performance.CPUIdentityRecord{}
	}
	return records[core]
}

func allowSet(fields []string) map[string]bool {
	if len(fields) == 0 {
		return nil
	}
	set := make(map[string]bool, len(fields))
	for _, f := range fields {
		set[proc.NormalizeKey(f)] = true
	}
	return set
}
