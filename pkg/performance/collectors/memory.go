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
	performance.Register(performance.MetricTypeMemory,
		func(logger logr.Logger, config performance.CollectionConfig) (performance.PointCollector, error) {
			return NewMemoryCollector(logger, config)
		},
	)
}

// Compile-time interface check
var _ performance.PointCollector = (*MemoryCollector)(nil)

// MemoryCollector reads memory statistics from /proc/meminfo
//
// /proc/meminfo format:
//
//	FieldName:       value kB
//
// Every line is split on its first colon and the digits of the value are multiplied by
// the configured MemoryUnitScale (1000 by default). Field names are kept as the kernel
// spells them ("MemTotal", "HugePages_Total"). HugePages_* counts carry no unit but are
// scaled like every other field so the table stays uniform.
//
// The collector does not cache; memoization is the caller's concern.
//
// Reference: https://www.kernel.org/doc/html/latest/filesystems/proc.html#meminfo
type MemoryCollector struct {
	performance.BasePointCollector
	scale uint64
}

func NewMemoryCollector(logger logr.Logger, config performance.CollectionConfig) (*MemoryCollector, error) {
	if err := config.Validate(performance.ValidateOptions{RequireHostProcPath: true}); err != nil {
		return nil, err
	}

	scale := config.MemoryUnitScale
	if scale == 0 {
		scale = performance.DefaultMemoryUnitScale
	}

	capabilities := performance.CollectorCapabilities{
		SupportsOneShot:  true,
		RequiresRoot:     false,
		MinKernelVersion: "2.6.0", // /proc/meminfo has been around forever
		Sources:          []string{"meminfo"},
	}

	return &MemoryCollector{
		BasePointCollector: performance.NewBasePointCollector(
			performance.MetricTypeMemory,
			"System Memory Collector",
			logger,
			config,
			capabilities,
		),
		scale: scale,
	}, nil
}

func (c *MemoryCollector) Collect(ctx context.Context) (any, error) {
	return c.Table(), nil
}

// Table parses /proc/meminfo into a field map in bytes. A missing file yields an empty table.
func (c *MemoryCollector) Table() performance.MemoryTable {
	table := performance.MemoryTable{}

	for _, line := range c.Reader().Lines("meminfo") {
		key, value, ok := proc.SplitKeyValue(line)
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}

		v, ok := proc.ParseDigits(value)
		if !ok {
			c.Logger().V(2).Info("Failed to parse meminfo value", "field", key, "value", value)
		}
		table[key] = v * c.scale
	}

	return table
}
