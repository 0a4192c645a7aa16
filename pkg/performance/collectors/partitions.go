// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package collectors

import (
	"context"
	"strconv"
	"strings"

	"github.com/go-logr/logr"

	"github.com/antimetal/hoststat/pkg/performance"
)

func init() {
	performance.Register(performance.MetricTypePartitions,
		func(logger logr.Logger, config performance.CollectionConfig) (performance.PointCollector, error) {
			return NewPartitionCollector(logger, config)
		},
	)
}

// Compile-time interface check
var _ performance.PointCollector = (*PartitionCollector)(nil)

// Column names of /proc/partitions
const (
	partitionMajorColumn  = "major"
	partitionMinorColumn  = "minor"
	partitionBlocksColumn = "#blocks"
	partitionNameColumn   = "name"
)

// PartitionCollector parses the block device table in /proc/partitions
//
// The first non-blank line is a header naming the columns:
//
//	major minor  #blocks  name
//
//	   8        0  488386584 sda
//	   8        1     524288 sda1
//
// Rows are zipped with the header positionally, so extra columns added by a kernel
// are kept in Fields. Sizes are in 1 KiB blocks; Bytes is blocks * 1024.
//
// Reference: https://www.kernel.org/doc/html/latest/admin-guide/devices.html
type PartitionCollector struct {
	performance.BasePointCollector
}

func NewPartitionCollector(logger logr.Logger, config performance.CollectionConfig) (*PartitionCollector, error) {
	if err := config.Validate(performance.ValidateOptions{RequireHostProcPath: true}); err != nil {
		return nil, err
	}

	capabilities := performance.CollectorCapabilities{
		SupportsOneShot:  true,
		RequiresRoot:     false,
		MinKernelVersion: "2.6.0",
		Sources:          []string{"partitions"},
	}

	return &PartitionCollector{
		BasePointCollector: performance.NewBasePointCollector(
			performance.MetricTypePartitions,
			"Block Partition Collector",
			logger,
			config,
			capabilities,
		),
	}, nil
}

func (c *PartitionCollector) Collect(ctx context.Context) (any, error) {
	return c.Partitions(), nil
}

// Partitions returns the partition table in file order. A missing file yields an empty table.
func (c *PartitionCollector) Partitions() performance.PartitionTable {
	table := performance.PartitionTable{}

	var header []string
	for _, line := range c.Reader().Lines("partitions") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if header == nil {
			header = fields
			continue
		}

		record := performance.PartitionRecord{Fields: make(map[string]string, len(header))}
		for i, column := range header {
			if i >= len(fields) {
				break
			}
			record.Fields[column] = fields[i]
		}

		record.Name = record.Fields[partitionNameColumn]
		record.Major = c.parseInt(partitionMajorColumn, record.Fields[partitionMajorColumn])
		record.Minor = c.parseInt(partitionMinorColumn, record.Fields[partitionMinorColumn])
		if blocks, ok := record.Fields[partitionBlocksColumn]; ok {
			v, err := strconv.ParseUint(blocks, 10, 64)
			if err != nil {
				c.Logger().V(2).Info("Failed to parse partition size", "name", record.Name, "value", blocks, "error", err)
			}
			record.Blocks = v
			record.Bytes = v * 1024
		}

		table = append(table, record)
	}

	return table
}

func (c *PartitionCollector) parseInt(column, value string) int {
	if value == "" {
		return 0
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		c.Logger().V(2).Info("Failed to parse partition column", "column", column, "value", value, "error", err)
		return 0
	}
	return v
}
