// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package collectors

import (
	"context"

	"github.com/go-logr/logr"

	"github.com/antimetal/hoststat/pkg/kernel"
	"github.com/antimetal/hoststat/pkg/performance"
)

func init() {
	performance.Register(performance.MetricTypeVersion,
		func(logger logr.Logger, config performance.CollectionConfig) (performance.PointCollector, error) {
			return NewVersionCollector(logger, config)
		},
	)
}

// Compile-time interface check
var _ performance.PointCollector = (*VersionCollector)(nil)

// VersionCollector reads the kernel build strings from /proc/version and
// /proc/version_signature. The latter only exists on Ubuntu kernels.
type VersionCollector struct {
	performance.BasePointCollector
}

func NewVersionCollector(logger logr.Logger, config performance.CollectionConfig) (*VersionCollector, error) {
	if err := config.Validate(performance.ValidateOptions{RequireHostProcPath: true}); err != nil {
		return nil, err
	}

	capabilities := performance.CollectorCapabilities{
		SupportsOneShot:  true,
		RequiresRoot:     false,
		MinKernelVersion: "2.6.0",
		Sources:          []string{"version", "version_signature"},
	}

	return &VersionCollector{
		BasePointCollector: performance.NewBasePointCollector(
			performance.MetricTypeVersion,
			"Kernel Version Collector",
			logger,
			config,
			capabilities,
		),
	}, nil
}

func (c *VersionCollector) Collect(ctx context.Context) (any, error) {
	return c.Version(), nil
}

// Version returns the first line of each version file; missing files yield "".
func (c *VersionCollector) Version() performance.VersionInfo {
	info := performance.VersionInfo{
		Version:          c.Reader().FirstLine("version"),
		VersionSignature: c.Reader().FirstLine("version_signature"),
	}

	if info.Version != "" {
		v, err := kernel.ParseVersionLine(info.Version)
		if err != nil {
			c.Logger().V(2).Info("Failed to parse kernel release", "value", info.Version, "error", err)
		} else {
			info.Kernel = v
		}
	}
	return info
}
