// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package performance

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/antimetal/hoststat/pkg/kernel"
	"github.com/antimetal/hoststat/pkg/proc"
)

// PointCollector performs one-shot data collection
type PointCollector interface {
	Type() MetricType
	Name() string

	// Collect performs a single collection and returns the parsed records
	Collect(ctx context.Context) (any, error)

	Capabilities() CollectorCapabilities
}

type CollectorCapabilities struct {
	SupportsOneShot  bool
	RequiresRoot     bool
	MinKernelVersion string
	// Files read relative to the procfs root
	Sources []string
}

// CanRun returns nil when a collector with these capabilities can run on the
// running kernel with the given privileges. A nil running kernel skips the
// version check.
func (c CollectorCapabilities) CanRun(running *kernel.Version, root bool) error {
	if c.RequiresRoot && !root {
		return errors.New("requires root")
	}
	if c.MinKernelVersion == "" || running == nil {
		return nil
	}
	required, err := kernel.ParseVersion(c.MinKernelVersion)
	if err != nil {
		return fmt.Errorf("invalid minimum kernel version %q: %w", c.MinKernelVersion, err)
	}
	if running.Compare(required) < 0 {
		return fmt.Errorf("requires kernel %s or later, running %s", required, running)
	}
	return nil
}

type BasePointCollector struct {
	metricType   MetricType
	name         string
	logger       logr.Logger
	config       CollectionConfig
	capabilities CollectorCapabilities
	reader       *proc.Reader
}

func NewBasePointCollector(metricType MetricType, name string, logger logr.Logger, config CollectionConfig, capabilities CollectorCapabilities) BasePointCollector {
	l := logger.WithName(string(metricType))
	return BasePointCollector{
		metricType:   metricType,
		name:         name,
		logger:       l,
		config:       config,
		capabilities: capabilities,
		reader:       proc.NewReader(config.HostProcPath, l),
	}
}

func (b *BasePointCollector) Type() MetricType {
	return b.metricType
}

func (b *BasePointCollector) Name() string {
	return b.name
}

func (b *BasePointCollector) Capabilities() CollectorCapabilities {
	return b.capabilities
}

func (b *BasePointCollector) Logger() logr.Logger {
	return b.logger
}

func (b *BasePointCollector) Config() CollectionConfig {
	return b.config
}

// Reader returns the pseudo-file reader rooted at the configured procfs path
func (b *BasePointCollector) Reader() *proc.Reader {
	return b.reader
}
