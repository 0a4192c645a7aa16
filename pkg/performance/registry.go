// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package performance

import (
	"fmt"
	"sort"
	"sync"

	"github.com/go-logr/logr"
)

// NewCollector creates a PointCollector for the given logger and configuration
type NewCollector func(logger logr.Logger, config CollectionConfig) (PointCollector, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[MetricType]NewCollector)
)

// Register adds a NewCollector factory to the global registry for metricType.
//
// This function is usually called from init() functions of collector implementations.
// It will panic if a collector for the given metricType is already registered.
func Register(metricType MetricType, collector NewCollector) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[metricType]; exists {
		panic(fmt.Sprintf("Collector for %s already registered", metricType))
	}
	registry[metricType] = collector
}

// GetCollector returns the factory registered for metricType
func GetCollector(metricType MetricType) (NewCollector, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	collector, ok := registry[metricType]
	if !ok {
		return nil, fmt.Errorf("collector for metric type %q not registered", metricType)
	}
	return collector, nil
}

// RegisteredTypes returns the registered metric types in sorted order
func RegisteredTypes() []MetricType {
	registryMu.RLock()
	defer registryMu.RUnlock()

	types := make([]MetricType, 0, len(registry))
	for t := range registry {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
