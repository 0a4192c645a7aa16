// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/antimetal/hoststat/pkg/kernel"
	"github.com/antimetal/hoststat/pkg/performance"
	// Import collectors to register them
	_ "github.com/antimetal/hoststat/pkg/performance/collectors"
)

func newCollectCommand(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "collect [metric-type...]",
		Short: "Run registered collectors and dump their raw results as JSON",
		Long: "Run registered collectors once and print their results as JSON keyed by metric type. " +
			"Without arguments every registered collector runs. Collectors the running kernel or " +
			"privileges cannot support are skipped. Registered types: " + registeredTypes(),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.collectionConfig(cmd)
			if err != nil {
				return err
			}
			cfg.ApplyDefaults()
			if err := cfg.Validate(performance.ValidateOptions{RequireProcMounted: true}); err != nil {
				return err
			}

			types := performance.RegisteredTypes()
			if len(args) > 0 {
				types = types[:0]
				for _, a := range args {
					types = append(types, performance.MetricType(a))
				}
			}

			running, err := kernel.GetCurrentVersion(cfg.HostProcPath)
			if err != nil {
				o.logger.V(1).Info("Kernel version unknown, skipping kernel checks", "error", err)
			}
			root := os.Geteuid() == 0

			results := make(map[performance.MetricType]any, len(types))
			for _, metricType := range types {
				factory, err := performance.GetCollector(metricType)
				if err != nil {
					return err
				}
				collector, err := factory(o.logger, cfg)
				if err != nil {
					return fmt.Errorf("failed to create %s collector: %w", metricType, err)
				}
				if err := collector.Capabilities().CanRun(running, root); err != nil {
					o.logger.V(1).Info("Skipping unsupported collector",
						"metric_type", metricType, "reason", err.Error())
					continue
				}
				data, err := collector.Collect(cmd.Context())
				if err != nil {
					return fmt.Errorf("%s collection failed: %w", collector.Name(), err)
				}
				results[metricType] = data
			}

			p := &printer{w: cmd.OutOrStdout(), format: formatJSON}
			return p.print(results)
		},
	}
}

func registeredTypes() string {
	types := performance.RegisteredTypes()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}
