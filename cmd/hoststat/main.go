// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

// Command hoststat reports host metrics read from procfs.
package main

import (
	"fmt"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/antimetal/hoststat/internal/config"
	"github.com/antimetal/hoststat/pkg/config/environment"
	"github.com/antimetal/hoststat/pkg/performance"
	"github.com/antimetal/hoststat/pkg/sysinfo"
)

// options holds the persistent flags shared by every subcommand
type options struct {
	procPath   string
	etcPath    string
	configPath string
	output     string
	rounding   int
	verbose    bool

	logger logr.Logger
	zap    *zap.Logger
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	o := &options{logger: logr.Discard()}
	paths := environment.GetHostPaths()

	root := &cobra.Command{
		Use:          "hoststat",
		Short:        "Report host metrics read from procfs",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := validateFormat(o.output); err != nil {
				return err
			}
			return o.setupLogger()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if o.zap != nil {
				_ = o.zap.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&o.procPath, "proc-path", paths.Proc, "Path to the procfs mount (env HOST_PROC)")
	flags.StringVar(&o.etcPath, "etc-path", paths.Etc, "Path to /etc (env HOST_ETC)")
	flags.StringVar(&o.configPath, "config", environment.ConfigFile(), "YAML configuration file (env HOSTSTAT_CONFIG)")
	flags.StringVarP(&o.output, "output", "o", formatTable, "Output format: table or json")
	flags.IntVar(&o.rounding, "rounding", performance.DefaultRounding, "Decimals kept in percentages")
	flags.BoolVarP(&o.verbose, "verbose", "v", false, "Enable debug logging on stderr")

	root.AddCommand(
		newUptimeCommand(o),
		newCPUInfoCommand(o),
		newStatCommand(o),
		newLoadCommand(o),
		newMemoryCommand(o),
		newMountsCommand(o),
		newVolumesCommand(o),
		newPartitionsCommand(o),
		newVersionCommand(o),
		newIdentityCommand(o),
		newLoadAvgCommand(o),
		newCrossCheckCommand(o),
		newCollectCommand(o),
		newMCPCommand(o),
	)
	return root
}

// setupLogger builds a zap logger writing to stderr. Verbose mode enables the
// logr V(1) and V(2) levels.
func (o *options) setupLogger() error {
	cfg := zap.NewProductionConfig()
	if o.verbose {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.Level(-2))
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	zl, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	o.zap = zl
	o.logger = zapr.NewLogger(zl)
	return nil
}

// collectionConfig resolves the configuration: the config file when one is given,
// otherwise the defaults, with explicitly set flags taking precedence over both.
func (o *options) collectionConfig(cmd *cobra.Command) (performance.CollectionConfig, error) {
	cfg := performance.DefaultCollectionConfig()
	cfg.HostProcPath = o.procPath
	cfg.HostEtcPath = o.etcPath
	cfg.Rounding = o.rounding

	if o.configPath != "" {
		loaded, err := config.Load(o.configPath)
		if err != nil {
			return cfg, err
		}
		cfg = o.applyFlags(cmd, loaded)
	}
	return cfg, nil
}

// applyFlags overrides cfg with the flags set on the command line
func (o *options) applyFlags(cmd *cobra.Command, cfg performance.CollectionConfig) performance.CollectionConfig {
	flags := cmd.Flags()
	if flags.Changed("proc-path") {
		cfg.HostProcPath = o.procPath
	}
	if flags.Changed("etc-path") {
		cfg.HostEtcPath = o.etcPath
	}
	if flags.Changed("rounding") {
		cfg.Rounding = o.rounding
	}
	return cfg
}

func (o *options) newSession(cfg performance.CollectionConfig) (*sysinfo.Session, error) {
	return sysinfo.NewSession(o.logger, cfg, sysinfo.Options{
		Validate: performance.ValidateOptions{RequireProcMounted: true},
	})
}

// session resolves the configuration and opens a query session over it
func (o *options) session(cmd *cobra.Command) (*sysinfo.Session, error) {
	cfg, err := o.collectionConfig(cmd)
	if err != nil {
		return nil, err
	}
	return o.newSession(cfg)
}

func (o *options) printer(cmd *cobra.Command) *printer {
	return &printer{w: cmd.OutOrStdout(), format: o.output}
}
