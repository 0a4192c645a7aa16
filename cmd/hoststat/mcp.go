// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/antimetal/hoststat/internal/config"
	"github.com/antimetal/hoststat/pkg/mcp"
	"github.com/antimetal/hoststat/pkg/mcp/tools"
	"github.com/antimetal/hoststat/pkg/performance"
	"github.com/antimetal/hoststat/pkg/sysinfo"
)

const (
	reapInterval    = time.Minute
	shutdownTimeout = 5 * time.Second
)

// liveConfig is the configuration new query sessions are created with
type liveConfig struct {
	mu  sync.RWMutex
	cfg performance.CollectionConfig
}

func (l *liveConfig) get() performance.CollectionConfig {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cfg
}

func (l *liveConfig) set(cfg performance.CollectionConfig) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cfg = cfg
}

func newMCPCommand(o *options) *cobra.Command {
	var (
		httpAddr   string
		sessionTTL time.Duration
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve host metric tools over the Model Context Protocol",
		Long: "Serve host metric tools over MCP. Without --http requests are read from stdin, one " +
			"JSON-RPC message per line. With --config the file is watched and new sessions use the " +
			"reloaded configuration.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := o.collectionConfig(cmd)
			if err != nil {
				return err
			}
			live := &liveConfig{cfg: cfg}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if o.configPath != "" {
				watcher, err := config.NewWatcher(o.configPath, o.logger)
				if err != nil {
					return err
				}
				defer func() {
					if err := watcher.Close(); err != nil {
						o.logger.Error(err, "failed to close config watcher")
					}
				}()
				go func() {
					for reloaded := range watcher.Subscribe() {
						live.set(o.applyFlags(cmd, reloaded))
					}
				}()
			}

			factory := func() (*sysinfo.Session, error) {
				return o.newSession(live.get())
			}
			server := mcp.NewServer(o.logger, factory)
			tools.RegisterAllTools(server, o.logger)

			if httpAddr == "" {
				o.logger.Info("serving MCP on stdio")
				return server.ServeStdio(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
			}

			go server.ReapSessions(ctx, reapInterval, sessionTTL)

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.ListenAndServe(httpAddr)
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
				o.logger.Info("shutting down MCP server")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			}
		},
	}

	cmd.Flags().StringVar(&httpAddr, "http", "", "Serve the /mcp endpoint on this address instead of stdio, e.g. :8090")
	cmd.Flags().DurationVar(&sessionTTL, "session-ttl", 30*time.Minute, "Drop HTTP sessions idle for longer than this")
	return cmd
}
