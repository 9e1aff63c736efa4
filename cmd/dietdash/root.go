// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/AleutianAI/dietdash/pkg/logging"
	"github.com/AleutianAI/dietdash/services/dashboard"
	"github.com/AleutianAI/dietdash/services/dashboard/config"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

// rootOptions holds the parsed command-line flags.
type rootOptions struct {
	configPath string
	debug      bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "dietdash",
		Short: "Serve the diet impact dashboard",
		Long: `dietdash loads the diet survey, land-use and country boundary files and
serves an interactive dashboard with a sunburst of impact by diet and a
world map of land use per diet.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts, cmd.Flags().Changed("debug"))
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", "", "path to a YAML configuration file")
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "debug mode: verbose logs and auto-reload of the data files")
	return cmd
}

// loadConfig reads the config file and applies the flag overrides.
func loadConfig(opts *rootOptions, debugSet bool) (config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if debugSet {
		cfg.Debug = opts.debug
	}
	return cfg, nil
}

// run installs logging and serves until ctx ends.
func run(ctx context.Context, cfg config.Config) error {
	level := logging.LevelInfo
	if cfg.Debug {
		level = logging.LevelDebug
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	logger := logging.New(logging.Config{
		Level:   level,
		Service: dashboard.ServiceName,
		LogDir:  cfg.Log.Dir,
		JSON:    cfg.Log.JSON,
	})
	defer logger.Close()
	slog.SetDefault(logger.Slog())

	svc, err := dashboard.New(ctx, dashboard.ConfigFromFile(cfg))
	if err != nil {
		return fmt.Errorf("startup failed: %w", err)
	}
	return svc.Run(ctx)
}
