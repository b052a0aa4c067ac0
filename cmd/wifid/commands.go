package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/wifictl/internal/config"
	"github.com/muurk/wifictl/internal/logging"
)

// Run command flags
var (
	logLevel   string
	platform   string
	forceAP    bool
	listenAddr string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the connection manager",
	Long: `Run the connection manager until interrupted.

Flags override the matching values of the configuration file. The daemon
exits with status 3 after a reboot or reset requested through the portal,
so the service manager can start it again.`,
	Example: `  # Run with the default configuration file
  wifid run

  # Try the portal without hardware
  wifid run --platform sim --log-level debug

  # Force the access point even if a network is saved
  wifid run --access-point`,
	RunE: runDaemon,
}

func init() {
	runCmd.Flags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	runCmd.Flags().StringVar(&platform, "platform", "", "Radio platform (wpa, sim)")
	runCmd.Flags().BoolVar(&forceAP, "access-point", false, "Start the access point even with a saved network")
	runCmd.Flags().StringVar(&listenAddr, "listen", "", "Portal listen address")
}

func loadConfig() (*config.Config, string, error) {
	path := configPath
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return nil, "", err
		}
	}
	config.SetPath(path)
	cfg, err := config.Get()
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, path, err := loadConfig()
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if platform != "" {
		cfg.Platform = platform
	}
	if forceAP {
		cfg.StartAccessPoint = true
	}
	if listenAddr != "" {
		cfg.Portal.Listen = listenAddr
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := logging.Initialize(cfg.LogLevel); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logging.Sync()
	logging.Info("Configuration loaded", zap.String("path", path), zap.String("platform", cfg.Platform))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	d, err := newDaemon(cfg, logging.GetLogger())
	if err != nil {
		return err
	}
	return d.run(ctx)
}

var initConfigCmd = &cobra.Command{
	Use:   "init-config",
	Short: "Write a default configuration file",
	Long: `Write a configuration file with default values and an example
simulated network. An existing file is only replaced with --force.`,
	RunE: runInitConfig,
}

var forceInit bool

func init() {
	initConfigCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing file")
}

func runInitConfig(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return err
		}
	}
	if _, err := os.Stat(path); err == nil && !forceInit {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := config.Example().Save(path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}
