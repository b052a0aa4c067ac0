package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/wifictl/internal/config"
	"github.com/muurk/wifictl/internal/discovery"
	"github.com/muurk/wifictl/internal/logging"
	"github.com/muurk/wifictl/internal/portal"
	"github.com/muurk/wifictl/internal/ui"
	"github.com/muurk/wifictl/internal/wifi"
)

// Command flags
var (
	configPath   string
	platformName string
	timeout      time.Duration
	outputFormat string
	daemonAddr   string
	daemonHost   string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "table", "Output format (table, json)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second, "Operation timeout")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(statusCmd)
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// scanCmd scans with the local radio
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for Wi-Fi networks",
	Long: `Scan for Wi-Fi networks with the local radio.

The platform and, for the simulated platform, the visible networks come
from the wifid configuration file. Do not run this while wifid owns the
radio; use 'wifictl status' against the daemon instead.`,
	Example: `  # Scan with wpa_supplicant
  wifictl scan

  # Scan the networks of the simulated platform
  wifictl scan --platform sim

  # Machine readable output
  wifictl scan --format json`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVar(&configPath, "config", "", "wifid config file (default $XDG_CONFIG_HOME/wifictl/wifid.yaml)")
	scanCmd.Flags().StringVar(&platformName, "platform", "", "Radio platform (wpa, sim)")
}

func runScan(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return err
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if platformName != "" {
		cfg.Platform = platformName
	}

	log := logging.Named("scan")
	p, err := cfg.OpenPlatform(log)
	if err != nil {
		return err
	}
	defer p.Close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	var records []wifi.ApRecord
	out := cmd.OutOrStdout()
	err = ui.RunWithSpinner(ctx, out, "Scanning for networks...", func(ctx context.Context) error {
		var err error
		records, err = localScan(ctx, p, log)
		return err
	})
	if err != nil {
		return err
	}

	if outputFormat == "json" {
		return printJSON(cmd, portal.ScanResult{Count: len(records), Networks: records})
	}
	printer := ui.NewPrinter(out)
	printer.Println(ui.RenderScanTable(records, printer.Width(), printer.Plain()))
	return nil
}

// discoverCmd browses mDNS for daemons
var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Discover wifid daemons on the network",
	Long: `Discover running wifid daemons using mDNS/DNS-SD.

Daemons advertise their portal after obtaining an address, under their
configured hostname.`,
	Example: `  # Browse for 10 seconds (default)
  wifictl discover

  # Quick 3-second browse
  wifictl discover --timeout 3s

  # Wait for one daemon by hostname
  wifictl discover --host kitchen-sensor`,
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().StringVar(&daemonHost, "host", "", "Stop at the daemon advertising this hostname")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	scanner := discovery.NewScanner()
	scanner.Timeout = timeout

	var daemons []*discovery.Daemon
	out := cmd.OutOrStdout()
	err := ui.RunWithSpinner(ctx, out, "Browsing for daemons...", func(ctx context.Context) error {
		if daemonHost != "" {
			d, err := scanner.WaitFor(ctx, daemonHost)
			if err != nil {
				return err
			}
			daemons = []*discovery.Daemon{d}
			return nil
		}
		var err error
		daemons, err = scanner.Browse(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("discovery failed: %w", err)
	}

	if outputFormat == "json" {
		return printJSON(cmd, daemons)
	}

	printer := ui.NewPrinter(out)
	if len(daemons) == 0 {
		printer.Println("No daemons found.")
		return nil
	}
	for i, d := range daemons {
		details := []ui.Detail{
			{Key: "Host", Value: d.Hostname},
			{Key: "Portal", Value: d.WebSocketURL()},
		}
		if d.Version != "" {
			details = append(details, ui.Detail{Key: "Version", Value: d.Version})
		}
		printer.PrintDetails(strconv.Itoa(i+1)+". "+d.Instance, "", details)
	}
	printer.Println("\nUse 'wifictl status --addr <host:port>' to query a daemon")
	return nil
}

// statusCmd queries a daemon over its portal
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the status of a daemon",
	Long: `Connect to a daemon's configuration portal and show its mode,
station state, link details and internet reachability.

Without --addr the daemon advertising --host, or else the first daemon
found over mDNS, is queried.`,
	Example: `  # Query the daemon on the access point network
  wifictl status --addr 192.168.4.1

  # Full portal URL
  wifictl status --addr ws://kitchen-sensor.local:8810/ws

  # Look the daemon up by its advertised hostname
  wifictl status --host kitchen-sensor`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&daemonAddr, "addr", "", "Daemon address (host[:port][/path] or ws:// URL)")
	statusCmd.Flags().StringVar(&daemonHost, "host", "", "Hostname advertised by the daemon over mDNS")
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	url := ""
	if daemonAddr != "" {
		url = portalURL(daemonAddr)
	}

	var report portal.StatusReport
	out := cmd.OutOrStdout()
	err := ui.RunWithSpinner(ctx, out, "Querying daemon...", func(ctx context.Context) error {
		if url == "" {
			d, err := findDaemon(ctx, daemonHost)
			if err != nil {
				return err
			}
			url = d.WebSocketURL()
		}
		c, err := dialPortal(ctx, url, timeout)
		if err != nil {
			return err
		}
		defer c.Close()
		report, err = c.Status()
		return err
	})
	if err != nil {
		return err
	}

	if outputFormat == "json" {
		return printJSON(cmd, report)
	}
	printer := ui.NewPrinter(out)
	printer.Println(ui.RenderStatus(report, url, printer.Width(), printer.Plain()))
	return nil
}

// findDaemon resolves the daemon advertising host, or the first one found
// when host is empty.
func findDaemon(ctx context.Context, host string) (*discovery.Daemon, error) {
	scanner := discovery.NewScanner()
	scanner.Timeout = timeout / 2
	if host != "" {
		return scanner.WaitFor(ctx, host)
	}
	daemons, err := scanner.Browse(ctx)
	if err != nil {
		return nil, err
	}
	if len(daemons) == 0 {
		return nil, errors.New("no daemon found, use --addr to specify one")
	}
	return daemons[0], nil
}
