// Wifid is the Wi-Fi connection manager daemon.
//
// It joins the saved network at boot, or brings up an access point with a
// WebSocket configuration portal when no network is saved or the last
// boot asked for it. Connection events are exported as Prometheus metrics
// and the portal is advertised over mDNS.
//
// Usage:
//
//	wifid run [--config path]
//
// See 'wifid --help' for available commands.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/wifictl/internal/version"
)

// exitRestart is returned to the service manager when the portal asked for
// a reboot or reset.
const exitRestart = 3

func main() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, errRestart) {
			os.Exit(exitRestart)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var configPath string

var rootCmd = &cobra.Command{
	Use:   "wifid",
	Short: "Wi-Fi connection manager daemon",
	Long: `A daemon that manages the Wi-Fi radio of a device.

On boot it joins the saved network. When none is saved, the connection
cannot be started, or the previous run requested a reboot, it starts an
access point and serves a WebSocket configuration portal where a client
can scan for networks and provide credentials.

Use the separate 'wifictl' utility to scan, discover daemons and query
their status.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/wifictl/wifid.yaml)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(initConfigCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("wifid %s\n", version.Full())
	},
}
