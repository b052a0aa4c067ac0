// Wifictl is the command line companion of wifid.
//
// It scans for Wi-Fi networks with the local radio, discovers running
// daemons over mDNS and queries a daemon's status through its portal.
//
// Usage:
//
//	wifictl [command] [flags]
//
// See 'wifictl --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/wifictl/internal/logging"
	"github.com/muurk/wifictl/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "wifictl",
	Short: "Wi-Fi connection manager utility",
	Long: `A utility for the wifid connection manager.

Scans for networks with the local radio, discovers daemons announced over
mDNS and queries their status through the configuration portal.

Logging is silent unless WIFICTL_LOG_LEVEL is set.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.InitializeFromEnv()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("wifictl %s\n", version.Full())
	},
}
