// Vakitd drives a prayer-times display board.
//
// It joins the configured WiFi network, falls back to a setup portal on its
// own access point when the network cannot be reached, keeps the clock in
// sync over NTP and shows the daily times from an RSS feed with a countdown
// to the next one.
//
// Usage:
//
//	vakitd [command] [flags]
//
// See 'vakitd --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/logging"
	"github.com/bilalemiroglu/RSS-Vakit-ESP/internal/version"
)

func main() {
	defer logging.Sync()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "vakitd",
	Short: "Prayer times display daemon",
	Long: `A daemon for a small prayer-times display.

Joins the configured WiFi network, shows the daily prayer times from an RSS
feed with a countdown to the next one, and opens a setup portal on its own
access point when the network cannot be reached.`,
	Version: version.Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Initialize(logLevel)
	},
	SilenceUsage: true,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Full())
	},
}
