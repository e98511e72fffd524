package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Version is stamped by the build.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "beacon",
	Short: "Beacon is an embedded web platform for connected devices",
	Long: `An embedded web platform for a single connected device: WiFi provisioning
through a captive portal, an HTTP(S) interface with sessions and API tokens,
and pluggable application modules.`,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
