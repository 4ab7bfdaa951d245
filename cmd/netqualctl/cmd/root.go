// Package cmd implements netqualctl's CLI commands using cobra: a
// persistent --config flag shared by every subcommand and a bare Execute()
// entry point for main.
package cmd

import (
	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use: "netqualctl",
	Short: "netqualctl - standalone runner for the netqual network-quality estimator",
	Long: `netqualctl loads a YAML configuration, starts netqual's producer→
aggregator→reporter pipeline, and logs every fired report until it
receives a shutdown signal.

It exists to exercise the netqual library end-to-end from the command
line; applications embedding netqual call pkg/netqual directly instead.`,
	Version: "0.1.0",
}

// Execute adds all child commands to rootCmd and runs it. Called once by
// main.main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "/etc/netqual/config.yml",
		"config file path")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
}
