package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"netqual.dev/netqual/internal/daemon"
)

var pidFile string

var runCmd = &cobra.Command{
	Use: "run",
	Short: "Run the netqual pipeline in the foreground",
	Long: `Run starts netqualctl's daemon: load the config file, start logging
and the optional Prometheus metrics server, then start the netqual
engine and block until SIGTERM/SIGINT. SIGHUP reloads the log level.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := daemon.New(configFile, pidFile, nil)
		if err != nil {
			return fmt.Errorf("netqualctl: %w", err)
		}
		if err := d.Start(); err != nil {
			return fmt.Errorf("netqualctl: %w", err)
		}
		return d.Run()
	},
}

func init() {
	runCmd.Flags().StringVarP(&pidFile, "pidfile", "p", "",
		"PID file path (empty disables writing one)")
}
