// Command netqualctl runs netqual as a standalone process: load a YAML
// config, start logging/metrics, open the engine, and log every fired
// report until a shutdown signal arrives.
//
// netqual itself is an in-process library; netqualctl is a thin example
// program that drives it end to end from the command line.
package main

import (
	"fmt"
	"os"

	"netqual.dev/netqual/cmd/netqualctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
