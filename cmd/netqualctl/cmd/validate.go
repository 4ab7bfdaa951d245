package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"netqual.dev/netqual/internal/config"
)

var validateCmd = &cobra.Command{
	Use: "validate",
	Short: "Validate a netqualctl configuration file",
	Long: `Validate parses a netqualctl YAML config file, with the same
defaulting/env-override rules "run" uses, then checks the resulting
netqual.Options (aggregation interval, reporter schedule, etc.) without
starting the engine.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate(configFile)
	},
}

func runValidate(path string) error {
	// Parse the raw file with yaml.v3 first so a malformed document reports
	// a YAML-level error before config.Load's viper/mapstructure pass
	// obscures it behind a decoding error.
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("INVALID: %s is not valid YAML: %w", path, err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("INVALID: %w", err)
	}

	opts := cfg.ToOptions()
	if err := opts.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "INVALID: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("VALID: aggregation_interval=%s reporter_schedule=%q reporter_min_batches=%d\n",
		cfg.AggregationInterval, cfg.ReporterSchedule, cfg.ReporterMinBatches)
	return nil
}
