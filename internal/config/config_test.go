package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaultsForMissingKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "netqual.yaml")
	require.NoError(t, os.WriteFile(path, []byte("reporter_schedule: \"c,10,0\"\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "c,10,0", cfg.ReporterSchedule)
	require.Equal(t, Default().ReporterMinBatches, cfg.ReporterMinBatches)
	require.Equal(t, Default().MeasureLoss, cfg.MeasureLoss)
}

func TestLoadOverridesEverything(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "netqual.yaml")
	body := `
aggregation_interval: 2s
reporter_schedule: "c,1,0;c,5,2"
reporter_min_batches: 4
measure_loss: false
measure_reorder_extent: true
measure_reorder_density: false
key_size: 4
metrics:
 enabled: false
 addr: ":9999"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 2*time.Second, cfg.AggregationInterval)
	require.Equal(t, 4, cfg.ReporterMinBatches)
	require.False(t, cfg.MeasureLoss)
	require.True(t, cfg.MeasureReorderExtent)
	require.False(t, cfg.Metrics.Enabled)
	require.Equal(t, ":9999", cfg.Metrics.Addr)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestToOptionsCarriesPipelineFields(t *testing.T) {
	cfg := Default()
	cfg.ReporterSchedule = "c,3,0"
	opts := cfg.ToOptions()

	require.Equal(t, cfg.AggregationInterval, opts.AggregationInterval)
	require.Equal(t, "c,3,0", opts.ReporterSchedule)
	require.Equal(t, cfg.ReporterMinBatches, opts.ReporterMinBatches)
}
