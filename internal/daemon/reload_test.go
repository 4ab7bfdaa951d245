package daemon

import (
	"os"
	"testing"
)

func TestDaemon_ReloadLogLevel(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := writeTestConfig(t, tmpDir, `
reporter_schedule: "c,1,0"
log:
 level: info
metrics:
 enabled: false
`)

	d, err := New(configPath, "", nil)
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	if err := d.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer d.Stop()

	if d.config.Log.Level != "info" {
		t.Fatalf("expected initial level info, got %s", d.config.Log.Level)
	}

	writeTestConfig(t, tmpDir, `
reporter_schedule: "c,1,0"
log:
 level: debug
metrics:
 enabled: false
`)

	if err := d.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}

	if d.config.Log.Level != "debug" {
		t.Fatalf("expected level debug after reload, got %s", d.config.Log.Level)
	}
}

func TestDaemon_ReloadWarnsOnPipelineConfigChange(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := writeTestConfig(t, tmpDir, `
reporter_schedule: "c,1,0"
log:
 level: info
metrics:
 enabled: false
`)

	d, err := New(configPath, "", nil)
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	if err := d.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer d.Stop()

	// Changing the reporter schedule on disk must not panic or rebuild the
	// running engine — Reload only logs a warning and keeps the old pipeline
	// running: estimator configuration is immutable once the engine starts.
	writeTestConfig(t, tmpDir, `
reporter_schedule: "c,30,0"
log:
 level: info
metrics:
 enabled: false
`)

	if err := d.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}

	if d.config.ReporterSchedule != "c,1,0" {
		t.Fatalf("expected config.ReporterSchedule to stay c,1,0, got %s", d.config.ReporterSchedule)
	}
}

func TestDaemon_ReloadRejectsMissingFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := writeTestConfig(t, tmpDir, `
reporter_schedule: "c,1,0"
log:
 level: info
metrics:
 enabled: false
`)

	d, err := New(configPath, "", nil)
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	if err := d.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer d.Stop()

	if err := os.Remove(configPath); err != nil {
		t.Fatalf("removing config: %v", err)
	}

	if err := d.Reload(); err == nil {
		t.Fatal("expected reload to fail after config file removal")
	}
}
