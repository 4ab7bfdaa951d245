package daemon

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTestConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

const minimalConfig = `
reporter_schedule: "c,1,0"
aggregation_interval: 100ms
log:
 level: debug
metrics:
 enabled: false
`

func TestDaemon_StartStopIntegration(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := writeTestConfig(t, tmpDir, minimalConfig)
	pidFile := filepath.Join(tmpDir, "netqualctl.pid")

	d, err := New(configPath, pidFile, nil)
	if err != nil {
		t.Fatalf("failed to create daemon: %v", err)
	}

	if err := d.Start(); err != nil {
		t.Fatalf("failed to start daemon: %v", err)
	}

	if _, err := os.Stat(pidFile); os.IsNotExist(err) {
		t.Errorf("PID file was not created: %s", pidFile)
	}

	runDone := make(chan error, 1)
	go func() {
		runDone <- d.Run()
	}()

	time.Sleep(100 * time.Millisecond)

	d.TriggerShutdown()

	select {
	case err := <-runDone:
		if err != nil {
			t.Errorf("daemon.Run() returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop within timeout")
	}

	if _, err := os.Stat(pidFile); !os.IsNotExist(err) {
		t.Errorf("PID file was not removed after shutdown: %s", pidFile)
	}
}

func TestDaemon_PidFileOptional(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := writeTestConfig(t, tmpDir, minimalConfig)

	d, err := New(configPath, "", nil)
	if err != nil {
		t.Fatalf("failed to create daemon: %v", err)
	}

	if err := d.Start(); err != nil {
		t.Fatalf("failed to start daemon: %v", err)
	}
	defer d.Stop()
}
