// Package daemon implements the netqualctl process lifecycle manager:
// load config, start logging/metrics/the netqual engine, run until a
// shutdown signal, and reload what's safe to reload (PID file,
// signal-driven shutdown, SIGHUP reload of the log level only — netqual
// is an in-process library, not a remotely-controlled service, so there's
// no command channel or remote-control socket here).
package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"netqual.dev/netqual/internal/config"
	"netqual.dev/netqual/internal/log"
	"netqual.dev/netqual/internal/metrics"
	"netqual.dev/netqual/pkg/netqual"
)

// Daemon manages netqualctl's process lifecycle around one netqual.Engine.
type Daemon struct {
	config *config.Config
	configPath string
	pidFile string

	engine *netqual.Engine
	metricsServer *metrics.Server // nil if metrics disabled

	report func(netqual.Results)

	ctx context.Context
	cancel context.CancelFunc
	shutdownChan chan struct{}
	sigChan chan os.Signal
}

// New loads configPath and constructs a Daemon. report is invoked for
// every fired report slot; nil logs each Results at info level.
func New(configPath, pidFile string, report func(netqual.Results)) (*Daemon, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("daemon: loading config: %w", err)
	}

	d := &Daemon{
		config: cfg,
		configPath: configPath,
		pidFile: pidFile,
		report: report,
		shutdownChan: make(chan struct{}),
	}
	d.ctx, d.cancel = context.WithCancel(context.Background())
	return d, nil
}

// Start initializes logging, metrics, and the netqual engine.
func (d *Daemon) Start() error {
	d.initLogging()
	logrus.Info("starting netqualctl daemon")

	if err := d.writePIDFile(); err != nil {
		return fmt.Errorf("daemon: writing PID file: %w", err)
	}

	if err := d.startMetrics(); err != nil {
		return fmt.Errorf("daemon: starting metrics server: %w", err)
	}

	report := d.report
	if report == nil {
		report = func(r netqual.Results) {
			logrus.WithField("flow", fmt.Sprintf("%x", r.FlowKey)).
				WithField("packets", r.PacketCount).
				Info("netqual report")
		}
	}

	// With metrics enabled, the engine's metrics register against
	// prometheus.DefaultRegisterer, which metrics.Server's promhttp.Handler
	// serves from by default. Otherwise Registerer stays nil and they are
	// not registered.
	opts := d.config.ToOptions()
	opts.Logger = logrus.StandardLogger()
	if d.config.Metrics.Enabled {
		opts.Registerer = prometheus.DefaultRegisterer
	}

	engine, err := netqual.New(opts, netqual.Callbacks{Report: report})
	if err != nil {
		return fmt.Errorf("daemon: starting netqual engine: %w", err)
	}
	d.engine = engine

	logrus.Info("netqualctl daemon started")
	return nil
}

// Stop performs graceful shutdown of all daemon components.
func (d *Daemon) Stop() {
	logrus.Info("initiating graceful shutdown")

	if d.engine != nil {
		if err := d.engine.Destroy(); err != nil {
			logrus.WithError(err).Error("error destroying netqual engine")
		}
	}

	if d.metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := d.metricsServer.Stop(shutdownCtx); err != nil {
			logrus.WithError(err).Error("error stopping metrics server")
		}
	}

	d.cancel()

	if d.sigChan != nil {
		signal.Stop(d.sigChan)
	}

	if err := d.removePIDFile(); err != nil {
		logrus.WithError(err).Error("error removing PID file")
	}

	logrus.Info("daemon stopped gracefully")
}

// Run blocks until a shutdown signal (SIGTERM/SIGINT), an explicit
// TriggerShutdown, or ctx cancellation. SIGHUP reloads log level only —
// estimator configuration is immutable once the engine is built, so the
// engine itself is never rebuilt by Reload.
func (d *Daemon) Run() error {
	d.sigChan = make(chan os.Signal, 1)
	signal.Notify(d.sigChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)

	logrus.Info("daemon running, waiting for signals")

	for {
		select {
		case sig := <-d.sigChan:
			switch sig {
			case syscall.SIGTERM, syscall.SIGINT:
				logrus.WithField("signal", sig).Info("received shutdown signal")
				d.Stop()
				return nil
			case syscall.SIGHUP:
				logrus.Info("received reload signal")
				if err := d.Reload(); err != nil {
					logrus.WithError(err).Error("failed to reload config")
				}
			}
		case <-d.shutdownChan:
			logrus.Info("shutdown triggered by command")
			d.Stop()
			return nil
		case <-d.ctx.Done():
			logrus.WithError(d.ctx.Err()).Info("context cancelled")
			d.Stop()
			return d.ctx.Err()
		}
	}
}

// Reload re-reads configPath and hot-applies only the log level — every
// other field (aggregation interval, schedule, measured estimators) is
// pipeline configuration the engine was built with and cannot safely
// mutate in place.
func (d *Daemon) Reload() error {
	newConfig, err := config.Load(d.configPath)
	if err != nil {
		return fmt.Errorf("daemon: reloading config: %w", err)
	}

	oldLevel := d.config.Log.Level
	d.config.Log.Level = newConfig.Log.Level
	if newConfig.Log.Level != oldLevel {
		if level, err := logrus.ParseLevel(newConfig.Log.Level); err == nil {
			logrus.SetLevel(level)
			logrus.WithField("level", newConfig.Log.Level).Info("log level reloaded")
		}
	}

	if newConfig.ReporterSchedule != d.config.ReporterSchedule ||
		newConfig.AggregationInterval != d.config.AggregationInterval {
		logrus.Warn("reporter_schedule/aggregation_interval changed on disk; restart required to apply")
	}

	return nil
}

// TriggerShutdown triggers graceful shutdown from an external caller.
func (d *Daemon) TriggerShutdown() {
	select {
	case d.shutdownChan <- struct{}{}:
	default:
	}
}

func (d *Daemon) initLogging() {
	log.Init(&d.config.Log)
}

func (d *Daemon) startMetrics() error {
	if !d.config.Metrics.Enabled {
		logrus.Info("metrics server disabled")
		return nil
	}
	d.metricsServer = metrics.NewServer(d.config.Metrics.Addr, d.config.Metrics.Path)
	if err := d.metricsServer.Start(d.ctx); err != nil {
		return err
	}
	logrus.WithField("addr", d.config.Metrics.Addr).Info("metrics server started")
	return nil
}

func (d *Daemon) writePIDFile() error {
	if d.pidFile == "" {
		return nil
	}
	data := []byte(strconv.Itoa(os.Getpid()) + "\n")
	if err := os.WriteFile(d.pidFile, data, 0o644); err != nil {
		return fmt.Errorf("writing PID file %s: %w", d.pidFile, err)
	}
	return nil
}

func (d *Daemon) removePIDFile() error {
	if d.pidFile == "" {
		return nil
	}
	if err := os.Remove(d.pidFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing PID file %s: %w", d.pidFile, err)
	}
	return nil
}
