// Package metrics implements the pipeline-health Prometheus metrics for
// netqual's producer/aggregator/reporter pipeline: queue depth, epoch
// rotations, drops, and reports emitted. Metrics are registered against a
// caller-supplied prometheus.Registerer rather than the package-level
// default, so multiple Engines (as in tests) don't collide on metric names.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles every netqual pipeline gauge/counter/histogram.
type Metrics struct {
	IngressQueueDepth prometheus.Gauge
	HandlesOpen prometheus.Gauge
	PacketsPushedTotal prometheus.Counter
	InvalidPushesTotal prometheus.Counter

	EpochRotationsTotal prometheus.Counter
	EpochMapsPending prometheus.Gauge

	PacketsDroppedTotal *prometheus.CounterVec
	ConsecutiveDropsTotal prometheus.Counter
	AssumedDropsTotal prometheus.Counter

	ReportsEmittedTotal *prometheus.CounterVec
	FlowsActive prometheus.Gauge
}

// New constructs and registers a fresh Metrics set against reg. A nil reg
// registers nothing: promauto.With(nil) builds the collectors without
// registering them anywhere.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		IngressQueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "netqual_ingress_queue_depth",
			Help: "Current number of arrivals queued between producers and the aggregator.",
		}),
		HandlesOpen: factory.NewGauge(prometheus.GaugeOpts{
			Name: "netqual_handles_open",
			Help: "Current number of open producer handles.",
		}),
		PacketsPushedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "netqual_packets_pushed_total",
			Help: "Total number of packet arrivals accepted by Push.",
		}),
		InvalidPushesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "netqual_invalid_pushes_total",
			Help: "Total number of Push calls rejected for a malformed flow key.",
		}),
		EpochRotationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "netqual_epoch_rotations_total",
			Help: "Total number of aggregator epoch rotations.",
		}),
		EpochMapsPending: factory.NewGauge(prometheus.GaugeOpts{
			Name: "netqual_epoch_maps_pending",
			Help: "Current number of completed epoch maps waiting in the handoff list.",
		}),
		PacketsDroppedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "netqual_packets_dropped_total",
			Help: "Total number of packets the loss estimator counted as dropped, by estimator source.",
		}, []string{"estimator"}),
		ConsecutiveDropsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "netqual_consecutive_drops_total",
			Help: "Total number of consecutive-drop events observed by the loss estimator.",
		}),
		AssumedDropsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "netqual_assumed_drops_total",
			Help: "Total number of reorder-extent missing-table entries evicted without arriving.",
		}),
		ReportsEmittedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "netqual_reports_emitted_total",
			Help: "Total number of per-flow reports emitted, by schedule slot.",
		}, []string{"slot"}),
		FlowsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "netqual_flows_active",
			Help: "Current number of distinct flows with persistent estimator state.",
		}),
	}
}
