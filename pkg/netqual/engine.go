// Package netqual is the public API of the in-process network-quality
// estimation library: init a pipeline once, open a handle per producer,
// push packet arrivals through it, and receive per-flow loss and
// reordering reports on a configurable schedule.
package netqual

import (
	"fmt"
	"sync"

	"github.com/satori/go.uuid"
	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc"
	"go.uber.org/multierr"

	"netqual.dev/netqual/internal/aggregator"
	"netqual.dev/netqual/internal/epoch"
	"netqual.dev/netqual/internal/keyhash"
	"netqual.dev/netqual/internal/metrics"
	"netqual.dev/netqual/internal/reporter"
	"netqual.dev/netqual/internal/schedule"
	"netqual.dev/netqual/internal/stagingqueue"
)

// ingressKey is the single (src, dst) identity every producer handle's
// staging queue shares: one engine runs one producer→aggregator queue, with
// Handles splitting the producer side (Registry is built for
// the general case; netqual's pipeline only ever needs one shared queue).
const ingressKey = "ingress"

// Engine owns one complete producer→aggregator→reporter pipeline: the
// staging queue registry, the aggregator and reporter goroutines, and the
// set of open producer handles.
type Engine struct {
	opts Options

	registry *stagingqueue.Registry[string, aggregator.Arrival]
	consumer *stagingqueue.Handle[aggregator.Arrival]
	handoff *epoch.Handoff
	agg *aggregator.Aggregator
	rep *reporter.Reporter
	sched *schedule.Schedule

	log *logrus.Entry
	wg conc.WaitGroup
	metrics *metrics.Metrics

	mu sync.Mutex
	handles map[uuid.UUID]*Handle
	destroyed bool
}

// Handle is one producer's private view into an Engine's ingress queue
// (create_handle/push/destroy_handle surface).
type Handle struct {
	id uuid.UUID
	engine *Engine
	queue *stagingqueue.Handle[aggregator.Arrival]

	mu sync.Mutex
	closed bool
}

// New validates opts, wires the aggregator and reporter, and starts both
// goroutines. The Engine is ready to accept handles on return.
func New(opts Options, cb Callbacks) (*Engine, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	now := opts.now()
	sched, err := schedule.Parse(opts.ReporterSchedule, now())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}

	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	entry := logrus.NewEntry(log).WithField("component", "netqual")
	m := metrics.New(opts.Registerer)

	e := &Engine{
		opts: opts,
		registry: stagingqueue.NewRegistry[string, aggregator.Arrival](),
		handoff: epoch.NewHandoff(),
		sched: sched,
		log: entry,
		metrics: m,
		handles: make(map[uuid.UUID]*Handle),
	}

	e.consumer = e.registry.Open(ingressKey, opts.pushThreshold(), nil)

	e.agg = aggregator.New(aggregator.Config{
		Queue: e.consumer,
		Handoff: e.handoff,
		Interval: opts.AggregationInterval,
		Now: now,
		Log: entry,
		OnRotate: func() { m.EpochRotationsTotal.Inc() },
	})

	report := cb.Report
	if report == nil {
		report = func(Results) {
			entry.Debug("report fired with no registered callback, dropping")
		}
	}
	measure := reporter.Measure{
		Loss: opts.MeasureLoss,
		ReorderExtent: opts.MeasureReorderExtent,
		ReorderDensity: opts.MeasureReorderDensity,
	}
	e.rep = reporter.New(reporter.Config{
		Handoff: e.handoff,
		MinBatches: opts.ReporterMinBatches,
		Schedule: sched,
		Measure: measure,
		Now: now,
		Log: entry,
		Callback: func(flow keyhash.Key, d reporter.Data) {
			res := newResults([]byte(flow.FlowKey), d, measure)
			if res.Loss != nil {
				m.ConsecutiveDropsTotal.Add(float64(res.Loss.ConsecutiveDrops))
				m.PacketsDroppedTotal.WithLabelValues("loss").Add(float64(res.Loss.PacketsDropped))
			}
			if res.ReorderExtent != nil {
				m.AssumedDropsTotal.Add(float64(res.ReorderExtent.AssumedDrops))
			}
			m.ReportsEmittedTotal.WithLabelValues("all").Inc()
			report(res)
		},
	})

	e.wg.Go(e.agg.Run)
	e.wg.Go(e.rep.Run)

	entry.WithFields(logrus.Fields{
		"aggregation_interval": opts.AggregationInterval,
		"reporter_schedule": opts.ReporterSchedule,
	}).Info("netqual engine started")

	return e, nil
}

// CreateHandle opens a new producer handle on the engine's ingress queue
// (create_handle).
func (e *Engine) CreateHandle() (*Handle, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("netqual: generating handle id: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.destroyed {
		return nil, ErrShuttingDown
	}
	h := &Handle{
		id: id,
		engine: e,
		queue: e.registry.Open(ingressKey, e.opts.pushThreshold(), nil),
	}
	e.handles[h.id] = h
	e.metrics.HandlesOpen.Set(float64(len(e.handles)))
	return h, nil
}

// closeHandle is invoked by Handle.Close to unregister itself from its
// engine.
func (e *Engine) closeHandle(h *Handle) error {
	e.mu.Lock()
	delete(e.handles, h.id)
	e.metrics.HandlesOpen.Set(float64(len(e.handles)))
	e.mu.Unlock()
	return e.registry.Close(ingressKey, h.queue)
}

// Destroy stops the reporter and aggregator, closing every remaining
// handle and the internal consumer handle to drain the pipeline, and waits
// for both goroutines to exit (destroy).
func (e *Engine) Destroy() error {
	e.mu.Lock()
	if e.destroyed {
		e.mu.Unlock()
		return nil
	}
	e.destroyed = true
	remaining := make([]*Handle, 0, len(e.handles))
	for _, h := range e.handles {
		remaining = append(remaining, h)
	}
	e.handles = make(map[uuid.UUID]*Handle)
	e.mu.Unlock()

	var errs error
	for _, h := range remaining {
		errs = multierr.Append(errs, h.Close())
	}
	errs = multierr.Append(errs, e.registry.Close(ingressKey, e.consumer))

	e.rep.Stop()
	e.wg.Wait()

	e.log.Info("netqual engine destroyed")
	return errs
}

// Push enqueues one packet arrival onto h's engine, mapping the public
// StreamID/PacketInfo pair into the aggregator's internal keyhash.Key/Seq
// form (push).
func (h *Handle) Push(pkt PacketInfo) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrHandleClosed
	}
	h.mu.Unlock()

	if len(pkt.Stream.FlowKey) != h.engine.opts.keySize() {
		h.engine.metrics.InvalidPushesTotal.Inc()
		return fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidFlowKey, len(pkt.Stream.FlowKey), h.engine.opts.keySize())
	}

	key := keyhash.Key{
		FlowKey: string(pkt.Stream.FlowKey),
		StreamID: pkt.Stream.Stream,
		Kind: keyhash.KindStream,
	}
	h.queue.Push(aggregator.Arrival{Stream: key, Seq: pkt.Seq}, stagingqueue.Default)
	h.engine.metrics.PacketsPushedTotal.Inc()
	h.engine.metrics.IngressQueueDepth.Set(float64(h.queue.Len()))
	return nil
}

// Flush forces h's local batch onto the shared ingress queue immediately,
// without waiting for the push threshold (flush).
func (h *Handle) Flush() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrHandleClosed
	}
	h.mu.Unlock()
	h.queue.Flush()
	return nil
}

// Close flushes and releases h, decrementing its engine's shared-queue
// refcount (destroy_handle).
func (h *Handle) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	h.mu.Unlock()
	h.queue.Flush()
	return h.engine.closeHandle(h)
}

// --- package-level singleton, for literal free-function surface ---

var (
	globalMu sync.Mutex
	globalEngine *Engine
)

// Init constructs and starts the package-level engine. Repeated Init calls
// while one is already running are an idempotent no-op.
func Init(opts Options, cb Callbacks) error {
	globalMu.Lock()
	defer globalMu.Unlock()
	if globalEngine != nil {
		return nil
	}
	e, err := New(opts, cb)
	if err != nil {
		return err
	}
	globalEngine = e
	return nil
}

// IsInitialized reports whether Init has been called without a matching
// Destroy.
func IsInitialized() bool {
	globalMu.Lock()
	defer globalMu.Unlock()
	return globalEngine != nil
}

// CreateHandle opens a producer handle on the package-level engine.
func CreateHandle() (*Handle, error) {
	globalMu.Lock()
	e := globalEngine
	globalMu.Unlock()
	if e == nil {
		return nil, ErrNotInitialized
	}
	return e.CreateHandle()
}

// Push is a convenience wrapper for h.Push.
func Push(h *Handle, pkt PacketInfo) error { return h.Push(pkt) }

// Flush is a convenience wrapper for h.Flush.
func Flush(h *Handle) error { return h.Flush() }

// DestroyHandle is a convenience wrapper for h.Close.
func DestroyHandle(h *Handle) error { return h.Close() }

// Destroy tears down the package-level engine, allowing a later Init to
// start a fresh one.
func Destroy() error {
	globalMu.Lock()
	e := globalEngine
	globalEngine = nil
	globalMu.Unlock()
	if e == nil {
		return nil
	}
	return e.Destroy()
}
