// Package aggregator implements the one dedicated thread that consumes
// batched packet arrivals and groups them into periodic epoch buckets: a
// timer-or-work select loop draining the staging queue and rotating epoch
// buckets on a schedule. Run stops once the staging queue reports Shutdown,
// after rotating out the final epoch.
package aggregator

import (
	"time"

	"github.com/sirupsen/logrus"

	"netqual.dev/netqual/internal/epoch"
	"netqual.dev/netqual/internal/keyhash"
	"netqual.dev/netqual/internal/stagingqueue"
)

// Arrival is one packet observation as it crosses from the staging queue
// into the aggregator (PacketInfo). Arrival timestamps are not
// carried on the wire — the aggregator stamps them at processing time.
type Arrival struct {
	Stream keyhash.Key
	Seq uint32
}

// Clock abstracts time.Now so tests can drive the rotation loop
// deterministically.
type Clock func() time.Time

// Aggregator is the single-threaded epoch builder. It owns the current
// working epoch map and its local free-lists; only Rotate touches the
// shared Handoff lock.
type Aggregator struct {
	queue *stagingqueue.Handle[Arrival]
	handoff *epoch.Handoff
	interval time.Duration
	now Clock
	log *logrus.Entry

	working *epoch.Map
	itemFree epoch.ItemFreelist
	rangeFree epoch.Freelist
	mapFree epoch.MapFreelist

	nextBoundary time.Time
	onRotate func()
}

// Config bundles Aggregator's collaborators.
type Config struct {
	Queue *stagingqueue.Handle[Arrival]
	Handoff *epoch.Handoff
	Interval time.Duration
	Now Clock // defaults to time.Now
	Log *logrus.Entry

	// OnRotate, if set, is called synchronously after every epoch
	// rotation (for pipeline-health metrics). It must not block.
	OnRotate func()
}

// New constructs an Aggregator with a fresh working epoch.
func New(cfg Config) *Aggregator {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	log := cfg.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	a := &Aggregator{
		queue: cfg.Queue,
		handoff: cfg.Handoff,
		interval: cfg.Interval,
		now: now,
		log: log.WithField("component", "aggregator"),
		onRotate: cfg.OnRotate,
	}
	a.working = a.mapFree.Get()
	a.nextBoundary = now().Add(cfg.Interval)
	return a
}

// Run is the aggregator's main loop: timed-pop the staging
// queue until the epoch boundary, rotate, repeat, until the queue shuts
// down.
func (a *Aggregator) Run() {
	for {
		deadline := a.nextBoundary
		item, status, ok := a.queue.TimedPop(deadline)
		if !ok {
			if status == stagingqueue.Shutdown {
				a.rotate() // flush the final partial epoch
				return
			}
			a.rotateIfDue()
			continue
		}
		if a.now().After(a.nextBoundary) {
			a.rotateIfDue()
		}
		a.arrive(item)
	}
}

func (a *Aggregator) rotateIfDue() {
	if !a.now().Before(a.nextBoundary) {
		a.rotate()
	}
}

// rotate closes the working epoch, hands it to the reporter, reclaims
// recycled maps/items/ranges, and opens a fresh working epoch.
func (a *Aggregator) rotate() {
	closed := a.working
	a.handoff.Rotate(closed, &a.mapFree, &a.itemFree, &a.rangeFree)
	a.working = a.mapFree.Get()
	a.nextBoundary = a.nextBoundary.Add(a.interval)
	a.log.WithField("boundary", a.nextBoundary).Debug("rotated epoch")
	if a.onRotate != nil {
		a.onRotate()
	}
}

// arrive records one packet arrival ("packet arrival").
func (a *Aggregator) arrive(ev Arrival) {
	it := a.working.ForceItem(ev.Stream, &a.itemFree, &a.rangeFree)
	it.Stats.Observe(a.now(), ev.Seq)
	it.Loss.Arrive(ev.Seq, &a.rangeFree)
	it.Reorder.Arrive(ev.Seq, &a.rangeFree)
	it.FlowState = it.FlowState.Packet()
}
