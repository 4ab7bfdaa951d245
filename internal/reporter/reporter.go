package reporter

import (
	"time"

	"github.com/sirupsen/logrus"

	"netqual.dev/netqual/internal/epoch"
	"netqual.dev/netqual/internal/keyhash"
	"netqual.dev/netqual/internal/loss"
	"netqual.dev/netqual/internal/reorder"
	"netqual.dev/netqual/internal/schedule"
)

// streamState is the persistent, reporter-owned, per-stream estimator state
// that lives across epochs.
type streamState struct {
	loss loss.State
	extent reorder.ExtentState
	density *reorder.DensityState
}

// Measure selects which estimators the reporter runs: the
// measure_loss / measure_reorder_extent / measure_reorder_density options.
type Measure struct {
	Loss bool
	ReorderExtent bool
	ReorderDensity bool
}

// Callback is invoked once per fired schedule slot, once per flow that
// observed any packets in the interval.
type Callback func(flow keyhash.Key, d Data)

// Config bundles Reporter's collaborators.
type Config struct {
	Handoff *epoch.Handoff
	MinBatches int
	Schedule *schedule.Schedule
	Measure Measure
	Callback Callback
	Now func() time.Time
	Log *logrus.Entry
}

// Reporter is the single-threaded estimator driver and rollup/schedule
// engine.
type Reporter struct {
	handoff *epoch.Handoff
	minBatches int
	sched *schedule.Schedule
	measure Measure
	callback Callback
	now func() time.Time
	log *logrus.Entry

	local epoch.List
	itemFree epoch.ItemFreelist
	rangeFree epoch.Freelist

	states map[keyhash.Key]*streamState
	trackers []map[keyhash.Key]*Data

	done chan struct{}
}

// New constructs a Reporter.
func New(cfg Config) *Reporter {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	log := cfg.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	trackers := make([]map[keyhash.Key]*Data, cfg.Schedule.Parallelism())
	for i := range trackers {
		trackers[i] = make(map[keyhash.Key]*Data)
	}
	return &Reporter{
		handoff: cfg.Handoff,
		minBatches: cfg.MinBatches,
		sched: cfg.Schedule,
		measure: cfg.Measure,
		callback: cfg.Callback,
		now: now,
		log: log.WithField("component", "reporter"),
		states: make(map[keyhash.Key]*streamState),
		trackers: trackers,
		done: make(chan struct{}),
	}
}

// Stop signals Run to exit. Run checks for it after each processed epoch,
// so epochs already drained but not yet processed are not reported.
func (r *Reporter) Stop() { close(r.done) }

// Run is the reporter's main loop.
func (r *Reporter) Run() {
	for {
		select {
		case <-r.done:
			return
		case <-r.handoff.Notify():
		}

		if r.handoff.Count() < r.minBatches {
			continue
		}
		r.handoff.DrainInto(&r.local)

		for r.local.Count() >= r.minBatches {
			r.processEarliestEpoch()
			select {
			case <-r.done:
				return
			default:
			}
		}
	}
}

func (r *Reporter) processEarliestEpoch() {
	m := r.local.Earliest()
	futures := r.futureMaps()

	m.Range(func(it *epoch.Item) bool {
		rd := r.computeOne(it, futures)
		for _, tracker := range r.trackers {
			acc, ok := tracker[it.Key]
			if !ok {
				acc = &Data{}
				tracker[it.Key] = acc
			}
			AccumulateTime(acc, rd)
		}
		return true
	})

	now := r.now()
	for i := range r.trackers {
		if r.sched.Outlets(i, now) == schedule.NotYet {
			continue
		}
		r.fireSlot(i, now)
	}

	popped, _ := r.local.PopEarliest()
	popped.ZeroOut(&r.itemFree, &r.rangeFree)
	r.handoff.Reclaim(&r.itemFree, &r.rangeFree)
	r.handoff.ReturnMap(popped)
}

// futureMaps returns up to minBatches-1 epoch maps after the earliest one
// still resident in the reporter's local list, for the loss estimator's
// look-ahead.
func (r *Reporter) futureMaps() []*epoch.Map {
	var out []*epoch.Map
	m := r.local.Earliest()
	if m == nil {
		return nil
	}
	for n, next := 0, nextMap(&r.local, m); n < r.minBatches-1 && next != nil; n, next = n+1, nextMap(&r.local, next) {
		out = append(out, next)
	}
	return out
}

func nextMap(l *epoch.List, m *epoch.Map) *epoch.Map {
	return l.NextAfter(m)
}

func (r *Reporter) computeOne(it *epoch.Item, futures []*epoch.Map) Data {
	var rd Data
	rd.observeStats(it.Stats.Count, it.Stats.Earliest, it.Stats.Latest, it.Stats.MinSeq, it.Stats.MaxSeq)

	st, ok := r.states[it.Key]
	if !ok {
		st = &streamState{density: reorder.NewDensityState()}
		r.states[it.Key] = st
	}

	if r.measure.Loss {
		rd.Loss = loss.Compute(&st.loss, it, futures, it.Key)
	}
	if r.measure.ReorderExtent {
		for _, rng := range it.Reorder.Snapshot() {
			reorder.ArriveRange(&st.extent, &rd.Extent, rng.Low, rng.High)
		}
		reorder.PruneEpoch(&st.extent, &rd.Extent)
	}
	if r.measure.ReorderDensity {
		for _, rng := range it.Reorder.Snapshot() {
			for seq := rng.Low; ; seq++ {
				reorder.Arrive(st.density, &rd.Density, seq)
				if seq == rng.High {
					break
				}
			}
		}
	}
	return rd
}

func (r *Reporter) fireSlot(i int, now time.Time) {
	tracker := r.trackers[i]
	flows := make(map[keyhash.Key]*Data)
	for streamKey, sd := range tracker {
		flowKey := keyhash.FlowOf(streamKey)
		fd, ok := flows[flowKey]
		if !ok {
			fd = &Data{}
			flows[flowKey] = fd
		}
		AccumulateFlows(fd, *sd)
	}
	for flowKey, fd := range flows {
		if fd.Count == 0 {
			continue
		}
		r.callback(flowKey, *fd)
	}
	r.sched.Reset(i, now)
	r.trackers[i] = make(map[keyhash.Key]*Data)
}
