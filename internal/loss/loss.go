// Package loss implements the packet-loss estimator: from a
// stream's per-epoch coalesced sequence-range sets, with look-ahead across
// future epochs, it derives received/dropped/burst/gap statistics.
package loss

import (
	"sort"

	"netqual.dev/netqual/internal/epoch"
	"netqual.dev/netqual/internal/flowstate"
	"netqual.dev/netqual/internal/keyhash"
	"netqual.dev/netqual/internal/seqno"
)

// wrapGapThreshold is the wrap-detection threshold: half of 2^(U-1) for a
// 32-bit sequence space.
const wrapGapThreshold = uint32(1) << 30

// State is the persistent per-stream loss state carried across epochs: the
// high end of the last range processed.
type State struct {
	High uint32
	HasHigh bool
}

// Result is LossDataR: the per-stream or per-flow loss statistics
// produced by one Compute call or accumulated across several.
type Result struct {
	Received uint64
	Dropped uint64
	ConsecutiveDrops uint64
	GapMin, GapMax uint64
	GapTotal uint64
	GapCount uint64
	BadFlows uint64
	FlowState flowstate.State
}

type taggedRange struct {
	lo, hi uint32
	wrap bool
	period epoch.ArrivalPeriod
}

// Compute runs loss_a2r for one stream: current's AggregatorData, the
// persistent state (updated in place), and up to W-1 future epoch maps to
// look ahead into.
func Compute(state *State, current *epoch.Item, futures []*epoch.Map, key keyhash.Key) Result {
	var res Result
	res.FlowState = current.FlowState

	entries := make([]taggedRange, 0, current.Loss.Len()+4)
	for _, r := range current.Loss.Snapshot() {
		entries = append(entries, taggedRange{lo: r.Low, hi: r.High, period: epoch.Present})
	}

	if flowstate.BeginsWithP(current.FlowState) && state.HasHigh {
		entries = append(entries, taggedRange{lo: state.High, hi: state.High, period: epoch.Past})
	}

	for _, fm := range futures {
		it, ok := fm.Get(key)
		if !ok {
			continue
		}
		for _, r := range it.Loss.Snapshot() {
			entries = append(entries, taggedRange{lo: r.Low, hi: r.High, wrap: r.Wraparound, period: epoch.Future})
		}
	}

	if len(entries) == 0 {
		return res
	}

	sortRanges(entries)
	detectWrap(entries)

	begin := 0
	for i, e := range entries {
		if e.period == epoch.Past {
			begin = i + 1
		}
	}
	end := -1
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].period != epoch.Future {
			end = i
			break
		}
	}
	if end < begin {
		return res
	}

	var prev taggedRange
	if begin > 0 {
		prev = entries[begin-1]
	} else {
		prev = taggedRange{lo: entries[begin].lo - 1, hi: entries[begin].lo - 1}
	}
	// base anchors every distance() call at zero for prev's own starting
	// point, so the sweep's forward distances stay small instead of
	// wrapping around the 32-bit space relative to an arbitrary origin.
	base := prev.hi

	var last taggedRange
	for i := begin; i <= end; i++ {
		r := entries[i]

		dPrev := dist(base, prev.hi)
		dLo := dist(base, r.lo)
		dHi := dist(base, r.hi)

		if dLo <= dPrev {
			if dHi <= dPrev {
				continue // subsumed
			}
			r.lo = min32(r.hi, prev.hi) + 1
			if r.hi < r.lo {
				r.hi = base - 1
			}
		}

		received := uint64(r.hi-r.lo) + 1
		distance := uint64(seqno.Distance(prev.hi, r.lo))
		var gap uint64
		if distance > 0 {
			gap = distance - 1
		}

		res.Received += received
		res.Dropped += gap
		if gap > 1 {
			res.ConsecutiveDrops += gap - 1
		}
		if gap > 0 {
			if res.GapCount == 0 || gap < res.GapMin {
				res.GapMin = gap
			}
			if gap > res.GapMax {
				res.GapMax = gap
			}
			res.GapTotal += gap
			res.GapCount++
		}

		prev = r
		last = r
	}

	state.High = last.hi
	state.HasHigh = true
	return res
}

func dist(base, x uint32) uint32 { return seqno.Distance(base, x) }

func min32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}

// sortRanges orders entries ascending by (wraparound desc, low asc), i.e.
// wrapped entries sort before unwrapped ones.
func sortRanges(entries []taggedRange) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].wrap != entries[j].wrap {
			return entries[i].wrap
		}
		return entries[i].lo < entries[j].lo
	})
}

// detectWrap scans the sorted entries for the first gap exceeding
// wrapGapThreshold; everything from that point on is treated as having
// wrapped, and the slice is rotated so the wrap point becomes the new start
// (rotate-on-first-gap rule).
func detectWrap(entries []taggedRange) {
	if len(entries) < 2 {
		return
	}
	wrapAt := -1
	for i := 1; i < len(entries); i++ {
		if entries[i].lo-entries[i-1].hi > wrapGapThreshold {
			wrapAt = i
			break
		}
	}
	if wrapAt <= 0 {
		return
	}
	rotated := make([]taggedRange, 0, len(entries))
	rotated = append(rotated, entries[wrapAt:]...)
	for i := range entries[:wrapAt] {
		entries[i].wrap = true
	}
	rotated = append(rotated, entries[:wrapAt]...)
	copy(entries, rotated)
}

// AccumulateTime folds a later epoch's result for the same stream into acc:
// per-time accumulation, additive tallies, min/max of gap bounds,
// flow-state concatenation.
func AccumulateTime(acc *Result, next Result) {
	acc.Received += next.Received
	acc.Dropped += next.Dropped
	acc.ConsecutiveDrops += next.ConsecutiveDrops
	if next.GapCount > 0 {
		if acc.GapCount == 0 || next.GapMin < acc.GapMin {
			acc.GapMin = next.GapMin
		}
		if next.GapMax > acc.GapMax {
			acc.GapMax = next.GapMax
		}
		acc.GapTotal += next.GapTotal
		acc.GapCount += next.GapCount
	}
	acc.FlowState = flowstate.Concatenate(acc.FlowState, next.FlowState)
}

// AccumulateFlows folds one stream's rolled-up result into its flow-level
// accumulator: per-flow accumulation, additive except an ERROR flow-state
// increments BadFlows instead of contributing its unit.
func AccumulateFlows(acc *Result, stream Result) {
	if stream.FlowState == flowstate.Error {
		acc.BadFlows++
		return
	}
	acc.Received += stream.Received
	acc.Dropped += stream.Dropped
	acc.ConsecutiveDrops += stream.ConsecutiveDrops
	if stream.GapCount > 0 {
		if acc.GapCount == 0 || stream.GapMin < acc.GapMin {
			acc.GapMin = stream.GapMin
		}
		if stream.GapMax > acc.GapMax {
			acc.GapMax = stream.GapMax
		}
		acc.GapTotal += stream.GapTotal
		acc.GapCount += stream.GapCount
	}
}
