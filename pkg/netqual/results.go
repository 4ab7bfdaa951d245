package netqual

import (
	"time"

	"netqual.dev/netqual/internal/loss"
	"netqual.dev/netqual/internal/reorder"
	"netqual.dev/netqual/internal/reporter"
)

// Results is one flow's accumulated statistics for one fired report slot:
// the flow-level rollup of a reporter.Data. Loss, ReorderExtent, and
// ReorderDensity are nil when the corresponding Options.Measure* flag was
// off.
type Results struct {
	FlowKey []byte

	Earliest, Latest time.Time
	Duration time.Duration
	MinSeq, MaxSeq uint32
	PacketCount uint64

	Loss *LossResult
	ReorderExtent *ReorderExtentResult
	ReorderDensity *ReorderDensityResult
}

// LossResult is LossDataR, with Value holding the loss fraction
// (Dropped / (Received + Dropped)) and Autocorr holding the lag-1
// loss-run autocorrelation derives from consecutive-drop and gap
// counts.
type LossResult struct {
	PacketsReceived uint64
	PacketsDropped uint64
	Value float64
	ConsecutiveDrops uint64
	GapMin, GapMax uint64
	GapAverage float64
	Autocorr float64
	BadFlows uint64
}

// ReorderExtentResult is the RFC 4737 Reorder Extent histogram:
// Histogram[i] counts packets that arrived with extent i, for i in
// [0, MaxExtentValue]. AssumedDrops counts missing-table entries evicted
// without ever arriving.
type ReorderExtentResult struct {
	Histogram [reorder.MaxExtent + 1]uint64
	AssumedDrops uint64
}

// MaxExtentValue is the largest extent value ReorderExtentResult.Histogram
// can record (compile-time cap).
const MaxExtentValue = reorder.MaxExtent

// ReorderDensityResult is the RFC 5236 Reorder Density displacement
// histogram, one bin per displacement in [-DisplacementBound,
// +DisplacementBound].
type ReorderDensityResult struct {
	Bins []DensityBin
}

// DensityBin is one displacement/frequency pair of a ReorderDensityResult.
type DensityBin struct {
	Distance int
	Frequency uint64
}

// DisplacementBound is the largest |distance| a ReorderDensityResult bin can
// report (compile-time DT default).
const DisplacementBound = reorder.DT

func newLossResult(r loss.Result) *LossResult {
	out := &LossResult{
		PacketsReceived: r.Received,
		PacketsDropped: r.Dropped,
		ConsecutiveDrops: r.ConsecutiveDrops,
		GapMin: r.GapMin,
		GapMax: r.GapMax,
		BadFlows: r.BadFlows,
	}
	total := r.Received + r.Dropped
	if total > 0 {
		out.Value = float64(r.Dropped) / float64(total)
	}
	if r.GapCount > 0 {
		out.GapAverage = float64(r.GapTotal) / float64(r.GapCount)
	}
	// Lag-1 autocorrelation of the loss indicator series, expressed via
	// consecutive-drop runs and total received/dropped counts:
	// (c*r + c*d - d*d) / (d*r), 0 when no drops occurred.
	if r.Dropped != 0 && r.Received != 0 {
		c := float64(r.ConsecutiveDrops)
		d := float64(r.Dropped)
		rcv := float64(r.Received)
		out.Autocorr = (c*rcv + c*d - d*d) / (d * rcv)
	}
	return out
}

func newExtentResult(r reorder.ExtentResult) *ReorderExtentResult {
	out := &ReorderExtentResult{AssumedDrops: r.AssumedDrops}
	out.Histogram = r.Histogram
	return out
}

func newDensityResult(r reorder.DensityResult) *ReorderDensityResult {
	out := &ReorderDensityResult{Bins: make([]DensityBin, 0, len(r.FD))}
	for i, freq := range r.FD {
		out.Bins = append(out.Bins, DensityBin{Distance: i - reorder.DT, Frequency: freq})
	}
	return out
}

// newResults converts one flow's internal reporter.Data into a public
// Results, honoring which estimators were measured.
func newResults(flowKey []byte, d reporter.Data, measure reporter.Measure) Results {
	out := Results{
		FlowKey: flowKey,
		Earliest: d.Earliest,
		Latest: d.Latest,
		MinSeq: d.MinSeq,
		MaxSeq: d.MaxSeq,
		PacketCount: d.Count,
	}
	if d.Latest.After(d.Earliest) {
		out.Duration = d.Latest.Sub(d.Earliest)
	}
	if measure.Loss {
		out.Loss = newLossResult(d.Loss)
	}
	if measure.ReorderExtent {
		out.ReorderExtent = newExtentResult(d.Extent)
	}
	if measure.ReorderDensity {
		out.ReorderDensity = newDensityResult(d.Density)
	}
	return out
}
