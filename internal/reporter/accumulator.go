// Package reporter implements the one dedicated thread that drains a
// sliding window of completed epochs, runs the loss and reorder estimators,
// rolls stream-level results up to flow-level, and emits them on a
// configurable schedule.
package reporter

import (
	"time"

	"netqual.dev/netqual/internal/loss"
	"netqual.dev/netqual/internal/reorder"
)

// Data is ReporterData: one stream's or flow's accumulated
// packet statistics plus loss and reorder results for one report interval.
type Data struct {
	Count uint64
	Earliest, Latest time.Time
	MinSeq, MaxSeq uint32
	hasAny bool

	Loss loss.Result
	Extent reorder.ExtentResult
	Density reorder.DensityResult
}

func (d *Data) observeStats(count uint64, earliest, latest time.Time, minSeq, maxSeq uint32) {
	if count == 0 {
		return
	}
	if !d.hasAny {
		d.Earliest, d.Latest = earliest, latest
		d.MinSeq, d.MaxSeq = minSeq, maxSeq
		d.hasAny = true
	} else {
		if earliest.Before(d.Earliest) {
			d.Earliest = earliest
		}
		if latest.After(d.Latest) {
			d.Latest = latest
		}
		if minSeq < d.MinSeq {
			d.MinSeq = minSeq
		}
		if maxSeq > d.MaxSeq {
			d.MaxSeq = maxSeq
		}
	}
	d.Count += count
}

// AccumulateTime folds next (a later epoch's data for the same stream)
// into d: per-time accumulation.
func AccumulateTime(d *Data, next Data) {
	d.observeStats(next.Count, next.Earliest, next.Latest, next.MinSeq, next.MaxSeq)
	loss.AccumulateTime(&d.Loss, next.Loss)
	accumulateExtent(&d.Extent, next.Extent)
	accumulateDensity(&d.Density, next.Density)
}

// AccumulateFlows folds one stream's rolled-up Data into its flow-level
// accumulator: per-flow accumulation.
func AccumulateFlows(d *Data, stream Data) {
	d.observeStats(stream.Count, stream.Earliest, stream.Latest, stream.MinSeq, stream.MaxSeq)
	loss.AccumulateFlows(&d.Loss, stream.Loss)
	accumulateExtent(&d.Extent, stream.Extent)
	accumulateDensity(&d.Density, stream.Density)
}

func accumulateExtent(acc *reorder.ExtentResult, next reorder.ExtentResult) {
	for i := range acc.Histogram {
		acc.Histogram[i] += next.Histogram[i]
	}
	acc.AssumedDrops += next.AssumedDrops
}

func accumulateDensity(acc *reorder.DensityResult, next reorder.DensityResult) {
	for i := range acc.FD {
		acc.FD[i] += next.FD[i]
	}
}
