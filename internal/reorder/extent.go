// Package reorder implements the two RFC reordering metrics: Reorder
// Extent (RFC 4737) and Reorder Density (RFC 5236), each with its own
// per-stream persistent state.
package reorder

import "netqual.dev/netqual/internal/seqno"

// MaxExtent caps the extent histogram and the value stored per missing
// record.
const MaxExtent = 255

// missingRecord is one entry of the RFC 4737 missing-packet table.
type missingRecord struct {
	seq uint32
	observed bool
	refIndex uint64
	extent int
}

// ExtentState is the persistent per-stream state for the Reorder-Extent
// estimator.
type ExtentState struct {
	numArrivals uint64
	nextExp uint32
	hasNextExp bool
	missing []missingRecord // ordered by seq, ascending insertion order
}

// ExtentResult is the extent histogram and assumed-drop count produced by
// one ArriveRange/epoch's worth of processing.
type ExtentResult struct {
	Histogram [MaxExtent + 1]uint64
	AssumedDrops uint64
}

func (s *ExtentState) findMissing(seq uint32) int {
	for i := range s.missing {
		if s.missing[i].seq == seq {
			return i
		}
	}
	return -1
}

// ArriveRange folds one coalesced arrival range [lo,hi], in arrival order,
// into s and res.
func ArriveRange(s *ExtentState, res *ExtentResult, lo, hi uint32) {
	if !s.hasNextExp {
		s.nextExp = lo
		s.hasNextExp = true
		s.missing = s.missing[:0]
	}

	if seqno.Compare(lo, s.nextExp) >= 0 {
		arriveInOrder(s, res, lo, hi)
		return
	}
	arriveReordered(s, res, lo, hi)
}

func arriveInOrder(s *ExtentState, res *ExtentResult, lo, hi uint32) {
	if seqno.Compare(lo, s.nextExp) > 0 {
		for i := s.nextExp; i != lo; i++ {
			s.missing = append(s.missing, missingRecord{
				seq: i,
				refIndex: s.numArrivals + 1,
				extent: -1,
			})
		}
	}
	span := uint64(hi-lo) + 1
	s.nextExp = hi + 1
	s.numArrivals += span
	res.Histogram[0] += span
}

func arriveReordered(s *ExtentState, res *ExtentResult, lo, hi uint32) {
	for i := lo; ; i++ {
		s.numArrivals++
		if seqno.Compare(i, s.nextExp) >= 0 {
			s.nextExp = i + 1
			res.Histogram[0]++
		} else if idx := s.findMissing(i); idx >= 0 {
			mr := &s.missing[idx]
			if !mr.observed {
				mr.observed = true
				extent := int(s.numArrivals - mr.refIndex)
				if extent > MaxExtent {
					extent = MaxExtent
				}
				mr.extent = extent
				res.Histogram[extent]++
			} else {
				s.numArrivals-- // duplicate suppression
			}
		}
		if i == hi {
			break
		}
	}
}

// PruneEpoch removes stale missing records after one epoch's ranges have
// all been folded in (post-epoch prune), counting each pruned
// unobserved record as an assumed drop.
func PruneEpoch(s *ExtentState, res *ExtentResult) {
	kept := s.missing[:0]
	for _, mr := range s.missing {
		if seqno.Compare(mr.seq, s.nextExp) < 0 && seqno.Distance(mr.seq, s.nextExp) > 2*MaxExtent {
			if !mr.observed {
				res.AssumedDrops++
			}
			continue
		}
		kept = append(kept, mr)
	}
	s.missing = kept
}
