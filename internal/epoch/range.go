// Package epoch implements the ordered sequence of per-epoch hash maps the
// aggregator builds and the reporter drains, plus the sequence-number range
// arena they're built from.
//
// Ranges are reused through free-lists rather than a generational-index
// arena: Go's garbage collector already gives aliasing-free ownership
// transfer for a plain pointer, so a free-list achieves the same "stop
// allocating under load" goal without manual index arithmetic.
package epoch

// ArrivalPeriod classifies a range relative to the epoch the loss estimator
// is currently computing for.
type ArrivalPeriod int

const (
	Present ArrivalPeriod = iota
	Past
	Future
)

// Range is a contiguous inclusive run of received sequence numbers within
// one epoch (SeqnoRange). next links it into whichever RangeList
// currently owns it (the aggregator's arrival chain); it is nil while the
// range sits in a Freelist, which holds ranges in a slice. asm is not linked
// by any code in this module; Freelist Get and Put reset it to nil along
// with next.
type Range struct {
	Low, High uint32
	Wraparound bool
	Period ArrivalPeriod

	next *Range
	asm *Range
}

// RangeList is a singly-linked chain of Ranges. appendMode selects which end
// new packets extend: the reorder view appends and extends the tail (arrival
// order matters to the reorder state machines); the loss view prepends and
// extends the head (most recent range is cheapest to reach).
type RangeList struct {
	head, tail *Range
	n int
	appendMode bool
}

// NewLossRangeList returns an empty range list that prepends new ranges and
// extends the head — the loss-accounting view.
func NewLossRangeList() *RangeList { return &RangeList{appendMode: false} }

// NewReorderRangeList returns an empty range list that appends new ranges
// and extends the tail — the reorder-accounting view, where arrival order
// must be preserved.
func NewReorderRangeList() *RangeList { return &RangeList{appendMode: true} }

// Active returns the range a new in-order arrival would extend, or nil if
// the list is empty.
func (l *RangeList) Active() *Range {
	if l.appendMode {
		return l.tail
	}
	return l.head
}

// Len reports the number of ranges currently in the list.
func (l *RangeList) Len() int { return l.n }

// Head returns the first range (arrival-chain order).
func (l *RangeList) Head() *Range { return l.head }

// insert links r into the list per appendMode, without consulting a
// free-list.
func (l *RangeList) insert(r *Range) {
	r.next = nil
	if l.appendMode {
		if l.tail == nil {
			l.head, l.tail = r, r
		} else {
			l.tail.next = r
			l.tail = r
		}
	} else {
		r.next = l.head
		l.head = r
		if l.tail == nil {
			l.tail = r
		}
	}
	l.n++
}

// Arrive records one packet arrival at seq: it extends the active range if
// seq continues it (and seq != 0, the wrap boundary never silently extends),
// otherwise it takes a fresh singleton range from fl and inserts it per
// invariant.
func (l *RangeList) Arrive(seq uint32, fl *Freelist) {
	if active := l.Active(); active != nil && active.High == seq-1 && seq != 0 {
		active.High = seq
		return
	}
	r := fl.Get()
	r.Low, r.High = seq, seq
	r.Wraparound = false
	r.Period = Present
	l.insert(r)
}

// Reset returns every range in l to fl and empties l, for epoch recycling.
func (l *RangeList) Reset(fl *Freelist) {
	for r := l.head; r != nil; {
		next := r.next
		fl.Put(r)
		r = next
	}
	l.head, l.tail, l.n = nil, nil, 0
}

// Snapshot returns the list's ranges in arrival-chain order (head to tail)
// as a slice, for callers (the loss estimator) that need random access.
func (l *RangeList) Snapshot() []*Range {
	out := make([]*Range, 0, l.n)
	for r := l.head; r != nil; r = r.next {
		out = append(out, r)
	}
	return out
}

// Freelist recycles Range values to avoid allocating under steady-state
// load (per-stage range free-list).
type Freelist struct {
	free []*Range
}

// NewFreelist returns an empty range free-list.
func NewFreelist() *Freelist { return &Freelist{} }

// Get returns a recycled Range or allocates a new one.
func (fl *Freelist) Get() *Range {
	if n := len(fl.free); n > 0 {
		r := fl.free[n-1]
		fl.free[n-1] = nil
		fl.free = fl.free[:n-1]
		r.next, r.asm = nil, nil
		return r
	}
	return &Range{}
}

// Put returns r to the free-list.
func (fl *Freelist) Put(r *Range) {
	r.next, r.asm = nil, nil
	fl.free = append(fl.free, r)
}

// StealAll moves every recycled range from src onto fl, emptying src.
func (fl *Freelist) StealAll(src *Freelist) {
	fl.free = append(fl.free, src.free...)
	src.free = nil
}
