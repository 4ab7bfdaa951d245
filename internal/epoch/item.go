package epoch

import (
	"time"

	"netqual.dev/netqual/internal/flowstate"
	"netqual.dev/netqual/internal/keyhash"
)

// PacketStats accumulates the packet-level observations recorded for one
// stream in one epoch (AggregatorData packet statistics).
type PacketStats struct {
	Count uint64
	Earliest, Latest time.Time
	MinSeq, MaxSeq uint32
	hasAny bool
}

// Observe folds one packet's arrival time and sequence number into s.
func (s *PacketStats) Observe(at time.Time, seq uint32) {
	if !s.hasAny {
		s.Earliest, s.Latest = at, at
		s.MinSeq, s.MaxSeq = seq, seq
		s.hasAny = true
	} else {
		if at.Before(s.Earliest) {
			s.Earliest = at
		}
		if at.After(s.Latest) {
			s.Latest = at
		}
		if seq < s.MinSeq {
			s.MinSeq = seq
		}
		if seq > s.MaxSeq {
			s.MaxSeq = seq
		}
	}
	s.Count++
}

func (s *PacketStats) reset() { *s = PacketStats{} }

// Item is the per-stream, per-epoch record the aggregator builds and the
// reporter later consumes.
type Item struct {
	Key keyhash.Key
	Stats PacketStats
	Loss *RangeList
	Reorder *RangeList
	FlowState flowstate.State

	mapNext *Item // collision chaining within one Map bucket
	free *Item // free-list link
}

func newItem() *Item {
	return &Item{Loss: NewLossRangeList(), Reorder: NewReorderRangeList()}
}

func (it *Item) reset(key keyhash.Key, rangeFree *Freelist) {
	it.Key = key
	it.Stats.reset()
	it.Loss.Reset(rangeFree)
	it.Reorder.Reset(rangeFree)
	it.FlowState = flowstate.Null
	it.mapNext = nil
}

// ItemFreelist recycles Items (map-item free-list).
type ItemFreelist struct {
	free *Item
}

func NewItemFreelist() *ItemFreelist { return &ItemFreelist{} }

func (f *ItemFreelist) get(key keyhash.Key, rangeFree *Freelist) *Item {
	if f.free != nil {
		it := f.free
		f.free = it.free
		it.free = nil
		it.reset(key, rangeFree)
		return it
	}
	it := newItem()
	it.reset(key, rangeFree)
	return it
}

func (f *ItemFreelist) put(it *Item, rangeFree *Freelist) {
	it.Loss.Reset(rangeFree)
	it.Reorder.Reset(rangeFree)
	it.mapNext = nil
	it.free = f.free
	f.free = it
}

// StealAll moves every recycled item from src onto f, emptying src.
func (f *ItemFreelist) StealAll(src *ItemFreelist) {
	if src.free == nil {
		return
	}
	tail := src.free
	for tail.free != nil {
		tail = tail.free
	}
	tail.free = f.free
	f.free = src.free
	src.free = nil
}

const bucketCount = 64

// Map is a hash table keyed by tagged stream/flow identity, bucketed by
// xxhash of the key.
type Map struct {
	buckets [bucketCount]*Item
	n int

	mapNext *Map // EpochList chain link
	free *Map // free-list link
}

func newMap() *Map { return &Map{} }

func bucketOf(k keyhash.Key) int {
	return int(keyhash.Hash(k) % bucketCount)
}

// Get returns the item for key, if present.
func (m *Map) Get(key keyhash.Key) (*Item, bool) {
	for it := m.buckets[bucketOf(key)]; it != nil; it = it.mapNext {
		if it.Key == key {
			return it, true
		}
	}
	return nil, false
}

// ForceItem returns the item for key, creating it from itemFree (or
// allocating) if absent — force_item (lookup-or-create).
func (m *Map) ForceItem(key keyhash.Key, itemFree *ItemFreelist, rangeFree *Freelist) *Item {
	if it, ok := m.Get(key); ok {
		return it
	}
	b := bucketOf(key)
	it := itemFree.get(key, rangeFree)
	it.mapNext = m.buckets[b]
	m.buckets[b] = it
	m.n++
	return it
}

// Range iterates every item in the map. f returning false stops iteration.
func (m *Map) Range(f func(*Item) bool) {
	for b := 0; b < bucketCount; b++ {
		for it := m.buckets[b]; it != nil; {
			next := it.mapNext
			if !f(it) {
				return
			}
			it = next
		}
	}
}

// Len reports the number of items currently in the map.
func (m *Map) Len() int { return m.n }

// ZeroOut clears every bucket, returning all items and their ranges to the
// supplied free-lists (zero_out), leaving m ready for reuse.
func (m *Map) ZeroOut(itemFree *ItemFreelist, rangeFree *Freelist) {
	for b := 0; b < bucketCount; b++ {
		for it := m.buckets[b]; it != nil; {
			next := it.mapNext
			itemFree.put(it, rangeFree)
			it = next
		}
		m.buckets[b] = nil
	}
	m.n = 0
	m.mapNext = nil
}

// MapFreelist recycles Maps (map free-list).
type MapFreelist struct {
	free *Map
}

func NewMapFreelist() *MapFreelist { return &MapFreelist{} }

// Get returns a recycled, empty Map or allocates a new one.
func (f *MapFreelist) Get() *Map {
	if f.free != nil {
		m := f.free
		f.free = m.free
		m.free = nil
		return m
	}
	return newMap()
}

// Put returns m (already zeroed via Map.ZeroOut) to the free-list.
func (f *MapFreelist) Put(m *Map) {
	m.free = f.free
	f.free = m
}

// StealAll moves every recycled map from src onto f in O(n) (n = src's
// depth), emptying src. Used to pull the reporter's returned maps back into
// the aggregator's local pool during epoch rotation.
func (f *MapFreelist) StealAll(src *MapFreelist) {
	if src.free == nil {
		return
	}
	tail := src.free
	for tail.free != nil {
		tail = tail.free
	}
	tail.free = f.free
	f.free = src.free
	src.free = nil
}
