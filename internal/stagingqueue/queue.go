// Package stagingqueue implements a batched handoff queue: a per-owner
// unlocked local batch spliced in O(1) onto a single mutex-protected shared
// tail, with blocking and timed-deadline dequeue.
//
// A (src, dst) pair identifies one shared queue; every Handle opened for the
// same pair shares one FIFO and one refcount — used for the
// producer→aggregator handoff (aggregator→reporter goes through
// epoch.Handoff).
package stagingqueue

import (
	"sync"
	"time"

	"github.com/tevino/abool"
	"go.uber.org/atomic"
)

// FlushPolicy controls how Push interacts with the handle's local batch.
type FlushPolicy int

const (
	// Default appends to the local batch and flushes once it reaches the
	// handle's threshold.
	Default FlushPolicy = iota
	// Flush bypasses the local batch and appends directly to the shared
	// tail under lock.
	Flush
	// NoFlush appends to the local batch unconditionally, regardless of
	// threshold.
	NoFlush
)

// PopStatus reports why Pop/TimedPop returned without an item.
type PopStatus int

const (
	Timeout PopStatus = iota
	Shutdown
)

// node is a singly-linked list cell. Lists splice in O(1) by relinking
// head/tail pointers rather than copying.
type node[T any] struct {
	val T
	next *node[T]
}

type chain[T any] struct {
	head, tail *node[T]
	n int
}

func (c *chain[T]) pushBack(v T) {
	nd := &node[T]{val: v}
	if c.tail == nil {
		c.head, c.tail = nd, nd
	} else {
		c.tail.next = nd
		c.tail = nd
	}
	c.n++
}

// spliceFrom appends other's entire chain onto c in O(1) and empties other.
func (c *chain[T]) spliceFrom(other *chain[T]) {
	if other.n == 0 {
		return
	}
	if c.tail == nil {
		c.head, c.tail, c.n = other.head, other.tail, other.n
	} else {
		c.tail.next = other.head
		c.tail = other.tail
		c.n += other.n
	}
	other.head, other.tail, other.n = nil, nil, 0
}

func (c *chain[T]) popFront() (T, bool) {
	var zero T
	if c.head == nil {
		return zero, false
	}
	v := c.head.val
	c.head = c.head.next
	if c.head == nil {
		c.tail = nil
	}
	c.n--
	return v, true
}

// shared is the mutex-protected queue shared by every Handle opened on the
// same (src, dst) identity.
type shared[T any] struct {
	mu sync.Mutex
	items chain[T]
	notify chan struct{} // capacity 1; a pending send means "check again"
	refcount atomic.Int64
	closed *abool.AtomicBool
	disposer func(T)
}

func newShared[T any](disposer func(T)) *shared[T] {
	return &shared[T]{
		notify: make(chan struct{}, 1),
		closed: abool.New(),
		disposer: disposer,
	}
}

func (s *shared[T]) signal() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Handle is one producer or consumer's private view of a shared queue: an
// unlocked local batch plus a reference to the shared tail.
type Handle[T any] struct {
	shared *shared[T]
	local chain[T]
	threshold int
}

// DefaultThreshold is the local-batch size at which Push(Default) flushes.
const DefaultThreshold = 5

// Registry hands out Handles for (src, dst) identities, keeping exactly one
// shared queue per identity alive for as long as any handle references it.
type Registry[K comparable, T any] struct {
	mu sync.Mutex
	queues map[K]*shared[T]
}

// NewRegistry creates an empty handle registry.
func NewRegistry[K comparable, T any]() *Registry[K, T] {
	return &Registry[K, T]{queues: make(map[K]*shared[T])}
}

// Open returns a Handle for the (src,dst) identity key, creating the backing
// shared queue on first use. disposer is invoked on any item still queued
// when the last handle for key closes. threshold <= 0 uses DefaultThreshold.
func (r *Registry[K, T]) Open(key K, threshold int, disposer func(T)) *Handle[T] {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	r.mu.Lock()
	s, ok := r.queues[key]
	if !ok {
		s = newShared[T](disposer)
		r.queues[key] = s
	}
	s.refcount.Inc()
	r.mu.Unlock()

	return &Handle[T]{shared: s, threshold: threshold}
}

// Close decrements the shared queue's refcount. The last close disposes of
// any items still queued (local and shared) and removes the queue from the
// registry.
func (r *Registry[K, T]) Close(key K, h *Handle[T]) error {
	s := h.shared
	remaining := s.refcount.Dec()

	for {
		v, ok := h.local.popFront()
		if !ok {
			break
		}
		if s.disposer != nil {
			s.disposer(v)
		}
	}

	if remaining > 0 {
		return nil
	}

	s.mu.Lock()
	s.closed.Set()
	for {
		v, ok := s.items.popFront()
		if !ok {
			break
		}
		if s.disposer != nil {
			s.disposer(v)
		}
	}
	s.signal()
	s.mu.Unlock()

	r.mu.Lock()
	if cur, ok := r.queues[key]; ok && cur == s {
		delete(r.queues, key)
	}
	r.mu.Unlock()
	return nil
}

// Push appends item per policy, flushing the local batch to the shared tail
// when Default crosses the threshold or Flush is requested.
func (h *Handle[T]) Push(item T, policy FlushPolicy) {
	switch policy {
	case Flush:
		h.shared.mu.Lock()
		h.shared.items.pushBack(item)
		h.shared.signal()
		h.shared.mu.Unlock()
	case NoFlush:
		h.local.pushBack(item)
	default:
		h.local.pushBack(item)
		if h.local.n >= h.threshold {
			h.Flush()
		}
	}
}

// Flush splices the local batch onto the shared tail in O(1) under one lock
// and wakes any blocked consumer.
func (h *Handle[T]) Flush() {
	if h.local.n == 0 {
		return
	}
	h.shared.mu.Lock()
	h.shared.items.spliceFrom(&h.local)
	h.shared.signal()
	h.shared.mu.Unlock()
}

// Pop blocks until an item is available or the queue shuts down.
func (h *Handle[T]) Pop() (T, bool) {
	v, status, ok := h.pop(nil)
	_ = status
	return v, ok
}

// TimedPop blocks until an item is available, deadline passes, or the queue
// shuts down.
func (h *Handle[T]) TimedPop(deadline time.Time) (T, PopStatus, bool) {
	return h.pop(&deadline)
}

func (h *Handle[T]) pop(deadline *time.Time) (T, PopStatus, bool) {
	var zero T
	for {
		if v, ok := h.local.popFront(); ok {
			return v, 0, true
		}

		s := h.shared
		s.mu.Lock()
		if s.items.n > 0 {
			h.local.spliceFrom(&s.items)
			s.mu.Unlock()
			continue
		}
		if s.closed.IsSet() {
			s.mu.Unlock()
			return zero, Shutdown, false
		}
		s.mu.Unlock()

		if deadline == nil {
			<-s.notify
			continue
		}
		remaining := time.Until(*deadline)
		if remaining <= 0 {
			return zero, Timeout, false
		}
		timer := time.NewTimer(remaining)
		select {
		case <-s.notify:
			timer.Stop()
		case <-timer.C:
			return zero, Timeout, false
		}
	}
}

// Len reports the number of items currently queued locally plus shared,
// for diagnostics/metrics only — not synchronized with concurrent Push/Pop.
func (h *Handle[T]) Len() int {
	h.shared.mu.Lock()
	n := h.shared.items.n
	h.shared.mu.Unlock()
	return n + h.local.n
}
