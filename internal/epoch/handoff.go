package epoch

import "sync"

// Handoff is the single shared point between the aggregator and the
// reporter: a mutex-protected list of completed epoch maps plus the
// free-lists both sides recycle through. The aggregator appends
// under Lock during epoch rotation; the reporter drains the whole list under
// the same lock once it has accumulated enough epochs.
type Handoff struct {
	mu sync.Mutex

	list List
	Maps MapFreelist
	Items ItemFreelist
	Range Freelist

	notify chan struct{} // capacity 1, signaled on every rotation
}

// NewHandoff returns an empty handoff point.
func NewHandoff() *Handoff {
	return &Handoff{notify: make(chan struct{}, 1)}
}

// Notify returns the channel the reporter waits on between polls.
func (h *Handoff) Notify() <-chan struct{} { return h.notify }

func (h *Handoff) signal() {
	select {
	case h.notify <- struct{}{}:
	default:
	}
}

// Rotate appends the aggregator's just-closed working map to the handoff
// list, reclaims anything the reporter has returned to the shared free-lists
// into the aggregator's local pools, and signals the reporter — all under
// one lock (epoch rotation).
func (h *Handoff) Rotate(m *Map, localMaps *MapFreelist, localItems *ItemFreelist, localRanges *Freelist) {
	h.mu.Lock()
	h.list.AddMap(m)
	localMaps.StealAll(&h.Maps)
	localItems.StealAll(&h.Items)
	localRanges.StealAll(&h.Range)
	h.mu.Unlock()
	h.signal()
}

// Count reports how many epochs are currently waiting in the handoff list.
func (h *Handoff) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.list.Count()
}

// DrainInto moves every pending map from the handoff list into dst
// ("move all pending epochs into the reporter's local list"), returning
// how many were moved.
func (h *Handoff) DrainInto(dst *List) int {
	h.mu.Lock()
	n := h.list.Count()
	MoveAll(&h.list, dst)
	h.mu.Unlock()
	return n
}

// ReturnMap gives a drained, zeroed map back to the shared map free-list.
func (h *Handoff) ReturnMap(m *Map) {
	h.mu.Lock()
	h.Maps.Put(m)
	h.mu.Unlock()
}

// Reclaim moves the reporter's locally-freed items and ranges back onto the
// shared free-lists, where the aggregator's next Rotate will pick them up.
func (h *Handoff) Reclaim(localItems *ItemFreelist, localRanges *Freelist) {
	h.mu.Lock()
	h.Items.StealAll(localItems)
	h.Range.StealAll(localRanges)
	h.mu.Unlock()
}
