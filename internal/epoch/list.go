package epoch

// List is the ordered chain of epoch Maps the aggregator hands off and the
// reporter drains (EpochList): FIFO by arrival, earliest at the
// head, latest at the tail, with a running count.
type List struct {
	head, tail *Map
	count int
}

// NewList returns an empty epoch list.
func NewList() *List { return &List{} }

// Count reports how many maps are currently in the list.
func (l *List) Count() int { return l.count }

// Earliest returns the head map (nil if empty).
func (l *List) Earliest() *Map { return l.head }

// Latest returns the tail map (nil if empty).
func (l *List) Latest() *Map { return l.tail }

// AddMap appends m as the new latest entry.
func (l *List) AddMap(m *Map) {
	m.mapNext = nil
	if l.tail == nil {
		l.head, l.tail = m, m
	} else {
		l.tail.mapNext = m
		l.tail = m
	}
	l.count++
}

// PopEarliest removes and returns the head map, or (nil, false) if empty.
func (l *List) PopEarliest() (*Map, bool) {
	if l.head == nil {
		return nil, false
	}
	m := l.head
	l.head = m.mapNext
	if l.head == nil {
		l.tail = nil
	}
	m.mapNext = nil
	l.count--
	return m, true
}

// NextAfter returns the map linked after m (nil if m is the tail), for the
// loss estimator's future-epoch look-ahead. It reads m's own link and does
// not check that m belongs to l.
func (l *List) NextAfter(m *Map) *Map { return m.mapNext }

// MoveOne pops from's earliest map and appends it to to, reporting whether a
// map was moved (move_one(from→to)).
func MoveOne(from, to *List) bool {
	m, ok := from.PopEarliest()
	if !ok {
		return false
	}
	to.AddMap(m)
	return true
}

// MoveAll splices from's entire chain onto to's tail in O(1), emptying from
// (move_all(from→to)).
func MoveAll(from, to *List) {
	if from.count == 0 {
		return
	}
	if to.tail == nil {
		to.head, to.tail, to.count = from.head, from.tail, from.count
	} else {
		to.tail.mapNext = from.head
		to.tail = from.tail
		to.count += from.count
	}
	from.head, from.tail, from.count = nil, nil, 0
}
