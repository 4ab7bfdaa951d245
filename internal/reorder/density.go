package reorder

// DT is the default displacement threshold for the Reorder-Density
// estimator; the window histogram has 2*DT+1 bins.
const DT = 8

// densitySeeking / densityProcessing are DensityState.state's two values.
const (
	densityProcessing = 0
	densitySeeking = 1
)

// DensityState is the persistent per-stream state for the Reorder-Density
// estimator.
type DensityState struct {
	state int
	ri uint32
	hasRI bool
	window []uint32 // FIFO, oldest first
	buffer map[uint32]struct{}
	windowInitialized bool
}

// NewDensityState returns a fresh, uninitialized density state.
func NewDensityState() *DensityState {
	return &DensityState{buffer: make(map[uint32]struct{})}
}

// DensityResult is the displacement histogram produced across a run of
// Arrive calls (part of ReorderDataR).
type DensityResult struct {
	// FD is indexed by D + DT, D ranging over [-DT, +DT].
	FD [2*DT + 1]uint64
}

func (s *DensityState) inWindow(seq uint32) bool {
	for _, w := range s.window {
		if w == seq {
			return true
		}
	}
	return false
}

func (s *DensityState) inBuffer(seq uint32) bool {
	_, ok := s.buffer[seq]
	return ok
}

func windowMin(window []uint32) (uint32, bool) {
	if len(window) == 0 {
		return 0, false
	}
	m := window[0]
	for _, w := range window[1:] {
		if w < m {
			m = w
		}
	}
	return m, true
}

func bufferMin(buffer map[uint32]struct{}) (uint32, bool) {
	var m uint32
	has := false
	for k := range buffer {
		if !has || k < m {
			m = k
			has = true
		}
	}
	return m, has
}

// nextRI implements RI := max(RI+1, min(window_min, buffer_min)), treating
// an empty window or buffer as not constraining the minimum (
// step 3's "else" branch).
func nextRI(ri uint32, window []uint32, buffer map[uint32]struct{}) uint32 {
	next := ri + 1
	wm, hasW := windowMin(window)
	bm, hasB := bufferMin(buffer)
	m, has := wm, hasW
	if hasB && (!has || bm < m) {
		m, has = bm, true
	}
	if has && m > next {
		next = m
	}
	return next
}

// Arrive folds one sequence number, in arrival order, into s and res.
func Arrive(s *DensityState, res *DensityResult, seq uint32) {
	// Bootstrap: fill the window before RI tracking starts.
	if !s.windowInitialized {
		if !s.inWindow(seq) {
			s.window = append(s.window, seq)
		}
		if len(s.window) >= DT+1 {
			s.ri = 0
			s.hasRI = true
			s.windowInitialized = true
		}
		return
	}

	handled := s.tryAdmit(seq)
	s.drain(res)
	if s.state == densitySeeking && !handled {
		// One retry: draining above may have advanced RI or popped the
		// window enough for seq to qualify now.
		if s.tryAdmit(seq) {
			s.drain(res)
		}
	}
}

// tryAdmit implements step 2: while seeking, admit seq into the window if
// it qualifies, switching to processing.
func (s *DensityState) tryAdmit(seq uint32) bool {
	if s.state != densitySeeking {
		return false
	}
	if seq < s.ri || s.inWindow(seq) || s.inBuffer(seq) {
		return false
	}
	s.window = append(s.window, seq)
	s.state = densityProcessing
	return true
}

// drain runs step 3 to exhaustion: each processing round either consumes
// one window entry (RI present) and returns to seeking, or advances RI
// without consuming anything (RI absent) and stays in processing. It stops
// once seeking, or once window and buffer are both empty (nothing left to
// converge on).
func (s *DensityState) drain(res *DensityResult) {
	for s.state == densityProcessing {
		if len(s.window) == 0 && len(s.buffer) == 0 {
			return
		}
		if !s.inWindow(s.ri) && !s.inBuffer(s.ri) {
			s.ri = nextRI(s.ri, s.window, s.buffer)
			continue
		}
		if len(s.window) == 0 {
			// RI only present in buffer with nothing left to pop; nothing
			// more this density window can do with it.
			s.state = densitySeeking
			return
		}
		e := s.window[0]
		s.window = s.window[1:]
		d := int64(s.ri) - int64(e)
		ad := d
		if ad < 0 {
			ad = -ad
		}
		if ad <= DT {
			res.FD[d+DT]++
			delete(s.buffer, s.ri)
			if d < 0 {
				s.buffer[e] = struct{}{}
			}
		}
		s.ri++
		s.state = densitySeeking
	}
}
