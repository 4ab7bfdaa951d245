// Package flowstate implements the small finite algebra the aggregator uses
// to track whether an epoch's arrivals begin or end mid packet-run or at a
// delimiter boundary.
package flowstate

// State is one symbol of the flow-state algebra.
type State int

const (
	Null State = iota
	D // one or more delimiter events, no packets yet
	P // one or more in-sequence packets
	DP // delimiter followed by packets
	PD // packets followed by a delimiter
	DPD // delimiter, packets, delimiter
	Error // absorbing error state
)

func (s State) String() string {
	switch s {
	case Null:
		return "NULL"
	case D:
		return "D"
	case P:
		return "P"
	case DP:
		return "DP"
	case PD:
		return "PD"
	case DPD:
		return "DPD"
	case Error:
		return "ERROR"
	default:
		return "INVALID"
	}
}

// transition[current][event] — event 0 = delimit, event 1 = packet.
var transition = [7][2]State{
	Null: {D, P},
	D: {D, DP},
	P: {PD, P},
	DP: {DPD, Error},
	PD: {Error, P},
	DPD: {Error, Error},
	Error: {Error, Error},
}

// Delimit advances s on a delimiter (epoch boundary / explicit flush) event.
func (s State) Delimit() State { return transition[s][0] }

// Packet advances s on a received-packet event.
func (s State) Packet() State { return transition[s][1] }

// symbolSeq[fs2] is the right-fold symbol sequence used by Concatenate:
// each entry lists, in order, the events that produce fs2 from Null.
var symbolSeq = map[State][]int{
	Null: {},
	D: {0},
	P: {1},
	DP: {0, 1},
	PD: {1, 0},
	DPD: {0, 1, 0},
}

// Concatenate folds fs2's symbol sequence over fs1: the result is the state
// reached by starting at fs1 and replaying, in order, the events that built
// fs2 from NULL. ERROR is absorbing in both positions.
func Concatenate(fs1, fs2 State) State {
	if fs1 == Error || fs2 == Error {
		return Error
	}
	if fs1 == Null {
		return fs2
	}
	if fs2 == Null {
		return fs1
	}
	seq, ok := symbolSeq[fs2]
	if !ok {
		return Error
	}
	result := fs1
	for _, event := range seq {
		if event == 0 {
			result = result.Delimit()
		} else {
			result = result.Packet()
		}
	}
	return result
}

// BeginsWithP reports whether fs's arrival sequence begins with a received
// packet (as opposed to a delimiter) — true for P and PD.
func BeginsWithP(fs State) bool {
	return fs == P || fs == PD
}

// EndsWithP reports whether fs's arrival sequence ends with a received
// packet — true for P and DP.
func EndsWithP(fs State) bool {
	return fs == P || fs == DP
}
