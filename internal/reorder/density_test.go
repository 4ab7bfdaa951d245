package reorder

import "testing"

func TestDensityInOrderZeroDisplacement(t *testing.T) {
	s := NewDensityState()
	var res DensityResult
	for seq := uint32(0); seq < uint32(DT+1); seq++ {
		Arrive(s, &res, seq)
	}
	for seq := uint32(DT + 1); seq < uint32(DT+5); seq++ {
		Arrive(s, &res, seq)
	}
	if res.FD[DT] == 0 {
		t.Fatalf("expected in-order arrivals to accumulate zero-displacement bin, got %+v", res.FD)
	}
}

func TestDensityBootstrapRequiresDTPlusOneDistinct(t *testing.T) {
	s := NewDensityState()
	var res DensityResult
	for seq := uint32(0); seq < uint32(DT); seq++ {
		Arrive(s, &res, seq)
	}
	if s.windowInitialized {
		t.Fatal("expected window not yet initialized before DT+1 distinct values")
	}
	Arrive(s, &res, uint32(DT))
	if !s.windowInitialized {
		t.Fatal("expected window initialized after DT+1 distinct values")
	}
}

func TestDensityReorderedArrivalRecordsNegativeDisplacement(t *testing.T) {
	s := NewDensityState()
	var res DensityResult
	for seq := uint32(0); seq <= uint32(DT); seq++ {
		if seq == 2 {
			continue // withhold seq 2 to reorder it later
		}
		Arrive(s, &res, seq)
	}
	Arrive(s, &res, uint32(DT+1))
	Arrive(s, &res, 2) // arrives after 3..DT+1; RI is still 1, so it is admitted
	// Admitting DT+2 lets the window head 3 be processed at RI=2, one
	// position early: D = 2-3 = -1.
	Arrive(s, &res, uint32(DT+2))

	total := uint64(0)
	for _, v := range res.FD {
		total += v
	}
	if total == 0 {
		t.Fatal("expected some displacement histogram entries")
	}
	if res.FD[DT-1] == 0 {
		t.Fatalf("expected a count at displacement -1, got %+v", res.FD)
	}
}
