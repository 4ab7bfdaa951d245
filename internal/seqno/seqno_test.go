package seqno

import "testing"

func TestCompareSelf(t *testing.T) {
	for _, s := range []Seq{0, 1, 1<<31 - 1, 1 << 31, 1<<32 - 1} {
		if Compare(s, s) != 0 {
			t.Fatalf("Compare(%d,%d) != 0", s, s)
		}
	}
}

func TestCompareAntisymmetric(t *testing.T) {
	cases := [][2]Seq{{0, 1}, {1, 0}, {1<<32 - 1, 0}, {0, 1<<32 - 1}, {100, 200}}
	for _, c := range cases {
		if Compare(c[0], c[1]) != -Compare(c[1], c[0]) {
			t.Fatalf("Compare(%d,%d) = %d, want -Compare(%d,%d) = %d",
				c[0], c[1], Compare(c[0], c[1]), c[1], c[0], -Compare(c[1], c[0]))
		}
	}
}

func TestCompareWrap(t *testing.T) {
	if Compare(1<<32-1, 0) != -1 {
		t.Fatalf("expected wraparound 2^32-1 -> 0 to compare as -1 (0 is ahead)")
	}
	if Compare(0, 1<<32-1) != 1 {
		t.Fatalf("expected reverse to compare as +1")
	}
}

func TestDistanceForward(t *testing.T) {
	for k := uint32(0); k < 1<<31; k += (1 << 31) - 1 {
		s := Seq(100)
		got := Distance(s, s+k)
		if got != k {
			t.Fatalf("Distance(%d, %d) = %d, want %d", s, s+k, got, k)
		}
	}
}

func TestDistanceSelfIsZero(t *testing.T) {
	if Distance(42, 42) != 0 {
		t.Fatalf("Distance(s,s) must be 0")
	}
}

// TestDistanceBackwardOffByOne pins the documented off-by-one behavior when
// t < s: the result is (t-s) + (2^32 - 1), not the natural (t-s) + 2^32.
func TestDistanceBackwardOffByOne(t *testing.T) {
	got := Distance(10, 5)
	want := uint32(int64(5) - int64(10) + int64(1<<32-1))
	if got != want {
		t.Fatalf("Distance(10,5) = %d, want %d (preserved off-by-one)", got, want)
	}
}
