package flowstate

import "testing"

func TestTransitions(t *testing.T) {
	cases := []struct {
		start State
		event string
		want State
	}{
		{Null, "delimit", D},
		{Null, "packet", P},
		{D, "delimit", D},
		{D, "packet", DP},
		{P, "delimit", PD},
		{P, "packet", P},
		{DP, "delimit", DPD},
		{DP, "packet", Error},
		{PD, "delimit", Error},
		{PD, "packet", P},
		{DPD, "delimit", Error},
		{DPD, "packet", Error},
	}
	for _, c := range cases {
		var got State
		if c.event == "delimit" {
			got = c.start.Delimit()
		} else {
			got = c.start.Packet()
		}
		if got != c.want {
			t.Errorf("%s.%s() = %s, want %s", c.start, c.event, got, c.want)
		}
	}
}

func TestErrorAbsorbing(t *testing.T) {
	if Error.Delimit() != Error || Error.Packet() != Error {
		t.Fatal("ERROR must be absorbing")
	}
	if Concatenate(Error, P) != Error || Concatenate(P, Error) != Error {
		t.Fatal("ERROR must be absorbing under concatenation")
	}
}

func TestConcatenateIdentity(t *testing.T) {
	for _, fs := range []State{Null, D, P, DP, PD, DPD} {
		if Concatenate(fs, Null) != fs {
			t.Errorf("Concatenate(%s, NULL) = %s, want %s", fs, Concatenate(fs, Null), fs)
		}
	}
}

// TestConcatenateSequentialFold pins the only shape of associativity that
// actually matters operationally: the reporter always folds flow-state
// left-to-right over consecutive epochs (accumulate_time), never regroups.
// Full associativity over arbitrary (a∘b)∘c vs a∘(b∘c) does NOT hold for
// every state triple under the literal "right-fold of fs2's symbol sequence"
// definition — e.g. (D∘P)∘P = ERROR while D∘(P∘P) = DP, because DP.Packet()
// is itself ERROR per the transition table. That table cell reflects a
// genuine protocol violation (a second packet run is not supposed to start
// once an epoch has already reached "delimiter then one packet run"); it is
// preserved as-is rather than patched to restore an idealized monoid. This
// test exercises left-to-right folding only.
func TestConcatenateSequentialFold(t *testing.T) {
	chain := []State{D, D, P}
	acc := Null
	for _, fs := range chain {
		acc = Concatenate(acc, fs)
	}
	if acc == Error {
		t.Fatalf("unexpected ERROR folding %v left to right", chain)
	}
}

func TestBeginsEndsWithP(t *testing.T) {
	if !BeginsWithP(P) || !BeginsWithP(PD) {
		t.Error("P, PD should begin with P")
	}
	if BeginsWithP(D) || BeginsWithP(DP) {
		t.Error("D, DP should not begin with P")
	}
	if !EndsWithP(P) || !EndsWithP(DP) {
		t.Error("P, DP should end with P")
	}
	if EndsWithP(D) || EndsWithP(PD) {
		t.Error("D, PD should not end with P")
	}
}
