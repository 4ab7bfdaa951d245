package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistersAgainstCustomRegisterer(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.PacketsPushedTotal.Inc()
	m.PacketsPushedTotal.Inc()
	if got := testutil.ToFloat64(m.PacketsPushedTotal); got != 2 {
		t.Fatalf("expected packets_pushed_total=2, got %v", got)
	}

	m.PacketsDroppedTotal.WithLabelValues("loss").Add(3)
	if got := testutil.ToFloat64(m.PacketsDroppedTotal.WithLabelValues("loss")); got != 3 {
		t.Fatalf("expected packets_dropped_total{estimator=loss}=3, got %v", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("expected at least one registered metric family")
	}
}

func TestNewOnSeparateRegisterersDoesNotCollide(t *testing.T) {
	reg1 := prometheus.NewRegistry()
	reg2 := prometheus.NewRegistry()

	if New(reg1) == nil || New(reg2) == nil {
		t.Fatal("expected New to succeed against two independent registerers")
	}
}
