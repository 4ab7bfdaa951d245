package netqual

import (
	"testing"
	"time"
)

func waitForReport(t *testing.T, reports chan Results, timeout time.Duration) Results {
	t.Helper()
	select {
	case r := <-reports:
		return r
	case <-time.After(timeout):
		t.Fatal("timed out waiting for a report")
		return Results{}
	}
}

func newTestEngine(t *testing.T, opts Options) (*Engine, chan Results) {
	t.Helper()
	reports := make(chan Results, 16)
	opts.ReporterMinBatches = 1
	if opts.ReporterSchedule == "" {
		opts.ReporterSchedule = "c,0.02,0"
	}
	if opts.AggregationInterval == 0 {
		opts.AggregationInterval = 5 * time.Millisecond
	}
	e, err := New(opts, Callbacks{
		Report: func(r Results) { reports <- r },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e, reports
}

func TestEngineInOrderStreamReportsNoLoss(t *testing.T) {
	e, reports := newTestEngine(t, Options{MeasureLoss: true})
	defer e.Destroy()

	h, err := e.CreateHandle()
	if err != nil {
		t.Fatalf("CreateHandle: %v", err)
	}
	defer h.Close()

	flow := []byte{0x00, 0x01}
	for seq := uint32(1); seq <= 5; seq++ {
		if err := h.Push(PacketInfo{Stream: StreamID{FlowKey: flow, Stream: 0}, Seq: seq}); err != nil {
			t.Fatalf("Push: %v", err)
		}
	}
	h.Flush()

	res := waitForReport(t, reports, 2*time.Second)
	if res.Loss == nil {
		t.Fatal("expected a loss result")
	}
	if res.Loss.PacketsReceived != 5 {
		t.Fatalf("expected 5 received packets, got %d", res.Loss.PacketsReceived)
	}
	if res.Loss.PacketsDropped != 0 {
		t.Fatalf("expected no drops for an in-order stream, got %d", res.Loss.PacketsDropped)
	}
}

func TestEngineGapReportsLoss(t *testing.T) {
	e, reports := newTestEngine(t, Options{MeasureLoss: true})
	defer e.Destroy()

	h, err := e.CreateHandle()
	if err != nil {
		t.Fatalf("CreateHandle: %v", err)
	}
	defer h.Close()

	flow := []byte{0x00, 0x02}
	for _, seq := range []uint32{1, 2, 3, 7, 8} {
		if err := h.Push(PacketInfo{Stream: StreamID{FlowKey: flow, Stream: 0}, Seq: seq}); err != nil {
			t.Fatalf("Push: %v", err)
		}
	}
	h.Flush()

	res := waitForReport(t, reports, 2*time.Second)
	if res.Loss == nil {
		t.Fatal("expected a loss result")
	}
	// seq 4,5,6 are missing between 3 and 7.
	if res.Loss.PacketsDropped != 3 {
		t.Fatalf("expected 3 dropped packets, got %d", res.Loss.PacketsDropped)
	}
}

func TestEngineReorderExtentReportsHistogram(t *testing.T) {
	e, reports := newTestEngine(t, Options{MeasureReorderExtent: true})
	defer e.Destroy()

	h, err := e.CreateHandle()
	if err != nil {
		t.Fatalf("CreateHandle: %v", err)
	}
	defer h.Close()

	flow := []byte{0x00, 0x03}
	for _, seq := range []uint32{1, 3, 2, 4} {
		if err := h.Push(PacketInfo{Stream: StreamID{FlowKey: flow, Stream: 0}, Seq: seq}); err != nil {
			t.Fatalf("Push: %v", err)
		}
	}
	h.Flush()

	res := waitForReport(t, reports, 2*time.Second)
	if res.ReorderExtent == nil {
		t.Fatal("expected a reorder extent result")
	}
	// seq 2 arrives one position late (after 3): extent 1 gets one count.
	if res.ReorderExtent.Histogram[1] == 0 {
		t.Fatalf("expected the late arrival counted at extent 1, got histogram=%v", res.ReorderExtent.Histogram)
	}
}

func TestEngineRejectsWrongFlowKeySize(t *testing.T) {
	e, _ := newTestEngine(t, Options{MeasureLoss: true})
	defer e.Destroy()

	h, err := e.CreateHandle()
	if err != nil {
		t.Fatalf("CreateHandle: %v", err)
	}
	defer h.Close()

	err = h.Push(PacketInfo{Stream: StreamID{FlowKey: []byte{0x01}, Stream: 0}, Seq: 1})
	if err == nil {
		t.Fatal("expected an error for a too-short flow key")
	}
}

func TestEnginePushAfterHandleCloseFails(t *testing.T) {
	e, _ := newTestEngine(t, Options{MeasureLoss: true})
	defer e.Destroy()

	h, err := e.CreateHandle()
	if err != nil {
		t.Fatalf("CreateHandle: %v", err)
	}
	if err := h.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	err = h.Push(PacketInfo{Stream: StreamID{FlowKey: []byte{0x00, 0x00}, Stream: 0}, Seq: 1})
	if err != ErrHandleClosed {
		t.Fatalf("expected ErrHandleClosed, got %v", err)
	}
}

func TestPackageLevelSingletonReinit(t *testing.T) {
	if IsInitialized() {
		t.Fatal("expected no engine to be initialized at test start")
	}

	reports := make(chan Results, 4)
	opts := Options{
		MeasureLoss: true,
		ReporterSchedule: "c,0.02,0",
		ReporterMinBatches: 1,
		AggregationInterval: 5 * time.Millisecond,
	}
	if err := Init(opts, Callbacks{Report: func(r Results) { reports <- r }}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if !IsInitialized() {
		t.Fatal("expected IsInitialized() to be true after Init")
	}

	// A second Init while one is running is an idempotent no-op.
	if err := Init(opts, Callbacks{}); err != nil {
		t.Fatalf("second Init: %v", err)
	}

	h, err := CreateHandle()
	if err != nil {
		t.Fatalf("CreateHandle: %v", err)
	}
	if err := Push(h, PacketInfo{Stream: StreamID{FlowKey: []byte{0x00, 0x04}, Stream: 0}, Seq: 1}); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if err := Flush(h); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	waitForReport(t, reports, 2*time.Second)

	if err := DestroyHandle(h); err != nil {
		t.Fatalf("DestroyHandle: %v", err)
	}
	if err := Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if IsInitialized() {
		t.Fatal("expected IsInitialized() to be false after Destroy")
	}

	// Re-init after a full teardown must succeed cleanly.
	if err := Init(opts, Callbacks{}); err != nil {
		t.Fatalf("Init after Destroy: %v", err)
	}
	if err := Destroy(); err != nil {
		t.Fatalf("final Destroy: %v", err)
	}
}
