package netqual

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"netqual.dev/netqual/internal/reorder"
	"netqual.dev/netqual/internal/schedule"
	"netqual.dev/netqual/internal/stagingqueue"
)

// DefaultKeySize is compile-time KEY_SIZE default: the number of
// bytes in a flow key.
const DefaultKeySize = 2

// Options is the init-time configuration record. It is immutable for the
// lifetime of an Engine — estimator configuration cannot be mutated after
// initialization.
type Options struct {
	// AggregationInterval is the aggregator's epoch-rotation period. Zero
	// is valid (only non-negative is required); a zero interval rotates on
	// every TimedPop timeout check, which is wasteful but not an error.
	AggregationInterval time.Duration

	// ReporterSchedule is the semicolon-separated schedule mini-language,
	// e.g. "c,5,0;c,5,2.5".
	ReporterSchedule string

	// ReporterMinBatches is W, the sliding window size the reporter waits
	// for before computing.
	ReporterMinBatches int

	MeasureLoss bool
	MeasureReorderExtent bool
	MeasureReorderDensity bool

	// KeySize is the flow-key byte length every PacketInfo.Stream.FlowKey
	// must match. Zero defaults to DefaultKeySize.
	KeySize int

	// PushThreshold overrides the staging queue's per-handle local-batch
	// flush threshold (default 5). Zero uses
	// stagingqueue.DefaultThreshold.
	PushThreshold int

	// Now overrides time.Now for the aggregator's epoch clock and the
	// reporter's schedule clock, for deterministic tests. Nil uses
	// time.Now.
	Now func() time.Time

	// Logger receives the engine's structured log output. Nil uses
	// logrus.StandardLogger().
	Logger *logrus.Logger

	// Registerer, if non-nil, registers the engine's pipeline-health
	// metrics (queue depth, epoch rotations, drops) against it. Nil leaves
	// them unregistered.
	Registerer prometheus.Registerer
}

// Callbacks holds the application-supplied report sink.
type Callbacks struct {
	// Report is invoked once per fired schedule slot, once per flow that
	// observed any packets in the interval. It must not block the reporter
	// goroutine for long; slow sinks should hand off internally.
	Report func(Results)
}

func (o *Options) validate() error {
	if o.AggregationInterval < 0 {
		return fmt.Errorf("%w: aggregation interval %v is negative", ErrInvalidOptions, o.AggregationInterval)
	}
	if o.ReporterMinBatches < 1 {
		return fmt.Errorf("%w: reporter_min_batches must be >= 1, got %d", ErrInvalidOptions, o.ReporterMinBatches)
	}
	if o.ReporterSchedule == "" {
		return fmt.Errorf("%w: reporter_schedule must not be empty", ErrInvalidOptions)
	}
	if o.KeySize < 0 {
		return fmt.Errorf("%w: key_size must be >= 0, got %d", ErrInvalidOptions, o.KeySize)
	}
	if _, err := schedule.Parse(o.ReporterSchedule, time.Now()); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	return nil
}

// Validate runs the same configuration error checks New performs, without
// starting a pipeline, for callers that want to fail fast on a bad config
// before committing to New.
func (o Options) Validate() error {
	return o.validate()
}

func (o *Options) keySize() int {
	if o.KeySize <= 0 {
		return DefaultKeySize
	}
	return o.KeySize
}

func (o *Options) pushThreshold() int {
	if o.PushThreshold <= 0 {
		return stagingqueue.DefaultThreshold
	}
	return o.PushThreshold
}

func (o *Options) now() func() time.Time {
	if o.Now != nil {
		return o.Now
	}
	return time.Now
}

// maxExtentBins and windowSize surface the compile-time reorder constants
// for callers building fixed-size Results consumers.
const (
	maxExtentBins = reorder.MaxExtent + 1
	windowSize = 2*reorder.DT + 1
)
