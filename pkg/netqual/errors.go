package netqual

import "errors"

// Sentinel errors for the conditions callers need to distinguish by
// identity (errors.Is) rather than by message.
var (
	// ErrInvalidOptions is returned synchronously from Init/New when an
	// option is out of range (negative interval, malformed schedule,
	// zero min-batches) — a Configuration error. No goroutines are
	// started.
	ErrInvalidOptions = errors.New("netqual: invalid options")

	// ErrAlreadyInitialized is never returned by Init: repeated Init is an
	// idempotent no-op success. Kept as a sentinel for callers that want to
	// distinguish the case explicitly via IsInitialized.
	ErrAlreadyInitialized = errors.New("netqual: already initialized")

	// ErrNotInitialized is returned by the package-level CreateHandle when
	// Init has not been called (or Destroy has since been called).
	ErrNotInitialized = errors.New("netqual: engine not initialized")

	// ErrHandleClosed is returned by Push/Flush on a handle that has
	// already been destroyed; Close on such a handle returns nil.
	ErrHandleClosed = errors.New("netqual: handle closed")

	// ErrShuttingDown is returned by Engine.CreateHandle once Destroy has
	// begun — Shutdown error kind.
	ErrShuttingDown = errors.New("netqual: engine shutting down")

	// ErrInvalidFlowKey is returned by Push when a packet's flow key length
	// does not match Options.KeySize.
	ErrInvalidFlowKey = errors.New("netqual: flow key length mismatch")
)
