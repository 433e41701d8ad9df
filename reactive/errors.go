package reactive

import (
	"errors"
	"fmt"
)

// ErrDisposalOfUnowned names the error of disposing the global unowned
// root, which exists for the lifetime of the process. Owner has no
// exported Dispose method, and no function in this package returns this
// error.
var ErrDisposalOfUnowned = errors.New("reactive: cannot dispose the unowned root")

// ErrInvalidAsynxSource is reported when a scheduling source passed to an
// AsynX pipeline has a Kind other than asap, frame, delay, or producer
// function. The millisecond value of a delay source is not validated.
var ErrInvalidAsynxSource = errors.New("reactive: invalid asynx source")

// CircularDependencyError is raised when an Observer reads itself (directly
// or through a cycle of reads) while it is in the Running state.
type CircularDependencyError struct {
	NodeID uint64
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("reactive: circular dependency detected reading node %d while it is running", e.NodeID)
}

// RunawayClockError is raised when a scheduler's tick-drain loop exceeds the
// hard iteration cap without terminating. This guards
// against effect-phase writes that perpetually re-dirty the graph.
type RunawayClockError struct {
	Iterations int
}

func (e *RunawayClockError) Error() string {
	return fmt.Sprintf("reactive: scheduler exceeded %d tick-drain iterations without settling", e.Iterations)
}

// HostFailureError wraps any exception raised by a computation or cleanup
// function that reached the top of the owner chain without being caught by
// an installed error handler.
type HostFailureError struct {
	NodeID uint64
	Err    error
}

func (e *HostFailureError) Error() string {
	return fmt.Sprintf("reactive: unhandled error from node %d: %v", e.NodeID, e.Err)
}

func (e *HostFailureError) Unwrap() error { return e.Err }

// suspensionSignal is a control-flow marker, not a true error: it is
// recovered by the nearest suspense boundary and never surfaces as an
// error returned from a public API. It is deliberately unexported; external
// packages observe it only via panic/recover cooperating with the suspense
// package, never via errors.Is/As.
type suspensionSignal struct {
	Promise any // the awaited value/producer that triggered suspension
}

func (s *suspensionSignal) Error() string {
	return "reactive: suspension signal (not a real error; must be caught by a Suspense boundary)"
}

// IsSuspensionSignal reports whether err is the internal suspension marker.
// Exposed so the suspense package (and tests) can recognize it without this
// package exporting the concrete type.
func IsSuspensionSignal(err error) bool {
	var s *suspensionSignal
	return errors.As(err, &s)
}

// NewSuspensionSignal constructs the internal suspension marker carrying the
// pending value/producer that caused the suspension.
func NewSuspensionSignal(promise any) error {
	return &suspensionSignal{Promise: promise}
}
