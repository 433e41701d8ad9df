package reactive

import "sync/atomic"

var idCounter uint64

// nextID returns a process-unique, monotonically increasing identifier used
// to name sources, observers, and owners. IDs are never reused, so they also
// serve as a stable map key independent of pointer identity churn across GC.
func nextID() uint64 {
	return atomic.AddUint64(&idCounter, 1)
}
