// Package reactive implements the fine-grained reactive graph engine: writable
// sources, memoized and lazily-computed observers, render/after effects, an
// owner tree for scope and cleanup, and the multi-queue scheduler that drives
// them.
//
// The core types are Source[T] (a writable observable cell), Observer[T]
// (every computation kind: eager memos, lazy computeds, plain observers and
// effect-phase computations, built by MakeMemo, MakeComputed and the other
// constructors), and Owner (the scope tree used for cleanup and context
// propagation).
//
// Dependency tracking is automatic: reading a Source or Memo while a
// computation is running subscribes that computation, and writing a Source
// schedules its subscribers onto the appropriate queue. Batch groups writes
// so dependents run at most once per batch. The scheduler in scheduler.go
// drains four queues in a fixed order every tick: Changes, Updates,
// Disposes, then Effects.
//
// A Scheduler is not safe for concurrent use by more than one goroutine at a
// time, mirroring the single-threaded-cooperative model the graph assumes;
// distinct Scheduler instances (one per served session, one per goroutine)
// are fully independent and may run concurrently with each other.
package reactive
