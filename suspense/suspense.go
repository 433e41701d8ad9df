// Package suspense implements a pending-count boundary: a content
// computation that can abort itself with the suspension signal while
// asynchronous work is outstanding, swapping a fallback computation in
// until the boundary's pending count returns to zero.
package suspense

import (
	"errors"

	"github.com/RxAI-dev/rxwp/asynx"
	"github.com/RxAI-dev/rxwp/reactive"
)

// ErrNoBoundary is wrapped into the HostFailureError raised when Suspend
// or SuspendedAsynx is called with no enclosing boundary: the suspension
// signal has nowhere to resolve, which is a programming error rather than
// a recoverable condition.
var ErrNoBoundary = errors.New("suspense: no enclosing boundary")

var boundaryKey = reactive.MakeContextKey("suspense.boundary")

// Boundary tracks the outstanding asynchronous work of one suspense
// scope: a pending count, a suspended flag derived from it, and the last
// error delivered by a failed resolution. count is the authoritative
// tally; pending mirrors it as an observable for IsSuspended subscribers.
type Boundary struct {
	count      int
	pending    *reactive.Source[int]
	err        *reactive.Source[error]
	invalidate func()
}

// IsSuspended reports (and subscribes to) whether any registered work is
// still outstanding.
func (b *Boundary) IsSuspended() bool { return b.pending.Read() > 0 }

// Err reports (and subscribes to) the last error a resolution delivered,
// or nil.
func (b *Boundary) Err() error { return b.err.Read() }

// begin registers one unit of outstanding work.
func (b *Boundary) begin() {
	b.count++
	b.pending.Write(b.count)
}

// complete resolves one unit of outstanding work, recording err if the
// work failed. Resolving the last outstanding unit invalidates the
// content computation so it re-runs even when its own dependency set
// never changed while suspended.
func (b *Boundary) complete(err error) {
	if err != nil {
		b.err.Write(err)
	}
	b.count--
	b.pending.Write(b.count)
	if b.count == 0 && b.invalidate != nil {
		b.invalidate()
	}
}

// Create builds a suspense scope around content: the returned readable
// yields fallback's output while any work registered via Suspend or
// SuspendedAsynx inside content is outstanding, and content's output
// otherwise. The content computation keeps its previous value across a
// suspension (it is merely stale while waiting, never disposed), so the
// swap back is a plain recompute once the pending count hits zero.
func Create[T any](content func() T, fallback func() T) (func() T, *Boundary) {
	b := &Boundary{
		pending: reactive.MakeSignal(0, nil),
		err:     reactive.MakeSignal[error](nil, nil),
	}

	contentMemo := reactive.MakeMemo(func(prev T) T {
		out := prev
		func() {
			defer func() {
				if r := recover(); r != nil {
					if err, ok := r.(error); ok && reactive.IsSuspensionSignal(err) {
						return
					}
					panic(r)
				}
			}()
			reactive.WithContext(boundaryKey, b, func() {
				out = content()
			})
		}()
		return out
	}, nil)

	b.invalidate = contentMemo.Invalidate

	fallbackMemo := reactive.MakeMemo(func(prev T) T {
		return fallback()
	}, nil)

	view := reactive.MakeMemo(func(prev T) T {
		if b.pending.Read() > 0 {
			return fallbackMemo.Read()
		}
		return contentMemo.Read()
	}, nil)

	return view.Read, b
}

// Suspend registers p with the enclosing boundary and aborts the current
// computation with the suspension signal. A goroutine awaits p; when it
// yields a value (or is closed), the resolution is dispatched through e's
// microtask queue, the boundary's pending count drops, and the content
// computation re-runs. Called with no enclosing boundary, the signal has
// no catcher and Suspend raises HostFailureError instead.
func Suspend[T any](e *asynx.Engine, p <-chan T) {
	b, ok := reactive.ReadContext[*Boundary](boundaryKey)
	if !ok {
		panic(&reactive.HostFailureError{Err: ErrNoBoundary})
	}
	b.begin()
	go func() {
		<-p
		e.Post(func() { b.complete(nil) })
	}()
	panic(reactive.NewSuspensionSignal(p))
}

// SuspendedAsynx is AwaitAsynx fused with the enclosing boundary: the
// returned readable yields the pipeline's final value once complete, and
// until then registers the wait with the boundary and aborts the reading
// computation with the suspension signal. A pipeline action that panics
// with an error completes the boundary with that error while its locks
// are still held; the engine's own error handler sees it after they are
// released.
//
// Construct the readable outside the content computation and call it
// inside — the suspension is raised at read time, not construction time.
func SuspendedAsynx[V any](e *asynx.Engine, src asynx.Source[V], actions []asynx.Action[V], initial V) (func() V, asynx.Disposer) {
	registered := false
	var bound *Boundary

	wrapped := make([]asynx.Action[V], len(actions))
	for i, a := range actions {
		a := a
		wrapped[i] = asynx.Action[V]{Locks: a.Locks, Fn: func(v V) V {
			defer func() {
				if r := recover(); r != nil {
					if err, ok := r.(error); ok && bound != nil {
						bound.complete(err)
						bound = nil
					}
					panic(r)
				}
			}()
			return a.Fn(v)
		}}
	}

	read, dispose := asynx.AwaitAsynx(e, src, wrapped, initial)

	readValue := func() V {
		r := read()
		if r.Done {
			if bound != nil {
				bound.complete(nil)
				bound = nil
			}
			return r.Value
		}
		if !registered {
			b, ok := reactive.ReadContext[*Boundary](boundaryKey)
			if !ok {
				panic(&reactive.HostFailureError{Err: ErrNoBoundary})
			}
			registered = true
			bound = b
			b.begin()
		}
		panic(reactive.NewSuspensionSignal(nil))
	}
	return readValue, dispose
}
