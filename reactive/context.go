package reactive

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Tracking state lives as plain package variables. The reactive graph is
// single-threaded-cooperative: a Scheduler, and the Owner/computation
// pointers currently being tracked against it, are never touched by two
// goroutines at once by contract, so there is nothing for goroutine-local
// storage to protect. Distinct Scheduler instances (e.g. one per served
// session) remain fully independent and may each be driven from a
// different goroutine.
var (
	currentOwner    *Owner = unownedRoot
	currentListener computation
)

// CurrentOwner returns the Owner new computations and cleanups attach to
// right now.
func CurrentOwner() *Owner { return currentOwner }

// IsTracking reports whether a computation is currently running and able to
// subscribe to reads.
func IsTracking() bool { return currentListener != nil }

// Untrack runs fn with dependency tracking suspended: reads performed
// inside fn do not subscribe the enclosing computation.
func Untrack[T any](fn func() T) T {
	saved := currentListener
	currentListener = nil
	defer func() { currentListener = saved }()
	return fn()
}

// withOwner runs fn with currentOwner swapped to o, restoring the previous
// owner afterward even if fn panics.
func withOwner[T any](o *Owner, fn func() T) T {
	saved := currentOwner
	currentOwner = o
	defer func() { currentOwner = saved }()
	return fn()
}

// withListener runs fn with currentListener swapped to c (and currentOwner
// swapped to c's scope, creating one lazily), restoring both afterward.
func withListener(c computation, fn func()) {
	savedOwner, savedListener := currentOwner, currentListener
	currentListener = c
	currentOwner = c.scope()
	defer func() {
		currentOwner, currentListener = savedOwner, savedListener
	}()
	fn()
}

// MakeContextKey allocates a fresh, comparable context key. name is purely
// diagnostic: it is hashed with xxhash into a short tag surfaced in debug
// dumps and trace spans, so two keys created with the same name remain
// distinct by pointer identity while still being recognizable in logs.
func MakeContextKey(name string) *ContextKey {
	return &ContextKey{name: name, tag: xxhash.Sum64String(name)}
}

// String returns "name#tag" for logging and trace attributes.
func (k *ContextKey) String() string {
	return fmt.Sprintf("%s#%x", k.name, k.tag)
}

// Tag returns the xxhash-derived debug fingerprint for this key.
func (k *ContextKey) Tag() uint64 { return k.tag }

// WithContext runs fn with value visible to ReadContext(key) for fn and
// everything it creates, scoped to the current owner. The binding is
// popped when fn returns (it does not outlive the current owner beyond
// that, since it is stored directly on currentOwner, not a new child).
func WithContext[T any](key *ContextKey, value T, fn func()) {
	o := currentOwner
	if o.ctx == nil {
		o.ctx = make(map[*ContextKey]any)
	}
	prev, had := o.ctx[key]
	o.ctx[key] = value
	defer func() {
		if had {
			o.ctx[key] = prev
		} else {
			delete(o.ctx, key)
		}
	}()
	fn()
}

// ReadContext walks up from the current owner looking for a binding of key,
// returning the zero value and false if none is found.
func ReadContext[T any](key *ContextKey) (T, bool) {
	for o := currentOwner; o != nil; o = o.parent {
		if o.ctx == nil {
			continue
		}
		if v, ok := o.ctx[key]; ok {
			return v.(T), true
		}
	}
	var zero T
	return zero, false
}
