package reactive

import (
	"fmt"
	"strings"
)

// Owner is a scope tree node: every computation that runs creates (or
// reuses) an Owner to hold the cleanups, child computations, and context
// values produced during its execution. Disposing an Owner disposes its
// children first (post-order), then runs its own cleanups in
// last-registered-first order.
type Owner struct {
	id       uint64
	parent   *Owner
	children []*Owner
	node     computation // the computation this owner belongs to, if any (nil for a bare scope)

	cleanups []func(final bool)
	ctx      map[*ContextKey]any
	handlers []func(error) bool // returns true if it handled the error

	disposed bool
}

// unownedRoot is the process-lifetime owner that backs reads and writes
// performed with no enclosing root() — it never runs cleanups, and no
// function in this package disposes it.
var unownedRoot = &Owner{id: 0}

func newOwner(parent *Owner) *Owner {
	o := &Owner{id: nextID(), parent: parent}
	if parent != nil {
		parent.children = append(parent.children, o)
	}
	return o
}

// AddCleanup registers fn to run when the owner is disposed or re-run.
// final is true only when the dispose is permanent (not a recompute-driven
// teardown of stale children).
func (o *Owner) AddCleanup(fn func(final bool)) {
	if o == unownedRoot {
		return
	}
	o.cleanups = append(o.cleanups, fn)
}

// InstallErrorHandler registers fn to intercept errors raised by this
// owner's subtree. Handlers are tried nearest-first; returning true stops
// propagation. An error that reaches unownedRoot unhandled is wrapped in
// HostFailureError and panics to the host top level.
func (o *Owner) InstallErrorHandler(fn func(error) bool) {
	o.handlers = append(o.handlers, fn)
}

// handleError walks up from o looking for a handler willing to take err.
func (o *Owner) handleError(nodeID uint64, err error) {
	for cur := o; cur != nil; cur = cur.parent {
		for i := len(cur.handlers) - 1; i >= 0; i-- {
			if cur.handlers[i](err) {
				return
			}
		}
	}
	panic(&HostFailureError{NodeID: nodeID, Err: err})
}

// removeChild detaches child from o.children via swap-with-last. It is a
// linear scan (child lists are typically small; the slot-indexed O(1)
// design is reserved for the hot dependency edges in subscription.go).
func (o *Owner) removeChild(child *Owner) {
	for i, c := range o.children {
		if c == child {
			last := len(o.children) - 1
			o.children[i] = o.children[last]
			o.children[last] = nil
			o.children = o.children[:last]
			return
		}
	}
}

// dispose tears the owner down: children first (post-order), then this
// owner's own cleanups, most-recently-registered first.
func (o *Owner) dispose(final bool) {
	if o.disposed {
		return
	}
	o.disposed = true
	children := o.children
	o.children = nil
	for _, c := range children {
		if c.node != nil {
			c.node.runDispose(final)
		}
		c.dispose(final)
	}
	for i := len(o.cleanups) - 1; i >= 0; i-- {
		o.cleanups[i](final)
	}
	o.cleanups = nil
	o.ctx = nil
}

// ResetForRemount tears down everything o currently owns — child owners
// (soft, final=false) and o's own cleanups (also final=false) — without
// marking o itself disposed, then clears its context map. This is the
// soft re-run teardown that normally precedes a computation's recompute,
// applied to the owner itself rather than to a child being replaced:
// RemountableRoot.Remount
// calls it before every run so a pooled row's owner can be reused for a
// different value without leaking the previous run's subscriptions.
func (o *Owner) ResetForRemount() {
	children := o.children
	o.children = nil
	for _, c := range children {
		if c.node != nil {
			c.node.runDispose(false)
		}
		c.dispose(false)
	}
	for i := len(o.cleanups) - 1; i >= 0; i-- {
		o.cleanups[i](false)
	}
	o.cleanups = nil
	o.ctx = nil
}

// markOwnedForSoftDisposal flags every child owner's node (if it has one)
// with StatePendingDisposal, without actually disposing anything yet —
// used when the parent computation's own re-run is still only tentative.
func (o *Owner) markOwnedForSoftDisposal() {
	for _, c := range o.children {
		if c.node != nil {
			st := c.node.getState()
			c.node.setState(st | StatePendingDisposal)
		}
		c.markOwnedForSoftDisposal()
	}
}

// disposeOwnedHard tears down every child immediately — used when the
// parent computation's re-run is definite and about to replace them.
func (o *Owner) disposeOwnedHard() {
	children := o.children
	o.children = nil
	for _, c := range children {
		if c.node != nil {
			c.node.runDispose(false)
		}
		c.dispose(false)
	}
}

// DebugTree renders the owner subtree as an indented dump — one line per
// owner carrying its id, node kind, owned-child count, and registered
// cleanup count. Diagnostic only; the format is not stable.
func (o *Owner) DebugTree() string {
	var b strings.Builder
	o.debugTree(&b, 0)
	return b.String()
}

func (o *Owner) debugTree(b *strings.Builder, depth int) {
	for i := 0; i < depth; i++ {
		b.WriteString("  ")
	}
	kind := "scope"
	if o.node != nil {
		kind = o.node.nodeKind().String()
	}
	fmt.Fprintf(b, "owner#%d %s children=%d cleanups=%d\n", o.id, kind, len(o.children), len(o.cleanups))
	for _, c := range o.children {
		c.debugTree(b, depth+1)
	}
}

// ContextKey is an opaque, comparable handle for a value threaded down the
// owner tree by WithContext/ReadContext. tag is a short debug
// fingerprint derived from the key's name, surfaced in trace attributes and
// panics but never used for lookup (lookup is by pointer identity).
type ContextKey struct {
	name string
	tag  uint64
}
