// Package reconcile implements child-list reconciliation: it diffs a
// reconciler-owned "current" child list against a "next" target list and
// issues the minimum viable sequence of insert-before / remove / replace
// mutations against an abstract Node sink, keeping "current" mirrored to
// the sink's live children throughout.
package reconcile

// Node is anything the reconciler can hold in a child list and move
// between positions under a Sink. Nodes are compared by reference
// equality only — concrete implementations must use pointer types so two
// distinct logical children never compare equal by accident. Callers must
// supply de-duplicated current/next lists (a DOM parent cannot hold the
// same child twice anyway).
type Node interface {
	// NextSibling returns the node immediately following this one under
	// its current parent, or nil if it is the last child (or detached).
	NextSibling() Node
}

// Sink is the only assumption the reconciler makes about the external
// tree it mutates. A nil ref to InsertBefore means "append as the last
// child".
type Sink interface {
	InsertBefore(child, ref Node)
	RemoveChild(child Node)
	ReplaceChild(newChild, oldChild Node)
}

// Recorder receives one call per primitive sink operation issued, labeled
// by op kind ("insert", "remove", "replace", "move"). It backs the
// reconcile-ops counter vector wired in cmd/rxwpdemo; passing nil
// disables instrumentation entirely.
type Recorder interface {
	OnOp(kind string)
}

func record(r Recorder, kind string) {
	if r != nil {
		r.OnOp(kind)
	}
}
