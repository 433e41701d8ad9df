package reactive

// RestrictTo narrows a computation's tracked dependency set to exactly
// what deps reads: the returned function reads deps under tracking, then
// runs fn untracked, so sources fn reads on its own never re-trigger the
// enclosing computation. Pass the result to MakeMemo, MakeObserver (via a
// closure), or any effect constructor.
//
// With onChangesOnly set, the first invocation returns prev without
// running fn at all — the computation only reacts to changes of deps, not
// to its own creation.
func RestrictTo[D any, T any](deps func() D, fn func(d D, prev T) T, onChangesOnly bool) func(prev T) T {
	first := true
	return func(prev T) T {
		d := deps()
		if first {
			first = false
			if onChangesOnly {
				return prev
			}
		}
		return Untrack(func() T { return fn(d, prev) })
	}
}
