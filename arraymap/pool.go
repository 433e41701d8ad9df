// Package arraymap implements two memoized list-projection operators:
// MapArray (keyed by value identity, for rows that move with their data)
// and IndexArray (keyed by position, for rows that update in place). Both
// wrap a reactive memo so the projected list is itself a reactive value
// other computations (and, downstream, the reconciler) can read.
package arraymap

import "github.com/RxAI-dev/rxwp/reactive"

// DefaultPoolLimit caps a pool constructed without an explicit limit.
const DefaultPoolLimit = 500

// Pool stashes disposed-but-recyclable mapped entries so a later
// insertion can reuse a row's Owner (and everything it accumulated —
// host nodes, subscriptions) instead of rebuilding it from scratch. Pools
// are keyed implicitly by arrival order (a stash, not a lookup table):
// any stashed row can host any new value once remounted, so keying only
// matters for eviction accounting.
type Pool[T any, R any] struct {
	limit int
	stash []pooledRow[T, R]
}

type pooledRow[T any, R any] struct {
	root *reactive.RemountableRoot
}

// NewPool creates a pool that stashes at most limit rows, evicting
// (disposing) the oldest entry once that limit is exceeded. limit <= 0
// uses DefaultPoolLimit.
func NewPool[T any, R any](limit int) *Pool[T, R] {
	if limit <= 0 {
		limit = DefaultPoolLimit
	}
	return &Pool[T, R]{limit: limit}
}

func (p *Pool[T, R]) stashRoot(root *reactive.RemountableRoot) {
	if p == nil {
		root.Dispose()
		return
	}
	if len(p.stash) >= p.limit {
		p.stash[0].root.Dispose()
		p.stash = p.stash[1:]
	}
	p.stash = append(p.stash, pooledRow[T, R]{root: root})
}

func (p *Pool[T, R]) take() (*reactive.RemountableRoot, bool) {
	if p == nil || len(p.stash) == 0 {
		return nil, false
	}
	last := len(p.stash) - 1
	root := p.stash[last].root
	p.stash = p.stash[:last]
	return root, true
}

func disposeOrStash[T any, R any](pool *Pool[T, R], root *reactive.RemountableRoot) {
	if pool == nil {
		root.Dispose()
		return
	}
	pool.stashRoot(root)
}
