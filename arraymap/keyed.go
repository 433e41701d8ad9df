package arraymap

import "github.com/RxAI-dev/rxwp/reactive"

// MapArrayOption configures MapArray; construct with WithFallback/WithPool.
type MapArrayOption[T any, R any] func(*mapArrayConfig[T, R])

type mapArrayConfig[T any, R any] struct {
	fallback func() R
	pool     *Pool[T, R]
}

// WithFallback supplies a single element produced when the input list is
// empty.
func WithFallback[T any, R any](fn func() R) MapArrayOption[T, R] {
	return func(c *mapArrayConfig[T, R]) { c.fallback = fn }
}

// WithPool attaches a recycling pool so removed rows can be reused by
// later insertions instead of disposed and reconstructed.
func WithPool[T any, R any](pool *Pool[T, R]) MapArrayOption[T, R] {
	return func(c *mapArrayConfig[T, R]) { c.pool = pool }
}

type keyedRow[T any, R any] struct {
	value T
	index *reactive.Source[int]
	root  *reactive.RemountableRoot
	out   R
}

// MapArray projects list() into a memoized, reactive output list: the
// mapper receives the value (stable) and a readable index (reactive), so
// it runs once per distinct value and is never re-invoked merely because
// the value moved — only the index updates. T must be comparable since
// element identity here is value equality.
//
// Diffing is phased: trivial shapes
// short-circuit (empty<->empty, populated->empty, empty->populated);
// otherwise a forward scan builds a value->positions queue over the
// previous list (supporting duplicate values via FIFO per value) and a
// forward scan over the new list either reuses a matched row (updating
// its index) or constructs (or pool-recycles) a fresh one; rows left
// unmatched in the previous list are disposed or stashed in the pool.
func MapArray[T comparable, R any](list func() []T, mapper func(item T, index func() int) R, opts ...MapArrayOption[T, R]) func() []R {
	cfg := &mapArrayConfig[T, R]{}
	for _, o := range opts {
		o(cfg)
	}

	var prevItems []T
	var prevRows []*keyedRow[T, R]
	var fallbackRoot *reactive.RemountableRoot
	var fallbackOut R

	memo := reactive.MakeMemo(func(prevOut []R) []R {
		items := list()

		if len(items) == 0 {
			for _, row := range prevRows {
				disposeOrStash(cfg.pool, row.root)
			}
			prevRows = nil
			prevItems = nil
			if cfg.fallback == nil {
				return nil
			}
			if fallbackRoot == nil {
				fallbackRoot = reactive.MakeRemountableRoot(nil)
			}
			fallbackRoot.Remount(func() { fallbackOut = cfg.fallback() })
			return []R{fallbackOut}
		}

		if fallbackRoot != nil {
			fallbackRoot.Dispose()
			fallbackRoot = nil
		}

		if len(prevItems) == 0 {
			rows := make([]*keyedRow[T, R], len(items))
			out := make([]R, len(items))
			for i, v := range items {
				row := newKeyedRow(cfg.pool, v, i, mapper)
				rows[i] = row
				out[i] = row.out
			}
			prevRows = rows
			prevItems = append([]T(nil), items...)
			return out
		}

		oldPositions := make(map[T][]int, len(prevItems))
		for i, v := range prevItems {
			oldPositions[v] = append(oldPositions[v], i)
		}

		newRows := make([]*keyedRow[T, R], len(items))
		used := make([]bool, len(prevRows))
		for i, v := range items {
			q := oldPositions[v]
			if len(q) == 0 {
				continue
			}
			idx := q[0]
			oldPositions[v] = q[1:]
			used[idx] = true
			row := prevRows[idx]
			row.index.Write(i)
			newRows[i] = row
		}
		for i, row := range newRows {
			if row == nil {
				newRows[i] = newKeyedRow(cfg.pool, items[i], i, mapper)
			}
		}
		for i, wasUsed := range used {
			if !wasUsed {
				disposeOrStash(cfg.pool, prevRows[i].root)
			}
		}

		prevRows = newRows
		prevItems = append([]T(nil), items...)
		out := make([]R, len(newRows))
		for i, row := range newRows {
			out[i] = row.out
		}
		return out
	}, nil)

	return func() []R { return memo.Read() }
}

func newKeyedRow[T comparable, R any](pool *Pool[T, R], v T, idx int, mapper func(T, func() int) R) *keyedRow[T, R] {
	root, reused := pool.take()
	if !reused {
		root = reactive.MakeRemountableRoot(nil)
	}
	idxSrc := reactive.MakeSignal(idx, nil)
	row := &keyedRow[T, R]{value: v, index: idxSrc, root: root}
	root.Remount(func() {
		row.out = mapper(v, func() int { return idxSrc.Read() })
	})
	return row
}
