package arraymap

import "github.com/RxAI-dev/rxwp/reactive"

// IndexArrayOption configures IndexArray; construct with
// WithIndexedFallback/WithIndexedPool.
type IndexArrayOption[T any, R any] func(*indexArrayConfig[T, R])

type indexArrayConfig[T any, R any] struct {
	fallback func() R
	pool     *Pool[T, R]
}

// WithIndexedFallback supplies a single element produced when the input
// list is empty.
func WithIndexedFallback[T any, R any](fn func() R) IndexArrayOption[T, R] {
	return func(c *indexArrayConfig[T, R]) { c.fallback = fn }
}

// WithIndexedPool attaches a recycling pool; rows taken from it are the
// most recently stashed ones, regardless of the tail position they filled.
func WithIndexedPool[T any, R any](pool *Pool[T, R]) IndexArrayOption[T, R] {
	return func(c *indexArrayConfig[T, R]) { c.pool = pool }
}

type indexedRow[T any, R any] struct {
	value *reactive.Source[T]
	root  *reactive.RemountableRoot
	out   R
}

// IndexArray projects list() into a memoized output list the way MapArray
// does, but keyed by position instead of value: the mapper receives a
// readable value (reactive) and a plain index (stable). Growth and
// shrinkage only ever touch the tail; an existing position whose
// underlying value changed just writes its Source, never reconstructing
// the row or re-running the mapper. The right choice for positional
// rendering.
func IndexArray[T any, R any](list func() []T, mapper func(value func() T, index int) R, opts ...IndexArrayOption[T, R]) func() []R {
	cfg := &indexArrayConfig[T, R]{}
	for _, o := range opts {
		o(cfg)
	}

	var rows []*indexedRow[T, R]
	var fallbackRoot *reactive.RemountableRoot
	var fallbackOut R

	memo := reactive.MakeMemo(func(prevOut []R) []R {
		items := list()

		if len(items) == 0 {
			for _, row := range rows {
				disposeOrStash(cfg.pool, row.root)
			}
			rows = nil
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

		shared := len(rows)
		if len(items) < shared {
			shared = len(items)
		}
		for i := 0; i < shared; i++ {
			rows[i].value.Write(items[i])
		}

		switch {
		case len(items) > len(rows):
			for i := len(rows); i < len(items); i++ {
				rows = append(rows, newIndexedRow(cfg.pool, items[i], i, mapper))
			}
		case len(items) < len(rows):
			for i := len(items); i < len(rows); i++ {
				disposeOrStash(cfg.pool, rows[i].root)
			}
			rows = rows[:len(items)]
		}

		out := make([]R, len(rows))
		for i, row := range rows {
			out[i] = row.out
		}
		return out
	}, nil)

	return func() []R { return memo.Read() }
}

func newIndexedRow[T any, R any](pool *Pool[T, R], v T, idx int, mapper func(func() T, int) R) *indexedRow[T, R] {
	root, reused := pool.take()
	if !reused {
		root = reactive.MakeRemountableRoot(nil)
	}
	valueSrc := reactive.MakeSignal(v, nil)
	row := &indexedRow[T, R]{value: valueSrc, root: root}
	root.Remount(func() {
		row.out = mapper(func() T { return valueSrc.Read() }, idx)
	})
	return row
}
