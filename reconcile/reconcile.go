package reconcile

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// tracer emits one span per reconcile pass; a no-op unless the host
// installs a tracer provider.
var tracer = otel.Tracer("github.com/RxAI-dev/rxwp/reconcile")

// Reconcile mutates parent's live children (through sink) so they exactly
// equal next, in order, and rewrites *current in place so it equals next
// content-wise on return.
//
// The algorithm runs the cheap edge checks — prefix skip, suffix skip,
// cross-swap, and single right-to-left / left-to-right moves — to a
// fixed point. Each strictly shrinks the open window, so the loop
// terminates in at most |current|+|next| iterations, and each sink
// mutation is mirrored into cur immediately, keeping the mirror equal to
// the sink's live children at every observable step. Whatever window
// remains is resolved by one rearrange pass (reconcileWindow) that pairs
// same-shape removals and insertions into replaceChild calls before
// moving or inserting the rest.
func Reconcile(sink Sink, current *[]Node, next []Node) {
	ReconcileRecording(sink, current, next, nil)
}

// ReconcileRecording is Reconcile plus an optional Recorder that observes
// every primitive op issued, used by cmd/rxwpdemo to feed the Prometheus
// reconcile-ops counter and by tests asserting op counts.
func ReconcileRecording(sink Sink, current *[]Node, next []Node, rec Recorder) {
	cur := *current
	if len(cur) == 0 && len(next) == 0 {
		return
	}

	_, span := tracer.Start(context.Background(), "reconcile.apply",
		trace.WithAttributes(
			attribute.Int("reconcile.current.len", len(cur)),
			attribute.Int("reconcile.next.len", len(next)),
		))
	defer span.End()

	start := 0
	currentEnd := len(cur)
	nextEnd := len(next)

	for {
		progressed := false

		for start < currentEnd && start < nextEnd && cur[start] == next[start] {
			start++
			progressed = true
		}

		for currentEnd > start && nextEnd > start && cur[currentEnd-1] == next[nextEnd-1] {
			currentEnd--
			nextEnd--
			progressed = true
		}

		if start < currentEnd && start < nextEnd &&
			cur[start] == next[nextEnd-1] && cur[currentEnd-1] == next[start] {
			crossSwap(sink, cur, start, currentEnd, rec)
			cur[start], cur[currentEnd-1] = cur[currentEnd-1], cur[start]
			start++
			currentEnd--
			nextEnd--
			continue
		}

		// Right-to-left single move: the window's last current node is
		// needed at the front. One insertBefore, rotate the mirror.
		if start < currentEnd && start < nextEnd && cur[currentEnd-1] == next[start] {
			moved := cur[currentEnd-1]
			sink.InsertBefore(moved, cur[start])
			record(rec, "move")
			copy(cur[start+1:currentEnd], cur[start:currentEnd-1])
			cur[start] = moved
			start++
			continue
		}

		// Left-to-right single move: the window's first current node is
		// needed at the tail.
		if start < currentEnd && start < nextEnd && cur[start] == next[nextEnd-1] {
			moved := cur[start]
			var tailAnchor Node
			if currentEnd < len(cur) {
				tailAnchor = cur[currentEnd]
			}
			sink.InsertBefore(moved, tailAnchor)
			record(rec, "move")
			copy(cur[start:currentEnd-1], cur[start+1:currentEnd])
			cur[currentEnd-1] = moved
			currentEnd--
			nextEnd--
			continue
		}

		if !progressed {
			break
		}
	}

	if start < currentEnd || start < nextEnd {
		reconcileWindow(sink, cur, start, currentEnd, next, start, nextEnd, rec)
	}

	out := make([]Node, len(next))
	copy(out, next)
	*current = out
}

// crossSwap handles check 3 of the shared checks: the node at the head of
// the window belongs at the tail and vice versa. Moving the head to the
// tail position first shifts everything else up one, so the tail's new
// home is in front of the node that originally followed the head; for a
// two-node window that first move already swaps the pair and the second
// op is elided. The caller mirrors the swap into cur afterward.
func crossSwap(sink Sink, cur []Node, start, currentEnd int, rec Recorder) {
	head := cur[start]
	tail := cur[currentEnd-1]

	var tailAnchor Node
	if currentEnd < len(cur) {
		tailAnchor = cur[currentEnd]
	}

	sink.InsertBefore(head, tailAnchor)
	record(rec, "move")

	if currentEnd-start == 2 {
		return
	}
	sink.InsertBefore(tail, cur[start+1])
	record(rec, "move")
}

// reconcileWindow resolves the general case: the remaining sub-lists
// share no matching prefix, suffix, cross-swap, or single-move shape.
//
// It first partitions the window into removals (old nodes absent from
// next) and insertions (next nodes absent from old), pairing them
// 1-for-1 into replaceChild calls — one op where a remove-then-insert
// pair would cost two. Remaining unpaired removals are deleted outright.
// The window is then placed right-to-left against a running anchor (the
// node already confirmed correct immediately after the one being
// visited): members of a longest increasing subsequence over the
// surviving nodes' old positions are left untouched, and everything else
// costs at most one insertBefore — the same move count a classical
// keyed LIS diff pays, minus the remove+insert pairs already collapsed
// into replaces.
func reconcileWindow(sink Sink, cur []Node, start, currentEnd int, next []Node, nStart, nextEnd int, rec Recorder) {
	oldSub := cur[start:currentEnd]
	newSub := next[nStart:nextEnd]

	var tailAnchor Node
	if currentEnd < len(cur) {
		tailAnchor = cur[currentEnd]
	}

	if len(oldSub) == 0 {
		for _, n := range newSub {
			sink.InsertBefore(n, tailAnchor)
			record(rec, "insert")
		}
		return
	}
	if len(newSub) == 0 {
		for _, n := range oldSub {
			sink.RemoveChild(n)
			record(rec, "remove")
		}
		return
	}

	oldPos := make(map[Node]int, len(oldSub))
	for i, n := range oldSub {
		oldPos[n] = i
	}
	newSet := make(map[Node]struct{}, len(newSub))
	for _, n := range newSub {
		newSet[n] = struct{}{}
	}

	var removals, insertions []Node
	for _, n := range oldSub {
		if _, ok := newSet[n]; !ok {
			removals = append(removals, n)
		}
	}
	for _, n := range newSub {
		if _, ok := oldPos[n]; !ok {
			insertions = append(insertions, n)
		}
	}

	paired := len(removals)
	if len(insertions) < paired {
		paired = len(insertions)
	}
	for i := 0; i < paired; i++ {
		sink.ReplaceChild(insertions[i], removals[i])
		record(rec, "replace")
		// The replaced-in node now occupies the removed node's slot; give
		// it that position so the placement pass can leave it there.
		oldPos[insertions[i]] = oldPos[removals[i]]
		delete(oldPos, removals[i])
	}
	for i := paired; i < len(removals); i++ {
		sink.RemoveChild(removals[i])
		record(rec, "remove")
		delete(oldPos, removals[i])
	}

	keep := windowLIS(newSub, oldPos)

	anchor := tailAnchor
	for i := len(newSub) - 1; i >= 0; i-- {
		n := newSub[i]

		if _, inPlace := keep[n]; inPlace {
			anchor = n
			continue
		}
		if _, present := oldPos[n]; present {
			// Displaced survivor (or replaced-in node): one move, elided
			// when it already sits directly in front of the anchor.
			if n.NextSibling() != anchor {
				sink.InsertBefore(n, anchor)
				record(rec, "move")
			}
			anchor = n
			continue
		}

		// Unmatched insertion beyond the replace-pairing budget.
		sink.InsertBefore(n, anchor)
		record(rec, "insert")
		anchor = n
	}
}

// windowLIS picks the nodes the placement pass leaves untouched: a longest
// increasing subsequence over the window slots the candidates currently
// occupy, taken in target order. Everything outside it costs at most one
// insertBefore, which is the fewest moves any keyed diff can achieve —
// the members' relative order already matches the target, so placing the
// rest around them converges the window.
func windowLIS(newSub []Node, oldPos map[Node]int) map[Node]struct{} {
	type cand struct {
		node Node
		pos  int
		prev int
	}
	var cands []cand
	var tails []int // cands index holding the smallest tail per length

	for _, n := range newSub {
		p, ok := oldPos[n]
		if !ok {
			continue
		}
		lo, hi := 0, len(tails)
		for lo < hi {
			mid := (lo + hi) / 2
			if cands[tails[mid]].pos < p {
				lo = mid + 1
			} else {
				hi = mid
			}
		}
		c := cand{node: n, pos: p, prev: -1}
		if lo > 0 {
			c.prev = tails[lo-1]
		}
		cands = append(cands, c)
		if lo == len(tails) {
			tails = append(tails, len(cands)-1)
		} else {
			tails[lo] = len(cands) - 1
		}
	}

	keep := make(map[Node]struct{}, len(tails))
	if len(tails) > 0 {
		for i := tails[len(tails)-1]; i >= 0; i = cands[i].prev {
			keep[cands[i].node] = struct{}{}
		}
	}
	return keep
}
