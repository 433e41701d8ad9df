package main

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"

	"github.com/RxAI-dev/rxwp/reconcile"
)

func newBenchCmd() *cobra.Command {
	var size, rounds int
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure reconcile op counts over random permutations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(size, rounds)
		},
	}
	cmd.Flags().IntVar(&size, "size", 100, "list length")
	cmd.Flags().IntVar(&rounds, "rounds", 1000, "number of random permutations to reconcile")
	return cmd
}

type countRecorder struct {
	total int
}

func (c *countRecorder) OnOp(string) { c.total++ }

// runBench reconciles `rounds` random permutations of a `size`-element
// list and reports the average op count against the 2n a naive
// clear-and-rebuild would pay, verifying the sink converged after every
// pass.
func runBench(size, rounds int) error {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	nodes := make([]*listNode, size)
	for i := range nodes {
		nodes[i] = &listNode{name: fmt.Sprintf("n%d", i)}
	}

	parent := &listParent{children: append([]*listNode(nil), nodes...)}
	parent.relink()
	current := make([]reconcile.Node, size)
	for i, n := range nodes {
		current[i] = n
	}

	rec := &countRecorder{}
	start := time.Now()
	for r := 0; r < rounds; r++ {
		perm := rng.Perm(size)
		next := make([]reconcile.Node, size)
		for i, j := range perm {
			next[i] = nodes[j]
		}
		reconcile.ReconcileRecording(parent, &current, next, rec)

		for i := range next {
			if parent.children[i] != next[i].(*listNode) {
				return fmt.Errorf("round %d: sink diverged at index %d", r, i)
			}
		}
	}
	elapsed := time.Since(start)

	avg := float64(rec.total) / float64(rounds)
	naive := float64(2 * size)
	fmt.Printf("size=%d rounds=%d: avg %.1f ops/round (naive rebuild: %.0f), %.2f ops/element, total %s\n",
		size, rounds, avg, naive, avg/float64(size), elapsed.Round(time.Millisecond))
	return nil
}
