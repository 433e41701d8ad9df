// Command rxwpdemo drives the reactive runtime end-to-end: a demo HTTP
// server that streams live reconciliation patches over a websocket, and a
// bench command comparing reconcile op counts against a naive rebuild.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "rxwpdemo",
		Short:         "Demo host for the rxwp reactive runtime and reconciler",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newBenchCmd())

	if err := root.Execute(); err != nil {
		os.Stderr.WriteString("rxwpdemo: " + err.Error() + "\n")
		os.Exit(1)
	}
}
