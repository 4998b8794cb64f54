// Command tfgraph replays recorded transform streams, answers frame lookups
// and manages persisted static links.
package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tfgraph",
		Short:         "Coordinate frame transform graph tools",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newReplayCmd(), newLinksCmd(), newVersionCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Printf("tfgraph: %v", err)
		os.Exit(1)
	}
}
