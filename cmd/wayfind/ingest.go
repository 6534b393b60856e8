package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Stefan-Coetzee/wayfind/internal/ingest"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <curriculum.yaml>",
	Short: "Load a curriculum file into the template graph",
	Long: `Parse and validate a YAML curriculum file, then write its tasks and
dependency edges into the template graph. Edges go through the cycle
guard, so a file that encodes a blocking cycle is rejected with the
offending edge named.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		curriculum, err := ingest.Load(args[0])
		if err != nil {
			return err
		}

		tr, cleanup, err := openTracker()
		if err != nil {
			return err
		}
		defer cleanup()

		if err := ingest.Apply(tr, curriculum); err != nil {
			return err
		}

		color.Green("imported project %s", curriculum.Project)
		fmt.Printf("  %d tasks, %d dependencies\n", len(curriculum.Tasks), len(curriculum.Dependencies))
		return nil
	},
}
