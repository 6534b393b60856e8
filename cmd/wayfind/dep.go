package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Stefan-Coetzee/wayfind/internal/graph"
	"github.com/Stefan-Coetzee/wayfind/pkg/models"
)

var depTypeFlag string
var depDependentsFlag bool

var depCmd = &cobra.Command{
	Use:   "dep",
	Short: "Manage dependency edges",
}

var depAddCmd = &cobra.Command{
	Use:   "add <task-id> <depends-on-id>",
	Short: "Add a dependency edge",
	Long: `Add a typed edge meaning <task-id> depends on <depends-on-id>.

BLOCKS and PARENT_CHILD edges are checked against the acyclicity
invariant before insertion; RELATED edges carry no ordering semantics.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		tr, cleanup, err := openTracker()
		if err != nil {
			return err
		}
		defer cleanup()

		dep, err := tr.AddDependency(args[0], args[1], models.DependencyType(depTypeFlag))
		if err != nil {
			var ce *graph.CycleError
			if errors.As(err, &ce) {
				color.Red("rejected: %v", ce)
				return errors.New("edge would create a cycle")
			}
			return err
		}

		fmt.Printf("added %s -> %s (%s)\n", dep.TaskID, dep.DependsOnID, dep.Type)
		return nil
	},
}

var depRmCmd = &cobra.Command{
	Use:   "rm <task-id> <depends-on-id>",
	Short: "Remove a dependency edge",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		tr, cleanup, err := openTracker()
		if err != nil {
			return err
		}
		defer cleanup()

		if err := tr.RemoveDependency(args[0], args[1], models.DependencyType(depTypeFlag)); err != nil {
			return err
		}
		fmt.Printf("removed %s -> %s (%s)\n", args[0], args[1], depTypeFlag)
		return nil
	},
}

var depListCmd = &cobra.Command{
	Use:   "list <task-id>",
	Short: "List a task's dependencies (or dependents)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tr, cleanup, err := openTracker()
		if err != nil {
			return err
		}
		defer cleanup()

		var types []models.DependencyType
		if cmd.Flags().Changed("type") {
			types = append(types, models.DependencyType(depTypeFlag))
		}

		var edges []*models.Dependency
		if depDependentsFlag {
			edges, err = tr.GetDependents(args[0], types...)
		} else {
			edges, err = tr.GetDependencies(args[0], types...)
		}
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(edges)
		}
		if len(edges) == 0 {
			fmt.Println("no edges")
			return nil
		}
		for _, e := range edges {
			fmt.Printf("%s -> %s  %s\n", e.TaskID, e.DependsOnID, typeLabel(e.Type))
		}
		return nil
	},
}

func typeLabel(t models.DependencyType) string {
	switch t {
	case models.DepBlocks:
		return color.RedString("[blocks]")
	case models.DepParentChild:
		return color.YellowString("[parent-child]")
	default:
		return color.HiBlackString("[related]")
	}
}

func init() {
	depCmd.PersistentFlags().StringVar(&depTypeFlag, "type", string(models.DepBlocks),
		"Edge type: blocks, parent-child, related")
	depListCmd.Flags().BoolVar(&depDependentsFlag, "dependents", false,
		"List incoming edges instead of outgoing")

	depCmd.AddCommand(depAddCmd)
	depCmd.AddCommand(depRmCmd)
	depCmd.AddCommand(depListCmd)
}
