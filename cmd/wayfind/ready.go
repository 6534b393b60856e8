package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Stefan-Coetzee/wayfind/pkg/models"
)

var readyTypeFlag string
var readyLimitFlag int

var readyCmd = &cobra.Command{
	Use:   "ready <project-id> <learner-id>",
	Short: "Show the learner's ready queue",
	Long: `List the tasks the learner is eligible to work on right now, ordered:
started work first, then by priority, hierarchy depth and age.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		tr, cleanup, err := openTracker()
		if err != nil {
			return err
		}
		defer cleanup()

		var types []models.TaskType
		if cmd.Flags().Changed("type") {
			types = append(types, models.TaskType(readyTypeFlag))
		}

		limit := readyLimitFlag
		if !cmd.Flags().Changed("limit") && loadedCfg != nil {
			limit = loadedCfg.Ready.DefaultLimit
		}

		tasks, err := tr.GetReadyWork(args[0], args[1], types, limit)
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(tasks)
		}
		if len(tasks) == 0 {
			fmt.Println("nothing ready")
			return nil
		}
		for i, task := range tasks {
			fmt.Printf("%2d. %s  p%d  %s  %s\n", i+1, task.ID, task.Priority,
				color.CyanString(string(task.Type)), task.Title)
		}
		return nil
	},
}

var blockedCmd = &cobra.Command{
	Use:   "blocked <project-id> <learner-id>",
	Short: "Show the learner's blocked tasks and their blockers",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		tr, cleanup, err := openTracker()
		if err != nil {
			return err
		}
		defer cleanup()

		blocked, err := tr.GetBlockedTasks(args[0], args[1])
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(blocked)
		}
		if len(blocked) == 0 {
			fmt.Println("nothing blocked")
			return nil
		}
		for _, b := range blocked {
			fmt.Printf("%s  %s\n", b.Task.ID, color.RedString("blocked by %v", b.Blockers))
		}
		return nil
	},
}

var auditCmd = &cobra.Command{
	Use:   "audit <project-id>",
	Short: "Run the full cycle audit over a project's blocking subgraph",
	Long: `Run Tarjan's SCC pass over the project's BLOCKS and PARENT_CHILD
edges and report every cycle. This is the out-of-band integrity check;
a healthy project reports none.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tr, cleanup, err := openTracker()
		if err != nil {
			return err
		}
		defer cleanup()

		cycles, err := tr.DetectCycles(args[0])
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(cycles)
		}
		if len(cycles) == 0 {
			color.Green("no cycles in project %s", args[0])
			return nil
		}
		color.Red("%d cycle(s) found:", len(cycles))
		for _, cycle := range cycles {
			fmt.Printf("  %v\n", cycle)
		}
		os.Exit(1)
		return nil
	},
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	readyCmd.Flags().StringVar(&readyTypeFlag, "type", "", "Only tasks of this type")
	readyCmd.Flags().IntVar(&readyLimitFlag, "limit", 0, "Maximum tasks to return (0 = no limit)")
}
