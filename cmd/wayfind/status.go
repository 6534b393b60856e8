package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Stefan-Coetzee/wayfind/internal/progress"
	"github.com/Stefan-Coetzee/wayfind/pkg/models"
)

var statusCmd = &cobra.Command{
	Use:   "status <task-id> <learner-id>",
	Short: "Show a learner's status on a task",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		tr, cleanup, err := openTracker()
		if err != nil {
			return err
		}
		defer cleanup()

		taskID, learnerID := args[0], args[1]
		rec, err := tr.GetStatus(taskID, learnerID)
		if err != nil {
			return err
		}
		blocked, blockers, err := tr.IsTaskBlocked(taskID, learnerID)
		if err != nil {
			return err
		}
		ready, err := tr.IsTaskReady(taskID, learnerID)
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(rec)
		}
		fmt.Printf("task:    %s\n", taskID)
		fmt.Printf("learner: %s\n", learnerID)
		fmt.Printf("status:  %s\n", statusLabel(rec.Status))
		if rec.StartedAt != nil {
			fmt.Printf("started: %s\n", rec.StartedAt.Format(time.RFC3339))
		}
		if rec.CompletedAt != nil {
			fmt.Printf("closed:  %s\n", rec.CompletedAt.Format(time.RFC3339))
		}
		if rec.CloseReason != "" {
			fmt.Printf("reason:  %s\n", rec.CloseReason)
		}
		if blocked {
			chain, err := tr.GetBlockingChain(taskID, learnerID)
			if err != nil {
				return err
			}
			fmt.Printf("blocked: %s (chain %v)\n", color.RedString("%v", blockers), chain)
		}
		if ready {
			color.Green("ready to work")
		}
		return nil
	},
}

var startCmd = &cobra.Command{
	Use:   "start <task-id> <learner-id>",
	Short: "Start a task for a learner",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return transition(args[0], args[1], models.StatusInProgress, "")
	},
}

var closeReasonFlag string

var closeCmd = &cobra.Command{
	Use:   "close <task-id> <learner-id>",
	Short: "Close a task for a learner",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return transition(args[0], args[1], models.StatusClosed, closeReasonFlag)
	},
}

var reopenCmd = &cobra.Command{
	Use:   "reopen <task-id> <learner-id> <reason>",
	Short: "Reopen a closed task (reason required)",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return transition(args[0], args[1], models.StatusOpen, args[2])
	},
}

func transition(taskID, learnerID string, to models.Status, reason string) error {
	tr, cleanup, err := openTracker()
	if err != nil {
		return err
	}
	defer cleanup()

	rec, err := tr.UpdateStatus(taskID, learnerID, to, reason)
	if err != nil {
		// Business-rule rejections get a specific explanation, not a
		// generic failure.
		var ite *progress.InvalidTransitionError
		if errors.As(err, &ite) {
			color.Red("invalid transition: %s -> %s", ite.From, ite.To)
			return err
		}
		var bce *progress.BlockedClosureError
		if errors.As(err, &bce) {
			color.Red("close blocked: children still open: %v", bce.OpenChildren)
			return err
		}
		var ve *progress.ValidationError
		if errors.As(err, &ve) {
			color.Red("validation required: %s", ve.Reason)
			return err
		}
		return err
	}

	fmt.Printf("%s is now %s for %s\n", taskID, statusLabel(rec.Status), learnerID)
	return nil
}

func statusLabel(s models.Status) string {
	switch s {
	case models.StatusInProgress:
		return color.YellowString(string(s))
	case models.StatusClosed:
		return color.GreenString(string(s))
	case models.StatusBlocked:
		return color.RedString(string(s))
	default:
		return string(s)
	}
}

func init() {
	closeCmd.Flags().StringVar(&closeReasonFlag, "reason", "", "Close reason")
}
