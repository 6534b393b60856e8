package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/Stefan-Coetzee/wayfind/internal/config"
	"github.com/Stefan-Coetzee/wayfind/internal/journal"
	"github.com/Stefan-Coetzee/wayfind/internal/store"
	"github.com/Stefan-Coetzee/wayfind/internal/tracker"
)

var dbPathFlag string
var jsonOutput bool

// loadedCfg is set by openTracker so commands can read config knobs
// beyond what the tracker itself consumes.
var loadedCfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "wayfind",
	Short: "Curriculum progress & readiness engine",
	Long: `Wayfind tracks learners through a shared curriculum graph and answers
which work each learner is allowed to do right now.

The template graph (tasks and typed dependencies) is authored once and
shared; every learner carries an independent status overlay on top of it.
Blocking is resolved per learner over BLOCKS and PARENT_CHILD edges, and
the ready queue is deterministically ordered.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPathFlag, "db", "", "Database path (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Emit JSON instead of human output")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(depCmd)
	rootCmd.AddCommand(readyCmd)
	rootCmd.AddCommand(blockedCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(closeCmd)
	rootCmd.AddCommand(reopenCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(versionCmd)
}

// openTracker builds a tracker from config and flags. The returned
// cleanup closes every handle it opened.
func openTracker() (*tracker.Tracker, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	loadedCfg = cfg

	dbPath := cfg.DatabasePath()
	if dbPathFlag != "" {
		dbPath = dbPathFlag
	}

	s, err := store.Open(dbPath)
	if err != nil {
		return nil, nil, err
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, nil, err
	}

	var opts []tracker.Option
	var j *journal.Journal
	if cfg.Database.JournalPath != "" {
		j, err = journal.Open(cfg.Database.JournalPath)
		if err != nil {
			s.Close()
			return nil, nil, err
		}
		opts = append(opts, tracker.WithJournal(j))
	}
	if cfg.Graph.Cache {
		opts = append(opts, tracker.WithGraphCache())
	}

	cleanup := func() {
		if j != nil {
			j.Close()
		}
		s.Close()
	}
	return tracker.New(s, opts...), cleanup, nil
}
