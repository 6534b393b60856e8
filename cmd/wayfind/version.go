package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Stefan-Coetzee/wayfind/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the wayfind version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("wayfind %s\n", version.Get())
	},
}
