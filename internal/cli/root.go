// Package cli implements the strata command-line interface using Cobra.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "strata",
	Short: "strata: society governance coordination engine",
	Long: `strata runs the governance engine for residential societies:
voting campaigns with frozen electorates and quorum tracking, emergency
alerts with timer-driven escalation chains, succession plans, and policy
proposals, all behind one HTTP API with a complete audit trail.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
