// Package cli implements the Comrade command-line interface using Cobra.
// Commands open the local state directly; only serve starts the API.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "comrade",
	Short: "Comrade: XP, streaks and achievements for your training log",
	Long: `Comrade turns logged workouts into experience points, levels,
daily streaks with a monthly freeze, achievements and rotating challenges.

State lives in $COMRADE_HOME (default ~/.comrade).`,
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
