// Package cli implements the ditapack command-line interface. Commands are
// thin: they parse flags, call into the pipeline, and render results; all
// phase semantics live in the internal packages.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

var rootCmd = &cobra.Command{
	Use:   "ditapack",
	Short: "Deterministic DITA package transformer",
	Long: `ditapack batch-transforms DITA packages into a normalized target layout
through three strictly separated phases: discover classifies the source
package into an evidence-backed contract, plan derives an ordered list of
declarative actions from that contract, and execute applies the plan
through a sandboxed, policy-enforced dispatcher.

Each phase consumes only the durable JSON artifact of the phase before it.
Nothing is mutated unless a previously validated plan justifies it.`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("ditapack %s\ncommit: %s\nbuilt:  %s\n", appVersion, appCommit, appDate)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
