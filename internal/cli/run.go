package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"ditapack/internal/core"
)

var (
	runSource  string
	runSandbox string
	runOutDir  string
	runTarget  string
	runApply   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run discover, plan, and execute as one pipeline",
	Long: `Run performs the full pipeline: discover the source package, derive a
plan, and execute it into the sandbox. One JSON artifact per phase is
written under the output directory, and each phase consumes only the
artifact of the phase before it.

The default is a dry run; pass --apply to mutate the sandbox.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := Pipeline.Run(cmd.Context(), core.RunRequest{
			SourceRoot:  runSource,
			SandboxRoot: runSandbox,
			OutDir:      runOutDir,
			Target:      runTarget,
			Apply:       runApply,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprint(out, renderDiscoverySummary(result.Contract))
		fmt.Fprint(out, renderPlanSummary(result.Plan))
		fmt.Fprint(out, renderExecutionSummary(result.Report))
		fmt.Fprintf(out, "artifacts written to %s\n", runOutDir)
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runSource, "source", "", "package root to transform (required)")
	runCmd.Flags().StringVar(&runSandbox, "sandbox", "", "directory all mutations are confined to (required)")
	runCmd.Flags().StringVar(&runOutDir, "out-dir", "", "directory for the phase artifacts (required)")
	runCmd.Flags().StringVar(&runTarget, "target", "", "target package name, becomes <target>.ditamap (required)")
	runCmd.Flags().BoolVar(&runApply, "apply", false, "actually mutate; the default is a dry run")
	_ = runCmd.MarkFlagRequired("source")
	_ = runCmd.MarkFlagRequired("sandbox")
	_ = runCmd.MarkFlagRequired("out-dir")
	_ = runCmd.MarkFlagRequired("target")
	rootCmd.AddCommand(runCmd)
}
