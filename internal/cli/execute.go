package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	executePlan    string
	executeSource  string
	executeSandbox string
	executeOut     string
	executeApply   bool
)

var executeCmd = &cobra.Command{
	Use:   "execute",
	Short: "Apply a plan through the sandboxed dispatcher",
	Long: `Execute loads a validated plan and dispatches its actions strictly in
plan order. Every mutation is confined to the sandbox directory and gated
by the overwrite policy. The default is a dry run: validation and path
resolution run exactly as in apply mode, but no mutation happens and every
action reports skipped. Pass --apply to mutate.

The execution report is write-once; pointing --out at an existing report
is an error.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := Pipeline.ExecuteFromPlan(executePlan, executeSource, executeSandbox, !executeApply, executeOut)
		if err != nil {
			return fmt.Errorf("execution failed: %w", err)
		}

		fmt.Fprint(cmd.OutOrStdout(), renderExecutionSummary(report))
		fmt.Fprintf(cmd.OutOrStdout(), "report written to %s\n", executeOut)
		return nil
	},
}

func init() {
	executeCmd.Flags().StringVar(&executePlan, "plan", "", "path to the plan JSON (required)")
	executeCmd.Flags().StringVar(&executeSource, "source", "", "package root the plan's source paths resolve under (required)")
	executeCmd.Flags().StringVar(&executeSandbox, "sandbox", "", "directory all mutations are confined to (required)")
	executeCmd.Flags().StringVar(&executeOut, "out", "", "path for the execution report JSON (required)")
	executeCmd.Flags().BoolVar(&executeApply, "apply", false, "actually mutate; the default is a dry run")
	_ = executeCmd.MarkFlagRequired("plan")
	_ = executeCmd.MarkFlagRequired("source")
	_ = executeCmd.MarkFlagRequired("sandbox")
	_ = executeCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(executeCmd)
}
