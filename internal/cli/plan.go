package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"ditapack/internal/discovery"
	"ditapack/internal/planning"
	"ditapack/pkg/models"
)

var (
	planDiscovery    string
	planOut          string
	planTarget       string
	planAnalysisOnly bool
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Derive an ordered action plan from a discovery contract",
	Long: `Plan loads a previously written discovery contract and runs the fixed
rule sequence over it, producing an ordered, validated list of declarative
actions. A contract with failed blocking invariants is refused unless
--analysis-only is given, in which case the plan carries the invariant
results and no actions.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		contract, err := discovery.LoadContract(planDiscovery)
		if err != nil {
			return fmt.Errorf("planning failed: %w", err)
		}

		planner := planning.NewPlanner(nil)
		plan, err := planner.Plan(planning.Request{
			Contract:     contract,
			ContractPath: planDiscovery,
			Intent:       models.PlanIntent{Target: planTarget},
			AnalysisOnly: planAnalysisOnly || Config.AnalysisOnly,
		})
		if err != nil {
			return fmt.Errorf("planning failed: %w", err)
		}
		if err := planning.WritePlan(plan, planOut); err != nil {
			return fmt.Errorf("planning failed: %w", err)
		}

		fmt.Fprint(cmd.OutOrStdout(), renderPlanSummary(plan))
		fmt.Fprintf(cmd.OutOrStdout(), "plan written to %s\n", planOut)
		return nil
	},
}

func init() {
	planCmd.Flags().StringVar(&planDiscovery, "discovery", "", "path to the discovery contract JSON (required)")
	planCmd.Flags().StringVar(&planOut, "out", "", "path for the plan JSON (required)")
	planCmd.Flags().StringVar(&planTarget, "target", "", "target package name, becomes <target>.ditamap (required)")
	planCmd.Flags().BoolVar(&planAnalysisOnly, "analysis-only", false, "produce an actionless plan carrying invariant results")
	_ = planCmd.MarkFlagRequired("discovery")
	_ = planCmd.MarkFlagRequired("out")
	_ = planCmd.MarkFlagRequired("target")
	rootCmd.AddCommand(planCmd)
}
