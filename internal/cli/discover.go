package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	discoverSource string
	discoverOut    string
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Scan a package and write the discovery contract",
	Long: `Discover walks the source package, classifies every map, topic, and
media file against the pattern library, builds the reference graph, and
evaluates the global invariants. The result is a durable JSON contract;
nothing in the source tree is modified.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		contract, err := Pipeline.Discover(cmd.Context(), discoverSource, discoverOut)
		if err != nil {
			return fmt.Errorf("discovery failed: %w", err)
		}

		fmt.Fprint(cmd.OutOrStdout(), renderDiscoverySummary(contract))
		fmt.Fprintf(cmd.OutOrStdout(), "contract written to %s\n", discoverOut)
		return nil
	},
}

func init() {
	discoverCmd.Flags().StringVar(&discoverSource, "source", "", "package root to scan (required)")
	discoverCmd.Flags().StringVar(&discoverOut, "out", "", "path for the discovery contract JSON (required)")
	_ = discoverCmd.MarkFlagRequired("source")
	_ = discoverCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(discoverCmd)
}
