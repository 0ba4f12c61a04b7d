package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/carbonledger/carbonledger/internal/factors"
	"github.com/carbonledger/carbonledger/internal/units"
)

// newFactorsCmd creates the factors command group.
func newFactorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "factors",
		Short: "Emission factor dataset commands",
	}
	cmd.AddCommand(newFactorsValidateCmd(), newFactorsListCmd())
	return cmd
}

// newFactorsValidateCmd creates the factors validate command.
func newFactorsValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a factor dataset file",
		Long: "Load a YAML factor dataset, check every record against the unit " +
			"vocabulary, and report the result.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := factors.Load(args[0])
			if err != nil {
				return fmt.Errorf("dataset invalid: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(),
				"dataset %s is valid: %d factors, vocabulary %s\n",
				store.Version(), store.Len(), units.VocabularyVersion)
			return nil
		},
	}
}

// newFactorsListCmd creates the factors list command.
func newFactorsListCmd() *cobra.Command {
	var datasetPath string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the factors in the active dataset",
		RunE: func(cmd *cobra.Command, args []string) error {
			store := factors.Default()
			if datasetPath != "" {
				loaded, err := factors.Load(datasetPath)
				if err != nil {
					return err
				}
				store = loaded
			}

			out := cmd.OutOrStdout()
			for _, rec := range store.Records() {
				scopeName := "unset"
				if rec.Scope != nil {
					scopeName = rec.Scope.String()
				}
				fmt.Fprintf(out, "%-24s %10s/%-6s %-8s %s\n",
					rec.ID, rec.Value.String(), rec.Unit, scopeName, rec.Activity)
			}
			fmt.Fprintf(out, "\n%d factors (dataset %s)\n", store.Len(), store.Version())
			return nil
		},
	}

	cmd.Flags().StringVar(&datasetPath, "dataset", "", "path to a dataset file (defaults to the embedded dataset)")
	return cmd
}
