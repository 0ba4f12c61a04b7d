package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/carbonledger/carbonledger/internal/activity"
	"github.com/carbonledger/carbonledger/internal/engine"
	"github.com/carbonledger/carbonledger/internal/format"
)

// calculateFlags are the options for the calculate command.
type calculateFlags struct {
	category    string
	subcategory string
	fuel        string
	quantity    float64
	unit        string
	description string
	demo        bool
	jsonOut     bool
}

// newCalculateCmd creates the calculate command.
func newCalculateCmd() *cobra.Command {
	var flags calculateFlags

	cmd := &cobra.Command{
		Use:   "calculate [text]",
		Short: "Calculate emissions for a single activity",
		Long: "Calculate emissions for one activity, given either structured flags " +
			"or a free-text description parsed by the assistant backend.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFromContext(cmd.Context())
			if !cmd.Flags().Changed("demo") {
				flags.demo = cfg.Engine.DemoMode
			}

			req, err := buildRequest(flags, args)
			if err != nil {
				return err
			}

			eng, err := buildEngine(cfg)
			if err != nil {
				return err
			}

			result, err := eng.Calculate(cmd.Context(), req)
			if err != nil {
				return err
			}

			if flags.jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			renderResult(cmd, result)
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.category, "category", "", "activity category, e.g. fuel or electricity")
	cmd.Flags().StringVar(&flags.subcategory, "subcategory", "", "activity subcategory")
	cmd.Flags().StringVar(&flags.fuel, "fuel", "", "fuel type")
	cmd.Flags().Float64Var(&flags.quantity, "quantity", 0, "measured quantity")
	cmd.Flags().StringVar(&flags.unit, "unit", "", "measurement unit")
	cmd.Flags().StringVar(&flags.description, "description", "", "free-form activity context")
	cmd.Flags().BoolVar(&flags.demo, "demo", false, "answer from the built-in demo table")
	cmd.Flags().BoolVar(&flags.jsonOut, "json", false, "emit the result as JSON")
	return cmd
}

// buildRequest turns flags and the optional text argument into an engine
// request. Structured flags and free text are mutually exclusive.
func buildRequest(flags calculateFlags, args []string) (engine.Request, error) {
	structured := flags.category != "" || flags.quantity != 0 || flags.unit != ""

	if len(args) == 1 {
		if structured {
			return engine.Request{}, fmt.Errorf("pass either free text or structured flags, not both")
		}
		return engine.Request{RawInput: args[0], DemoMode: flags.demo}, nil
	}

	if !structured {
		return engine.Request{}, fmt.Errorf("provide a text argument or --category, --quantity, and --unit")
	}

	return engine.Request{
		Structured: &activity.ParsedActivity{
			Category:    flags.category,
			Subcategory: flags.subcategory,
			FuelType:    flags.fuel,
			Quantity:    flags.quantity,
			Unit:        flags.unit,
			Description: flags.description,
		},
		DemoMode: flags.demo,
	}, nil
}

// renderResult prints a human-readable calculation summary.
func renderResult(cmd *cobra.Command, r *engine.Result) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Emissions:  %s\n", format.FormatEmissions(r.TotalEmissions))
	fmt.Fprintf(out, "Scope:      %s\n", r.Scope)
	fmt.Fprintf(out, "Confidence: %s\n", format.FormatConfidence(r.Confidence))
	fmt.Fprintf(out, "Backend:    %s\n", r.Backend)

	if r.Breakdown != nil {
		fmt.Fprintf(out, "Breakdown:  CO2 %s, CH4 %s, N2O %s (kgCO2e)\n",
			format.FormatFloat(r.Breakdown.CO2, 2),
			format.FormatFloat(r.Breakdown.CH4, 2),
			format.FormatFloat(r.Breakdown.N2O, 2))
	}
	if r.MatchedFactor != nil {
		fmt.Fprintf(out, "Factor:     %s (%s, %s)\n",
			r.MatchedFactor.ID, r.MatchedFactor.Source, r.MatchedFactor.Unit)
	}
	if len(r.Alternatives) > 0 {
		ids := make([]string, len(r.Alternatives))
		for i, alt := range r.Alternatives {
			ids[i] = fmt.Sprintf("%s (%.0f%%)", alt.Record.ID, alt.Similarity*100)
		}
		fmt.Fprintf(out, "Also close: %s\n", strings.Join(ids, ", "))
	}
}
