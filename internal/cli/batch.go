package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/carbonledger/carbonledger/internal/activity"
	"github.com/carbonledger/carbonledger/internal/engine"
	"github.com/carbonledger/carbonledger/internal/engine/batch"
	"github.com/carbonledger/carbonledger/internal/format"
)

// batchFile is the on-disk shape of a batch input file.
type batchFile struct {
	Activities []activity.ParsedActivity `yaml:"activities" json:"activities"`
}

// newBatchCmd creates the batch command.
func newBatchCmd() *cobra.Command {
	var (
		demo    bool
		jsonOut bool
	)

	cmd := &cobra.Command{
		Use:   "batch <file>",
		Short: "Calculate emissions for a file of activities",
		Long: "Read a YAML or JSON file with an activities list and calculate " +
			"emissions for each entry. Failed entries are reported individually.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFromContext(cmd.Context())
			if !cmd.Flags().Changed("demo") {
				demo = cfg.Engine.DemoMode
			}

			reqs, err := readBatchFile(args[0], demo)
			if err != nil {
				return err
			}

			eng, err := buildEngine(cfg)
			if err != nil {
				return err
			}

			processor, err := batch.NewProcessor(eng, batch.Config{
				ChunkSize:   cfg.Batch.ChunkSize,
				Pause:       cfg.Batch.Pause,
				Concurrency: cfg.Batch.Concurrency,
			}, batch.WithProgress(func(s batch.Snapshot) {
				fmt.Fprintf(cmd.ErrOrStderr(), "processed %d/%d (%.0f%%)\n",
					s.ProcessedItems, s.TotalItems, s.PercentComplete)
			}))
			if err != nil {
				return err
			}

			report, err := processor.Process(cmd.Context(), reqs)
			if err != nil {
				return err
			}

			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			renderReport(cmd, report)
			return nil
		},
	}

	cmd.Flags().BoolVar(&demo, "demo", false, "answer from the built-in demo table")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "emit the report as JSON")
	return cmd
}

// readBatchFile loads activities from a YAML or JSON file. JSON is a
// subset of YAML, so one decoder covers both.
func readBatchFile(path string, demo bool) ([]engine.Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read batch file: %w", err)
	}

	var file batchFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse batch file %s: %w", path, err)
	}
	if len(file.Activities) == 0 {
		return nil, fmt.Errorf("batch file %s has no activities", path)
	}

	reqs := make([]engine.Request, len(file.Activities))
	for i := range file.Activities {
		reqs[i] = engine.Request{
			Structured: &file.Activities[i],
			DemoMode:   demo,
		}
	}
	return reqs, nil
}

// renderReport prints a human-readable batch summary.
func renderReport(cmd *cobra.Command, report *batch.Report) {
	out := cmd.OutOrStdout()

	for i, r := range report.Results {
		if r == nil {
			continue
		}
		fmt.Fprintf(out, "%3d  %-12s %-8s %s\n",
			i+1,
			format.FormatEmissions(r.TotalEmissions),
			r.Scope,
			r.Activity.Category)
	}
	for _, itemErr := range report.Errors {
		fmt.Fprintf(out, "%3d  FAILED: %v\n", itemErr.Index+1, itemErr.Err)
	}
	fmt.Fprintf(out, "\n%d succeeded, %d failed\n",
		report.Succeeded(), len(report.Errors))
}
