// Package cli implements the carbonledger command line interface.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/carbonledger/carbonledger/internal/config"
	"github.com/carbonledger/carbonledger/internal/logging"
)

// rootFlags are the persistent flags shared by every subcommand.
type rootFlags struct {
	configPath string
	debug      bool
}

// NewRootCmd creates the root command for the carbonledger CLI.
func NewRootCmd(ver string) *cobra.Command {
	var flags rootFlags

	cmd := &cobra.Command{
		Use:     "carbonledger",
		Short:   "Emission calculation and classification engine",
		Long:    "carbonledger: calculate GHG emissions from activity data and classify them into GHG Protocol scopes",
		Version: ver,
		Example: rootCmdExample,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(flags.configPath)
			if err != nil {
				return err
			}
			if flags.debug {
				cfg.Logging.Level = "debug"
			}

			logger := logging.New(logging.Config{
				Level:  cfg.Logging.Level,
				Format: cfg.Logging.Format,
				File:   cfg.Logging.File,
			})

			// Subcommands pull both back out of the command context.
			ctx := logger.WithContext(cmd.Context())
			ctx = withConfig(ctx, cfg)
			cmd.SetContext(ctx)
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to config file")
	cmd.PersistentFlags().BoolVar(&flags.debug, "debug", false, "enable debug logging")

	cmd.AddCommand(newCalculateCmd(), newBatchCmd(), newServeCmd(), newFactorsCmd())
	return cmd
}

const rootCmdExample = `  # Calculate emissions for a structured activity
  carbonledger calculate --category fuel --fuel petrol --quantity 50 --unit liter

  # Calculate from free text (requires a configured assistant backend)
  carbonledger calculate "50 liters of petrol for the company fleet"

  # Process a batch file
  carbonledger batch activities.yaml

  # Run the HTTP API
  carbonledger serve --addr :8080

  # Validate a factor dataset
  carbonledger factors validate dataset.yaml`
