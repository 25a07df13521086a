// Package cli implements jobctl, the demo command-line front end for the
// job engine: it loads a workflow file, runs it on a Scheduler, and
// prints the Scheduler's pushed, per-step progress and completed events.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/riftlane/jobforge/pkg/config"
	"github.com/riftlane/jobforge/pkg/logger"
)

var (
	configPath string
	jsonOutput bool

	engineDefaults config.EngineDefaults
	log            *logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "jobctl",
	Short: "jobctl runs demo job workflows against the jobforge engine",
	Long: `jobctl is a small command-line front end over the jobforge job
engine: it loads an ordered list of steps from a YAML workflow file,
drives them through the engine's Scheduler, and reports each step's
result as it finishes its forward run, plus the job's pushed and
completed events. Individual RUN, CANCEL and CLEANUP entries are not
reported.

Quick Examples:
  jobctl run bringup.yaml             # Run a workflow to completion
  jobctl run bringup.yaml --json      # Emit each event as JSON
  jobctl version                      # Print build metadata`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := config.LoadEngineDefaults(configPath)
		if err != nil {
			return fmt.Errorf("jobctl: %w", err)
		}
		engineDefaults = defaults

		level, err := logger.ParseLevel(defaults.LogLevel)
		if err != nil {
			level = logger.INFO
		}
		log = logger.NewWithConfig(logger.Config{Level: level})
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to a jobforge config file (default: built-in defaults)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false,
		"Emit events as JSON instead of text")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newVersionCmd())
}
