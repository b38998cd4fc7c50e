package main

import "github.com/spf13/cobra"

var (
	configFile string
	resultRoot string
	longFormat bool
)

var rootCmd = &cobra.Command{
	Use:   "gridrun",
	Short: "Scenario-run orchestrator: Dataset → Scenario → Solve → Report",
	Long:  "gridrun loads a structured input dataset, applies named what-if scenarios, solves each variant over a time horizon and persists tabular reports and time-series plots per run.",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "f", "run.yaml", "Run config file path")

	registerRunCommand(rootCmd)
	registerValidateCommand(rootCmd)
	registerScenariosCommand(rootCmd)
}
