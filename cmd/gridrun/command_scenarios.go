package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gridplane/gridrun/internal/config"
)

var scenariosCmd = &cobra.Command{
	Use:     "scenarios",
	Aliases: []string{"scenario"},
	Short:   "List configured scenarios",
	Long:    "List the scenarios the run config selects, in execution order. Use -l to show each scenario's dataset edits.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return listScenarios()
	},
}

func registerScenariosCommand(root *cobra.Command) {
	root.AddCommand(scenariosCmd)

	scenariosCmd.Flags().BoolVarP(&longFormat, "long", "l", false, "Show detailed information")
}

func listScenarios() error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load run config: %w", err)
	}

	fmt.Println("Configured scenarios:")
	for _, spec := range cfg.Scenarios {
		if len(spec.Set) == 0 {
			fmt.Printf("  %s (base)\n", spec.Name)
		} else {
			fmt.Printf("  %s (%d edits)\n", spec.Name, len(spec.Set))
		}

		if longFormat {
			for _, e := range spec.Set {
				fmt.Printf("    %s[(%s, %s), %s] = %v\n",
					e.Relation, e.Site, e.Entity, e.Column, e.Value)
			}
		}
	}

	if !longFormat {
		fmt.Println("\nRun 'gridrun scenarios -l' for each scenario's edits")
	}
	return nil
}
