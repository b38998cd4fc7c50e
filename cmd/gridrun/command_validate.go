package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gridplane/gridrun/internal/config"
	"github.com/gridplane/gridrun/internal/dataset"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate run config and dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		return validateFiles()
	},
}

func registerValidateCommand(root *cobra.Command) {
	root.AddCommand(validateCmd)
}

func validateFiles() error {
	fmt.Println("□ Validating run config...")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load run config: %w", err)
	}
	fmt.Println("✓ Run config is valid")

	fmt.Println("□ Validating dataset...")
	ds, err := dataset.Load(cfg.Input)
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}
	if err := ds.Validate(cfg.ModelHorizon().Last() + 1); err != nil {
		return err
	}
	fmt.Println("✓ Dataset is valid")

	fmt.Println("✓ All validation passed")
	return nil
}
