package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gridplane/gridrun/internal/config"
	"github.com/gridplane/gridrun/internal/dispatch"
	"github.com/gridplane/gridrun/internal/plot"
	"github.com/gridplane/gridrun/internal/render"
	"github.com/gridplane/gridrun/internal/report"
	"github.com/gridplane/gridrun/internal/runner"
	"github.com/gridplane/gridrun/internal/solver"
)

var (
	runSummaryFile string
	runDryRun      bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute the configured scenario batch",
	Long:  "Execute every scenario in the run config against the input dataset, writing solver logs, reports and plots into a timestamped result directory.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return executeRun()
	},
}

func registerRunCommand(root *cobra.Command) {
	root.AddCommand(runCmd)

	runCmd.Flags().StringVar(&resultRoot, "result-root", "result", "Root directory for result directories")
	runCmd.Flags().StringVar(&runSummaryFile, "summary", "summary.json", "Batch summary filename inside the result directory (json or yaml)")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Walk the pipeline without invoking the solver")
}

func executeRun() error {
	fmt.Println("□ Loading run config...")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load run config: %w", err)
	}

	engine := dispatch.New()
	engines := solver.NewRegistry(engine)
	r := runner.New(os.Stdout, os.Stderr, engine, engines, report.NewCSVReporter(), plot.NewSVGPlotter())
	r.DryRun = runDryRun

	batch, err := r.RunBatch(context.Background(), cfg, resultRoot)
	if err != nil {
		return err
	}

	summarizer := render.NewSummarizer()
	summaryPath := filepath.Join(batch.ResultDir, runSummaryFile)
	if err := summarizer.WriteSummary(batch, summaryPath); err != nil {
		return err
	}

	fmt.Println("\n" + summarizer.ViewTable(batch))
	fmt.Printf("✓ Saved to: %s\n", batch.ResultDir)

	if len(batch.Outcomes) > 0 && batch.Failures() == len(batch.Outcomes) {
		return fmt.Errorf("all %d scenarios failed", len(batch.Outcomes))
	}
	return nil
}
