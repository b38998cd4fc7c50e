package render

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gridplane/gridrun/internal/model"
)

// Summarizer materializes a batch result into summary artifacts
type Summarizer struct{}

// NewSummarizer creates a new summarizer
func NewSummarizer() *Summarizer {
	return &Summarizer{}
}

// RenderJSON renders the batch summary as JSON
func (s *Summarizer) RenderJSON(b *model.Batch) ([]byte, error) {
	return json.MarshalIndent(b, "", "  ")
}

// RenderYAML renders the batch summary as YAML
func (s *Summarizer) RenderYAML(b *model.Batch) ([]byte, error) {
	return yaml.Marshal(b)
}

// WriteSummary writes the batch summary to file (JSON or YAML based on
// extension).
func (s *Summarizer) WriteSummary(b *model.Batch, path string) error {
	var data []byte
	var err error

	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	ext := filepath.Ext(path)
	switch ext {
	case ".yaml", ".yml":
		data, err = s.RenderYAML(b)
	default:
		data, err = s.RenderJSON(b)
	}

	if err != nil {
		return fmt.Errorf("failed to render summary: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write summary to %s: %w", path, err)
	}

	return nil
}

// ViewTable returns a human-readable per-scenario outcome table
func (s *Summarizer) ViewTable(b *model.Batch) string {
	var out strings.Builder

	fmt.Fprintf(&out, "Run %s (%s)\n", b.RunID, b.Config)
	fmt.Fprintf(&out, "Results: %s\n\n", b.ResultDir)

	for _, o := range b.Outcomes {
		mark := "✓"
		if o.Failed() {
			mark = "✗"
		}
		fmt.Fprintf(&out, "%s %s\n", mark, o.Scenario)
		fmt.Fprintf(&out, "  Step:     %s\n", o.Step)
		if o.Status != "" {
			fmt.Fprintf(&out, "  Status:   %s\n", o.Status)
		}
		if o.Incomplete {
			fmt.Fprintf(&out, "  Incomplete: no solution values, report/plots skipped\n")
		}
		if len(o.Artifacts) > 0 {
			fmt.Fprintf(&out, "  Artifacts: %d\n", len(o.Artifacts))
		}
		for _, w := range o.Windows {
			fmt.Fprintf(&out, "  Window:   %s\n", w)
		}
		if o.Failed() {
			fmt.Fprintf(&out, "  Error:    %s\n", o.Error)
		}
		out.WriteString("\n")
	}

	failed := b.Failures()
	fmt.Fprintf(&out, "%d scenarios, %d failed\n", len(b.Outcomes), failed)
	return out.String()
}
