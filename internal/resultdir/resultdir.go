package resultdir

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gridplane/gridrun/internal/config"
)

// timestampLayout gives result directories minute resolution. Two runs of
// the same name within one minute share a directory; that collision is
// accepted, not an error.
const timestampLayout = "20060102T1504"

// Prepare creates a timestamped result directory under root and returns its
// path. An existing directory for the same name and minute is returned
// as-is. Filesystem errors surface to the caller; nothing is retried.
func Prepare(root, resultName string, now time.Time) (string, error) {
	dir := filepath.Join(root, fmt.Sprintf("%s-%s", resultName, now.Format(timestampLayout)))

	if info, err := os.Stat(dir); err == nil {
		if !info.IsDir() {
			return "", fmt.Errorf("result path %s exists and is not a directory", dir)
		}
		return dir, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create result directory %s: %w", dir, err)
	}
	return dir, nil
}

// provenance is the serialized run configuration archived with each run
type provenance struct {
	RunID      string            `yaml:"runId"`
	ArchivedAt time.Time         `yaml:"archivedAt"`
	Config     *config.RunConfig `yaml:"config"`
}

// Archive copies the input dataset file and the effective run configuration
// into the result directory, so a run can be reproduced from its artifacts
// alone. Existing copies are overwritten silently: re-running into the same
// directory is allowed.
func Archive(resultDir, inputFile string, cfg *config.RunConfig, runID string, now time.Time) error {
	dest := filepath.Join(resultDir, filepath.Base(inputFile))
	if err := copyFile(inputFile, dest); err != nil {
		return fmt.Errorf("failed to archive input file: %w", err)
	}

	data, err := yaml.Marshal(provenance{RunID: runID, ArchivedAt: now, Config: cfg})
	if err != nil {
		return fmt.Errorf("failed to serialize run config: %w", err)
	}
	configDest := filepath.Join(resultDir, "run-config.yaml")
	if err := os.WriteFile(configDest, data, 0644); err != nil {
		return fmt.Errorf("failed to archive run config: %w", err)
	}

	return nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
