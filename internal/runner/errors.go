package runner

import "fmt"

// State names the pipeline stage a scenario run has reached
type State string

const (
	StateInit            State = "init"
	StateLoaded          State = "loaded"
	StateScenarioApplied State = "scenario-applied"
	StateValidated       State = "validated"
	StateModelBuilt      State = "model-built"
	StateSolved          State = "solved"
	StateReported        State = "reported"
	StatePlotted         State = "plotted"
	StateDone            State = "done"
)

// StepError wraps a scenario-fatal failure with the scenario name and the
// state in which it occurred, so a batch failure can be diagnosed without
// re-running.
type StepError struct {
	Scenario string
	State    State
	Err      error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("scenario %s failed at %s: %v", e.Scenario, e.State, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// BuildError reports the external model builder rejecting the dataset or
// horizon. Fatal to that scenario only.
type BuildError struct {
	Scenario string
	Err      error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("failed to build model for scenario %s: %v", e.Scenario, e.Err)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}
