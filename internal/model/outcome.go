package model

import "time"

// Outcome records how far one scenario's pipeline got and what it produced.
// A batch collects one Outcome per scenario regardless of failures.
type Outcome struct {
	RunID      string        `json:"runId" yaml:"runId"`
	Scenario   string        `json:"scenario" yaml:"scenario"`
	Step       string        `json:"step" yaml:"step"`
	Status     SolveStatus   `json:"status,omitempty" yaml:"status,omitempty"`
	Incomplete bool          `json:"incomplete,omitempty" yaml:"incomplete,omitempty"`
	Artifacts  []string      `json:"artifacts,omitempty" yaml:"artifacts,omitempty"`
	Windows    []string      `json:"windowErrors,omitempty" yaml:"windowErrors,omitempty"`
	Error      string        `json:"error,omitempty" yaml:"error,omitempty"`
	Duration   time.Duration `json:"duration" yaml:"duration"`
}

// Failed reports whether the scenario aborted before completing its pipeline
func (o *Outcome) Failed() bool {
	return o.Error != ""
}

// Batch is the result of one gridrun invocation over an ordered scenario list
type Batch struct {
	RunID     string     `json:"runId" yaml:"runId"`
	Config    string     `json:"config" yaml:"config"`
	ResultDir string     `json:"resultDir" yaml:"resultDir"`
	Started   time.Time  `json:"started" yaml:"started"`
	Outcomes  []*Outcome `json:"outcomes" yaml:"outcomes"`
}

// Failures returns the number of failed scenarios
func (b *Batch) Failures() int {
	n := 0
	for _, o := range b.Outcomes {
		if o.Failed() {
			n++
		}
	}
	return n
}
