package runner

import (
	"time"

	"github.com/google/uuid"
)

// TestSuite defines a complete integration test scenario
// Can either be a regular test with Steps, or a suite that references other Cases
type TestSuite struct {
	Name     string     `json:"name"`
	Scenario string     `json:"scenario,omitempty"` // Scenario filename, server default when empty
	UserID   string     `json:"user_id,omitempty"`
	Start    *Expect    `json:"start,omitempty"` // Checked against the new game before any step runs
	Steps    []TestStep `json:"steps,omitempty"`
	Cases    []string   `json:"cases,omitempty"` // Used for suite tests (list of case files)
}

// IsSequence returns true if this is a suite that sequences other cases
func (ts *TestSuite) IsSequence() bool {
	return len(ts.Cases) > 0
}

// TestStep defines a single command and its expected outcomes
type TestStep struct {
	Name    string `json:"name,omitempty"`
	Command string `json:"command"`
	Expect  Expect `json:"expect"`
}

// Expect defines what to check after a step executes
type Expect struct {
	// Game properties read back from GET /v1/games/{id}
	Location          *string  `json:"location,omitempty"` // Room name from the prompt
	Done              *bool    `json:"done,omitempty"`
	ActionsContain    []string `json:"actions_contain,omitempty"`
	ActionsNotContain []string `json:"actions_not_contain,omitempty"`

	// Response Analysis
	ResponseContains    []string `json:"response_contains,omitempty"`
	ResponseNotContains []string `json:"response_not_contains,omitempty"`
	ResponseRegex       string   `json:"response_regex,omitempty"`
}

// TestResult contains the outcome of running a test step
type TestResult struct {
	StepName     string
	Success      bool
	Error        error
	Duration     time.Duration
	ResponseText string
}

// TestJob represents a test suite to be executed
type TestJob struct {
	Name     string
	Suite    TestSuite
	CaseFile string
}

// TestRunResult contains the results of running an entire test suite
type TestRunResult struct {
	Job      TestJob
	Results  []TestResult
	Error    error
	Duration time.Duration
	PlayerID uuid.UUID // Player created for this run
}
