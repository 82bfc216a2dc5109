package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/adventure-engine/internal/handlers"
)

type ErrorHandlingMode string

const ErrorHandlingExit ErrorHandlingMode = "exit"
const ErrorHandlingContinue ErrorHandlingMode = "continue"

// DefaultUserID is sent when a suite does not name a user
const DefaultUserID = "integration"

// Runner executes integration tests against a running adventure-engine API
type Runner struct {
	BaseURL           string
	Client            *http.Client
	Timeout           time.Duration
	Logger            func(format string, args ...interface{})
	ErrorHandlingMode ErrorHandlingMode
	ScenarioOverride  string // If set, overrides the scenario for all test cases
}

// NewRunner creates a new test runner
func NewRunner(baseURL string) *Runner {
	return &Runner{
		BaseURL:           strings.TrimSuffix(baseURL, "/"),
		Client:            &http.Client{Timeout: 30 * time.Second},
		Timeout:           10 * time.Second,
		Logger:            func(string, ...interface{}) {},
		ErrorHandlingMode: ErrorHandlingContinue,
	}
}

// LoadTestSuite loads a test suite from a JSON file
func LoadTestSuite(filename string) (TestSuite, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return TestSuite{}, fmt.Errorf("failed to read test file %s: %w", filename, err)
	}

	var suite TestSuite
	if err := json.Unmarshal(content, &suite); err != nil {
		return TestSuite{}, fmt.Errorf("failed to parse JSON in %s: %w", filename, err)
	}

	return suite, nil
}

// LoadTestSuiteWithExpansion loads a test suite and expands it if it's a sequence
// Returns a list of actual test suites (expanded from the sequence if needed)
func LoadTestSuiteWithExpansion(filename string, casesDir string) ([]TestJob, error) {
	return loadExpanded(filename, casesDir, map[string]bool{})
}

func loadExpanded(filename, casesDir string, visiting map[string]bool) ([]TestJob, error) {
	if visiting[filename] {
		return nil, fmt.Errorf("sequence cycle through %s", filename)
	}
	suite, err := LoadTestSuite(filename)
	if err != nil {
		return nil, err
	}

	if !suite.IsSequence() {
		return []TestJob{{
			Name:     suite.Name,
			Suite:    suite,
			CaseFile: filename,
		}}, nil
	}

	visiting[filename] = true
	defer delete(visiting, filename)

	var jobs []TestJob
	for _, caseFile := range suite.Cases {
		casePath := filepath.Join(casesDir, caseFile)
		subJobs, err := loadExpanded(casePath, casesDir, visiting)
		if err != nil {
			return nil, fmt.Errorf("failed to load case '%s' referenced by sequence '%s': %w", caseFile, suite.Name, err)
		}
		jobs = append(jobs, subJobs...)
	}

	return jobs, nil
}

// RunSuite starts a fresh game and executes every step of the suite against it
func (r *Runner) RunSuite(ctx context.Context, suite TestSuite) (TestRunResult, error) {
	start := time.Now()
	result := TestRunResult{
		Job: TestJob{
			Name:  suite.Name,
			Suite: suite,
		},
		Results: make([]TestResult, 0, len(suite.Steps)),
	}

	scenario := suite.Scenario
	if r.ScenarioOverride != "" {
		scenario = r.ScenarioOverride
	}
	userID := suite.UserID
	if userID == "" {
		userID = DefaultUserID
	}

	game, err := CreateGame(ctx, r.Client, r.BaseURL, scenario, userID)
	if err != nil {
		result.Error = fmt.Errorf("failed to start game: %w", err)
		result.Duration = time.Since(start)
		return result, result.Error
	}
	result.PlayerID = game.PlayerID

	if suite.Start != nil {
		if err := checkExpectations(*suite.Start, game.Prompt, game); err != nil {
			result.Error = fmt.Errorf("start expectation failed: %w", err)
			result.Duration = time.Since(start)
			return result, result.Error
		}
	}

	for i, step := range suite.Steps {
		r.Logger("    [%d/%d] Running step: %s", i+1, len(suite.Steps), step.Name)
		stepResult := r.runStep(ctx, game.PlayerID, step)
		result.Results = append(result.Results, stepResult)

		if stepResult.Error != nil {
			r.Logger("    [%d/%d] ✗ %s: %v", i+1, len(suite.Steps), step.Name, stepResult.Error)
			if result.Error == nil {
				result.Error = fmt.Errorf("step %d (%s) failed: %w", i, step.Name, stepResult.Error)
			}
			if r.ErrorHandlingMode == ErrorHandlingExit {
				break
			}
			continue
		}

		r.Logger("    [%d/%d] ✓ %s (%v)", i+1, len(suite.Steps), step.Name, stepResult.Duration)
	}

	result.Duration = time.Since(start)
	return result, result.Error
}

// runStep posts one command, reads the game back and checks expectations
func (r *Runner) runStep(ctx context.Context, playerID uuid.UUID, step TestStep) TestResult {
	start := time.Now()
	result := TestResult{StepName: step.Name}
	if result.StepName == "" {
		result.StepName = step.Command
	}

	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	resp, err := PostStep(ctx, r.Client, r.BaseURL, playerID, step.Command)
	if err != nil {
		result.Error = err
		result.Duration = time.Since(start)
		return result
	}
	result.ResponseText = resp.Prompt

	game, err := GetGame(ctx, r.Client, r.BaseURL, playerID)
	if err != nil {
		result.Error = fmt.Errorf("failed to read game after step: %w", err)
		result.Duration = time.Since(start)
		return result
	}
	if game.Done != resp.Done {
		result.Error = fmt.Errorf("step reported done=%t but game reports done=%t", resp.Done, game.Done)
		result.Duration = time.Since(start)
		return result
	}

	if err := checkExpectations(step.Expect, resp.Prompt, game); err != nil {
		result.Error = fmt.Errorf("expectation failed: %w", err)
		result.Duration = time.Since(start)
		return result
	}

	result.Success = true
	result.Duration = time.Since(start)
	return result
}

// Location extracts the room name from a prompt starting "You are in X."
func Location(prompt string) string {
	first, _, _ := strings.Cut(prompt, "\n")
	name, ok := strings.CutPrefix(first, "You are in ")
	if !ok {
		return ""
	}
	return strings.TrimSuffix(name, ".")
}

// checkExpectations validates a step response and the game read back after it
func checkExpectations(exp Expect, responseText string, game *handlers.GameResponse) error {
	if exp.Location != nil {
		if got := Location(game.Prompt); got != *exp.Location {
			return fmt.Errorf("expected location %q, got %q", *exp.Location, got)
		}
	}

	if exp.Done != nil && game.Done != *exp.Done {
		return fmt.Errorf("expected done to be %t, got %t", *exp.Done, game.Done)
	}

	for _, action := range exp.ActionsContain {
		if !slices.Contains(game.Actions, action) {
			return fmt.Errorf("expected actions to contain '%s'. Actual actions: %v", action, game.Actions)
		}
	}
	for _, action := range exp.ActionsNotContain {
		if slices.Contains(game.Actions, action) {
			return fmt.Errorf("expected actions to NOT contain '%s'. Actual actions: %v", action, game.Actions)
		}
	}

	lowerResponse := strings.ToLower(responseText)
	for _, expectedText := range exp.ResponseContains {
		if !strings.Contains(lowerResponse, strings.ToLower(expectedText)) {
			return fmt.Errorf("expected response to contain '%s', but it didn't", expectedText)
		}
	}
	for _, unexpectedText := range exp.ResponseNotContains {
		if strings.Contains(lowerResponse, strings.ToLower(unexpectedText)) {
			return fmt.Errorf("expected response to NOT contain '%s', but it did", unexpectedText)
		}
	}

	if exp.ResponseRegex != "" {
		matched, err := regexp.MatchString(exp.ResponseRegex, responseText)
		if err != nil {
			return fmt.Errorf("invalid regex pattern: %w", err)
		}
		if !matched {
			return fmt.Errorf("response didn't match regex pattern: %s", exp.ResponseRegex)
		}
	}

	return nil
}
