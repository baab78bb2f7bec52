package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/lab-engine/internal/handlers"
	"github.com/jwebster45206/lab-engine/pkg/state"
	"github.com/jwebster45206/lab-engine/pkg/steps"
)

type ErrorHandlingMode string

const ErrorHandlingExit ErrorHandlingMode = "exit"
const ErrorHandlingContinue ErrorHandlingMode = "continue"

// Runner executes integration tests against a running lab-engine API
type Runner struct {
	BaseURL           string
	Client            *http.Client
	Timeout           time.Duration // Upper bound for wait steps
	Logger            func(format string, args ...interface{})
	ErrorHandlingMode ErrorHandlingMode
	ScenarioOverride  string // If set, overrides the scenario for all test cases
}

// NewRunner creates a new test runner
func NewRunner(baseURL string) *Runner {
	return &Runner{
		BaseURL:           strings.TrimSuffix(baseURL, "/"),
		Client:            &http.Client{Timeout: 60 * time.Second},
		Timeout:           30 * time.Second,
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

	var jobs []TestJob
	for _, caseFile := range suite.Cases {
		casePath := filepath.Join(casesDir, caseFile)

		// Recursively load (in case a sequence references another sequence)
		subJobs, err := LoadTestSuiteWithExpansion(casePath, casesDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load case '%s' referenced by sequence '%s': %w", caseFile, suite.Name, err)
		}

		jobs = append(jobs, subJobs...)
	}

	return jobs, nil
}

// RunSuite executes a complete test suite on a fresh session
func (r *Runner) RunSuite(ctx context.Context, suite TestSuite) (TestRunResult, error) {
	start := time.Now()
	result := TestRunResult{
		Job: TestJob{
			Name:  suite.Name,
			Suite: suite,
		},
		Results: make([]TestResult, 0, len(suite.Steps)),
	}

	scenarioID := suite.Scenario
	if r.ScenarioOverride != "" {
		scenarioID = r.ScenarioOverride
	}
	snap, err := CreateSession(ctx, r.Client, r.BaseURL, scenarioID)
	if err != nil {
		result.Error = fmt.Errorf("failed to create session: %w", err)
		result.Duration = time.Since(start)
		return result, result.Error
	}
	sessionID := snap.SessionID
	result.Session = sessionID

	for i, step := range suite.Steps {
		r.Logger("    [%d/%d] Running step: %s", i+1, len(suite.Steps), step.Name)
		var stepResult TestResult
		stepResult, sessionID = r.executeStep(ctx, sessionID, step)
		stepResult.TestName = suite.Name
		result.Results = append(result.Results, stepResult)
		result.Session = sessionID

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

// executeStep performs one action and checks its expectations. Restart
// replaces the session, so the id to use for the next step is returned.
func (r *Runner) executeStep(ctx context.Context, sessionID uuid.UUID, step TestStep) (TestResult, uuid.UUID) {
	start := time.Now()
	result := TestResult{StepName: step.Name}
	fail := func(err error) (TestResult, uuid.UUID) {
		result.Error = err
		result.Duration = time.Since(start)
		return result, sessionID
	}

	if step.Action == ActionWait {
		result.IsWait = true
		_, err := PollForSnapshot(ctx, r.Client, r.BaseURL, sessionID, r.Timeout, func(snap state.Snapshot) error {
			return checkExpectations(step.Expectations, snap)
		})
		if err != nil {
			return fail(err)
		}
		result.Success = true
		result.Duration = time.Since(start)
		return result, sessionID
	}

	body, err := actionBody(step)
	if err != nil {
		return fail(err)
	}

	snap, err := PostAction(ctx, r.Client, r.BaseURL, sessionID, step.Action, body)
	if err := checkActionError(step.Expectations, err); err != nil {
		return fail(err)
	}
	if err != nil {
		// Expected failure; the session itself must be unchanged and readable
		snap, err = GetSession(ctx, r.Client, r.BaseURL, sessionID)
		if err != nil {
			return fail(fmt.Errorf("failed to get session after rejected action: %w", err))
		}
	}
	sessionID = snap.SessionID

	if err := checkExpectations(step.Expectations, snap); err != nil {
		return fail(fmt.Errorf("expectation failed: %w", err))
	}

	result.Success = true
	result.Duration = time.Since(start)
	return result, sessionID
}

func actionBody(step TestStep) (any, error) {
	switch step.Action {
	case ActionSelect:
		return handlers.SelectRequest{Room: step.Room, Object: step.Object}, nil
	case ActionChoice:
		return handlers.ChoiceRequest{Choice: step.Choice}, nil
	case ActionMove:
		return handlers.MoveRequest{Room: step.Room}, nil
	case ActionAdvance:
		if step.Choice != "" {
			return steps.Input{Choice: step.Choice}, nil
		}
		return nil, nil
	case ActionStart, ActionClose, ActionRestart:
		return nil, nil
	}
	return nil, fmt.Errorf("unknown action %q", step.Action)
}

// checkActionError compares the outcome of an action with the expected
// error code and status.
func checkActionError(exp Expectations, err error) error {
	if exp.ErrorCode == "" && exp.Status == nil {
		if err != nil {
			return fmt.Errorf("action failed: %w", err)
		}
		return nil
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		if err != nil {
			return fmt.Errorf("action failed: %w", err)
		}
		return fmt.Errorf("expected error %s, but the action succeeded", exp.ErrorCode)
	}
	if exp.ErrorCode != "" && apiErr.Code != exp.ErrorCode {
		return fmt.Errorf("expected error code %s, got %s", exp.ErrorCode, apiErr.Code)
	}
	if exp.Status != nil && apiErr.Status != *exp.Status {
		return fmt.Errorf("expected status %d, got %d", *exp.Status, apiErr.Status)
	}
	return nil
}

// checkExpectations validates the test expectations against a snapshot
func checkExpectations(exp Expectations, snap state.Snapshot) error {
	if exp.CurrentRoom != nil && snap.CurrentRoom != *exp.CurrentRoom {
		return fmt.Errorf("expected current room %s, got %s", *exp.CurrentRoom, snap.CurrentRoom)
	}

	if exp.Inventory != nil {
		actual := make([]string, 0, len(snap.Inventory))
		for _, item := range snap.Inventory {
			actual = append(actual, item.ID)
		}
		if err := sameSet("inventory", exp.Inventory, actual); err != nil {
			return err
		}
	}

	if exp.UnlockedRooms != nil {
		if err := sameSet("unlocked rooms", exp.UnlockedRooms, snap.UnlockedRooms); err != nil {
			return err
		}
	}

	for _, objectID := range exp.Completed {
		found := false
		for _, done := range snap.Completed {
			if done == objectID {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("expected %s to be completed. Completed: %v", objectID, snap.Completed)
		}
	}

	if exp.Objective != nil && snap.Objective != *exp.Objective {
		return fmt.Errorf("expected objective %q, got %q", *exp.Objective, snap.Objective)
	}

	if exp.Complete != nil && snap.Complete != *exp.Complete {
		return fmt.Errorf("expected complete to be %t, got %t", *exp.Complete, snap.Complete)
	}

	return checkActive(exp, snap.Active)
}

func checkActive(exp Expectations, active *state.ActiveView) error {
	if exp.ActiveObject != nil {
		got := ""
		if active != nil {
			got = active.ObjectID
		}
		if got != *exp.ActiveObject {
			return fmt.Errorf("expected active object %q, got %q", *exp.ActiveObject, got)
		}
	}

	if exp.StepIndex == nil && exp.StepKind == nil && exp.Selection == nil && exp.TimerStarted == nil {
		return nil
	}
	if active == nil {
		return errors.New("expected an active interaction, but none is open")
	}

	if exp.StepIndex != nil && active.Index != *exp.StepIndex {
		return fmt.Errorf("expected step index %d, got %d", *exp.StepIndex, active.Index)
	}

	sv := active.Step
	if sv == nil {
		if exp.StepKind != nil || exp.Selection != nil || exp.TimerStarted != nil {
			return errors.New("expected a current step, but the interaction is finished")
		}
		return nil
	}
	if exp.StepKind != nil && string(sv.Kind) != *exp.StepKind {
		return fmt.Errorf("expected step kind %s, got %s", *exp.StepKind, sv.Kind)
	}
	if exp.Selection != nil && sv.Selection != *exp.Selection {
		return fmt.Errorf("expected selection %q, got %q", *exp.Selection, sv.Selection)
	}
	if exp.TimerStarted != nil && sv.Started != *exp.TimerStarted {
		return fmt.Errorf("expected timer started to be %t, got %t", *exp.TimerStarted, sv.Started)
	}
	return nil
}

// sameSet compares two lists ignoring order
func sameSet(what string, expected, actual []string) error {
	want := make(map[string]bool, len(expected))
	for _, v := range expected {
		want[v] = true
	}
	got := make(map[string]bool, len(actual))
	for _, v := range actual {
		got[v] = true
	}

	for v := range want {
		if !got[v] {
			return fmt.Errorf("expected %s to contain '%s', but it's missing. Actual: %v", what, v, actual)
		}
	}
	for v := range got {
		if !want[v] {
			return fmt.Errorf("%s contains unexpected '%s'. Expected: %v, Actual: %v", what, v, expected, actual)
		}
	}
	return nil
}
