package runner

import (
	"time"

	"github.com/google/uuid"
)

// Step actions. Each maps to a session endpoint, except ActionWait which
// polls the session until the step's expectations hold.
const (
	ActionSelect  = "select"
	ActionStart   = "start"
	ActionChoice  = "choice"
	ActionAdvance = "advance"
	ActionClose   = "close"
	ActionMove    = "move"
	ActionRestart = "restart"
	ActionWait    = "wait"
)

// TestSuite defines a complete integration test scenario
// Can either be a regular test with Steps, or a suite that references other Cases
type TestSuite struct {
	Name     string     `json:"name"`
	Scenario string     `json:"scenario,omitempty"` // Used for regular tests
	Steps    []TestStep `json:"steps,omitempty"`    // Used for regular tests
	Cases    []string   `json:"cases,omitempty"`    // Used for suite tests (list of case files)
}

// IsSequence returns true if this is a suite that sequences other cases
func (ts *TestSuite) IsSequence() bool {
	return len(ts.Cases) > 0
}

// TestStep defines a single lab action and its expected outcomes
type TestStep struct {
	Name         string       `json:"name,omitempty"`
	Action       string       `json:"action"`
	Room         string       `json:"room,omitempty"`   // select, move
	Object       string       `json:"object,omitempty"` // select
	Choice       string       `json:"choice,omitempty"` // choice, or an inline answer for advance
	Expectations Expectations `json:"expect"`
}

// Expectations defines what to check after a test step executes
type Expectations struct {
	// Error checks; when ErrorCode is set the action must fail with it
	ErrorCode string `json:"error_code,omitempty"`
	Status    *int   `json:"status,omitempty"`

	// Snapshot properties - aligned with pkg/state/snapshot.go
	CurrentRoom   *string  `json:"current_room,omitempty"`
	Inventory     []string `json:"inventory,omitempty"`      // Full inventory contents (order independent)
	UnlockedRooms []string `json:"unlocked_rooms,omitempty"` // Full unlocked set (order independent)
	Completed     []string `json:"completed,omitempty"`      // Objects that must be completed
	Objective     *string  `json:"objective,omitempty"`
	Complete      *bool    `json:"complete,omitempty"`

	// Active interaction; an empty ActiveObject means none is open
	ActiveObject *string `json:"active_object,omitempty"`
	StepIndex    *int    `json:"step_index,omitempty"`
	StepKind     *string `json:"step_kind,omitempty"`
	Selection    *string `json:"selection,omitempty"`
	TimerStarted *bool   `json:"timer_started,omitempty"`
}

// TestResult contains the outcome of running a test step
type TestResult struct {
	TestName string
	StepName string
	Success  bool
	Error    error
	Duration time.Duration
	IsWait   bool // True if this step only polled for a timer
}

// TestJob represents a test suite to be executed by a worker
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
	Session  uuid.UUID // ID of the last session used for this test
}
