package handlers

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/jwebster45206/lab-engine/internal/sessions"
	"github.com/jwebster45206/lab-engine/internal/storage"
	"github.com/jwebster45206/lab-engine/pkg/conditionals"
	"github.com/jwebster45206/lab-engine/pkg/scenario"
	"github.com/jwebster45206/lab-engine/pkg/state"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// benchScenario has an open bench with a sample and a quiz, and a cold room
// that opens once the sample has been logged.
func benchScenario() *scenario.Scenario {
	s := &scenario.Scenario{
		ID:        "bench_drill",
		Name:      "Bench Drill",
		Story:     "Log the sample, then answer the quiz.",
		StartRoom: "bench",
		RoomOrder: []string{"bench", "cold_room"},
		Rooms: map[string]scenario.Room{
			"bench": {Name: "Bench", Objects: []string{"sample", "quiz"}},
			"cold_room": {
				Name:       "Cold Room",
				Objects:    []string{"freezer"},
				UnlockWhen: &conditionals.When{Items: []string{"logged_sample"}},
			},
		},
		Objects: map[string]scenario.Object{
			"sample": {
				Name:   "Sample",
				Steps:  []scenario.Step{{Description: "Label the tube", Kind: scenario.StepSequential, Action: "Label"}},
				Reward: "logged_sample",
			},
			"quiz": {
				Name: "Quiz",
				Steps: []scenario.Step{{
					Description: "Which enzyme cuts DNA?",
					Kind:        scenario.StepChoice,
					Choice: &scenario.ChoiceStep{
						Options:  []scenario.Option{{ID: "ligase", Label: "Ligase"}, {ID: "ecori", Label: "EcoRI"}},
						Accepted: []string{"ecori"},
					},
				}},
				Reward: "quiz_passed",
			},
			"freezer": {
				Name:  "Freezer",
				Steps: []scenario.Step{{Description: "Store the sample", Kind: scenario.StepDisplay}},
			},
		},
		Items: map[string]string{
			"logged_sample": "Logged Sample",
			"quiz_passed":   "Quiz Passed",
		},
		Completion:     conditionals.When{Items: []string{"logged_sample", "quiz_passed"}},
		CompletionText: "Bench drill complete",
	}
	s.Normalize()
	return s
}

func newTestCatalog() *storage.MockCatalog {
	catalog := storage.NewMockCatalog()
	catalog.AddScenario(benchScenario())
	return catalog
}

func newTestSessionHandler(t *testing.T) (*SessionHandler, *sessions.Manager) {
	t.Helper()
	manager := sessions.NewManager(newTestCatalog(), sessions.Options{Logger: testLogger()})
	return NewSessionHandler(manager, nil, "bench_drill", testLogger()), manager
}

// do sends a request with an optional JSON body and returns the recorder.
func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeSnapshot(t *testing.T, rr *httptest.ResponseRecorder) state.Snapshot {
	t.Helper()
	var snap state.Snapshot
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snap))
	return snap
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}
