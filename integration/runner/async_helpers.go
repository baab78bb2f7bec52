package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/lab-engine/internal/handlers"
	"github.com/jwebster45206/lab-engine/pkg/state"
)

const (
	// PollInterval is how often to check a session while waiting on a timer
	PollInterval = 250 * time.Millisecond
)

// APIError is a non-2xx answer from the lab API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("status %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("status %d: %s", e.Status, e.Message)
}

// CreateSession starts a session of a scenario. An empty scenario uses the
// server default.
func CreateSession(ctx context.Context, client *http.Client, baseURL, scenarioID string) (state.Snapshot, error) {
	var body any
	if scenarioID != "" {
		body = handlers.CreateSessionRequest{Scenario: scenarioID}
	}
	return doJSON(ctx, client, http.MethodPost, baseURL+"/v1/sessions", body, http.StatusCreated)
}

// PostAction performs one session action and returns the resulting snapshot
func PostAction(ctx context.Context, client *http.Client, baseURL string, sessionID uuid.UUID, action string, body any) (state.Snapshot, error) {
	url := fmt.Sprintf("%s/v1/sessions/%s/%s", baseURL, sessionID.String(), action)
	return doJSON(ctx, client, http.MethodPost, url, body, http.StatusOK)
}

// GetSession retrieves the current snapshot of a session
func GetSession(ctx context.Context, client *http.Client, baseURL string, sessionID uuid.UUID) (state.Snapshot, error) {
	url := fmt.Sprintf("%s/v1/sessions/%s", baseURL, sessionID.String())
	return doJSON(ctx, client, http.MethodGet, url, nil, http.StatusOK)
}

// PollForSnapshot polls a session until cond accepts its snapshot. It returns
// the last error cond reported when the timeout runs out.
func PollForSnapshot(ctx context.Context, client *http.Client, baseURL string, sessionID uuid.UUID, timeout time.Duration, cond func(state.Snapshot) error) (state.Snapshot, error) {
	deadline := time.After(timeout)
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	var last error
	for {
		select {
		case <-ctx.Done():
			return state.Snapshot{}, ctx.Err()
		case <-deadline:
			return state.Snapshot{}, fmt.Errorf("timeout waiting for session (waited %v): %w", timeout, last)
		case <-ticker.C:
			snap, err := GetSession(ctx, client, baseURL, sessionID)
			if err != nil {
				last = err
				continue
			}
			if last = cond(snap); last == nil {
				return snap, nil
			}
		}
	}
}

func doJSON(ctx context.Context, client *http.Client, method, url string, body any, wantStatus int) (state.Snapshot, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return state.Snapshot{}, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return state.Snapshot{}, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return state.Snapshot{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != wantStatus {
		raw, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{Status: resp.StatusCode, Message: string(raw)}
		var errResp handlers.ErrorResponse
		if json.Unmarshal(raw, &errResp) == nil && errResp.Error != "" {
			apiErr.Code = errResp.Code
			apiErr.Message = errResp.Error
		}
		return state.Snapshot{}, apiErr
	}

	var snap state.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return state.Snapshot{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return snap, nil
}
