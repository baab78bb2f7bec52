package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/jwebster45206/lab-engine/internal/storage"
	"github.com/jwebster45206/lab-engine/pkg/scenario"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarioHandler_ServeHTTP(t *testing.T) {
	handler := NewScenarioHandler(testLogger(), newTestCatalog())

	tests := []struct {
		name           string
		method         string
		path           string
		expectedStatus int
		check          func(t *testing.T, body []byte)
	}{
		{
			name:           "list",
			method:         http.MethodGet,
			path:           "/v1/scenarios",
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				var infos []storage.ScenarioInfo
				require.NoError(t, json.Unmarshal(body, &infos))
				require.Len(t, infos, 1)
				assert.Equal(t, "bench_drill", infos[0].ID)
				assert.Equal(t, "Bench Drill", infos[0].Name)
			},
		},
		{
			name:           "get",
			method:         http.MethodGet,
			path:           "/v1/scenarios/bench_drill",
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				var scen scenario.Scenario
				require.NoError(t, json.Unmarshal(body, &scen))
				assert.Equal(t, "bench", scen.StartRoom)
				assert.Len(t, scen.Objects, 3)
			},
		},
		{
			name:           "not found",
			method:         http.MethodGet,
			path:           "/v1/scenarios/pirates",
			expectedStatus: http.StatusNotFound,
			check: func(t *testing.T, body []byte) {
				var resp ErrorResponse
				require.NoError(t, json.Unmarshal(body, &resp))
				assert.Equal(t, "NOT_FOUND", resp.Code)
			},
		},
		{
			name:           "nested path",
			method:         http.MethodGet,
			path:           "/v1/scenarios/bench_drill/rooms",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "wrong method",
			method:         http.MethodPost,
			path:           "/v1/scenarios",
			expectedStatus: http.StatusMethodNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, handler, tt.method, tt.path, nil)
			assert.Equal(t, tt.expectedStatus, rr.Code, rr.Body.String())
			if tt.check != nil {
				tt.check(t, rr.Body.Bytes())
			}
		})
	}
}

func TestScenarioHandler_ListEmptyAndFailing(t *testing.T) {
	catalog := storage.NewMockCatalog()
	handler := NewScenarioHandler(testLogger(), catalog)

	rr := do(t, handler, http.MethodGet, "/v1/scenarios", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, "[]", rr.Body.String())

	catalog.SetListError(errors.New("read failed"))
	rr = do(t, handler, http.MethodGet, "/v1/scenarios", nil)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}
