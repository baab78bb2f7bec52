package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jwebster45206/lab-engine/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(context.Context) error { return p.err }

type stubCounter int

func (c stubCounter) Len() int { return int(c) }

func TestHealthHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name            string
		setupCatalog    func() storage.Catalog
		events          Pinger
		expectedStatus  int
		expectedHealth  string
		expectedCatalog string
		expectedEvents  string
	}{
		{
			name:            "all healthy",
			setupCatalog:    func() storage.Catalog { return newTestCatalog() },
			events:          stubPinger{},
			expectedStatus:  http.StatusOK,
			expectedHealth:  "healthy",
			expectedCatalog: "healthy",
			expectedEvents:  "healthy",
		},
		{
			name:            "events disabled",
			setupCatalog:    func() storage.Catalog { return newTestCatalog() },
			expectedStatus:  http.StatusOK,
			expectedHealth:  "healthy",
			expectedCatalog: "healthy",
			expectedEvents:  "disabled",
		},
		{
			name: "unhealthy catalog",
			setupCatalog: func() storage.Catalog {
				catalog := storage.NewMockCatalog()
				catalog.SetListError(errors.New("disk gone"))
				return catalog
			},
			events:          stubPinger{},
			expectedStatus:  http.StatusServiceUnavailable,
			expectedHealth:  "degraded",
			expectedCatalog: "unhealthy",
			expectedEvents:  "healthy",
		},
		{
			name:            "unhealthy events",
			setupCatalog:    func() storage.Catalog { return newTestCatalog() },
			events:          stubPinger{err: errors.New("connection refused")},
			expectedStatus:  http.StatusServiceUnavailable,
			expectedHealth:  "degraded",
			expectedCatalog: "healthy",
			expectedEvents:  "unhealthy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHealthHandler(tt.setupCatalog(), tt.events, stubCounter(3), testLogger())

			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

			var response HealthResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &response))
			assert.Equal(t, tt.expectedHealth, response.Status)
			assert.Equal(t, "lab-engine", response.Service)
			assert.Equal(t, 3, response.Sessions)
			assert.Equal(t, tt.expectedCatalog, response.Components["catalog"])
			assert.Equal(t, tt.expectedEvents, response.Components["events"])
			assert.WithinDuration(t, time.Now(), response.Timestamp, 5*time.Second)
		})
	}
}
