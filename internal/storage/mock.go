package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/jwebster45206/lab-engine/pkg/gameerr"
	"github.com/jwebster45206/lab-engine/pkg/scenario"
)

// MockCatalog is an in-memory Catalog for testing
type MockCatalog struct {
	mu        sync.RWMutex
	scenarios map[string]*scenario.Scenario
	listError error
}

// Ensure MockCatalog implements Catalog interface
var _ Catalog = (*MockCatalog)(nil)

// NewMockCatalog creates an empty mock catalogue
func NewMockCatalog() *MockCatalog {
	return &MockCatalog{
		scenarios: make(map[string]*scenario.Scenario),
	}
}

// AddScenario stores a scenario under its id
func (m *MockCatalog) AddScenario(s *scenario.Scenario) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scenarios[s.ID] = s
}

// SetListError makes ListScenarios fail with err
func (m *MockCatalog) SetListError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listError = err
}

func (m *MockCatalog) ListScenarios(ctx context.Context) ([]ScenarioInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.listError != nil {
		return nil, m.listError
	}

	infos := make([]ScenarioInfo, 0, len(m.scenarios))
	for _, s := range m.scenarios {
		infos = append(infos, ScenarioInfo{ID: s.ID, Name: s.Name, Story: s.Story})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos, nil
}

func (m *MockCatalog) GetScenario(ctx context.Context, id string) (*scenario.Scenario, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.scenarios[id]
	if !ok {
		return nil, gameerr.NotFound("scenario", id)
	}
	return s, nil
}
