package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/jwebster45206/lab-engine/pkg/gameerr"
	"github.com/jwebster45206/lab-engine/pkg/scenario"
	"gopkg.in/yaml.v3"
)

// ScenarioInfo is the listing entry of a catalogue file.
type ScenarioInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Story string `json:"story,omitempty"`
}

// Catalog provides read-only access to scenario files.
type Catalog interface {
	ListScenarios(ctx context.Context) ([]ScenarioInfo, error)
	GetScenario(ctx context.Context, id string) (*scenario.Scenario, error)
}

// scenarioExts are tried in order when resolving an id to a file.
var scenarioExts = []string{".json", ".yaml", ".yml"}

// FSCatalog loads scenarios from the "scenarios" directory of a file system:
// os.DirFS(DATA_DIR) on disk, or the files embedded in the binary.
// Loaded scenarios are validated and cached; they never change afterwards.
type FSCatalog struct {
	fsys   fs.FS
	logger *slog.Logger

	mu    sync.RWMutex
	cache map[string]*scenario.Scenario
}

// Ensure FSCatalog implements Catalog interface
var _ Catalog = (*FSCatalog)(nil)

// NewFSCatalog creates a catalogue reading from fsys.
func NewFSCatalog(fsys fs.FS, logger *slog.Logger) *FSCatalog {
	return &FSCatalog{
		fsys:   fsys,
		logger: logger,
		cache:  make(map[string]*scenario.Scenario),
	}
}

// ListScenarios returns every loadable scenario, sorted by id. Files that fail
// to decode or validate are logged and skipped.
func (c *FSCatalog) ListScenarios(ctx context.Context) ([]ScenarioInfo, error) {
	entries, err := fs.ReadDir(c.fsys, "scenarios")
	if err != nil {
		c.logger.Error("Failed to read scenarios directory", "error", err)
		return nil, fmt.Errorf("failed to list scenarios: %w", err)
	}

	var infos []ScenarioInfo
	seen := make(map[string]bool)
	for _, entry := range entries {
		if entry.IsDir() || !isScenarioFile(entry.Name()) {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), path.Ext(entry.Name()))
		if seen[id] {
			continue
		}
		seen[id] = true

		s, err := c.GetScenario(ctx, id)
		if err != nil {
			c.logger.Warn("Skipping scenario file", "file", entry.Name(), "error", err)
			continue
		}
		infos = append(infos, ScenarioInfo{ID: s.ID, Name: s.Name, Story: s.Story})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos, nil
}

// GetScenario loads, validates and caches the scenario with the given id.
func (c *FSCatalog) GetScenario(ctx context.Context, id string) (*scenario.Scenario, error) {
	if !scenario.IsValidID(id) {
		return nil, gameerr.NotFound("scenario", id)
	}

	c.mu.RLock()
	cached, ok := c.cache[id]
	c.mu.RUnlock()
	if ok {
		return cached, nil
	}

	for _, ext := range scenarioExts {
		name := path.Join("scenarios", id+ext)
		raw, err := fs.ReadFile(c.fsys, name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read scenario file: %w", err)
		}

		c.logger.Debug("Loading scenario", "id", id, "file", name)
		s, err := Decode(name, raw)
		if err != nil {
			return nil, err
		}
		s.ID = id
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("scenario %s is invalid: %w", id, err)
		}

		c.mu.Lock()
		c.cache[id] = s
		c.mu.Unlock()
		return s, nil
	}

	return nil, gameerr.NotFound("scenario", id)
}

// Decode parses a scenario file by extension. Unknown fields are rejected so
// that typos in hand-written catalogues surface at load time.
func Decode(name string, raw []byte) (*scenario.Scenario, error) {
	var s scenario.Scenario
	switch strings.ToLower(path.Ext(name)) {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&s); err != nil {
			return nil, fmt.Errorf("failed to unmarshal scenario %s: %w", name, err)
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		if err := dec.Decode(&s); err != nil {
			return nil, fmt.Errorf("failed to unmarshal scenario %s: %w", name, err)
		}
	default:
		return nil, fmt.Errorf("unsupported scenario file type: %s", name)
	}

	if s.ID == "" {
		s.ID = strings.TrimSuffix(path.Base(name), path.Ext(name))
	}
	s.Normalize()
	return &s, nil
}

func isScenarioFile(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	for _, e := range scenarioExts {
		if ext == e {
			return true
		}
	}
	return false
}
