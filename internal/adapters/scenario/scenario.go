// Package scenario provides the scenario content source consumed at session
// creation and stage evaluation.
package scenario

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/simclinic/woundsim/internal/domain/model"
)

// Source resolves scenario metadata by id. Not-found is a user-visible
// condition at session creation; it is worth an error, not a bool.
type Source interface {
	// Load returns the scenario for id, or ErrNotFound.
	Load(ctx context.Context, scenarioID string) (model.Scenario, error)

	// List returns all known scenario ids, sorted.
	List(ctx context.Context) []string
}

// Catalog implements Source over an in-memory map, seeded from a YAML
// directory and/or the built-in demo scenario.
type Catalog struct {
	mu        sync.RWMutex
	scenarios map[string]model.Scenario
}

// Option applies a configuration option while building a Catalog.
type Option func(*catalogConfig)

type catalogConfig struct {
	dir         string
	extra       []model.Scenario
	includeDemo bool
}

// WithDir loads every *.yaml / *.yml scenario file under dir.
func WithDir(dir string) Option {
	return func(c *catalogConfig) {
		c.dir = dir
	}
}

// WithScenario seeds the catalog with an already-built scenario.
func WithScenario(s model.Scenario) Option {
	return func(c *catalogConfig) {
		c.extra = append(c.extra, s)
	}
}

// WithBuiltinDemo seeds the catalog with the built-in demo scenario.
func WithBuiltinDemo() Option {
	return func(c *catalogConfig) {
		c.includeDemo = true
	}
}

// NewCatalog builds a catalog from the given options. Every loaded scenario
// is validated; an invalid authored scenario fails construction rather than
// surfacing later as a broken session.
func NewCatalog(opts ...Option) (*Catalog, error) {
	var cfg catalogConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	cat := &Catalog{scenarios: make(map[string]model.Scenario)}

	if cfg.includeDemo {
		cat.scenarios[demoScenario.ID] = demoScenario
	}

	for _, s := range cfg.extra {
		if err := Validate(s); err != nil {
			return nil, fmt.Errorf("scenario %q: %w", s.ID, err)
		}
		cat.scenarios[s.ID] = s
	}

	if cfg.dir != "" {
		if err := cat.loadDir(cfg.dir); err != nil {
			return nil, err
		}
	}

	return cat, nil
}

// loadDir reads every YAML scenario file in dir into the catalog.
func (c *Catalog) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLoadCatalog, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		k := koanf.New(".")
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrLoadCatalog, path, err)
		}

		var s model.Scenario
		if err := k.UnmarshalWithConf("", &s, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrLoadCatalog, path, err)
		}
		if err := Validate(s); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		c.scenarios[s.ID] = s
	}

	return nil
}

// Load implements Source.Load.
func (c *Catalog) Load(_ context.Context, scenarioID string) (model.Scenario, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.scenarios[scenarioID]
	if !ok {
		return model.Scenario{}, fmt.Errorf("%w: %s", ErrNotFound, scenarioID)
	}
	return s, nil
}

// List implements Source.List.
func (c *Catalog) List(_ context.Context) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := make([]string, 0, len(c.scenarios))
	for id := range c.scenarios {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// demoScenario ships with the binary so the service is usable without an
// authored catalog.
var demoScenario = model.Scenario{
	ID:             "scn_demo_forearm",
	Title:          "Left forearm surgical wound",
	PatientHistory: "John Doe, 45. Post-operative day 3 after forearm surgery; reports mild pain at the incision site.",
	WoundDetails:   "5 cm closed surgical incision on the left forearm, mild erythema at the edges, no discharge.",
	ConversationPoints: []string{
		"pain location",
		"pain duration",
		"allergies",
		"current medication",
	},
	Questions: []model.MCQ{
		{
			Question:      "What is the most appropriate first step before touching the wound?",
			Options:       []string{"A. Hand hygiene", "B. Apply dressing", "C. Remove sutures"},
			CorrectAnswer: "A",
			Points:        10,
		},
		{
			Question:      "Which finding suggests early infection?",
			Options:       []string{"A. Dry wound edges", "B. Spreading erythema and warmth", "C. Intact sutures"},
			CorrectAnswer: "B",
			Points:        10,
		},
	},
	Criteria: map[string]model.StageCriteria{
		"history":    {RequiredPoints: []string{"pain location", "pain duration"}, Weight: 0.2},
		"assessment": {RequiredPoints: []string{"wound size", "wound depth", "signs of infection"}, Weight: 0.3},
		"cleaning":   {RequiredPoints: []string{"hand hygiene", "aseptic technique"}, Weight: 0.3},
		"dressing":   {RequiredPoints: []string{"dressing selection", "secure fixation"}, Weight: 0.2},
	},
	VectorNamespace: "woundcare-demo",
	CreatedBy:       "woundsim",
}
