package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/kwsearch/internal/engine"
	"github.com/roach88/kwsearch/internal/tupleset"
)

// Scenario defines one end-to-end search test.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema is the path to a CUE schema file, relative to the scenario
	// file location.
	Schema string `yaml:"schema,omitempty"`

	// SchemaInline is CUE schema source. Exactly one of Schema and
	// SchemaInline is set.
	SchemaInline string `yaml:"schema_inline,omitempty"`

	// Rows seeds the database, keyed by table name.
	Rows map[string][]map[string]any `yaml:"rows"`

	// Query is the keyword query text.
	Query string `yaml:"query"`

	// Semantics is "and" or "or". Empty means "or".
	Semantics string `yaml:"semantics,omitempty"`

	// K is the number of results. Zero means engine.DefaultK.
	K int `yaml:"k,omitempty"`

	// MaxSize bounds candidate networks. Zero means the generator default.
	MaxSize int `yaml:"max_size,omitempty"`

	// Restrict is "ids" or "match". Empty means "ids".
	Restrict string `yaml:"restrict,omitempty"`

	Expect Expect `yaml:"expect"`

	// Golden enables snapshot comparison in RunWithGolden.
	Golden bool `yaml:"golden,omitempty"`
}

// Expect lists the checks applied to a run. Nil fields are not checked.
type Expect struct {
	Networks *int  `yaml:"networks,omitempty"`
	Executed *int  `yaml:"executed,omitempty"`
	Complete *bool `yaml:"complete,omitempty"`

	// Count is the exact number of results.
	Count *int `yaml:"count,omitempty"`

	// Results are matched against the top results in rank order.
	Results []ExpectedResult `yaml:"results,omitempty"`

	// Ordered checks that scores never increase with rank.
	Ordered bool `yaml:"ordered,omitempty"`
}

// ExpectedResult describes one ranked result.
type ExpectedResult struct {
	// Rows is the multiset of "table:id" references the result joins.
	Rows []string `yaml:"rows"`

	// Size is the network node count. Zero skips the check.
	Size int `yaml:"size,omitempty"`

	// MinScore is a lower bound on the score. Zero skips the check.
	MinScore float64 `yaml:"min_score,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// A relative schema path is resolved against the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.Schema != "" && !filepath.IsAbs(scenario.Schema) {
		scenario.Schema = filepath.Join(filepath.Dir(path), scenario.Schema)
	}
	if scenario.Schema != "" {
		if _, err := os.Stat(scenario.Schema); os.IsNotExist(err) {
			return nil, fmt.Errorf("invalid scenario: schema file not found: %s", scenario.Schema)
		}
	}
	return scenario, nil
}

// ParseScenario decodes scenario YAML with strict field validation.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if (s.Schema == "") == (s.SchemaInline == "") {
		return fmt.Errorf("exactly one of schema and schema_inline is required")
	}
	if strings.TrimSpace(s.Query) == "" {
		return fmt.Errorf("query is required")
	}
	if _, err := s.semantics(); err != nil {
		return err
	}
	if _, err := engine.ParseRestriction(s.Restrict); err != nil {
		return err
	}
	if s.K < 0 {
		return fmt.Errorf("k must be non-negative")
	}
	if s.MaxSize < 0 {
		return fmt.Errorf("max_size must be non-negative")
	}

	for i, r := range s.Expect.Results {
		for _, ref := range r.Rows {
			if _, _, err := parseRowRef(ref); err != nil {
				return fmt.Errorf("expect.results[%d]: %w", i, err)
			}
		}
	}
	return nil
}

func (s *Scenario) semantics() (tupleset.Semantics, error) {
	if s.Semantics == "" {
		return tupleset.Or, nil
	}
	return tupleset.ParseSemantics(s.Semantics)
}
