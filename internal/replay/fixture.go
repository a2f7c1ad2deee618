package replay

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/twin-engine/internal/classify"
)

// #region fixture-types

// Fixture is the top-level YAML structure for a scenario file.
type Fixture struct {
	Description string            `yaml:"description"`
	Thresholds  *FixtureThresholds `yaml:"thresholds,omitempty"`
	Scenarios   []Scenario        `yaml:"scenarios"`
}

// FixtureThresholds overrides the classification cut points for every scenario.
type FixtureThresholds struct {
	OptimalMin   int `yaml:"optimal_min"`
	AttentionMin int `yaml:"attention_min"`
}

// Scenario is one input vector and the result it must produce.
// Unset factors keep their defaults. Rejected inputs are applied first and
// must each fail with an invalid-input error.
type Scenario struct {
	Name     string             `yaml:"name"`
	Inputs   map[string]float64 `yaml:"inputs"`
	Rejected map[string]float64 `yaml:"rejected,omitempty"`
	Expect   Expectation        `yaml:"expect"`
}

// Expectation is the asserted outcome of a scenario's run.
// Contributions is optional and checked per listed factor.
type Expectation struct {
	Impact        int            `yaml:"impact"`
	Label         string         `yaml:"label"`
	Status        string         `yaml:"status"`
	Contributions map[string]int `yaml:"contributions,omitempty"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and validates a YAML fixture file.
func LoadFixture(path string) (Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("read fixture: %w", err)
	}
	return ParseFixture(data)
}

// ParseFixture decodes and validates fixture YAML.
func ParseFixture(data []byte) (Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Fixture{}, fmt.Errorf("parse fixture: %w", err)
	}
	if err := f.Validate(); err != nil {
		return Fixture{}, err
	}
	return f, nil
}

// Validate checks structural requirements the YAML decoder cannot.
func (f Fixture) Validate() error {
	if len(f.Scenarios) == 0 {
		return fmt.Errorf("fixture has no scenarios")
	}
	seen := make(map[string]bool, len(f.Scenarios))
	for i, sc := range f.Scenarios {
		if sc.Name == "" {
			return fmt.Errorf("scenario %d: missing name", i)
		}
		if seen[sc.Name] {
			return fmt.Errorf("scenario %q: duplicate name", sc.Name)
		}
		seen[sc.Name] = true
		if _, err := classify.ParseStatus(sc.Expect.Status); err != nil {
			return fmt.Errorf("scenario %q: %w", sc.Name, err)
		}
	}
	if f.Thresholds != nil {
		if err := f.thresholds().Validate(); err != nil {
			return fmt.Errorf("thresholds: %w", err)
		}
	}
	return nil
}

func (f Fixture) thresholds() classify.Thresholds {
	if f.Thresholds == nil {
		return classify.DefaultThresholds()
	}
	return classify.Thresholds{
		OptimalMin:   f.Thresholds.OptimalMin,
		AttentionMin: f.Thresholds.AttentionMin,
	}
}

// #endregion fixture-loader
