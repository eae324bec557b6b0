package harness

import (
	"fmt"

	yaml "gopkg.in/yaml.v3"

	"github.com/715d/unusedfield/pkg/unusedfield"
)

// ResolveConfig applies the settings of a test configuration over the
// default rule configuration. The settings go through the same decoder as a
// configuration file, so unknown keys are rejected.
func ResolveConfig(overrides map[string]any) (unusedfield.Config, error) {
	if len(overrides) == 0 {
		return unusedfield.DefaultConfig(), nil
	}
	data, err := yaml.Marshal(overrides)
	if err != nil {
		return unusedfield.Config{}, fmt.Errorf("encode overrides: %w", err)
	}
	return unusedfield.ParseConfig(data)
}
