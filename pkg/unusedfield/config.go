package unusedfield

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	yaml "gopkg.in/yaml.v3"

	"github.com/715d/unusedfield/pkg/phpast"
)

// DefaultConfigFile is the configuration file picked up from the working directory.
const DefaultConfigFile = ".unusedfield.yaml"

// Config is the per-run rule configuration.
type Config struct {
	// Enabled turns the rule on. A disabled rule reports nothing.
	Enabled bool `yaml:"enabled"`

	// Visibilities lists the field visibilities eligible for the check.
	Visibilities []phpast.Visibility `yaml:"visibilities"`

	// IncludeClosures counts field accesses inside closures declared in the class.
	IncludeClosures bool `yaml:"include_closures"`

	// SkipManaged leaves out fields carrying framework attributes or annotations.
	// Off by default: an unreferenced managed field is still reported.
	SkipManaged bool `yaml:"skip_managed"`

	// Exclude holds glob patterns of files to leave out of the analysis.
	Exclude []string `yaml:"exclude"`

	// Workers bounds the number of files analyzed concurrently. Zero means one per CPU.
	Workers int `yaml:"workers"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Enabled:         true,
		Visibilities:    []phpast.Visibility{phpast.VisibilityPrivate},
		IncludeClosures: true,
		SkipManaged:     false,
	}
}

// LoadConfig reads a YAML configuration file. Keys missing from the file keep
// their default values.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes a YAML configuration over the defaults.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) isZero() bool {
	return !c.Enabled && c.Visibilities == nil && !c.IncludeClosures && !c.SkipManaged &&
		c.Exclude == nil && c.Workers == 0
}

// Validate checks the configuration for values the analyzer cannot use.
func (c Config) Validate() error {
	if c.Enabled && len(c.Visibilities) == 0 {
		return fmt.Errorf("invalid config: no eligible visibilities")
	}
	if c.Workers < 0 {
		return fmt.Errorf("invalid config: workers must not be negative, got %d", c.Workers)
	}
	for _, v := range c.Visibilities {
		if v < phpast.VisibilityPublic || v > phpast.VisibilityPrivate {
			return fmt.Errorf("invalid config: unknown visibility %d", int(v))
		}
	}
	return nil
}
