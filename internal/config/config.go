// Package config provides loading and validation of utrun.yaml and the
// per-invocation run configuration derived from it.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	runerrors "github.com/AndreyAkinshin/utrun/internal/errors"
	"github.com/AndreyAkinshin/utrun/internal/schema"
)

// File represents the complete utrun.yaml configuration.
type File struct {
	Suites       []SuiteConfig     `yaml:"suites,omitempty"`
	BuildDefines []string          `yaml:"build_defines,omitempty"`
	Environment  map[string]string `yaml:"environment,omitempty"`
	EnvFile      string            `yaml:"env_file,omitempty"`
	Coverage     *CoverageConfig   `yaml:"coverage,omitempty"`
	Memcheck     *MemcheckConfig   `yaml:"memcheck,omitempty"`
}

// SuiteConfig defines one registry entry.
type SuiteConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

// CoverageConfig configures lcov capture and the comparison policy.
type CoverageConfig struct {
	Excludes  []string `yaml:"excludes,omitempty"`
	Filters   []string `yaml:"filters,omitempty"`
	ReportDir string   `yaml:"report_dir,omitempty"`
	Policy    string   `yaml:"policy,omitempty"`
}

// MemcheckConfig configures the memory-checking instrumentation tool.
type MemcheckConfig struct {
	Tool         string `yaml:"tool,omitempty"`
	Suppressions string `yaml:"suppressions,omitempty"`
	ReportName   string `yaml:"report_name,omitempty"`
	MinVersion   string `yaml:"min_version,omitempty"`
}

// Load reads, validates and applies defaults to a utrun.yaml file.
// The returned warnings describe ignored unknown fields.
func Load(path string) (*File, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, configError(fmt.Errorf("failed to read config file: %w", err))
	}
	cfg, warnings, err := Parse(data)
	if err != nil {
		return nil, warnings, configError(fmt.Errorf("%s: %w", path, err))
	}
	return cfg, warnings, nil
}

// configError marks err as a configuration error, keeping it unwrappable.
func configError(err error) error {
	return &runerrors.RunError{Kind: runerrors.KindConfig, Message: err.Error(), Cause: err}
}

// Parse decodes configuration data, checks it against the embedded schema
// and the semantic rules, and applies defaults.
func Parse(data []byte) (*File, []string, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if doc == nil {
		// Empty file: all defaults.
		doc = map[string]any{}
	}
	if err := schema.ValidateDocument(doc); err != nil {
		return nil, nil, err
	}

	var cfg File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	warnings := unknownRootKeys(doc)

	if err := Validate(&cfg); err != nil {
		return nil, warnings, err
	}

	applyDefaults(&cfg)
	return &cfg, warnings, nil
}

// Default returns a configuration with every default applied, used when no
// utrun.yaml exists.
func Default() *File {
	cfg := &File{}
	applyDefaults(cfg)
	return cfg
}
