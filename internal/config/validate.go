package config

import (
	"fmt"

	"github.com/AndreyAkinshin/utrun/internal/suite"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks rules the schema cannot express.
func Validate(cfg *File) error {
	return validateSuites(cfg.Suites)
}

func validateSuites(suites []SuiteConfig) error {
	seen := make(map[string]int, len(suites))
	for i, s := range suites {
		if j, dup := seen[s.ID]; dup {
			return &ValidationError{
				Field:   fmt.Sprintf("suites[%d].id", i),
				Message: fmt.Sprintf("duplicate id %q (first defined at suites[%d])", s.ID, j),
			}
		}
		seen[s.ID] = i
	}
	return nil
}

// Registry builds the suite registry described by the configuration.
func (f *File) Registry() (*suite.Registry, error) {
	descriptors := make([]suite.Descriptor, len(f.Suites))
	for i, s := range f.Suites {
		descriptors[i] = suite.Descriptor{ID: s.ID, Name: s.Name, Path: s.Path}
	}
	return suite.NewRegistry(descriptors)
}
