// Package schema checks utrun configuration documents against the embedded
// JSON schema.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	schemafs "github.com/AndreyAkinshin/utrun/schema"
)

// ConfigSchema is the resource name of the configuration schema.
const ConfigSchema = "config.schema.json"

// configSchema is compiled on first use and shared afterwards.
var configSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	f, err := schemafs.FS.Open(ConfigSchema)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	doc, err := jsonschema.UnmarshalJSON(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", ConfigSchema, err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(ConfigSchema, doc); err != nil {
		return nil, err
	}
	return c.Compile(ConfigSchema)
})

// ValidateConfig validates a JSON-encoded configuration.
func ValidateConfig(data []byte) error {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	sch, err := configSchema()
	if err != nil {
		return fmt.Errorf("load configuration schema: %w", err)
	}
	if err := sch.Validate(doc); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// ValidateDocument validates a decoded document, typically YAML decoded
// into maps and slices. It is re-encoded as JSON so that numbers reach the
// validator in the form it expects.
func ValidateDocument(doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	return ValidateConfig(data)
}
