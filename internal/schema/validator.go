package schema

import (
	"embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schemas/*.schema.yaml
var schemaFS embed.FS

// Validator handles JSON schema validation for the document kinds gridrun
// reads: run configurations and datasets.
type Validator struct {
	runConfigSchema *jsonschema.Schema
	datasetSchema   *jsonschema.Schema
}

// NewValidator compiles the embedded schemas
func NewValidator() (*Validator, error) {
	v := &Validator{}

	runConfigSchema, err := loadSchema("schemas/runconfig.schema.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to load run config schema: %w", err)
	}
	v.runConfigSchema = runConfigSchema

	datasetSchema, err := loadSchema("schemas/dataset.schema.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset schema: %w", err)
	}
	v.datasetSchema = datasetSchema

	return v, nil
}

// ValidateRunConfig validates a run config document against the schema
func (v *Validator) ValidateRunConfig(data interface{}) error {
	if v.runConfigSchema == nil {
		return fmt.Errorf("run config schema not loaded")
	}
	return v.runConfigSchema.Validate(data)
}

// ValidateDataset validates a dataset document against the schema
func (v *Validator) ValidateDataset(data interface{}) error {
	if v.datasetSchema == nil {
		return fmt.Errorf("dataset schema not loaded")
	}
	return v.datasetSchema.Validate(data)
}

// JSONValue rewrites a YAML-decoded document into the JSON type system the
// compiled schemas validate against (float64 numbers, map[string]interface{}).
func JSONValue(doc interface{}) (interface{}, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}

	var out interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document: %w", err)
	}

	return out, nil
}

// loadSchema loads and compiles an embedded schema file (YAML or JSON)
func loadSchema(path string) (*jsonschema.Schema, error) {
	data, err := schemaFS.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}

	// Parse YAML to interface{} (supports both YAML and JSON)
	var schemaData interface{}
	if err := yaml.Unmarshal(data, &schemaData); err != nil {
		return nil, fmt.Errorf("failed to parse schema file: %w", err)
	}

	// Convert to JSON for schema compiler
	jsonData, err := json.Marshal(schemaData)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}

	schema, err := jsonschema.CompileString(path, string(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	return schema, nil
}
