package dataset

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/gridplane/gridrun/internal/schema"
)

// document mirrors the on-disk Dataset YAML layout
type document struct {
	APIVersion string              `yaml:"apiVersion"`
	Kind       string              `yaml:"kind"`
	Metadata   metadata            `yaml:"metadata"`
	Relations  map[string]relation `yaml:"relations"`
	Series     map[string][]series `yaml:"series"`
}

type metadata struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

type relation struct {
	Columns []string `yaml:"columns"`
	Rows    []row    `yaml:"rows"`
}

type row struct {
	Site   string                 `yaml:"site"`
	Entity string                 `yaml:"entity"`
	Values map[string]interface{} `yaml:"values"`
}

type series struct {
	Site      string    `yaml:"site"`
	Commodity string    `yaml:"commodity"`
	Values    []float64 `yaml:"values"`
}

// LoadError reports an unreadable or malformed dataset input file. It is
// fatal for the run: nothing downstream can proceed without a baseline.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load dataset %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Load reads a Dataset YAML document, validates it against the embedded
// schema and materializes it.
func Load(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	// Validate the raw document before decoding into typed structs
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("failed to parse YAML: %w", err)}
	}

	validator, err := schema.NewValidator()
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	jsonDoc, err := schema.JSONValue(raw)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	if err := validator.ValidateDataset(jsonDoc); err != nil {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("schema validation failed: %w", err)}
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("failed to decode dataset: %w", err)}
	}

	ds, err := fromDocument(&doc)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return ds, nil
}

func fromDocument(doc *document) (*Dataset, error) {
	ds := New(doc.Metadata.Name)

	for name, rel := range doc.Relations {
		r := NewRelation(name, rel.Columns)
		for _, rw := range rel.Rows {
			values := make(map[string]Cell, len(rw.Values))
			for col, v := range rw.Values {
				cell, err := toCell(v)
				if err != nil {
					return nil, fmt.Errorf("relation %s row (%s, %s) column %s: %w",
						name, rw.Site, rw.Entity, col, err)
				}
				values[col] = cell
			}
			if err := r.AddRow(Key{Site: rw.Site, Entity: rw.Entity}, values); err != nil {
				return nil, err
			}
		}
		if err := ds.AddRelation(r); err != nil {
			return nil, err
		}
	}

	for name, rows := range doc.Series {
		table := NewSeriesTable(name)
		for _, sr := range rows {
			if err := table.AddSeries(Key{Site: sr.Site, Entity: sr.Commodity}, sr.Values); err != nil {
				return nil, err
			}
		}
		if err := ds.AddSeriesTable(table); err != nil {
			return nil, err
		}
	}

	return ds, nil
}

// toCell converts a YAML scalar into a cell value
func toCell(v interface{}) (Cell, error) {
	switch val := v.(type) {
	case int:
		return Num(decimal.NewFromInt(int64(val))), nil
	case int64:
		return Num(decimal.NewFromInt(val)), nil
	case float64:
		return Num(decimal.NewFromFloat(val)), nil
	case string:
		return Text(val), nil
	default:
		return Cell{}, fmt.Errorf("unsupported cell value %v (%T)", v, v)
	}
}
