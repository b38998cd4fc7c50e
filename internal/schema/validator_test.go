package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func decode(t *testing.T, doc string) interface{} {
	t.Helper()
	var raw interface{}
	require.NoError(t, yaml.Unmarshal([]byte(doc), &raw))
	out, err := JSONValue(raw)
	require.NoError(t, err)
	return out
}

func TestValidateRunConfig_Valid(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	doc := decode(t, `
apiVersion: gridplane.io/v1
kind: RunConfig
input: village.yaml
horizon:
  offset: 0
  length: 23
scenarios:
  - name: base
  - name: no_battery
    set:
      - relation: storage
        site: Village
        entity: Battery
        column: cap-up-c
        value: 0
`)
	assert.NoError(t, v.ValidateRunConfig(doc))
}

func TestValidateRunConfig_MissingHorizon(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	doc := decode(t, `
apiVersion: gridplane.io/v1
kind: RunConfig
input: village.yaml
scenarios:
  - name: base
`)
	assert.Error(t, v.ValidateRunConfig(doc))
}

func TestValidateRunConfig_RejectsBadColor(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	doc := decode(t, `
apiVersion: gridplane.io/v1
kind: RunConfig
input: village.yaml
horizon:
  length: 23
scenarios:
  - name: base
plot:
  colors:
    Demand: [0, 0]
`)
	assert.Error(t, v.ValidateRunConfig(doc))
}

func TestValidateDataset_Valid(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	doc := decode(t, `
apiVersion: gridplane.io/v1
kind: Dataset
metadata:
  name: Village
relations:
  process:
    columns: [cap-up]
    rows:
      - site: Village
        entity: Photovoltaics
        values:
          cap-up: 80
`)
	assert.NoError(t, v.ValidateDataset(doc))
}

func TestValidateDataset_WrongKind(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	doc := decode(t, `
apiVersion: gridplane.io/v1
kind: Plan
relations:
  process:
    columns: [cap-up]
    rows: []
`)
	assert.Error(t, v.ValidateDataset(doc))
}
