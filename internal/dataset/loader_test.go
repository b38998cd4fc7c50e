package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const villageYAML = `apiVersion: gridplane.io/v1
kind: Dataset
metadata:
  name: Village
relations:
  process:
    columns: [commodity, cap-up, var-cost, supim]
    rows:
      - site: Village
        entity: Photovoltaics
        values:
          commodity: Elec
          cap-up: 80
          var-cost: 0
          supim: Solar
  storage:
    columns: [commodity, cap-up-c]
    rows:
      - site: Village
        entity: Battery
        values:
          commodity: Elec
          cap-up-c: 50
series:
  demand:
    - site: Village
      commodity: Elec
      values: [10, 12, 14, 12]
`

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_ReadsDatasetDocument(t *testing.T) {
	ds, err := Load(writeTemp(t, "village.yaml", villageYAML))
	require.NoError(t, err)

	assert.Equal(t, "Village", ds.Name)
	assert.Equal(t, []string{"process", "storage"}, ds.RelationNames())

	pro, ok := ds.Relation("process")
	require.True(t, ok)

	cell, err := pro.Get(Key{"Village", "Photovoltaics"}, "cap-up")
	require.NoError(t, err)
	assert.True(t, cell.Num.Equal(decimal.NewFromInt(80)))

	supim, err := pro.Get(Key{"Village", "Photovoltaics"}, "supim")
	require.NoError(t, err)
	assert.True(t, supim.IsText)
	assert.Equal(t, "Solar", supim.Text)

	dem, ok := ds.SeriesTable("demand")
	require.True(t, ok)
	values, ok := dem.Get(Key{"Village", "Elec"})
	require.True(t, ok)
	assert.Equal(t, []float64{10, 12, 14, 12}, values)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)

	var le *LoadError
	require.True(t, errors.As(err, &le))
}

func TestLoad_MalformedYAML(t *testing.T) {
	_, err := Load(writeTemp(t, "broken.yaml", "relations: ["))
	require.Error(t, err)

	var le *LoadError
	require.True(t, errors.As(err, &le))
}

func TestLoad_RejectsWrongKind(t *testing.T) {
	doc := `apiVersion: gridplane.io/v1
kind: RunConfig
metadata:
  name: wrong
relations: {}
`
	_, err := Load(writeTemp(t, "wrong.yaml", doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema validation failed")
}

func TestLoad_RejectsRowWithoutSite(t *testing.T) {
	doc := `apiVersion: gridplane.io/v1
kind: Dataset
metadata:
  name: broken
relations:
  process:
    columns: [cap-up]
    rows:
      - entity: Photovoltaics
        values:
          cap-up: 80
`
	_, err := Load(writeTemp(t, "nosite.yaml", doc))
	require.Error(t, err)
}
