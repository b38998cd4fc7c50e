package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridplane/gridrun/internal/model"
)

type fakeSolved struct {
	status model.SolveStatus
	series map[model.SiteCommodity]model.TimeSeries
	cost   decimal.Decimal
}

func (f *fakeSolved) Created() time.Time        { return time.Time{} }
func (f *fakeSolved) Horizon() model.Horizon    { return model.Horizon{Offset: 0, Length: 2, DT: 1} }
func (f *fakeSolved) Status() model.SolveStatus { return f.status }
func (f *fakeSolved) HasValues() bool           { return true }
func (f *fakeSolved) TotalCost() decimal.Decimal {
	return f.cost
}

func (f *fakeSolved) Series(sc model.SiteCommodity) (model.TimeSeries, bool) {
	ts, ok := f.series[sc]
	return ts, ok
}

func (f *fakeSolved) Tuples() []model.SiteCommodity {
	tuples := make([]model.SiteCommodity, 0, len(f.series))
	for sc := range f.series {
		tuples = append(tuples, sc)
	}
	return tuples
}

func solvedFixture() *fakeSolved {
	return &fakeSolved{
		status: model.StatusOptimal,
		cost:   decimal.NewFromFloat(42.5),
		series: map[model.SiteCommodity]model.TimeSeries{
			{Site: "Village", Commodity: "Elec"}: {
				Steps:   []int{0, 1, 2},
				Demand:  []float64{10, 12, 14},
				Supply:  []float64{10, 12, 14},
				Storage: []float64{5, 3, 1},
			},
		},
	}
}

func TestCSVReporter_WritesSelectedTuples(t *testing.T) {
	r := NewCSVReporter()
	assert.Equal(t, "csv", r.Ext())

	path := filepath.Join(t.TempDir(), "base.csv")
	err := r.Write(path, solvedFixture(), []model.SiteCommodity{
		{Site: "Village", Commodity: "Elec"},
	}, nil)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)

	assert.Contains(t, out, "status,optimal")
	assert.Contains(t, out, "total-cost,42.5")
	assert.Contains(t, out, "site,commodity,timestep,demand,supply,storage")
	assert.Contains(t, out, "Village,Elec,0,10,10,5")
	assert.Contains(t, out, "Village,Elec,2,14,14,1")
}

func TestCSVReporter_SkipsTuplesWithoutSeries(t *testing.T) {
	r := NewCSVReporter()

	path := filepath.Join(t.TempDir(), "base.csv")
	err := r.Write(path, solvedFixture(), []model.SiteCommodity{
		{Site: "Village", Commodity: "Elec"},
		{Site: "Ghost Town", Commodity: "Elec"},
	}, nil)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "Ghost Town")
}

func TestCSVReporter_AppliesSiteDisplayNames(t *testing.T) {
	r := NewCSVReporter()

	path := filepath.Join(t.TempDir(), "base.csv")
	err := r.Write(path, solvedFixture(), []model.SiteCommodity{
		{Site: "Village", Commodity: "Elec"},
	}, map[string]string{"Village": "Mid Village"})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(string(data), "\n")
	var found bool
	for _, line := range lines {
		if strings.HasPrefix(line, "Mid Village,Elec,") {
			found = true
		}
	}
	assert.True(t, found, "display name should replace the raw site name")
}
