package dataset

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Key is the composite row key shared by all relations: the site a row
// belongs to and the entity (process, storage, commodity) it describes.
type Key struct {
	Site   string
	Entity string
}

func (k Key) String() string {
	return fmt.Sprintf("(%s, %s)", k.Site, k.Entity)
}

// Cell is a single relation cell: a numeric attribute (capacity bound, cost
// coefficient) or a categorical one (commodity name, on/off flag).
type Cell struct {
	Num    decimal.Decimal
	Text   string
	IsText bool
}

// Num returns a numeric cell
func Num(d decimal.Decimal) Cell {
	return Cell{Num: d}
}

// NumFloat returns a numeric cell from a float value
func NumFloat(f float64) Cell {
	return Cell{Num: decimal.NewFromFloat(f)}
}

// Text returns a categorical cell
func Text(s string) Cell {
	return Cell{Text: s, IsText: true}
}

// Equal reports whether two cells hold the same value
func (c Cell) Equal(other Cell) bool {
	if c.IsText != other.IsText {
		return false
	}
	if c.IsText {
		return c.Text == other.Text
	}
	return c.Num.Equal(other.Num)
}

func (c Cell) String() string {
	if c.IsText {
		return c.Text
	}
	return c.Num.String()
}

// Float returns the numeric cell value as a float64. Text cells yield 0.
func (c Cell) Float() float64 {
	if c.IsText {
		return 0
	}
	f, _ := c.Num.Float64()
	return f
}

// Relation is one named table of the dataset, keyed by (site, entity).
// The key set is owned by the baseline input: cells of existing rows may be
// rewritten, rows are never inserted or deleted after loading.
type Relation struct {
	Name    string
	columns []string
	keys    []Key
	rows    map[Key]map[string]Cell
}

// NewRelation creates an empty relation with the given column set
func NewRelation(name string, columns []string) *Relation {
	return &Relation{
		Name:    name,
		columns: append([]string(nil), columns...),
		rows:    make(map[Key]map[string]Cell),
	}
}

// AddRow inserts a row during loading. Duplicate keys are rejected.
func (r *Relation) AddRow(key Key, values map[string]Cell) error {
	if _, exists := r.rows[key]; exists {
		return fmt.Errorf("relation %s: duplicate key %s", r.Name, key)
	}
	row := make(map[string]Cell, len(r.columns))
	for col, v := range values {
		if !r.HasColumn(col) {
			return fmt.Errorf("relation %s: unknown column %q for key %s", r.Name, col, key)
		}
		row[col] = v
	}
	r.rows[key] = row
	r.keys = append(r.keys, key)
	return nil
}

// Columns returns the column names in declaration order
func (r *Relation) Columns() []string {
	return append([]string(nil), r.columns...)
}

// HasColumn reports whether the relation declares the column
func (r *Relation) HasColumn(col string) bool {
	for _, c := range r.columns {
		if c == col {
			return true
		}
	}
	return false
}

// Keys returns the row keys in load order
func (r *Relation) Keys() []Key {
	return append([]Key(nil), r.keys...)
}

// HasKey reports whether the relation holds a row for the key
func (r *Relation) HasKey(key Key) bool {
	_, ok := r.rows[key]
	return ok
}

// Len returns the number of rows
func (r *Relation) Len() int {
	return len(r.keys)
}

// Get returns the cell at (key, column). Missing cells on an existing row
// yield a zero numeric cell.
func (r *Relation) Get(key Key, column string) (Cell, error) {
	row, ok := r.rows[key]
	if !ok {
		return Cell{}, &MissingKeyError{Relation: r.Name, Key: key}
	}
	if !r.HasColumn(column) {
		return Cell{}, &MissingColumnError{Relation: r.Name, Column: column}
	}
	return row[column], nil
}

// Set rewrites the cell at (key, column). It fails loudly when the key or
// column does not already exist: edits never insert rows.
func (r *Relation) Set(key Key, column string, value Cell) error {
	row, ok := r.rows[key]
	if !ok {
		return &MissingKeyError{Relation: r.Name, Key: key}
	}
	if !r.HasColumn(column) {
		return &MissingColumnError{Relation: r.Name, Column: column}
	}
	row[column] = value
	return nil
}

// Clone returns a deep copy of the relation
func (r *Relation) Clone() *Relation {
	clone := &Relation{
		Name:    r.Name,
		columns: append([]string(nil), r.columns...),
		keys:    append([]Key(nil), r.keys...),
		rows:    make(map[Key]map[string]Cell, len(r.rows)),
	}
	for key, row := range r.rows {
		rowCopy := make(map[string]Cell, len(row))
		for col, v := range row {
			rowCopy[col] = v
		}
		clone.rows[key] = rowCopy
	}
	return clone
}

// SeriesTable holds one named family of time series, keyed by
// (site, commodity): demand profiles, intermittent supply factors.
type SeriesTable struct {
	Name string
	keys []Key
	rows map[Key][]float64
}

// NewSeriesTable creates an empty series table
func NewSeriesTable(name string) *SeriesTable {
	return &SeriesTable{Name: name, rows: make(map[Key][]float64)}
}

// AddSeries inserts a series during loading. Duplicate keys are rejected.
func (s *SeriesTable) AddSeries(key Key, values []float64) error {
	if _, exists := s.rows[key]; exists {
		return fmt.Errorf("series %s: duplicate key %s", s.Name, key)
	}
	s.rows[key] = append([]float64(nil), values...)
	s.keys = append(s.keys, key)
	return nil
}

// Keys returns the series keys in load order
func (s *SeriesTable) Keys() []Key {
	return append([]Key(nil), s.keys...)
}

// Get returns the series for the key
func (s *SeriesTable) Get(key Key) ([]float64, bool) {
	v, ok := s.rows[key]
	return v, ok
}

// Clone returns a deep copy of the series table
func (s *SeriesTable) Clone() *SeriesTable {
	clone := &SeriesTable{
		Name: s.Name,
		keys: append([]Key(nil), s.keys...),
		rows: make(map[Key][]float64, len(s.rows)),
	}
	for key, v := range s.rows {
		clone.rows[key] = append([]float64(nil), v...)
	}
	return clone
}

// Dataset is the full structured input describing the modeled system: named
// relations (process, storage, ...) plus named time-series tables (demand,
// supim). It is loaded once per run and mutated only through cloned copies.
type Dataset struct {
	Name      string
	relations map[string]*Relation
	series    map[string]*SeriesTable
}

// New creates an empty dataset
func New(name string) *Dataset {
	return &Dataset{
		Name:      name,
		relations: make(map[string]*Relation),
		series:    make(map[string]*SeriesTable),
	}
}

// AddRelation attaches a relation to the dataset
func (d *Dataset) AddRelation(r *Relation) error {
	if _, exists := d.relations[r.Name]; exists {
		return fmt.Errorf("dataset %s: duplicate relation %q", d.Name, r.Name)
	}
	d.relations[r.Name] = r
	return nil
}

// AddSeriesTable attaches a series table to the dataset
func (d *Dataset) AddSeriesTable(s *SeriesTable) error {
	if _, exists := d.series[s.Name]; exists {
		return fmt.Errorf("dataset %s: duplicate series table %q", d.Name, s.Name)
	}
	d.series[s.Name] = s
	return nil
}

// Relation returns the named relation
func (d *Dataset) Relation(name string) (*Relation, bool) {
	r, ok := d.relations[name]
	return r, ok
}

// RelationNames returns the relation names, sorted
func (d *Dataset) RelationNames() []string {
	names := make([]string, 0, len(d.relations))
	for name := range d.relations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SeriesTable returns the named series table
func (d *Dataset) SeriesTable(name string) (*SeriesTable, bool) {
	s, ok := d.series[name]
	return s, ok
}

// SeriesNames returns the series table names, sorted
func (d *Dataset) SeriesNames() []string {
	names := make([]string, 0, len(d.series))
	for name := range d.series {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a deep copy of the dataset. Scenario transforms apply to a
// clone, so a failed transform leaves the baseline untouched.
func (d *Dataset) Clone() *Dataset {
	clone := New(d.Name)
	for name, r := range d.relations {
		clone.relations[name] = r.Clone()
	}
	for name, s := range d.series {
		clone.series[name] = s.Clone()
	}
	return clone
}

// Validate runs structural checks over the dataset: required relations are
// present, every series belongs to a known site, and every series is long
// enough to cover the requested number of timesteps.
func (d *Dataset) Validate(steps int) error {
	var problems []string

	pro, ok := d.relations["process"]
	if !ok || pro.Len() == 0 {
		problems = append(problems, "relation process is missing or empty")
	}

	sites := make(map[string]bool)
	for _, r := range d.relations {
		for _, key := range r.keys {
			sites[key.Site] = true
		}
	}

	for _, name := range d.SeriesNames() {
		table := d.series[name]
		for _, key := range table.keys {
			if !sites[key.Site] {
				problems = append(problems, fmt.Sprintf(
					"series %s: site %q not present in any relation", name, key.Site))
			}
			if len(table.rows[key]) < steps {
				problems = append(problems, fmt.Sprintf(
					"series %s %s: %d values, horizon needs %d",
					name, key, len(table.rows[key]), steps))
			}
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Dataset: d.Name, Problems: problems}
	}
	return nil
}

// MissingKeyError reports an edit or lookup addressing a (site, entity) pair
// that does not exist in the relation.
type MissingKeyError struct {
	Relation string
	Key      Key
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("relation %s has no row %s", e.Relation, e.Key)
}

// MissingColumnError reports an edit or lookup addressing an undeclared column
type MissingColumnError struct {
	Relation string
	Column   string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("relation %s has no column %q", e.Relation, e.Column)
}

// ValidationError reports structural inconsistencies found after scenario
// application. A dataset that fails validation must not reach model build.
type ValidationError struct {
	Dataset  string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("dataset %s failed validation: %s",
		e.Dataset, strings.Join(e.Problems, "; "))
}
