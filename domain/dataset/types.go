package dataset

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"bizmetrics/domain/core"
)

// SemanticType is the caller-declared meaning of a column. The analytics core
// trusts it and never re-infers types.
type SemanticType string

const (
	TypeNumeric  SemanticType = "numeric"
	TypeCurrency SemanticType = "currency"
	TypeDate     SemanticType = "date"
	TypeCategory SemanticType = "category"
	TypeBoolean  SemanticType = "boolean"
)

func (t SemanticType) String() string { return string(t) }

// IsNumeric reports whether values are stored as float64
func (t SemanticType) IsNumeric() bool {
	return t == TypeNumeric || t == TypeCurrency
}

// Valid reports whether t is one of the known semantic types
func (t SemanticType) Valid() bool {
	switch t {
	case TypeNumeric, TypeCurrency, TypeDate, TypeCategory, TypeBoolean:
		return true
	}
	return false
}

// Column is a named, typed, contiguous buffer of values.
//
// Missing cells: NaN for numeric/currency, the zero time for dates and the
// empty string for categories. Booleans have no missing marker.
type Column struct {
	name    string
	typ     SemanticType
	numbers []float64
	dates   []time.Time
	texts   []string
	bools   []bool
}

// NumericColumn builds a numeric column
func NumericColumn(name string, values []float64) *Column {
	return &Column{name: name, typ: TypeNumeric, numbers: append([]float64(nil), values...)}
}

// CurrencyColumn builds a monetary column
func CurrencyColumn(name string, values []float64) *Column {
	return &Column{name: name, typ: TypeCurrency, numbers: append([]float64(nil), values...)}
}

// DateColumn builds a date column
func DateColumn(name string, values []time.Time) *Column {
	return &Column{name: name, typ: TypeDate, dates: append([]time.Time(nil), values...)}
}

// CategoryColumn builds a categorical column
func CategoryColumn(name string, values []string) *Column {
	return &Column{name: name, typ: TypeCategory, texts: append([]string(nil), values...)}
}

// BooleanColumn builds a boolean column
func BooleanColumn(name string, values []bool) *Column {
	return &Column{name: name, typ: TypeBoolean, bools: append([]bool(nil), values...)}
}

func (c *Column) Name() string       { return c.name }
func (c *Column) Type() SemanticType { return c.typ }

// Len returns the number of cells
func (c *Column) Len() int {
	switch c.typ {
	case TypeNumeric, TypeCurrency:
		return len(c.numbers)
	case TypeDate:
		return len(c.dates)
	case TypeCategory:
		return len(c.texts)
	case TypeBoolean:
		return len(c.bools)
	}
	return 0
}

// IsMissing reports whether the cell at row carries no value
func (c *Column) IsMissing(row int) bool {
	switch c.typ {
	case TypeNumeric, TypeCurrency:
		return math.IsNaN(c.numbers[row])
	case TypeDate:
		return c.dates[row].IsZero()
	case TypeCategory:
		return c.texts[row] == ""
	}
	return false
}

func (c *Column) subset(rows []int) *Column {
	out := &Column{name: c.name, typ: c.typ}
	switch c.typ {
	case TypeNumeric, TypeCurrency:
		out.numbers = make([]float64, len(rows))
		for i, r := range rows {
			out.numbers[i] = c.numbers[r]
		}
	case TypeDate:
		out.dates = make([]time.Time, len(rows))
		for i, r := range rows {
			out.dates[i] = c.dates[r]
		}
	case TypeCategory:
		out.texts = make([]string, len(rows))
		for i, r := range rows {
			out.texts[i] = c.texts[r]
		}
	case TypeBoolean:
		out.bools = make([]bool, len(rows))
		for i, r := range rows {
			out.bools[i] = c.bools[r]
		}
	}
	return out
}

// Dataset is a rectangular table of named columns with positional rows. It is
// immutable once built: accessors return copies and Filter returns a new Dataset.
type Dataset struct {
	columns []*Column
	index   map[string]int
	rows    int
}

// New assembles a dataset, rejecting duplicate names, unknown types and ragged columns.
func New(columns ...*Column) (*Dataset, error) {
	ds := &Dataset{index: make(map[string]int, len(columns))}
	for i, col := range columns {
		if col == nil || col.name == "" {
			return nil, fmt.Errorf("column %d has no name", i)
		}
		if !col.typ.Valid() {
			return nil, fmt.Errorf("column %s has unknown type %q", col.name, col.typ)
		}
		if _, dup := ds.index[col.name]; dup {
			return nil, fmt.Errorf("duplicate column %s", col.name)
		}
		if i == 0 {
			ds.rows = col.Len()
		} else if col.Len() != ds.rows {
			return nil, fmt.Errorf("column %s has %d rows, want %d", col.name, col.Len(), ds.rows)
		}
		ds.index[col.name] = i
		ds.columns = append(ds.columns, col)
	}
	return ds, nil
}

// MustNew is New for fixtures; it panics on error.
func MustNew(columns ...*Column) *Dataset {
	ds, err := New(columns...)
	if err != nil {
		panic(err)
	}
	return ds
}

// Len returns the row count
func (d *Dataset) Len() int { return d.rows }

// ColumnNames returns column names in declaration order
func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.columns))
	for i, c := range d.columns {
		names[i] = c.name
	}
	return names
}

// Has reports whether the named column exists
func (d *Dataset) Has(name string) bool {
	_, ok := d.index[name]
	return ok
}

// Column returns the named column
func (d *Dataset) Column(name string) (*Column, bool) {
	i, ok := d.index[name]
	if !ok {
		return nil, false
	}
	return d.columns[i], true
}

// Type returns the declared semantic type of the named column
func (d *Dataset) Type(name string) (SemanticType, bool) {
	c, ok := d.Column(name)
	if !ok {
		return "", false
	}
	return c.typ, true
}

// Missing returns the subset of names that are not columns of d, preserving order.
func (d *Dataset) Missing(names []string) []string {
	var missing []string
	for _, n := range names {
		if !d.Has(n) {
			missing = append(missing, n)
		}
	}
	return missing
}

func (d *Dataset) lookup(name string) (*Column, error) {
	c, ok := d.Column(name)
	if !ok {
		return nil, core.NewNotFoundError("column", name)
	}
	return c, nil
}

// Numbers returns a copy of a numeric or currency column
func (d *Dataset) Numbers(name string) ([]float64, error) {
	c, err := d.lookup(name)
	if err != nil {
		return nil, err
	}
	if !c.typ.IsNumeric() {
		return nil, core.NewColumnTypeError(name, TypeNumeric, c.typ)
	}
	return append([]float64(nil), c.numbers...), nil
}

// Dates returns a copy of a date column
func (d *Dataset) Dates(name string) ([]time.Time, error) {
	c, err := d.lookup(name)
	if err != nil {
		return nil, err
	}
	if c.typ != TypeDate {
		return nil, core.NewColumnTypeError(name, TypeDate, c.typ)
	}
	return append([]time.Time(nil), c.dates...), nil
}

// Texts returns a copy of a category column
func (d *Dataset) Texts(name string) ([]string, error) {
	c, err := d.lookup(name)
	if err != nil {
		return nil, err
	}
	if c.typ != TypeCategory {
		return nil, core.NewColumnTypeError(name, TypeCategory, c.typ)
	}
	return append([]string(nil), c.texts...), nil
}

// Bools returns a copy of a boolean column
func (d *Dataset) Bools(name string) ([]bool, error) {
	c, err := d.lookup(name)
	if err != nil {
		return nil, err
	}
	if c.typ != TypeBoolean {
		return nil, core.NewColumnTypeError(name, TypeBoolean, c.typ)
	}
	return append([]bool(nil), c.bools...), nil
}

// Labels renders any column as grouping keys: categories verbatim, numbers
// in shortest form, dates as 2006-01-02 and booleans as true/false. Missing
// cells become "".
func (d *Dataset) Labels(name string) ([]string, error) {
	c, err := d.lookup(name)
	if err != nil {
		return nil, err
	}
	out := make([]string, c.Len())
	for i := range out {
		if c.IsMissing(i) {
			continue
		}
		switch c.typ {
		case TypeNumeric, TypeCurrency:
			out[i] = strconv.FormatFloat(c.numbers[i], 'f', -1, 64)
		case TypeDate:
			out[i] = c.dates[i].Format("2006-01-02")
		case TypeCategory:
			out[i] = c.texts[i]
		case TypeBoolean:
			out[i] = strconv.FormatBool(c.bools[i])
		}
	}
	return out, nil
}

// Filter returns a new dataset holding only rows for which keep returns true.
func (d *Dataset) Filter(keep func(row int) bool) *Dataset {
	rows := make([]int, 0, d.rows)
	for r := 0; r < d.rows; r++ {
		if keep(r) {
			rows = append(rows, r)
		}
	}
	out := &Dataset{index: make(map[string]int, len(d.columns)), rows: len(rows)}
	for i, c := range d.columns {
		out.columns = append(out.columns, c.subset(rows))
		out.index[c.name] = i
	}
	return out
}
