package table

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"

	"github.com/takjakim/method-studio/domain/core"
)

// Table is a row-aligned numeric table with named columns. Transforms return
// new tables; bootstrap iterations must never mutate the original data.
type Table struct {
	names []string
	index map[string]int
	cols  [][]float64
}

// FromColumns builds a table from columnar data, preserving the given column
// order. Every referenced column must exist, be the same length, and carry at
// least one non-missing value.
func FromColumns(names []string, data map[string][]float64) (*Table, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("table requires at least one column")
	}

	t := &Table{
		names: append([]string(nil), names...),
		index: make(map[string]int, len(names)),
		cols:  make([][]float64, len(names)),
	}

	n := -1
	for i, name := range names {
		col, ok := data[name]
		if !ok {
			return nil, core.NewUnresolvableRoleError("column", name)
		}
		if n == -1 {
			n = len(col)
		} else if len(col) != n {
			return nil, fmt.Errorf("column %q has %d rows, expected %d", name, len(col), n)
		}

		nonMissing := 0
		for _, v := range col {
			if !missing(v) {
				nonMissing++
			}
		}
		if nonMissing == 0 {
			return nil, fmt.Errorf("%w: %q", core.ErrEmptyColumn, name)
		}

		t.cols[i] = append([]float64(nil), col...)
		t.index[name] = i
	}

	return t, nil
}

func missing(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}

// N returns the number of rows.
func (t *Table) N() int {
	if len(t.cols) == 0 {
		return 0
	}
	return len(t.cols[0])
}

// Names returns the column names in order.
func (t *Table) Names() []string {
	return append([]string(nil), t.names...)
}

// Has reports whether the table holds the named column.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns the values of the named column. The returned slice is the
// table's backing storage; callers must not modify it.
func (t *Table) Column(name string) ([]float64, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.cols[i], true
}

// MustColumn returns the named column or panics. For use after validation.
func (t *Table) MustColumn(name string) []float64 {
	col, ok := t.Column(name)
	if !ok {
		panic(fmt.Sprintf("table: missing column %q", name))
	}
	return col
}

// DropIncomplete performs listwise deletion: any row with a missing value in
// any column is removed.
func (t *Table) DropIncomplete() *Table {
	n := t.N()
	keep := make([]int, 0, n)
	for r := 0; r < n; r++ {
		complete := true
		for _, col := range t.cols {
			if missing(col[r]) {
				complete = false
				break
			}
		}
		if complete {
			keep = append(keep, r)
		}
	}
	return t.Resample(keep)
}

// Resample builds a new table from the given row indices, in order. Indices
// may repeat; this is the bootstrap case-resampling primitive.
func (t *Table) Resample(rows []int) *Table {
	out := &Table{
		names: append([]string(nil), t.names...),
		index: make(map[string]int, len(t.names)),
		cols:  make([][]float64, len(t.cols)),
	}
	for i, col := range t.cols {
		resampled := make([]float64, len(rows))
		for j, r := range rows {
			resampled[j] = col[r]
		}
		out.cols[i] = resampled
		out.index[t.names[i]] = i
	}
	return out
}

func (t *Table) clone() *Table {
	out := &Table{
		names: append([]string(nil), t.names...),
		index: make(map[string]int, len(t.names)),
		cols:  make([][]float64, len(t.cols)),
	}
	for i, col := range t.cols {
		out.cols[i] = append([]float64(nil), col...)
		out.index[t.names[i]] = i
	}
	return out
}

// Center subtracts each named column's sample mean. The constants come from
// this table, so a bootstrap resample centers at its own means.
func (t *Table) Center(names ...string) (*Table, error) {
	out := t.clone()
	for _, name := range names {
		i, ok := out.index[name]
		if !ok {
			return nil, core.NewUnresolvableRoleError("column", name)
		}
		mean, err := stats.Mean(out.cols[i])
		if err != nil {
			return nil, fmt.Errorf("centering %q: %w", name, err)
		}
		for r := range out.cols[i] {
			out.cols[i][r] -= mean
		}
	}
	return out, nil
}

// Standardize z-scores every column using the sample standard deviation
// (n-1 divisor). Zero-variance columns are left unchanged, matching the
// behaviour of standardized fits in the analysis scripts.
func (t *Table) Standardize() (*Table, error) {
	out := t.clone()
	for i, name := range out.names {
		mean, err := stats.Mean(out.cols[i])
		if err != nil {
			return nil, fmt.Errorf("standardizing %q: %w", name, err)
		}
		sd, err := stats.StandardDeviationSample(out.cols[i])
		if err != nil {
			return nil, fmt.Errorf("standardizing %q: %w", name, err)
		}
		if sd <= 0 || missing(sd) {
			continue
		}
		for r := range out.cols[i] {
			out.cols[i][r] = (out.cols[i][r] - mean) / sd
		}
	}
	return out, nil
}

// WithProduct appends a derived column holding the elementwise product of two
// existing columns (interaction terms). Replaces the column if it exists.
func (t *Table) WithProduct(name, a, b string) (*Table, error) {
	ca, ok := t.Column(a)
	if !ok {
		return nil, core.NewUnresolvableRoleError("column", a)
	}
	cb, ok := t.Column(b)
	if !ok {
		return nil, core.NewUnresolvableRoleError("column", b)
	}

	prod := make([]float64, len(ca))
	for i := range ca {
		prod[i] = ca[i] * cb[i]
	}

	out := t.clone()
	if i, exists := out.index[name]; exists {
		out.cols[i] = prod
		return out, nil
	}
	out.names = append(out.names, name)
	out.index[name] = len(out.cols)
	out.cols = append(out.cols, prod)
	return out, nil
}

// Mean returns the sample mean of a column.
func (t *Table) Mean(name string) (float64, error) {
	col, ok := t.Column(name)
	if !ok {
		return 0, core.NewUnresolvableRoleError("column", name)
	}
	return stats.Mean(col)
}

// SD returns the sample standard deviation (n-1 divisor) of a column.
func (t *Table) SD(name string) (float64, error) {
	col, ok := t.Column(name)
	if !ok {
		return 0, core.NewUnresolvableRoleError("column", name)
	}
	return stats.StandardDeviationSample(col)
}

// Percentile returns the given percentile (0-100) of a column.
func (t *Table) Percentile(name string, p float64) (float64, error) {
	col, ok := t.Column(name)
	if !ok {
		return 0, core.NewUnresolvableRoleError("column", name)
	}
	return stats.Percentile(col, p)
}
