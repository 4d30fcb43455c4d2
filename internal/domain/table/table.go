// Package table implements the in-memory model and file I/O for MolProp
// results tables.  The platform is table-first: every analysis consumes a
// Table loaded here and never reinterprets the upstream schema beyond
// numeric-column inference.
package table

import (
	"math"
	"strconv"
	"strings"

	"github.com/molprop/platform/pkg/errors"
	tabletypes "github.com/molprop/platform/pkg/types/table"
)

// Column is a single named column with string cells.  Numeric inference is
// computed once at load time: a column is numeric when every non-empty cell
// parses as a float and at least one cell is non-empty.
type Column struct {
	Name    string
	cells   []string
	floats  []float64 // NaN where null/unparseable; valid only when numeric
	nulls   []bool
	numeric bool
}

// Numeric reports whether every non-empty cell parsed as a float.
func (c *Column) Numeric() bool { return c.numeric }

// Len returns the number of cells.
func (c *Column) Len() int { return len(c.cells) }

// Table is an ordered collection of equal-length columns.
type Table struct {
	cols  []*Column
	index map[string]int
}

// New constructs an empty Table with the given column names.  Duplicate
// names are rejected because every analysis addresses columns by name.
func New(names []string) (*Table, error) {
	if len(names) == 0 {
		return nil, errors.New(errors.ErrCodeTableReadFailed, "table must have at least one column")
	}
	t := &Table{index: make(map[string]int, len(names))}
	for _, name := range names {
		if _, dup := t.index[name]; dup {
			return nil, errors.Newf(errors.ErrCodeTableReadFailed, "duplicate column name %q", name)
		}
		t.index[name] = len(t.cols)
		t.cols = append(t.cols, &Column{Name: name})
	}
	return t, nil
}

// AppendRow adds one row of string cells.  Empty strings are nulls.
func (t *Table) AppendRow(cells []string) error {
	if len(cells) != len(t.cols) {
		return errors.Newf(errors.ErrCodeTableRagged,
			"row has %d cells, table has %d columns", len(cells), len(t.cols))
	}
	for i, cell := range cells {
		col := t.cols[i]
		col.cells = append(col.cells, cell)
		col.nulls = append(col.nulls, strings.TrimSpace(cell) == "")
	}
	return nil
}

// finalize computes numeric inference for every column.  Called once after
// loading; mutating the table afterwards requires calling it again.
func (t *Table) finalize() {
	for _, col := range t.cols {
		col.floats = make([]float64, len(col.cells))
		col.numeric = false
		nonEmpty := 0
		ok := true
		for i, cell := range col.cells {
			if col.nulls[i] {
				col.floats[i] = math.NaN()
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				ok = false
				break
			}
			col.floats[i] = v
			nonEmpty++
		}
		col.numeric = ok && nonEmpty > 0
	}
}

// NumRows returns the number of data rows.
func (t *Table) NumRows() int {
	if len(t.cols) == 0 {
		return 0
	}
	return len(t.cols[0].cells)
}

// NumCols returns the number of columns.
func (t *Table) NumCols() int { return len(t.cols) }

// Columns returns the column names in order.
func (t *Table) Columns() []string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.Name
	}
	return names
}

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// NumericColumns returns the names of all numeric columns in order.
func (t *Table) NumericColumns() []string {
	var names []string
	for _, c := range t.cols {
		if c.numeric {
			names = append(names, c.Name)
		}
	}
	return names
}

// Strings returns the raw string cells of the named column.
func (t *Table) Strings(name string) ([]string, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeColumnNotFound, "column %q not found", name).
			WithDetailf("available: %s", strings.Join(t.Columns(), ", "))
	}
	return t.cols[i].cells, nil
}

// Floats returns the parsed values of a numeric column plus a null mask.
// Null cells carry NaN in the value slice.
func (t *Table) Floats(name string) ([]float64, []bool, error) {
	i, ok := t.index[name]
	if !ok {
		return nil, nil, errors.Newf(errors.ErrCodeColumnNotFound, "column %q not found", name).
			WithDetailf("available: %s", strings.Join(t.Columns(), ", "))
	}
	col := t.cols[i]
	if !col.numeric {
		return nil, nil, errors.Newf(errors.ErrCodeColumnNotNumeric, "column %q is not numeric", name)
	}
	return col.floats, col.nulls, nil
}

// Cell returns the string cell at (row, column name).
func (t *Table) Cell(row int, name string) (string, error) {
	i, ok := t.index[name]
	if !ok {
		return "", errors.Newf(errors.ErrCodeColumnNotFound, "column %q not found", name)
	}
	if row < 0 || row >= t.NumRows() {
		return "", errors.Newf(errors.ErrCodeTableReadFailed, "row %d out of range [0, %d)", row, t.NumRows())
	}
	return t.cols[i].cells[row], nil
}

// Row returns one row as a name→cell map; used by lookup results.
func (t *Table) Row(row int) map[string]string {
	out := make(map[string]string, len(t.cols))
	for _, c := range t.cols {
		out[c.Name] = c.cells[row]
	}
	return out
}

// SetCell overwrites a single cell.  Numeric inference must be refreshed via
// Finalize before the column's floats are read again.
func (t *Table) SetCell(row int, name, value string) error {
	i, ok := t.index[name]
	if !ok {
		return errors.Newf(errors.ErrCodeColumnNotFound, "column %q not found", name)
	}
	if row < 0 || row >= t.NumRows() {
		return errors.Newf(errors.ErrCodeTableReadFailed, "row %d out of range [0, %d)", row, t.NumRows())
	}
	t.cols[i].cells[row] = value
	t.cols[i].nulls[row] = strings.TrimSpace(value) == ""
	return nil
}

// AddColumn appends a new column with the given cells.
func (t *Table) AddColumn(name string, cells []string) error {
	if _, dup := t.index[name]; dup {
		return errors.Newf(errors.ErrCodeTableReadFailed, "column %q already exists", name)
	}
	if len(cells) != t.NumRows() {
		return errors.Newf(errors.ErrCodeTableRagged,
			"column %q has %d cells, table has %d rows", name, len(cells), t.NumRows())
	}
	col := &Column{Name: name, cells: cells, nulls: make([]bool, len(cells))}
	for i, cell := range cells {
		col.nulls[i] = strings.TrimSpace(cell) == ""
	}
	t.index[name] = len(t.cols)
	t.cols = append(t.cols, col)
	t.finalize()
	return nil
}

// Finalize recomputes numeric inference after external mutation.
func (t *Table) Finalize() { t.finalize() }

// Head returns the first n rows rendered as strings for previews.
func (t *Table) Head(n int) tabletypes.Preview {
	if n > t.NumRows() {
		n = t.NumRows()
	}
	rows := make([][]string, 0, n)
	for r := 0; r < n; r++ {
		row := make([]string, len(t.cols))
		for i, c := range t.cols {
			row[i] = c.cells[r]
		}
		rows = append(rows, row)
	}
	return tabletypes.Preview{Columns: t.Columns(), Rows: rows, Total: t.NumRows()}
}

// Info summarizes the table for API responses.
func (t *Table) Info() tabletypes.Info {
	info := tabletypes.Info{NumRows: t.NumRows()}
	for _, c := range t.cols {
		kind := tabletypes.KindText
		if c.numeric {
			kind = tabletypes.KindNumeric
		}
		nulls := 0
		for _, isNull := range c.nulls {
			if isNull {
				nulls++
			}
		}
		info.Columns = append(info.Columns, tabletypes.ColumnInfo{
			Name: c.Name, Kind: kind, NumNulls: nulls,
		})
	}
	return info
}
