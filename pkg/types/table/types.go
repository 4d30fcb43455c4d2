// Package table defines data-transfer types describing MolProp results
// tables.  The table schema itself is owned by the upstream toolkit; these
// types only describe what the platform observed when reading a file.
package table

// Format identifies the on-disk serialization of a results table.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatTSV     Format = "tsv"
	FormatParquet Format = "parquet"
)

// IsValid reports whether the format is one the platform can read and write.
func (f Format) IsValid() bool {
	switch f {
	case FormatCSV, FormatTSV, FormatParquet:
		return true
	default:
		return false
	}
}

// ColumnKind is the inferred cell type of a column.
type ColumnKind string

const (
	KindNumeric ColumnKind = "numeric"
	KindText    ColumnKind = "text"
)

// ColumnInfo describes a single column of a loaded table.
type ColumnInfo struct {
	Name     string     `json:"name"`
	Kind     ColumnKind `json:"kind"`
	NumNulls int        `json:"num_nulls"`
}

// Info summarizes a loaded table for previews and API responses.
type Info struct {
	Path    string       `json:"path,omitempty"`
	Format  Format       `json:"format"`
	NumRows int          `json:"num_rows"`
	Columns []ColumnInfo `json:"columns"`
}

// Preview carries the header plus the first N rows of a table, rendered as
// strings, for the dashboard's table preview pane.
type Preview struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
	Total   int        `json:"total_rows"`
}

// DefaultIDColumn is the compound identifier column the upstream toolkit
// writes; every analysis accepts an override but defaults to this.
const DefaultIDColumn = "Compound_ID"

// DefaultSMILESColumn is the structure column the upstream toolkit writes.
const DefaultSMILESColumn = "SMILES"
