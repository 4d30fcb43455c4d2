package table

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/molprop/platform/pkg/errors"
	tabletypes "github.com/molprop/platform/pkg/types/table"
)

// FormatForPath maps a file extension to a Format.  Mirrors the toolkit's
// convention: .csv and .txt are comma-separated, .tsv is tab-separated.
func FormatForPath(path string) (tabletypes.Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt":
		return tabletypes.FormatCSV, nil
	case ".tsv":
		return tabletypes.FormatTSV, nil
	case ".parquet":
		return tabletypes.FormatParquet, nil
	default:
		return "", errors.Newf(errors.ErrCodeTableUnsupportedFormat,
			"unsupported table format %q", filepath.Ext(path)).
			WithDetail("supported: .csv .tsv .txt .parquet")
	}
}

// Read loads the table at path, dispatching on extension.
func Read(path string) (*Table, error) {
	format, err := FormatForPath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeTableReadFailed, "cannot open table %s", path)
	}
	defer f.Close()

	switch format {
	case tabletypes.FormatCSV:
		return ReadDelimited(f, ',')
	case tabletypes.FormatTSV:
		return ReadDelimited(f, '\t')
	default:
		return readParquet(f)
	}
}

// ReadDelimited parses a CSV/TSV stream.  The first record is the header;
// ragged data rows are a hard error because silently dropping cells would
// corrupt downstream analyses.
func ReadDelimited(r io.Reader, sep rune) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = sep
	cr.FieldsPerRecord = -1 // raggedness reported with row context below

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New(errors.ErrCodeTableEmpty, "table has no header row")
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTableReadFailed, "cannot read header")
	}

	t, err := New(header)
	if err != nil {
		return nil, err
	}

	rowNum := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrCodeTableReadFailed, "cannot read row %d", rowNum)
		}
		if appendErr := t.AppendRow(record); appendErr != nil {
			var ae *errors.AppError
			if errors.As(appendErr, &ae) {
				return nil, ae.WithDetailf("row %d", rowNum)
			}
			return nil, appendErr
		}
		rowNum++
	}

	t.finalize()
	return t, nil
}

// Write persists the table to path, dispatching on extension.
func Write(t *Table, path string) error {
	format, err := FormatForPath(path)
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, errors.ErrCodeTableWriteFailed, "cannot create directory %s", dir)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, errors.ErrCodeTableWriteFailed, "cannot create %s", path)
	}
	defer f.Close()

	switch format {
	case tabletypes.FormatCSV:
		return WriteDelimited(t, f, ',')
	case tabletypes.FormatTSV:
		return WriteDelimited(t, f, '\t')
	default:
		return writeParquet(t, f)
	}
}

// WriteDelimited writes the table as CSV/TSV with a header row.
func WriteDelimited(t *Table, w io.Writer, sep rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = sep

	if err := cw.Write(t.Columns()); err != nil {
		return errors.Wrap(err, errors.ErrCodeTableWriteFailed, "cannot write header")
	}
	row := make([]string, t.NumCols())
	for r := 0; r < t.NumRows(); r++ {
		for i, c := range t.cols {
			row[i] = c.cells[r]
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrapf(err, errors.ErrCodeTableWriteFailed, "cannot write row %d", r)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Wrap(err, errors.ErrCodeTableWriteFailed, "flush failed")
	}
	return nil
}
