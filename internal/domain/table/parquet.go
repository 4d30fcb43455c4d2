package table

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/parquet-go/parquet-go"

	"github.com/molprop/platform/pkg/errors"
)

// parquetBatch is how many rows are decoded per Read call; a tradeoff
// between allocation churn and peak memory for wide tables.
const parquetBatch = 256

func readParquet(f *os.File) (*Table, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTableReadFailed, "cannot stat parquet file")
	}
	pf, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTableReadFailed, "cannot open parquet file")
	}

	// Decode with the file's own schema; none can be derived from a map
	// destination type.
	reader := parquet.NewGenericReader[map[string]any](f, pf.Schema())
	defer reader.Close()

	fields := reader.Schema().Fields()
	if len(fields) == 0 {
		return nil, errors.New(errors.ErrCodeTableEmpty, "parquet file has no columns")
	}
	names := make([]string, len(fields))
	for i, field := range fields {
		names[i] = field.Name()
	}

	t, err := New(names)
	if err != nil {
		return nil, err
	}

	buf := make([]map[string]any, parquetBatch)
	row := make([]string, len(names))
	for {
		for i := range buf {
			buf[i] = make(map[string]any, len(names))
		}
		n, readErr := reader.Read(buf)
		for i := 0; i < n; i++ {
			for j, name := range names {
				row[j] = cellString(buf[i][name])
			}
			if appendErr := t.AppendRow(row); appendErr != nil {
				return nil, appendErr
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return nil, errors.Wrap(readErr, errors.ErrCodeTableReadFailed, "cannot decode parquet rows")
		}
	}

	t.finalize()
	return t, nil
}

// cellString renders a decoded parquet value as the table's string cell.
// Nulls become empty strings, matching CSV semantics.
func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case int64:
		return strconv.FormatInt(x, 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

func writeParquet(t *Table, w io.Writer) error {
	group := parquet.Group{}
	for _, c := range t.cols {
		if c.numeric {
			group[c.Name] = parquet.Optional(parquet.Leaf(parquet.DoubleType))
		} else {
			group[c.Name] = parquet.Optional(parquet.String())
		}
	}
	schema := parquet.NewSchema("molprop_results", group)

	writer := parquet.NewGenericWriter[map[string]any](w, schema)

	rows := make([]map[string]any, 0, parquetBatch)
	flush := func() error {
		if len(rows) == 0 {
			return nil
		}
		if _, err := writer.Write(rows); err != nil {
			return errors.Wrap(err, errors.ErrCodeTableWriteFailed, "cannot encode parquet rows")
		}
		rows = rows[:0]
		return nil
	}

	for r := 0; r < t.NumRows(); r++ {
		row := make(map[string]any, len(t.cols))
		for _, c := range t.cols {
			if c.nulls[r] {
				continue // optional field, absent = null
			}
			if c.numeric {
				row[c.Name] = c.floats[r]
			} else {
				row[c.Name] = c.cells[r]
			}
		}
		rows = append(rows, row)
		if len(rows) == parquetBatch {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return errors.Wrap(err, errors.ErrCodeTableWriteFailed, "cannot finalize parquet file")
	}
	return nil
}
