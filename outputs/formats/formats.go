package formats

import (
	"fmt"
	"io"
	"strconv"

	"github.com/apache/arrow/go/v13/arrow"
	"github.com/apache/arrow/go/v13/arrow/array"
	"github.com/pkg/errors"

	"github.com/cube2222/octoplan/arrowexec/execution"
)

type Formatter interface {
	SetSchema(schema *arrow.Schema)
	Write(record arrow.Record, row int) error
	Close() error
}

func NewFormatter(format string, w io.Writer) (Formatter, error) {
	switch format {
	case "", "table":
		return NewTableFormatter(w), nil
	case "csv":
		return NewCSVFormatter(w), nil
	case "json":
		return NewJSONFormatter(w), nil
	}
	return nil, errors.Errorf("unknown output format '%s'", format)
}

// WriteRecords writes all rows of the records and closes the formatter.
func WriteRecords(f Formatter, schema *arrow.Schema, records []execution.Record) error {
	f.SetSchema(schema)
	for _, record := range records {
		for row := 0; row < int(record.NumRows()); row++ {
			if err := f.Write(record, row); err != nil {
				return errors.Wrap(err, "couldn't write row")
			}
		}
	}
	return f.Close()
}

// ValueString formats a single value of the array.
func ValueString(arr arrow.Array, i int) string {
	if arr.IsNull(i) {
		return "<null>"
	}
	switch arr := arr.(type) {
	case *array.String:
		return arr.Value(i)
	case *array.LargeString:
		return arr.Value(i)
	case *array.Boolean:
		return strconv.FormatBool(arr.Value(i))
	case *array.Int8:
		return strconv.FormatInt(int64(arr.Value(i)), 10)
	case *array.Int16:
		return strconv.FormatInt(int64(arr.Value(i)), 10)
	case *array.Int32:
		return strconv.FormatInt(int64(arr.Value(i)), 10)
	case *array.Int64:
		return strconv.FormatInt(arr.Value(i), 10)
	case *array.Uint8:
		return strconv.FormatUint(uint64(arr.Value(i)), 10)
	case *array.Uint16:
		return strconv.FormatUint(uint64(arr.Value(i)), 10)
	case *array.Uint32:
		return strconv.FormatUint(uint64(arr.Value(i)), 10)
	case *array.Uint64:
		return strconv.FormatUint(arr.Value(i), 10)
	case *array.Float32:
		return strconv.FormatFloat(float64(arr.Value(i)), 'g', -1, 32)
	case *array.Float64:
		return strconv.FormatFloat(arr.Value(i), 'g', -1, 64)
	default:
		slice := array.NewSlice(arr, int64(i), int64(i+1))
		defer slice.Release()
		return fmt.Sprint(slice)
	}
}
