package formats

import (
	"encoding/csv"
	"io"

	"github.com/apache/arrow/go/v13/arrow"
)

type CSVFormatter struct {
	writer *csv.Writer
}

func NewCSVFormatter(w io.Writer) *CSVFormatter {
	writer := csv.NewWriter(w)

	return &CSVFormatter{
		writer: writer,
	}
}

func (t *CSVFormatter) SetSchema(schema *arrow.Schema) {
	fields := schema.Fields()
	header := make([]string, len(fields))
	for i := range fields {
		header[i] = fields[i].Name
	}
	t.writer.Write(header)
}

func (t *CSVFormatter) Write(record arrow.Record, row int) error {
	values := make([]string, record.NumCols())
	for i := range values {
		if record.Column(i).IsNull(row) {
			continue
		}
		values[i] = ValueString(record.Column(i), row)
	}
	return t.writer.Write(values)
}

func (t *CSVFormatter) Close() error {
	t.writer.Flush()
	return t.writer.Error()
}
