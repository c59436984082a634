package formats

import (
	"io"

	"github.com/apache/arrow/go/v13/arrow"
	"github.com/olekukonko/tablewriter"
)

type TableFormatter struct {
	table *tablewriter.Table
}

func NewTableFormatter(w io.Writer) *TableFormatter {
	table := tablewriter.NewWriter(w)
	table.SetColWidth(80)
	table.SetRowLine(false)
	table.SetAutoWrapText(false)

	return &TableFormatter{
		table: table,
	}
}

func (t *TableFormatter) SetSchema(schema *arrow.Schema) {
	fields := schema.Fields()
	header := make([]string, len(fields))
	for i := range fields {
		header[i] = fields[i].Name
	}
	t.table.SetHeader(header)
	t.table.SetAutoFormatHeaders(false)
}

func (t *TableFormatter) Write(record arrow.Record, row int) error {
	values := make([]string, record.NumCols())
	for i := range values {
		values[i] = ValueString(record.Column(i), row)
	}
	t.table.Append(values)
	return nil
}

func (t *TableFormatter) Close() error {
	t.table.Render()
	return nil
}
