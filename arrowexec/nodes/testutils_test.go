package nodes

import (
	"context"
	"testing"

	"github.com/apache/arrow/go/v13/arrow"
	"github.com/apache/arrow/go/v13/arrow/array"
	"github.com/apache/arrow/go/v13/arrow/memory"
	"github.com/stretchr/testify/require"

	"github.com/cube2222/octoplan/arrowexec/execution"
)

var testSchema = arrow.NewSchema(
	[]arrow.Field{
		{Name: "a", Type: arrow.BinaryTypes.String, Nullable: false},
		{Name: "b", Type: arrow.BinaryTypes.String, Nullable: false},
	},
	nil,
)

func testContext() execution.Context {
	return execution.NewContext(context.Background())
}

func newTestFeed(t *testing.T, schema *arrow.Schema, partitionCount int) *Feed {
	t.Helper()
	node, err := NewFeed(schema, partitionCount)
	require.NoError(t, err)
	return node
}

// stringRecord builds a record out of rows, the schema must consist of string fields only.
func stringRecord(schema *arrow.Schema, rows ...[]string) execution.Record {
	recordBuilder := array.NewRecordBuilder(memory.NewGoAllocator(), schema)
	defer recordBuilder.Release()
	for _, row := range rows {
		for i, value := range row {
			recordBuilder.Field(i).(*array.StringBuilder).Append(value)
		}
	}
	return execution.Record{Record: recordBuilder.NewRecord()}
}

// recordRows reads string records back into rows.
func recordRows(t *testing.T, records []execution.Record) [][]string {
	t.Helper()
	var out [][]string
	for _, record := range records {
		for row := 0; row < int(record.NumRows()); row++ {
			values := make([]string, record.NumCols())
			for col := range values {
				column, ok := record.Column(col).(*array.String)
				require.True(t, ok, "column %d is not a string column", col)
				values[col] = column.Value(row)
			}
			out = append(out, values)
		}
	}
	return out
}

func executeAll(t *testing.T, node execution.Node, partition int) []execution.Record {
	t.Helper()
	stream, err := node.Execute(testContext(), partition)
	require.NoError(t, err)
	records, err := execution.Drain(testContext(), stream)
	require.NoError(t, err)
	return records
}
