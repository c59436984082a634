package execution

import (
	"context"
	"fmt"
	"testing"

	"github.com/apache/arrow/go/v13/arrow"
	"github.com/apache/arrow/go/v13/arrow/array"
	"github.com/apache/arrow/go/v13/arrow/memory"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSchema = arrow.NewSchema(
	[]arrow.Field{
		{Name: "n", Type: arrow.PrimitiveTypes.Int64, Nullable: false},
	},
	nil,
)

func intRecord(schema *arrow.Schema, values ...int64) Record {
	recordBuilder := array.NewRecordBuilder(memory.NewGoAllocator(), schema)
	defer recordBuilder.Release()
	recordBuilder.Field(0).(*array.Int64Builder).AppendValues(values, nil)
	return Record{Record: recordBuilder.NewRecord()}
}

func intValues(records []Record) []int64 {
	var out []int64
	for _, record := range records {
		out = append(out, record.Column(0).(*array.Int64).Int64Values()...)
	}
	return out
}

// testNode serves fixed partitions, failing on the partitions listed in failing.
type testNode struct {
	partitions [][]Record
	failing    map[int]bool
	children   []Node
}

func (n *testNode) Schema() *arrow.Schema { return testSchema }
func (n *testNode) Children() []Node      { return n.children }
func (n *testNode) OutputPartitioning() Partitioning {
	return UnknownPartitioning(len(n.partitions))
}
func (n *testNode) WithNewChildren(children []Node) (Node, error) {
	return &testNode{partitions: n.partitions, failing: n.failing, children: children}, nil
}
func (n *testNode) Execute(ctx Context, partition int) (RecordStream, error) {
	if err := n.OutputPartitioning().CheckPartition("TestExec", "execute", partition); err != nil {
		return nil, err
	}
	if n.failing[partition] {
		return nil, NewError(KindInternal, "TestExec", "execute", "partition %d failed", partition)
	}
	return NewMemoryStream(testSchema, RetainAll(n.partitions[partition])), nil
}
func (n *testNode) Display(format DisplayFormat) string {
	if format == DisplayFormatVerbose {
		return "TestExec" + VerboseSuffix(n)
	}
	return "TestExec"
}

func TestPartitioning(t *testing.T) {
	tests := []struct {
		name         string
		partitioning Partitioning
		count        int
		str          string
	}{
		{"single", SinglePartition(), 1, "SinglePartition"},
		{"unknown", UnknownPartitioning(4), 4, "UnknownPartitioning(4)"},
		{"hash", HashPartitioning([]string{"a", "b"}, 8), 8, "HashPartitioning([a, b], 8)"},
		{"range", RangePartitioning([]string{"a"}, 2), 2, "RangePartitioning([a], 2)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.count, tt.partitioning.PartitionCount())
			assert.Equal(t, tt.str, tt.partitioning.String())
			assert.True(t, tt.partitioning.Equal(tt.partitioning))

			for p := 0; p < tt.count; p++ {
				assert.NoError(t, tt.partitioning.CheckPartition("node", "execute", p))
			}
			assert.ErrorIs(t, tt.partitioning.CheckPartition("node", "execute", -1), ErrInternal)
			assert.ErrorIs(t, tt.partitioning.CheckPartition("node", "execute", tt.count), ErrInternal)
		})
	}

	assert.False(t, HashPartitioning([]string{"a"}, 2).Equal(RangePartitioning([]string{"a"}, 2)))
	assert.False(t, HashPartitioning([]string{"a"}, 2).Equal(HashPartitioning([]string{"b"}, 2)))
}

func TestError(t *testing.T) {
	err := NewError(KindNotSupported, "ExplainExec", "feed partitions", "unsupported for this node")
	assert.EqualError(t, err, "not supported: ExplainExec: feed partitions: unsupported for this node")

	wrapped := errors.Wrap(errors.Wrap(err, "couldn't feed"), "couldn't run")
	assert.ErrorIs(t, wrapped, ErrNotSupported)
	assert.NotErrorIs(t, wrapped, ErrInternal)
	assert.Equal(t, KindNotSupported, KindOf(wrapped))
	assert.Equal(t, ErrorKind(0), KindOf(errors.New("other")))
}

func TestMemoryStream(t *testing.T) {
	ctx := NewContext(context.Background())
	stream := NewMemoryStream(testSchema, []Record{intRecord(testSchema, 1, 2), intRecord(testSchema, 3)})
	assert.True(t, stream.Schema().Equal(testSchema))

	records, err := Drain(ctx, stream)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, intValues(records))

	_, err = stream.Next(ctx)
	assert.Equal(t, ErrEndOfStream, err)
}

func TestMemoryStream_EarlyClose(t *testing.T) {
	ctx := NewContext(context.Background())
	stream := NewMemoryStream(testSchema, []Record{intRecord(testSchema, 1), intRecord(testSchema, 2)})

	record, err := stream.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, intValues([]Record{record}))

	assert.NoError(t, stream.Close())
	assert.NoError(t, stream.Close())
	_, err = stream.Next(ctx)
	assert.Equal(t, ErrEndOfStream, err)
}

func TestMemoryStream_Cancelled(t *testing.T) {
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	stream := NewMemoryStream(testSchema, []Record{intRecord(testSchema, 1)})
	_, err := Drain(NewContext(cancelled), stream)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDrain_SchemaMismatch(t *testing.T) {
	other := arrow.NewSchema([]arrow.Field{{Name: "m", Type: arrow.PrimitiveTypes.Int64}}, nil)
	stream := NewMemoryStream(testSchema, []Record{intRecord(testSchema, 1), intRecord(other, 2)})

	_, err := Drain(NewContext(context.Background()), stream)
	assert.ErrorIs(t, err, ErrInternal)
}

func TestFeedSlot(t *testing.T) {
	var slot FeedSlot
	assert.False(t, slot.Fed())

	_, err := slot.Stream("FeedExec", testSchema, 0)
	assert.ErrorIs(t, err, ErrInternal)

	require.NoError(t, slot.Install("FeedExec", testSchema, 2, [][]Record{{intRecord(testSchema, 1), intRecord(testSchema, 2)}, {}}))
	assert.True(t, slot.Fed())

	for i := 0; i < 2; i++ {
		stream, err := slot.Stream("FeedExec", testSchema, 0)
		require.NoError(t, err)
		records, err := Drain(NewContext(context.Background()), stream)
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 2}, intValues(records))
	}

	err = slot.Install("FeedExec", testSchema, 2, [][]Record{{}, {}})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestFeedPartitions_NotFeedable(t *testing.T) {
	err := FeedPartitions(&testNode{}, nil)
	assert.ErrorIs(t, err, ErrNotSupported)
	assert.Contains(t, err.Error(), "TestExec")
}

func TestExecutePartitions(t *testing.T) {
	partitions := make([][]Record, 6)
	for p := range partitions {
		partitions[p] = []Record{intRecord(testSchema, int64(p*10)), intRecord(testSchema, int64(p*10+1))}
	}
	node := &testNode{partitions: partitions}

	for _, parallelism := range []int{0, 1, 3} {
		t.Run(fmt.Sprintf("parallelism %d", parallelism), func(t *testing.T) {
			out, err := ExecutePartitions(NewContext(context.Background()), node, DriverOptions{Parallelism: parallelism})
			require.NoError(t, err)
			require.Len(t, out, len(partitions))
			for p := range out {
				assert.Equal(t, []int64{int64(p * 10), int64(p*10 + 1)}, intValues(out[p]))
			}

			records, err := Collect(context.Background(), node, DriverOptions{Parallelism: parallelism})
			require.NoError(t, err)
			assert.Equal(t, []int64{0, 1, 10, 11, 20, 21, 30, 31, 40, 41, 50, 51}, intValues(records))
		})
	}
}

func TestExecutePartitions_Error(t *testing.T) {
	node := &testNode{
		partitions: [][]Record{{intRecord(testSchema, 1)}, {intRecord(testSchema, 2)}},
		failing:    map[int]bool{1: true},
	}

	_, err := ExecutePartitions(NewContext(context.Background()), node, DriverOptions{})
	assert.ErrorIs(t, err, ErrInternal)
	assert.Contains(t, err.Error(), "partition 1")
}

// brokenPartitioningNode declares a partition count nothing can execute.
type brokenPartitioningNode struct {
	testNode
}

func (n *brokenPartitioningNode) OutputPartitioning() Partitioning {
	return UnknownPartitioning(-1)
}

func TestExecutePartitions_NegativePartitionCount(t *testing.T) {
	_, err := ExecutePartitions(NewContext(context.Background()), &brokenPartitioningNode{}, DriverOptions{})
	assert.ErrorIs(t, err, ErrInternal)
}

func TestDisplayTree(t *testing.T) {
	leaf := &testNode{partitions: [][]Record{{}}}
	mid := &testNode{partitions: [][]Record{{}, {}}, children: []Node{leaf, leaf}}
	root := &testNode{children: []Node{mid}}

	assert.Equal(t, "TestExec\n  TestExec\n    TestExec\n    TestExec\n", DisplayTree(root, DisplayFormatDefault))
	assert.Equal(t,
		"TestExec, partitioning=UnknownPartitioning(1), schema=[n:int64]\n",
		DisplayTree(leaf, DisplayFormatVerbose),
	)
}

func TestDescribe(t *testing.T) {
	leaf := &testNode{partitions: [][]Record{{}}}
	root := &testNode{children: []Node{leaf}}

	described := Describe(root, true)
	assert.Equal(t, "TestExec", described.Name)
	require.Len(t, described.Children, 1)
	assert.Equal(t, "input_0", described.Children[0].Name)
	assert.Equal(t, "UnknownPartitioning(1)", described.Children[0].Node.Fields[0].Value)
	assert.Equal(t, "n", described.Children[0].Node.Fields[1].Name)
	assert.Equal(t, "int64", described.Children[0].Node.Fields[1].Value)
}

func TestParseDisplayFormat(t *testing.T) {
	format, err := ParseDisplayFormat("verbose")
	require.NoError(t, err)
	assert.Equal(t, DisplayFormatVerbose, format)

	format, err = ParseDisplayFormat("")
	require.NoError(t, err)
	assert.Equal(t, DisplayFormatDefault, format)

	_, err = ParseDisplayFormat("fancy")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
