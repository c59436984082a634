package nodes

import (
	"fmt"

	"github.com/apache/arrow/go/v13/arrow"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cube2222/octoplan/arrowexec/execution"
	"github.com/cube2222/octoplan/serialization"
)

const MemoryTag = "memory_exec"

// Memory replays fixed, in-memory partitions. Every Execute of a partition replays the same records.
type Memory struct {
	schema     *arrow.Schema
	partitions [][]execution.Record
}

// NewMemory retains all records, the caller keeps its own references.
func NewMemory(schema *arrow.Schema, partitions [][]execution.Record) (*Memory, error) {
	stored := make([][]execution.Record, len(partitions))
	for i := range partitions {
		for j := range partitions[i] {
			if !partitions[i][j].Schema().Equal(schema) {
				return nil, execution.NewError(execution.KindInvalidArgument, "MemoryExec", "create", "record %d of partition %d has schema %s, expected %s", j, i, partitions[i][j].Schema(), schema)
			}
		}
		stored[i] = execution.RetainAll(partitions[i])
	}
	return &Memory{
		schema:     schema,
		partitions: stored,
	}, nil
}

func (m *Memory) Schema() *arrow.Schema {
	return m.schema
}

func (m *Memory) Children() []execution.Node {
	return nil
}

func (m *Memory) OutputPartitioning() execution.Partitioning {
	return execution.UnknownPartitioning(len(m.partitions))
}

func (m *Memory) WithNewChildren(children []execution.Node) (execution.Node, error) {
	if len(children) != 0 {
		return nil, execution.NewError(execution.KindInvalidArgument, "MemoryExec", "with new children", "children cannot be replaced in a leaf node, got %d", len(children))
	}
	return NewMemory(m.schema, m.partitions)
}

func (m *Memory) Execute(ctx execution.Context, partition int) (execution.RecordStream, error) {
	if err := m.OutputPartitioning().CheckPartition("MemoryExec", "execute", partition); err != nil {
		return nil, err
	}
	return execution.NewMemoryStream(m.schema, execution.RetainAll(m.partitions[partition])), nil
}

func (m *Memory) Display(format execution.DisplayFormat) string {
	out := fmt.Sprintf("MemoryExec: partitions=%d", len(m.partitions))
	if format == execution.DisplayFormatVerbose {
		out += execution.VerboseSuffix(m)
	}
	return out
}

func (m *Memory) Tag() string {
	return MemoryTag
}

func (m *Memory) EncodeFields(enc *serialization.Encoder) (map[string]*structpb.Value, error) {
	schema, err := enc.Schema(m.schema)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't encode schema")
	}
	partitions := make([]*structpb.Value, len(m.partitions))
	for i := range m.partitions {
		if partitions[i], err = enc.Records(m.schema, m.partitions[i]); err != nil {
			return nil, errors.Wrapf(err, "couldn't encode partition %d", i)
		}
	}
	return map[string]*structpb.Value{
		"schema":     schema,
		"partitions": structpb.NewListValue(&structpb.ListValue{Values: partitions}),
	}, nil
}

func decodeMemory(dec *serialization.Decoder, fields map[string]*structpb.Value) (execution.Node, error) {
	schema, err := dec.Schema(fields, "schema")
	if err != nil {
		return nil, err
	}
	values, err := dec.List(fields, "partitions")
	if err != nil {
		return nil, err
	}
	partitions := make([][]execution.Record, len(values))
	for i := range values {
		_, records, err := dec.Records(map[string]*structpb.Value{"partition": values[i]}, "partition")
		if err != nil {
			return nil, errors.Wrapf(err, "couldn't decode partition %d", i)
		}
		partitions[i] = records
	}
	node, err := NewMemory(schema, partitions)
	for i := range partitions {
		execution.ReleaseAll(partitions[i])
	}
	return node, err
}
