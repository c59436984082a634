package nodes

import (
	"fmt"

	"github.com/apache/arrow/go/v13/arrow"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cube2222/octoplan/arrowexec/execution"
	"github.com/cube2222/octoplan/serialization"
)

const FeedTag = "feed_exec"

// Feed is a leaf whose partitions are computed out-of-band and pushed into it with FeedPartitions.
// Partitions can be fed once, after that each partition may be executed any number of times.
type Feed struct {
	schema         *arrow.Schema
	partitionCount int
	slot           *execution.FeedSlot
}

func NewFeed(schema *arrow.Schema, partitionCount int) (*Feed, error) {
	if partitionCount < 0 {
		return nil, execution.NewError(execution.KindInvalidArgument, "FeedExec", "new", "partition count must be non-negative, is %d", partitionCount)
	}
	return &Feed{
		schema:         schema,
		partitionCount: partitionCount,
		slot:           &execution.FeedSlot{},
	}, nil
}

func (f *Feed) Schema() *arrow.Schema {
	return f.schema
}

func (f *Feed) Children() []execution.Node {
	return nil
}

func (f *Feed) OutputPartitioning() execution.Partitioning {
	return execution.UnknownPartitioning(f.partitionCount)
}

// WithNewChildren shares the slot, so partitions fed before or after are visible in both nodes.
func (f *Feed) WithNewChildren(children []execution.Node) (execution.Node, error) {
	if len(children) != 0 {
		return nil, execution.NewError(execution.KindInvalidArgument, "FeedExec", "with new children", "children cannot be replaced in a leaf node, got %d", len(children))
	}
	return &Feed{
		schema:         f.schema,
		partitionCount: f.partitionCount,
		slot:           f.slot,
	}, nil
}

func (f *Feed) FeedPartitions(partitions [][]execution.Record) error {
	return f.slot.Install("FeedExec", f.schema, f.partitionCount, partitions)
}

func (f *Feed) Execute(ctx execution.Context, partition int) (execution.RecordStream, error) {
	if err := f.OutputPartitioning().CheckPartition("FeedExec", "execute", partition); err != nil {
		return nil, err
	}
	return f.slot.Stream("FeedExec", f.schema, partition)
}

func (f *Feed) Display(format execution.DisplayFormat) string {
	out := fmt.Sprintf("FeedExec: partitions=%d, fed=%t", f.partitionCount, f.slot.Fed())
	if format == execution.DisplayFormatVerbose {
		out += execution.VerboseSuffix(f)
	}
	return out
}

func (f *Feed) Tag() string {
	return FeedTag
}

// EncodeFields includes the partitions only once they've been fed.
func (f *Feed) EncodeFields(enc *serialization.Encoder) (map[string]*structpb.Value, error) {
	schema, err := enc.Schema(f.schema)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't encode schema")
	}
	out := map[string]*structpb.Value{
		"schema":          schema,
		"partition_count": structpb.NewNumberValue(float64(f.partitionCount)),
	}
	if fed := f.slot.Partitions(); fed != nil {
		partitions := make([]*structpb.Value, len(fed))
		for i := range fed {
			if partitions[i], err = enc.Records(f.schema, fed[i]); err != nil {
				return nil, errors.Wrapf(err, "couldn't encode partition %d", i)
			}
		}
		out["partitions"] = structpb.NewListValue(&structpb.ListValue{Values: partitions})
	}
	return out, nil
}

func decodeFeed(dec *serialization.Decoder, fields map[string]*structpb.Value) (execution.Node, error) {
	schema, err := dec.Schema(fields, "schema")
	if err != nil {
		return nil, err
	}
	partitionCount, err := dec.Int(fields, "partition_count")
	if err != nil {
		return nil, err
	}
	if partitionCount < 0 {
		return nil, dec.Malformed("partition count must be non-negative, is %d", partitionCount)
	}
	node, err := NewFeed(schema, partitionCount)
	if err != nil {
		return nil, err
	}
	if _, ok := fields["partitions"]; !ok {
		return node, nil
	}

	values, err := dec.List(fields, "partitions")
	if err != nil {
		return nil, err
	}
	partitions := make([][]execution.Record, 0, len(values))
	defer func() {
		for i := range partitions {
			execution.ReleaseAll(partitions[i])
		}
	}()
	for i := range values {
		_, records, err := dec.Records(map[string]*structpb.Value{"partition": values[i]}, "partition")
		if err != nil {
			return nil, errors.Wrapf(err, "couldn't decode partition %d", i)
		}
		partitions = append(partitions, records)
	}
	if err := node.FeedPartitions(partitions); err != nil {
		return nil, err
	}
	return node, nil
}
