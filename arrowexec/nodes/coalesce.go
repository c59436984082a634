package nodes

import (
	"context"

	"github.com/apache/arrow/go/v13/arrow"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cube2222/octoplan/arrowexec/execution"
	"github.com/cube2222/octoplan/serialization"
)

const CoalescePartitionsTag = "coalesce_partitions_exec"

// CoalescePartitions merges all partitions of its source into a single partition.
// Source partitions are read concurrently. Records of a single source partition keep their order,
// there is no order between records of different source partitions.
type CoalescePartitions struct {
	source execution.Node
}

func NewCoalescePartitions(source execution.Node) *CoalescePartitions {
	return &CoalescePartitions{
		source: source,
	}
}

func (c *CoalescePartitions) Schema() *arrow.Schema {
	return c.source.Schema()
}

func (c *CoalescePartitions) Children() []execution.Node {
	return []execution.Node{c.source}
}

func (c *CoalescePartitions) OutputPartitioning() execution.Partitioning {
	return execution.SinglePartition()
}

func (c *CoalescePartitions) WithNewChildren(children []execution.Node) (execution.Node, error) {
	if len(children) != 1 {
		return nil, execution.NewError(execution.KindInvalidArgument, "CoalescePartitionsExec", "with new children", "expected 1 child, got %d", len(children))
	}
	return NewCoalescePartitions(children[0]), nil
}

func (c *CoalescePartitions) Execute(ctx execution.Context, partition int) (execution.RecordStream, error) {
	if err := c.OutputPartitioning().CheckPartition("CoalescePartitionsExec", "execute", partition); err != nil {
		return nil, err
	}

	cancelCtx, cancel := context.WithCancel(ctx.Context)
	g, groupCtx := errgroup.WithContext(cancelCtx)
	stream := &coalesceStream{
		schema:  c.source.Schema(),
		records: make(chan execution.Record),
		cancel:  cancel,
	}

	sourcePartitions := c.source.OutputPartitioning().PartitionCount()
	for sourcePartition := 0; sourcePartition < sourcePartitions; sourcePartition++ {
		sourcePartition := sourcePartition
		g.Go(func() error {
			partitionCtx := execution.NewContext(groupCtx)
			source, err := c.source.Execute(partitionCtx, sourcePartition)
			if err != nil {
				return errors.Wrapf(err, "couldn't execute source partition %d", sourcePartition)
			}
			defer source.Close()

			for {
				record, err := source.Next(partitionCtx)
				if err == execution.ErrEndOfStream {
					return nil
				} else if err != nil {
					return errors.Wrapf(err, "couldn't read source partition %d", sourcePartition)
				}
				select {
				case stream.records <- record:
				case <-groupCtx.Done():
					record.Release()
					return groupCtx.Err()
				}
			}
		})
	}
	go func() {
		stream.err = g.Wait()
		close(stream.records)
	}()

	return stream, nil
}

func (c *CoalescePartitions) Display(format execution.DisplayFormat) string {
	if format == execution.DisplayFormatVerbose {
		return "CoalescePartitionsExec" + execution.VerboseSuffix(c)
	}
	return "CoalescePartitionsExec"
}

func (c *CoalescePartitions) Tag() string {
	return CoalescePartitionsTag
}

func (c *CoalescePartitions) EncodeFields(enc *serialization.Encoder) (map[string]*structpb.Value, error) {
	source, err := enc.Node(c.source)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't encode source")
	}
	return map[string]*structpb.Value{
		"source": source,
	}, nil
}

func decodeCoalescePartitions(dec *serialization.Decoder, fields map[string]*structpb.Value) (execution.Node, error) {
	source, err := dec.Node(fields, "source")
	if err != nil {
		return nil, err
	}
	return NewCoalescePartitions(source), nil
}

type coalesceStream struct {
	schema  *arrow.Schema
	records chan execution.Record
	cancel  context.CancelFunc
	// err is written before records is closed.
	err    error
	closed bool
}

func (s *coalesceStream) Schema() *arrow.Schema {
	return s.schema
}

func (s *coalesceStream) Next(ctx execution.Context) (execution.Record, error) {
	if s.closed {
		return execution.Record{}, execution.ErrEndOfStream
	}
	select {
	case record, ok := <-s.records:
		if !ok {
			if s.err != nil {
				return execution.Record{}, s.err
			}
			return execution.Record{}, execution.ErrEndOfStream
		}
		return record, nil
	case <-ctx.Context.Done():
		return execution.Record{}, ctx.Context.Err()
	}
}

// Close stops all source partitions and waits for them to finish.
func (s *coalesceStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.cancel()
	for record := range s.records {
		record.Release()
	}
	return nil
}
