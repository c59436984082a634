package nodes

import (
	"fmt"
	"strings"

	"github.com/apache/arrow/go/v13/arrow"
	"github.com/apache/arrow/go/v13/arrow/array"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cube2222/octoplan/arrowexec/execution"
	"github.com/cube2222/octoplan/serialization"
)

const ProjectionTag = "projection_exec"

// Projection selects a subset of the source columns, by index.
type Projection struct {
	outSchema *arrow.Schema
	source    execution.Node
	columns   []int
}

func NewProjection(source execution.Node, columns []int) (*Projection, error) {
	sourceFields := source.Schema().Fields()
	fields := make([]arrow.Field, len(columns))
	for i, column := range columns {
		if column < 0 || column >= len(sourceFields) {
			return nil, execution.NewError(execution.KindInvalidArgument, "ProjectionExec", "create", "column index %d out of range, source has %d column(s)", column, len(sourceFields))
		}
		fields[i] = sourceFields[column]
	}
	return &Projection{
		outSchema: arrow.NewSchema(fields, nil),
		source:    source,
		columns:   columns,
	}, nil
}

func (p *Projection) Schema() *arrow.Schema {
	return p.outSchema
}

func (p *Projection) Children() []execution.Node {
	return []execution.Node{p.source}
}

func (p *Projection) OutputPartitioning() execution.Partitioning {
	return p.source.OutputPartitioning()
}

func (p *Projection) WithNewChildren(children []execution.Node) (execution.Node, error) {
	if len(children) != 1 {
		return nil, execution.NewError(execution.KindInvalidArgument, p.Display(execution.DisplayFormatDefault), "with new children", "expected 1 child, got %d", len(children))
	}
	return NewProjection(children[0], p.columns)
}

func (p *Projection) Execute(ctx execution.Context, partition int) (execution.RecordStream, error) {
	if err := p.OutputPartitioning().CheckPartition(p.Display(execution.DisplayFormatDefault), "execute", partition); err != nil {
		return nil, err
	}
	source, err := p.source.Execute(ctx, partition)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't execute projection source")
	}
	return &projectionStream{
		outSchema: p.outSchema,
		source:    source,
		columns:   p.columns,
	}, nil
}

func (p *Projection) Display(format execution.DisplayFormat) string {
	names := make([]string, len(p.columns))
	for i := range p.outSchema.Fields() {
		names[i] = p.outSchema.Field(i).Name
	}
	out := fmt.Sprintf("ProjectionExec: columns=[%s]", strings.Join(names, ", "))
	if format == execution.DisplayFormatVerbose {
		out += execution.VerboseSuffix(p)
	}
	return out
}

func (p *Projection) Tag() string {
	return ProjectionTag
}

func (p *Projection) EncodeFields(enc *serialization.Encoder) (map[string]*structpb.Value, error) {
	source, err := enc.Node(p.source)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't encode source")
	}
	return map[string]*structpb.Value{
		"source":  source,
		"columns": enc.Ints(p.columns),
	}, nil
}

func decodeProjection(dec *serialization.Decoder, fields map[string]*structpb.Value) (execution.Node, error) {
	source, err := dec.Node(fields, "source")
	if err != nil {
		return nil, err
	}
	columns, err := dec.Ints(fields, "columns")
	if err != nil {
		return nil, err
	}
	return NewProjection(source, columns)
}

type projectionStream struct {
	outSchema *arrow.Schema
	source    execution.RecordStream
	columns   []int
}

func (s *projectionStream) Schema() *arrow.Schema {
	return s.outSchema
}

func (s *projectionStream) Next(ctx execution.Context) (execution.Record, error) {
	record, err := s.source.Next(ctx)
	if err != nil {
		return execution.Record{}, err
	}
	defer record.Release()

	outCols := make([]arrow.Array, len(s.columns))
	for i, column := range s.columns {
		outCols[i] = record.Column(column)
	}

	return execution.Record{Record: array.NewRecord(s.outSchema, outCols, record.NumRows())}, nil
}

func (s *projectionStream) Close() error {
	return s.source.Close()
}
