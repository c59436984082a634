package nodes

import (
	"github.com/apache/arrow/go/v13/arrow"
	"github.com/apache/arrow/go/v13/arrow/array"
	"github.com/apache/arrow/go/v13/arrow/memory"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cube2222/octoplan/arrowexec/execution"
	"github.com/cube2222/octoplan/serialization"
)

const ExplainTag = "explain_exec"

// StringifiedPlan is the textual form of a plan at a given stage of planning.
type StringifiedPlan struct {
	PlanType string `yaml:"stage"`
	Plan     string `yaml:"plan"`
}

// NewExplainSchema returns the conventional schema of explain output.
func NewExplainSchema() *arrow.Schema {
	return arrow.NewSchema(
		[]arrow.Field{
			{Name: "plan_type", Type: arrow.BinaryTypes.String, Nullable: false},
			{Name: "plan", Type: arrow.BinaryTypes.String, Nullable: false},
		},
		nil,
	)
}

// Explain outputs the stringified plans it was created with, as a single record
// with a plan type column and a plan column.
type Explain struct {
	schema           *arrow.Schema
	stringifiedPlans []StringifiedPlan
}

func NewExplain(schema *arrow.Schema, stringifiedPlans []StringifiedPlan) *Explain {
	return &Explain{
		schema:           schema,
		stringifiedPlans: stringifiedPlans,
	}
}

func (e *Explain) StringifiedPlans() []StringifiedPlan {
	return e.stringifiedPlans
}

func (e *Explain) Schema() *arrow.Schema {
	return e.schema
}

func (e *Explain) Children() []execution.Node {
	return nil
}

func (e *Explain) OutputPartitioning() execution.Partitioning {
	return execution.SinglePartition()
}

func (e *Explain) WithNewChildren(children []execution.Node) (execution.Node, error) {
	if len(children) != 0 {
		return nil, execution.NewError(execution.KindInternal, "ExplainExec", "with new children", "children cannot be replaced in a leaf node, got %d", len(children))
	}
	return NewExplain(e.schema, e.stringifiedPlans), nil
}

func (e *Explain) Execute(ctx execution.Context, partition int) (execution.RecordStream, error) {
	if partition != 0 {
		return nil, execution.NewError(execution.KindInternal, "ExplainExec", "execute", "invalid partition %d", partition)
	}
	if len(e.schema.Fields()) != 2 {
		return nil, execution.NewError(execution.KindInternal, "ExplainExec", "execute", "schema must have 2 fields, has %d", len(e.schema.Fields()))
	}

	recordBuilder := array.NewRecordBuilder(memory.NewGoAllocator(), e.schema)
	defer recordBuilder.Release()

	typeBuilder, ok := recordBuilder.Field(0).(*array.StringBuilder)
	if !ok {
		return nil, execution.NewError(execution.KindInternal, "ExplainExec", "execute", "plan type field must be a string, is %s", e.schema.Field(0).Type)
	}
	planBuilder, ok := recordBuilder.Field(1).(*array.StringBuilder)
	if !ok {
		return nil, execution.NewError(execution.KindInternal, "ExplainExec", "execute", "plan field must be a string, is %s", e.schema.Field(1).Type)
	}
	typeBuilder.Reserve(len(e.stringifiedPlans))
	planBuilder.Reserve(len(e.stringifiedPlans))

	for _, p := range e.stringifiedPlans {
		typeBuilder.Append(p.PlanType)
		planBuilder.Append(p.Plan)
	}

	record := execution.Record{Record: recordBuilder.NewRecord()}

	return execution.NewMemoryStream(e.schema, []execution.Record{record}), nil
}

func (e *Explain) Display(format execution.DisplayFormat) string {
	switch format {
	case execution.DisplayFormatVerbose:
		return "ExplainExec" + execution.VerboseSuffix(e)
	default:
		return "ExplainExec"
	}
}

// FeedPartitions always fails, the explain node computes its only partition itself.
func (e *Explain) FeedPartitions(partitions [][]execution.Record) error {
	return execution.NewError(execution.KindNotSupported, "ExplainExec", "feed partitions", "unsupported for this node")
}

func (e *Explain) Tag() string {
	return ExplainTag
}

func (e *Explain) EncodeFields(enc *serialization.Encoder) (map[string]*structpb.Value, error) {
	schema, err := enc.Schema(e.schema)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't encode schema")
	}
	plans := make([]*structpb.Value, len(e.stringifiedPlans))
	for i, p := range e.stringifiedPlans {
		plans[i] = structpb.NewStructValue(&structpb.Struct{
			Fields: map[string]*structpb.Value{
				"plan_type": structpb.NewStringValue(p.PlanType),
				"plan":      structpb.NewStringValue(p.Plan),
			},
		})
	}
	return map[string]*structpb.Value{
		"schema":            schema,
		"stringified_plans": structpb.NewListValue(&structpb.ListValue{Values: plans}),
	}, nil
}

func decodeExplain(dec *serialization.Decoder, fields map[string]*structpb.Value) (execution.Node, error) {
	schema, err := dec.Schema(fields, "schema")
	if err != nil {
		return nil, err
	}
	values, err := dec.List(fields, "stringified_plans")
	if err != nil {
		return nil, err
	}
	plans := make([]StringifiedPlan, len(values))
	for i := range values {
		planFields := values[i].GetStructValue().GetFields()
		if plans[i].PlanType, err = dec.String(planFields, "plan_type"); err != nil {
			return nil, errors.Wrapf(err, "couldn't decode stringified plan %d", i)
		}
		if plans[i].Plan, err = dec.String(planFields, "plan"); err != nil {
			return nil, errors.Wrapf(err, "couldn't decode stringified plan %d", i)
		}
	}
	return NewExplain(schema, plans), nil
}
