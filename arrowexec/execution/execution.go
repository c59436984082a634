package execution

import (
	"context"

	"github.com/apache/arrow/go/v13/arrow"
)

type Context struct {
	Context context.Context
}

func NewContext(ctx context.Context) Context {
	return Context{Context: ctx}
}

// Node is a single operator of a physical plan tree.
//
// Nodes are immutable after construction, so Schema, Children and OutputPartitioning
// may be called concurrently. Replacing children always yields a new node.
type Node interface {
	// Schema returns the output schema. Every record produced by Execute conforms to it.
	Schema() *arrow.Schema
	// Children returns the direct inputs of this node, empty for leaves.
	Children() []Node
	// OutputPartitioning declares how many partitions Execute supports.
	OutputPartitioning() Partitioning
	// WithNewChildren returns a copy of this node with its children replaced.
	// The number of children must match the original.
	WithNewChildren(children []Node) (Node, error)
	// Execute starts producing a single partition of the output.
	Execute(ctx Context, partition int) (RecordStream, error)
	// Display returns a human-readable description of this node alone.
	Display(format DisplayFormat) string
}

// Feedable is implemented by nodes whose partitions may be supplied from outside,
// instead of being computed by the node itself.
type Feedable interface {
	Node
	// FeedPartitions installs the records of every partition, partition i at index i.
	FeedPartitions(partitions [][]Record) error
}

// FeedPartitions pushes the given partitions into the node, failing with a NotSupported error
// if the node doesn't accept fed partitions.
func FeedPartitions(node Node, partitions [][]Record) error {
	feedable, ok := node.(Feedable)
	if !ok {
		return NewError(KindNotSupported, NodeName(node), "feed partitions", "node doesn't accept fed partitions")
	}
	return feedable.FeedPartitions(partitions)
}

type Record struct {
	arrow.Record
}

// NodeName returns the short display name of the node, used in error messages.
func NodeName(node Node) string {
	if node == nil {
		return "<nil>"
	}
	return node.Display(DisplayFormatDefault)
}
