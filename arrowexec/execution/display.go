package execution

import (
	"fmt"
	"strings"

	"github.com/apache/arrow/go/v13/arrow"
	"github.com/kr/text"

	"github.com/cube2222/octoplan/graph"
)

type DisplayFormat int

const (
	// DisplayFormatDefault is a single line with the node name and its main parameters.
	DisplayFormatDefault DisplayFormat = iota
	// DisplayFormatVerbose additionally includes the partitioning and the schema.
	DisplayFormatVerbose
)

func (f DisplayFormat) String() string {
	switch f {
	case DisplayFormatDefault:
		return "default"
	case DisplayFormatVerbose:
		return "verbose"
	}
	return fmt.Sprintf("DisplayFormat(%d)", int(f))
}

func ParseDisplayFormat(s string) (DisplayFormat, error) {
	switch s {
	case "", "default":
		return DisplayFormatDefault, nil
	case "verbose":
		return DisplayFormatVerbose, nil
	}
	return 0, NewError(KindInvalidArgument, "display", "parse format", "unknown display format '%s'", s)
}

// VerboseSuffix is appended by nodes to their one-line description in the verbose format.
func VerboseSuffix(node Node) string {
	return fmt.Sprintf(", partitioning=%s, schema=[%s]", node.OutputPartitioning(), SchemaString(node.Schema()))
}

func SchemaString(schema *arrow.Schema) string {
	fields := schema.Fields()
	parts := make([]string, len(fields))
	for i, field := range fields {
		parts[i] = fmt.Sprintf("%s:%s", field.Name, field.Type)
		if field.Nullable {
			parts[i] += "?"
		}
	}
	return strings.Join(parts, ", ")
}

// DisplayTree renders the node and all of its descendants, one node per line.
func DisplayTree(node Node, format DisplayFormat) string {
	var sb strings.Builder
	sb.WriteString(node.Display(format))
	sb.WriteString("\n")
	for _, child := range node.Children() {
		sb.WriteString(text.Indent(DisplayTree(child, format), "  "))
	}
	return sb.String()
}

// Describe builds a visualization tree of the plan.
func Describe(node Node, withSchema bool) *graph.Node {
	out := graph.NewNode(node.Display(DisplayFormatDefault))
	out.AddField("partitioning", node.OutputPartitioning().String())
	if withSchema {
		for _, field := range node.Schema().Fields() {
			out.AddField(field.Name, strings.ReplaceAll(fmt.Sprint(field.Type), "|", `\|`))
		}
	}
	for i, child := range node.Children() {
		out.AddChild(fmt.Sprintf("input_%d", i), Describe(child, withSchema))
	}
	return out
}
