package serialization

import (
	"bytes"
	"encoding/base64"

	"github.com/apache/arrow/go/v13/arrow"
	"github.com/apache/arrow/go/v13/arrow/ipc"
	"github.com/apache/arrow/go/v13/arrow/memory"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cube2222/octoplan/arrowexec/execution"
)

// Encoder is passed to nodes encoding themselves.
type Encoder struct {
	registry *Registry
}

func (enc *Encoder) Node(node execution.Node) (*structpb.Value, error) {
	encoded, err := enc.registry.Encode(node)
	if err != nil {
		return nil, err
	}
	return structpb.NewStructValue(encoded), nil
}

// Schema encodes the schema as an Arrow IPC stream without any records.
func (enc *Encoder) Schema(schema *arrow.Schema) (*structpb.Value, error) {
	return enc.Records(schema, nil)
}

// Records encodes the records as a single Arrow IPC stream.
func (enc *Encoder) Records(schema *arrow.Schema, records []execution.Record) (*structpb.Value, error) {
	var buf bytes.Buffer
	w := ipc.NewWriter(&buf, ipc.WithSchema(schema), ipc.WithAllocator(memory.DefaultAllocator))
	for i := range records {
		if err := w.Write(records[i]); err != nil {
			w.Close()
			return nil, errors.Wrapf(err, "couldn't write record %d", i)
		}
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "couldn't close ipc writer")
	}
	return structpb.NewStringValue(base64.StdEncoding.EncodeToString(buf.Bytes())), nil
}

func (enc *Encoder) Ints(values []int) *structpb.Value {
	out := make([]*structpb.Value, len(values))
	for i := range values {
		out[i] = structpb.NewNumberValue(float64(values[i]))
	}
	return structpb.NewListValue(&structpb.ListValue{Values: out})
}

// Decoder is passed to node decoders.
type Decoder struct {
	registry *Registry
	tag      string
}

// Malformed reports a field that can be read but doesn't describe a valid node.
func (dec *Decoder) Malformed(format string, args ...interface{}) error {
	return execution.NewError(execution.KindInvalidArgument, dec.tag, "decode", format, args...)
}

// Field returns the named field, failing if it's missing.
func (dec *Decoder) Field(fields map[string]*structpb.Value, name string) (*structpb.Value, error) {
	value, ok := fields[name]
	if !ok || value == nil {
		return nil, dec.Malformed("missing field '%s'", name)
	}
	return value, nil
}

func (dec *Decoder) String(fields map[string]*structpb.Value, name string) (string, error) {
	value, err := dec.Field(fields, name)
	if err != nil {
		return "", err
	}
	str, ok := value.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", dec.Malformed("field '%s' is not a string", name)
	}
	return str.StringValue, nil
}

func (dec *Decoder) Int(fields map[string]*structpb.Value, name string) (int, error) {
	value, err := dec.Field(fields, name)
	if err != nil {
		return 0, err
	}
	return dec.asInt(value, name)
}

func (dec *Decoder) asInt(value *structpb.Value, name string) (int, error) {
	number, ok := value.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, dec.Malformed("field '%s' is not a number", name)
	}
	if number.NumberValue != float64(int(number.NumberValue)) {
		return 0, dec.Malformed("field '%s' is not an integer: %v", name, number.NumberValue)
	}
	return int(number.NumberValue), nil
}

func (dec *Decoder) List(fields map[string]*structpb.Value, name string) ([]*structpb.Value, error) {
	value, err := dec.Field(fields, name)
	if err != nil {
		return nil, err
	}
	list, ok := value.GetKind().(*structpb.Value_ListValue)
	if !ok {
		return nil, dec.Malformed("field '%s' is not a list", name)
	}
	return list.ListValue.GetValues(), nil
}

func (dec *Decoder) Ints(fields map[string]*structpb.Value, name string) ([]int, error) {
	values, err := dec.List(fields, name)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(values))
	for i := range values {
		if out[i], err = dec.asInt(values[i], name); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (dec *Decoder) Node(fields map[string]*structpb.Value, name string) (execution.Node, error) {
	value, err := dec.Field(fields, name)
	if err != nil {
		return nil, err
	}
	return dec.node(value, name)
}

func (dec *Decoder) node(value *structpb.Value, name string) (execution.Node, error) {
	encoded, ok := value.GetKind().(*structpb.Value_StructValue)
	if !ok {
		return nil, dec.Malformed("field '%s' is not an encoded node", name)
	}
	return dec.registry.Decode(encoded.StructValue)
}

func (dec *Decoder) Schema(fields map[string]*structpb.Value, name string) (*arrow.Schema, error) {
	schema, records, err := dec.Records(fields, name)
	if err != nil {
		return nil, err
	}
	execution.ReleaseAll(records)
	return schema, nil
}

// Records decodes an Arrow IPC stream written by Encoder.Records.
// The caller owns the returned records.
func (dec *Decoder) Records(fields map[string]*structpb.Value, name string) (*arrow.Schema, []execution.Record, error) {
	str, err := dec.String(fields, name)
	if err != nil {
		return nil, nil, err
	}
	data, err := base64.StdEncoding.DecodeString(str)
	if err != nil {
		return nil, nil, dec.Malformed("field '%s' is not valid base64: %s", name, err)
	}
	r, err := ipc.NewReader(bytes.NewReader(data), ipc.WithAllocator(memory.DefaultAllocator))
	if err != nil {
		return nil, nil, dec.Malformed("field '%s' is not a valid ipc stream: %s", name, err)
	}
	defer r.Release()

	var records []execution.Record
	for r.Next() {
		record := r.Record()
		record.Retain()
		records = append(records, execution.Record{Record: record})
	}
	if err := r.Err(); err != nil {
		execution.ReleaseAll(records)
		return nil, nil, dec.Malformed("couldn't read records of field '%s': %s", name, err)
	}
	return r.Schema(), records, nil
}

