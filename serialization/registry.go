package serialization

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/puzpuzpuz/xsync/v3"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/cube2222/octoplan/arrowexec/execution"
)

const (
	tagKey    = "tag"
	fieldsKey = "fields"
)

// Encodable is implemented by every node which can be shipped to another process.
type Encodable interface {
	execution.Node
	// Tag is the unique name the node type is registered under.
	Tag() string
	// EncodeFields returns everything needed to reconstruct the node, children included.
	EncodeFields(enc *Encoder) (map[string]*structpb.Value, error)
}

// DecodeFunc reconstructs a node from the fields produced by its EncodeFields.
type DecodeFunc func(dec *Decoder, fields map[string]*structpb.Value) (execution.Node, error)

// Registry maps node tags to their decoders.
// Registration is append-only, it should happen at start-up, before anything is decoded.
type Registry struct {
	decoders *xsync.MapOf[string, DecodeFunc]
}

func NewRegistry() *Registry {
	return &Registry{
		decoders: xsync.NewMapOf[string, DecodeFunc](),
	}
}

// DefaultRegistry is the process-wide registry.
var DefaultRegistry = NewRegistry()

func (r *Registry) Register(tag string, decode DecodeFunc) error {
	if tag == "" {
		return execution.NewError(execution.KindInvalidArgument, "registry", "register", "empty tag")
	}
	if _, loaded := r.decoders.LoadOrStore(tag, decode); loaded {
		return execution.NewError(execution.KindInvalidArgument, "registry", "register", "tag '%s' is already registered", tag)
	}
	return nil
}

// Tags returns all registered tags, sorted.
func (r *Registry) Tags() []string {
	var out []string
	r.decoders.Range(func(tag string, _ DecodeFunc) bool {
		out = append(out, tag)
		return true
	})
	sort.Strings(out)
	return out
}

// Encode turns the node into its tagged representation.
func (r *Registry) Encode(node execution.Node) (*structpb.Struct, error) {
	encodable, ok := node.(Encodable)
	if !ok {
		return nil, execution.NewError(execution.KindNotSupported, execution.NodeName(node), "encode", "node type %T can't be serialized", node)
	}
	tag := encodable.Tag()
	if _, ok := r.decoders.Load(tag); !ok {
		return nil, execution.NewError(execution.KindNotSupported, execution.NodeName(node), "encode", "tag '%s' is not registered", tag)
	}

	fields, err := encodable.EncodeFields(&Encoder{registry: r})
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't encode %s fields", tag)
	}

	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			tagKey:    structpb.NewStringValue(tag),
			fieldsKey: structpb.NewStructValue(&structpb.Struct{Fields: fields}),
		},
	}, nil
}

// Decode reconstructs a node from its tagged representation, dispatching on the tag.
func (r *Registry) Decode(encoded *structpb.Struct) (execution.Node, error) {
	tagValue, ok := encoded.GetFields()[tagKey]
	if !ok {
		return nil, execution.NewError(execution.KindInvalidArgument, "registry", "decode", "missing '%s'", tagKey)
	}
	tag := tagValue.GetStringValue()
	decode, ok := r.decoders.Load(tag)
	if !ok {
		return nil, execution.NewError(execution.KindNotSupported, "registry", "decode", "unknown tag '%s'", tag)
	}

	fields := encoded.GetFields()[fieldsKey].GetStructValue().GetFields()
	node, err := decode(&Decoder{registry: r, tag: tag}, fields)
	if err != nil {
		return nil, errors.Wrapf(err, "couldn't decode %s", tag)
	}
	return node, nil
}

// Marshal returns the binary wire form of the node.
func (r *Registry) Marshal(node execution.Node) ([]byte, error) {
	encoded, err := r.Encode(node)
	if err != nil {
		return nil, err
	}
	data, err := proto.Marshal(encoded)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't marshal encoded node")
	}
	return data, nil
}

func (r *Registry) Unmarshal(data []byte) (execution.Node, error) {
	var encoded structpb.Struct
	if err := proto.Unmarshal(data, &encoded); err != nil {
		return nil, execution.NewError(execution.KindInvalidArgument, "registry", "unmarshal", "couldn't unmarshal encoded node: %s", err)
	}
	return r.Decode(&encoded)
}

// MarshalText returns the json wire form of the node.
func (r *Registry) MarshalText(node execution.Node) ([]byte, error) {
	encoded, err := r.Encode(node)
	if err != nil {
		return nil, err
	}
	data, err := protojson.MarshalOptions{Multiline: true}.Marshal(encoded)
	if err != nil {
		return nil, errors.Wrap(err, "couldn't marshal encoded node to json")
	}
	return data, nil
}

func (r *Registry) UnmarshalText(data []byte) (execution.Node, error) {
	var encoded structpb.Struct
	if err := protojson.Unmarshal(data, &encoded); err != nil {
		return nil, execution.NewError(execution.KindInvalidArgument, "registry", "unmarshal", "couldn't unmarshal json encoded node: %s", err)
	}
	return r.Decode(&encoded)
}

// Serialize encodes the node using the DefaultRegistry.
func Serialize(node execution.Node) ([]byte, error) {
	return DefaultRegistry.Marshal(node)
}

// Deserialize decodes the node using the DefaultRegistry.
func Deserialize(data []byte) (execution.Node, error) {
	return DefaultRegistry.Unmarshal(data)
}
