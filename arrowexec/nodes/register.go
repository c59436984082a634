package nodes

import (
	"github.com/pkg/errors"

	"github.com/cube2222/octoplan/serialization"
)

// Register installs the decoders of all nodes in this package.
// It should be called once at start-up, before any plan is decoded.
func Register(registry *serialization.Registry) error {
	decoders := []struct {
		tag    string
		decode serialization.DecodeFunc
	}{
		{ExplainTag, decodeExplain},
		{MemoryTag, decodeMemory},
		{FeedTag, decodeFeed},
		{ProjectionTag, decodeProjection},
		{CoalescePartitionsTag, decodeCoalescePartitions},
	}
	for _, d := range decoders {
		if err := registry.Register(d.tag, d.decode); err != nil {
			return errors.Wrapf(err, "couldn't register %s", d.tag)
		}
	}
	return nil
}
