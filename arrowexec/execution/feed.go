package execution

import (
	"sync/atomic"

	"github.com/apache/arrow/go/v13/arrow"
)

// FeedSlot holds partitions pushed into a node from outside.
// It may be installed once; every later read observes the complete install.
type FeedSlot struct {
	partitions atomic.Pointer[[][]Record]
}

// Install validates and stores the partitions. The slot retains every record.
func (s *FeedSlot) Install(node string, schema *arrow.Schema, partitionCount int, partitions [][]Record) error {
	if len(partitions) != partitionCount {
		return NewError(KindInvalidArgument, node, "feed partitions", "got %d partition(s), node has %d", len(partitions), partitionCount)
	}
	for i := range partitions {
		for j := range partitions[i] {
			if !partitions[i][j].Schema().Equal(schema) {
				return NewError(KindInvalidArgument, node, "feed partitions", "record %d of partition %d has schema %s, expected %s", j, i, partitions[i][j].Schema(), schema)
			}
		}
	}

	stored := make([][]Record, len(partitions))
	for i := range partitions {
		stored[i] = RetainAll(partitions[i])
	}
	if !s.partitions.CompareAndSwap(nil, &stored) {
		for i := range stored {
			ReleaseAll(stored[i])
		}
		return NewError(KindInvalidArgument, node, "feed partitions", "partitions have already been fed")
	}
	return nil
}

// Partitions returns the fed partitions, or nil if nothing was fed yet.
// The records stay owned by the slot.
func (s *FeedSlot) Partitions() [][]Record {
	partitions := s.partitions.Load()
	if partitions == nil {
		return nil
	}
	return *partitions
}

func (s *FeedSlot) Fed() bool {
	return s.partitions.Load() != nil
}

// Stream returns a stream replaying the given fed partition.
func (s *FeedSlot) Stream(node string, schema *arrow.Schema, partition int) (RecordStream, error) {
	partitions := s.partitions.Load()
	if partitions == nil {
		return nil, NewError(KindInternal, node, "execute", "partition %d executed before being fed", partition)
	}
	return NewMemoryStream(schema, RetainAll((*partitions)[partition])), nil
}
