package execution

import (
	"fmt"
	"strings"
)

type PartitioningType int

const (
	PartitioningTypeSingle PartitioningType = iota
	PartitioningTypeUnknown
	PartitioningTypeHash
	PartitioningTypeRange
)

func (t PartitioningType) String() string {
	switch t {
	case PartitioningTypeSingle:
		return "single"
	case PartitioningTypeUnknown:
		return "unknown"
	case PartitioningTypeHash:
		return "hash"
	case PartitioningTypeRange:
		return "range"
	}
	return fmt.Sprintf("PartitioningType(%d)", int(t))
}

// Partitioning describes the output partitions of a node.
// Columns is only set for hash and range partitioning.
type Partitioning struct {
	Type    PartitioningType
	Count   int
	Columns []string
}

func SinglePartition() Partitioning {
	return Partitioning{Type: PartitioningTypeSingle, Count: 1}
}

func UnknownPartitioning(count int) Partitioning {
	return Partitioning{Type: PartitioningTypeUnknown, Count: count}
}

func HashPartitioning(columns []string, count int) Partitioning {
	return Partitioning{Type: PartitioningTypeHash, Count: count, Columns: columns}
}

func RangePartitioning(columns []string, count int) Partitioning {
	return Partitioning{Type: PartitioningTypeRange, Count: count, Columns: columns}
}

func (p Partitioning) PartitionCount() int {
	return p.Count
}

func (p Partitioning) String() string {
	switch p.Type {
	case PartitioningTypeSingle:
		return "SinglePartition"
	case PartitioningTypeUnknown:
		return fmt.Sprintf("UnknownPartitioning(%d)", p.Count)
	case PartitioningTypeHash:
		return fmt.Sprintf("HashPartitioning([%s], %d)", strings.Join(p.Columns, ", "), p.Count)
	default:
		return fmt.Sprintf("RangePartitioning([%s], %d)", strings.Join(p.Columns, ", "), p.Count)
	}
}

func (p Partitioning) Equal(other Partitioning) bool {
	if p.Type != other.Type || p.Count != other.Count || len(p.Columns) != len(other.Columns) {
		return false
	}
	for i := range p.Columns {
		if p.Columns[i] != other.Columns[i] {
			return false
		}
	}
	return true
}

// CheckPartition returns an Internal error if partition is out of range for this partitioning.
func (p Partitioning) CheckPartition(node, op string, partition int) error {
	if partition < 0 || partition >= p.Count {
		return NewError(KindInternal, node, op, "invalid partition %d, node has %d partition(s)", partition, p.Count)
	}
	return nil
}
