package nodes

import (
	"sync"
	"testing"

	"github.com/apache/arrow/go/v13/arrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cube2222/octoplan/arrowexec/execution"
)

func TestFeed(t *testing.T) {
	node := newTestFeed(t, testSchema, 2)
	assert.Contains(t, node.Display(execution.DisplayFormatDefault), "fed=false")

	_, err := node.Execute(testContext(), 0)
	assert.ErrorIs(t, err, execution.ErrInternal)

	partitions := [][]execution.Record{
		{
			stringRecord(testSchema, []string{"1", "x"}),
			stringRecord(testSchema, []string{"2", "y"}, []string{"3", "z"}),
		},
		{
			stringRecord(testSchema, []string{"4", "w"}),
		},
	}
	require.NoError(t, execution.FeedPartitions(node, partitions))
	assert.Contains(t, node.Display(execution.DisplayFormatDefault), "fed=true")

	// Fed partitions can be replayed any number of times.
	for i := 0; i < 3; i++ {
		first := executeAll(t, node, 0)
		require.Len(t, first, 2)
		assert.Equal(t, [][]string{{"1", "x"}, {"2", "y"}, {"3", "z"}}, recordRows(t, first))
		execution.ReleaseAll(first)

		second := executeAll(t, node, 1)
		assert.Equal(t, [][]string{{"4", "w"}}, recordRows(t, second))
		execution.ReleaseAll(second)
	}

	_, err = node.Execute(testContext(), 2)
	assert.ErrorIs(t, err, execution.ErrInternal)
}

func TestFeed_InvalidFeeds(t *testing.T) {
	other := arrow.NewSchema([]arrow.Field{{Name: "c", Type: arrow.BinaryTypes.String}}, nil)

	tests := []struct {
		name       string
		partitions [][]execution.Record
	}{
		{
			name:       "too few partitions",
			partitions: [][]execution.Record{{stringRecord(testSchema, []string{"1", "x"})}},
		},
		{
			name:       "too many partitions",
			partitions: [][]execution.Record{{}, {}, {}},
		},
		{
			name:       "schema mismatch",
			partitions: [][]execution.Record{{}, {stringRecord(other, []string{"1"})}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node := newTestFeed(t, testSchema, 2)
			err := node.FeedPartitions(tt.partitions)
			assert.ErrorIs(t, err, execution.ErrInvalidArgument)

			_, err = node.Execute(testContext(), 0)
			assert.ErrorIs(t, err, execution.ErrInternal)
		})
	}
}

func TestFeed_OnlyOnce(t *testing.T) {
	node := newTestFeed(t, testSchema, 1)
	require.NoError(t, node.FeedPartitions([][]execution.Record{{stringRecord(testSchema, []string{"1", "x"})}}))

	err := node.FeedPartitions([][]execution.Record{{stringRecord(testSchema, []string{"2", "y"})}})
	assert.ErrorIs(t, err, execution.ErrInvalidArgument)

	assert.Equal(t, [][]string{{"1", "x"}}, recordRows(t, executeAll(t, node, 0)))
}

func TestFeed_ConcurrentFeeds(t *testing.T) {
	node := newTestFeed(t, testSchema, 1)

	var wg sync.WaitGroup
	results := make([]error, 8)
	for i := range results {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = node.FeedPartitions([][]execution.Record{{stringRecord(testSchema, []string{"1", "x"})}})
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, [][]string{{"1", "x"}}, recordRows(t, executeAll(t, node, 0)))
}

func TestFeed_WithNewChildrenKeepsFedPartitions(t *testing.T) {
	node := newTestFeed(t, testSchema, 1)
	require.NoError(t, node.FeedPartitions([][]execution.Record{{stringRecord(testSchema, []string{"1", "x"})}}))

	replaced, err := node.WithNewChildren(nil)
	require.NoError(t, err)
	assert.Contains(t, replaced.Display(execution.DisplayFormatDefault), "fed=true")
	assert.Equal(t, [][]string{{"1", "x"}}, recordRows(t, executeAll(t, replaced, 0)))

	err = execution.FeedPartitions(replaced, [][]execution.Record{{}})
	assert.ErrorIs(t, err, execution.ErrInvalidArgument)

	_, err = node.WithNewChildren([]execution.Node{replaced})
	assert.ErrorIs(t, err, execution.ErrInvalidArgument)
}

func TestFeed_WithNewChildrenBeforeFeeding(t *testing.T) {
	node := newTestFeed(t, testSchema, 1)
	replaced, err := node.WithNewChildren(nil)
	require.NoError(t, err)

	require.NoError(t, node.FeedPartitions([][]execution.Record{{stringRecord(testSchema, []string{"1", "x"})}}))
	assert.Equal(t, [][]string{{"1", "x"}}, recordRows(t, executeAll(t, replaced, 0)))
}

func TestNewFeed_NegativePartitionCount(t *testing.T) {
	_, err := NewFeed(testSchema, -1)
	assert.ErrorIs(t, err, execution.ErrInvalidArgument)

	node, err := NewFeed(testSchema, 0)
	require.NoError(t, err)
	require.NoError(t, node.FeedPartitions(nil))
	assert.Equal(t, 0, node.OutputPartitioning().PartitionCount())
}
