package execution

import (
	"context"
	"crypto/rand"

	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type DriverOptions struct {
	// Parallelism bounds the number of concurrently executing partitions, 0 means unbounded.
	Parallelism int
}

// ExecutePartitions runs every output partition of the node and returns the records of
// each partition, in partition order. The first error cancels all other partitions.
func ExecutePartitions(ctx Context, node Node, opts DriverOptions) ([][]Record, error) {
	executionID := ulid.MustNew(ulid.Now(), rand.Reader).String()
	name := NodeName(node)
	partitionCount := node.OutputPartitioning().PartitionCount()
	if partitionCount < 0 {
		return nil, NewError(KindInternal, name, "execute partitions", "negative partition count %d", partitionCount)
	}

	log := logrus.WithFields(logrus.Fields{
		"execution": executionID,
		"node":      name,
	})
	log.WithField("partitions", partitionCount).Debug("starting execution")

	g, groupCtx := errgroup.WithContext(ctx.Context)
	if opts.Parallelism > 0 {
		g.SetLimit(opts.Parallelism)
	}

	out := make([][]Record, partitionCount)
	for partition := 0; partition < partitionCount; partition++ {
		partition := partition
		g.Go(func() error {
			partitionCtx := NewContext(groupCtx)
			stream, err := node.Execute(partitionCtx, partition)
			if err != nil {
				return errors.Wrapf(err, "couldn't execute partition %d", partition)
			}
			records, err := Drain(partitionCtx, stream)
			if err != nil {
				return errors.Wrapf(err, "couldn't read partition %d", partition)
			}
			out[partition] = records
			log.WithFields(logrus.Fields{
				"partition": partition,
				"batches":   len(records),
			}).Debug("partition finished")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		for i := range out {
			ReleaseAll(out[i])
		}
		log.WithError(err).Debug("execution failed")
		return nil, err
	}
	log.Debug("execution finished")
	return out, nil
}

// Collect runs the node and returns the records of all partitions, partition after partition.
func Collect(ctx context.Context, node Node, opts DriverOptions) ([]Record, error) {
	partitions, err := ExecutePartitions(NewContext(ctx), node, opts)
	if err != nil {
		return nil, err
	}
	var out []Record
	for i := range partitions {
		out = append(out, partitions[i]...)
	}
	return out, nil
}
