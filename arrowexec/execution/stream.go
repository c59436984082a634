package execution

import (
	"io"

	"github.com/apache/arrow/go/v13/arrow"
	"github.com/pkg/errors"
)

var ErrEndOfStream = errors.New("end of stream")

// RecordStream is the output of a single partition of a node.
// It has a single consumer, who owns every record returned by Next and should release it.
// Closing a stream before reaching the end is allowed and releases everything it still holds.
type RecordStream interface {
	Schema() *arrow.Schema
	// Next returns the next record, or ErrEndOfStream once the stream is exhausted.
	Next(ctx Context) (Record, error)
	io.Closer
}

// MemoryStream replays a precomputed list of records.
type MemoryStream struct {
	schema  *arrow.Schema
	records []Record
	index   int
	closed  bool
}

// NewMemoryStream takes ownership of one reference to each of the records.
func NewMemoryStream(schema *arrow.Schema, records []Record) *MemoryStream {
	return &MemoryStream{
		schema:  schema,
		records: records,
	}
}

func (s *MemoryStream) Schema() *arrow.Schema {
	return s.schema
}

func (s *MemoryStream) Next(ctx Context) (Record, error) {
	if err := ctx.Context.Err(); err != nil {
		return Record{}, err
	}
	if s.closed || s.index >= len(s.records) {
		return Record{}, ErrEndOfStream
	}

	out := s.records[s.index]
	s.records[s.index] = Record{}
	s.index++

	return out, nil
}

func (s *MemoryStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	for i := s.index; i < len(s.records); i++ {
		s.records[i].Release()
		s.records[i] = Record{}
	}
	return nil
}

// Drain reads the whole stream, checking that every record matches the stream schema.
// The stream is always closed.
func Drain(ctx Context, stream RecordStream) (_ []Record, outErr error) {
	defer func() {
		if err := stream.Close(); err != nil && outErr == nil {
			outErr = errors.Wrap(err, "couldn't close stream")
		}
	}()

	var out []Record
	for {
		record, err := stream.Next(ctx)
		if err == ErrEndOfStream {
			return out, nil
		} else if err != nil {
			ReleaseAll(out)
			return nil, err
		}
		if !record.Schema().Equal(stream.Schema()) {
			record.Release()
			ReleaseAll(out)
			return nil, NewError(KindInternal, "stream", "next", "record schema %s doesn't match stream schema %s", record.Schema(), stream.Schema())
		}
		out = append(out, record)
	}
}

func ReleaseAll(records []Record) {
	for i := range records {
		records[i].Release()
	}
}

// RetainAll adds a reference to each record and returns them as a new slice.
func RetainAll(records []Record) []Record {
	out := make([]Record, len(records))
	for i := range records {
		records[i].Retain()
		out[i] = records[i]
	}
	return out
}
