package connector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wkalt/dynconn/engine"
	"github.com/wkalt/dynconn/util/log"
)

// Input receives the samples of one reader.
type Input struct {
	c      *Connector
	ctx    context.Context
	name   string
	reader engine.Reader

	generation uint64
	samples    *Samples
}

// Name returns the reader name the input was created with.
func (in *Input) Name() string {
	return in.name
}

// Read replaces the current batch with the samples available in the reader,
// leaving them in the engine queue.
func (in *Input) Read() error {
	return in.load(in.reader.Read, "read")
}

// Take replaces the current batch with the samples available in the reader,
// removing them from the engine queue.
func (in *Input) Take() error {
	return in.load(in.reader.Take, "take")
}

func (in *Input) load(fn func() (int, error), op string) error {
	n, err := fn()
	if err != nil && !errors.Is(err, engine.ErrNoData) {
		return fmt.Errorf("failed to %s input %q: %w", op, in.name, err)
	}
	if err != nil {
		n = 0
	}
	in.generation++
	in.samples = &Samples{in: in, generation: in.generation, count: n}
	log.Debugw(in.ctx, "loaded samples", "op", op, "count", n)
	return nil
}

// Samples returns the batch of the most recent Read or Take. Before the first
// call it is empty.
func (in *Input) Samples() *Samples {
	return in.samples
}

// Wait blocks until the reader has unread data, or the timeout expires with
// ErrTimeout.
func (in *Input) Wait(timeout time.Duration) error {
	return in.reader.WaitForData(timeout)
}

// WaitForPublications blocks until the number of matched writers changes and
// returns the change since the previous call.
func (in *Input) WaitForPublications(timeout time.Duration) (int, error) {
	return in.reader.WaitForMatch(timeout)
}

// MatchedPublications lists the writers matched with the input.
func (in *Input) MatchedPublications() ([]engine.MatchedEndpoint, error) {
	data, err := in.reader.Matched()
	if err != nil {
		return nil, fmt.Errorf("failed to list matched publications: %w", err)
	}
	return parseMatched(data)
}

// Samples is the batch produced by one Read or Take.
type Samples struct {
	in         *Input
	generation uint64
	count      int
}

// Len returns the number of samples in the batch.
func (s *Samples) Len() int {
	return s.count
}

// At returns the sample at index i, 0-based.
func (s *Samples) At(i int) (*Sample, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	if i < 0 || i >= s.count {
		return nil, &IndexOutOfRangeError{Index: i, Limit: s.count}
	}
	return &Sample{samples: s, index: i}, nil
}

// Iter returns an iterator over every sample of the batch.
func (s *Samples) Iter() *SampleIterator {
	return &SampleIterator{samples: s, index: -1}
}

// ValidDataIter returns an iterator over the samples that carry valid data,
// skipping dispose and unregister notifications.
func (s *Samples) ValidDataIter() *SampleIterator {
	return &SampleIterator{samples: s, index: -1, validOnly: true}
}

func (s *Samples) check() error {
	if s.generation != s.in.generation {
		return ErrStaleSamples
	}
	return nil
}

// SampleIterator is a cursor over a batch. It starts before the first sample.
//
//	it := in.Samples().ValidDataIter()
//	for it.Next() {
//		x, _, err := it.Sample().Number("x")
//		...
//	}
//	if err := it.Err(); err != nil {
//		...
//	}
type SampleIterator struct {
	samples   *Samples
	index     int
	validOnly bool
	err       error
}

// Next advances to the next sample and reports whether there is one. It
// returns false at the end of the batch or on error; see Err.
func (it *SampleIterator) Next() bool {
	if it.err != nil {
		return false
	}
	if err := it.samples.check(); err != nil {
		it.err = err
		return false
	}
	for it.index < it.samples.count {
		it.index++
		if it.index == it.samples.count {
			return false
		}
		if !it.validOnly {
			return true
		}
		valid, err := it.Sample().ValidData()
		if err != nil {
			it.err = err
			return false
		}
		if valid {
			return true
		}
	}
	return false
}

// Err returns the error that stopped iteration, if any.
func (it *SampleIterator) Err() error {
	return it.err
}

// Sample returns the sample under the cursor. Before the first call to Next
// and after the last sample, its accessors fail with IndexOutOfRangeError.
func (it *SampleIterator) Sample() *Sample {
	return &Sample{samples: it.samples, index: it.index}
}

// Index returns the cursor position: -1 before the first call to Next, the
// batch length after the last sample.
func (it *SampleIterator) Index() int {
	return it.index
}

// Reset moves the cursor back before the first sample.
func (it *SampleIterator) Reset() {
	it.index = -1
	it.err = nil
}

// SeekTo moves the cursor to sample i. The next call to Next moves past it.
func (it *SampleIterator) SeekTo(i int) error {
	if err := it.samples.check(); err != nil {
		return err
	}
	if i < 0 || i >= it.samples.count {
		return &IndexOutOfRangeError{Index: i, Limit: it.samples.count}
	}
	it.index = i
	return nil
}
