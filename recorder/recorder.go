package recorder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/wkalt/dynconn/connector"
	"github.com/wkalt/dynconn/storage"
	"github.com/wkalt/dynconn/util/log"
	"github.com/wkalt/dynconn/wire"
)

/*
Package recorder archives the samples of a connector input to object storage
and replays them through an output.

Each non-empty batch becomes one zstd-compressed JSON-lines object holding a
{"info": ..., "data": ...} line per sample with valid data. Objects are keyed
<prefix>/<sequence>.jsonl.zst with a zero-padded sequence, so listing a prefix
returns them in recording order. A recorder started over an existing prefix
continues after the highest sequence found there.
*/

////////////////////////////////////////////////////////////////////////////////

// Recorder archives the samples of one input.
type Recorder struct {
	in    *connector.Input
	store storage.Provider
	opts  options
	enc   *zstd.Encoder

	seq     int
	resumed bool
}

// New returns a recorder taking samples from in and storing them in store.
func New(in *connector.Input, store storage.Provider, opts ...Option) (*Recorder, error) {
	o := options{
		prefix: "samples",
		level:  zstd.SpeedDefault,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.prefix == "" {
		return nil, errors.New("recorder prefix must not be empty")
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(o.level))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	return &Recorder{
		in:    in,
		store: store,
		opts:  o,
		enc:   enc,
	}, nil
}

// Run waits for data and archives each batch until ctx is done. timeout
// bounds each wait and so how quickly cancellation is noticed.
func (r *Recorder) Run(ctx context.Context, timeout time.Duration) error {
	ctx = r.tag(ctx)
	log.Infow(ctx, "recording started")
	total := 0
	for {
		select {
		case <-ctx.Done():
			log.Infow(ctx, "recording stopped", "samples", total)
			return nil
		default:
		}
		if err := r.in.Wait(timeout); err != nil {
			if errors.Is(err, connector.ErrTimeout) {
				continue
			}
			return err
		}
		n, err := r.RecordOnce(ctx)
		if err != nil {
			return err
		}
		total += n
	}
}

// RecordOnce takes the available samples and archives those with valid data
// as one object. It returns the number of samples archived; an empty batch
// stores nothing.
func (r *Recorder) RecordOnce(ctx context.Context) (int, error) {
	ctx = r.tag(ctx)
	if err := r.resume(ctx); err != nil {
		return 0, err
	}
	if err := r.in.Take(); err != nil {
		return 0, err
	}
	records := []Record{}
	it := r.in.Samples().ValidDataIter()
	for it.Next() {
		rec, err := newRecord(it.Sample())
		if err != nil {
			return 0, fmt.Errorf("failed to record sample %d: %w", it.Index(), err)
		}
		records = append(records, rec)
	}
	if err := it.Err(); err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}
	data, err := EncodeArchive(r.enc, records)
	if err != nil {
		return 0, err
	}
	key := archiveKey(r.opts.prefix, r.seq)
	if err := r.store.Put(ctx, key, data); err != nil {
		return 0, fmt.Errorf("failed to store %s: %w", key, err)
	}
	r.seq++
	log.Debugw(ctx, "archived batch", "key", key, "samples", len(records), "bytes", len(data))
	return len(records), nil
}

// resume picks up numbering after archives already under the prefix.
func (r *Recorder) resume(ctx context.Context) error {
	if r.resumed {
		return nil
	}
	keys, err := r.store.List(ctx, r.opts.prefix+"/")
	if err != nil {
		return fmt.Errorf("failed to list existing archives: %w", err)
	}
	for _, key := range keys {
		if seq, ok := archiveSeq(r.opts.prefix, key); ok && seq >= r.seq {
			r.seq = seq + 1
		}
	}
	if r.seq > 0 {
		log.Infow(ctx, "resuming after existing archives", "next", r.seq)
	}
	r.resumed = true
	return nil
}

func (r *Recorder) tag(ctx context.Context) context.Context {
	return log.AddTags(ctx, "input", r.in.Name(), "prefix", r.opts.prefix)
}

func newRecord(s *connector.Sample) (Record, error) {
	info := s.Info()
	var rec Record
	var err error
	if rec.Info.SourceTimestamp, err = info.SourceTimestamp(); err != nil {
		return rec, err
	}
	if rec.Info.ReceptionTimestamp, err = info.ReceptionTimestamp(); err != nil {
		return rec, err
	}
	if rec.Info.Identity, err = info.Identity(); err != nil {
		return rec, err
	}
	if rec.Info.RelatedSampleIdentity, err = info.RelatedIdentity(); err != nil {
		return rec, err
	}
	c, _, err := s.Complex("")
	if err != nil {
		return rec, err
	}
	if rec.Data, err = wire.Marshal(c); err != nil {
		return rec, err
	}
	return rec, nil
}
