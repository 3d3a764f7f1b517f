package recorder

import (
	"context"
	"fmt"
	"math"

	"github.com/klauspost/compress/zstd"
	"github.com/wkalt/dynconn/connector"
	"github.com/wkalt/dynconn/storage"
	"github.com/wkalt/dynconn/util/log"
	"golang.org/x/sync/errgroup"
)

type replayOptions struct {
	start, end  int64
	concurrency int
}

// ReplayOption is an option for Replay.
type ReplayOption func(*replayOptions)

// WithTimeRange limits replay to records with a source timestamp in
// [start, end), in nanoseconds.
func WithTimeRange(start, end int64) ReplayOption {
	return func(o *replayOptions) {
		o.start = start
		o.end = end
	}
}

// WithFetchConcurrency sets how many archives are fetched and decoded in
// parallel ahead of publishing. The default is 4.
func WithFetchConcurrency(n int) ReplayOption {
	return func(o *replayOptions) {
		o.concurrency = n
	}
}

// Replay publishes the records archived under prefix through out, in
// recording order. Each record starts from a cleared instance and keeps its
// original source timestamp. It returns the number of records written.
func Replay(
	ctx context.Context,
	store storage.Provider,
	prefix string,
	out *connector.Output,
	opts ...ReplayOption,
) (int, error) {
	o := replayOptions{start: 0, end: math.MaxInt64, concurrency: 4}
	for _, opt := range opts {
		opt(&o)
	}
	if o.concurrency < 1 {
		o.concurrency = 1
	}
	ctx = log.AddTags(ctx, "output", out.Name(), "prefix", prefix)
	keys, err := archiveKeys(ctx, store, prefix)
	if err != nil {
		return 0, err
	}
	archives, err := fetchArchives(ctx, store, keys, o.concurrency)
	if err != nil {
		return 0, err
	}
	count, skipped := 0, 0
	for i, records := range archives {
		for _, rec := range records {
			if err := ctx.Err(); err != nil {
				return count, err
			}
			if ts := rec.Info.SourceTimestamp; ts < o.start || ts >= o.end {
				skipped++
				continue
			}
			if err := publish(out, rec); err != nil {
				return count, fmt.Errorf("%s: %w", keys[i], err)
			}
			count++
		}
	}
	log.Infow(ctx, "replay complete", "archives", len(keys), "samples", count, "skipped", skipped)
	return count, nil
}

func archiveKeys(ctx context.Context, store storage.Provider, prefix string) ([]string, error) {
	listed, err := store.List(ctx, prefix+"/")
	if err != nil {
		return nil, fmt.Errorf("failed to list archives: %w", err)
	}
	keys := make([]string, 0, len(listed))
	for _, key := range listed {
		if _, ok := archiveSeq(prefix, key); !ok {
			log.Debugw(ctx, "skipping object", "key", key)
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// fetchArchives gets and decodes the archives under keys, returning their
// records in key order.
func fetchArchives(ctx context.Context, store storage.Provider, keys []string, concurrency int) ([][]Record, error) {
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(concurrency))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	defer dec.Close()

	archives := make([][]Record, len(keys))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, key := range keys {
		i, key := i, key
		g.Go(func() error {
			data, err := store.Get(ctx, key)
			if err != nil {
				return fmt.Errorf("failed to get %s: %w", key, err)
			}
			records, err := DecodeArchive(dec, data)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			archives[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return archives, nil
}

func publish(out *connector.Output, rec Record) error {
	obj, err := rec.Object()
	if err != nil {
		return err
	}
	if err := out.ClearMembers(); err != nil {
		return err
	}
	if err := out.Instance().SetDictionary(obj); err != nil {
		return err
	}
	return out.Write(connector.WithSourceTimestamp(rec.Info.SourceTimestamp))
}
