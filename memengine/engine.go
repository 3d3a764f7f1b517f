package memengine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/wkalt/dynconn/config"
	"github.com/wkalt/dynconn/engine"
	"github.com/wkalt/dynconn/util/log"
)

/*
Package memengine is an in-process implementation of the engine boundary.
Participants, writers and readers are created from a config.Config; writers
and readers of open participants on the same domain and topic match each
other. Writes are encoded with msgpack and delivered synchronously to the
queues of every matched reader, where they are decoded against the reader's
own copy of the type.

Shared state (participants, matches, reader queues) is guarded by a single
engine mutex. Blocked waiters are woken by closing per-endpoint notification
channels, so a writer and a waiting reader may run on different goroutines.
Staged writer data and a reader's current batch belong to the goroutine
using the endpoint and are not locked.
*/

////////////////////////////////////////////////////////////////////////////////

// Engine is an in-process engine.
type Engine struct {
	ctx  context.Context
	cfg  *config.Config
	opts options

	mtx          sync.Mutex
	participants []*participant
}

// New returns an engine over the given topology.
func New(ctx context.Context, cfg *config.Config, opts ...Option) *Engine {
	o := options{
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Engine{
		ctx:  ctx,
		cfg:  cfg,
		opts: o,
	}
}

// Open creates the participant named configName with all of its readers and
// writers, and matches them against the endpoints of participants already
// open.
func (e *Engine) Open(configName string) (engine.Participant, error) {
	pcfg, ok := e.cfg.Participant(configName)
	if !ok {
		return nil, engine.Errorf("participant %q not found in configuration", configName)
	}
	p := &participant{
		e:       e,
		cfg:     pcfg,
		ctx:     log.AddTags(e.ctx, "participant", configName),
		readers: make([]*reader, 0, len(pcfg.Readers)),
		writers: make([]*writer, 0, len(pcfg.Writers)),
		sig:     newSignal(),
	}
	for i := range pcfg.Writers {
		w, err := newWriter(p, &pcfg.Writers[i])
		if err != nil {
			return nil, err
		}
		p.writers = append(p.writers, w)
	}
	for i := range pcfg.Readers {
		r, err := newReader(p, &pcfg.Readers[i])
		if err != nil {
			return nil, err
		}
		p.readers = append(p.readers, r)
	}

	e.mtx.Lock()
	defer e.mtx.Unlock()
	e.participants = append(e.participants, p)
	for _, other := range e.participants {
		if other.cfg.Domain != pcfg.Domain {
			continue
		}
		for _, w := range other.writers {
			for _, r := range p.readers {
				e.match(w, r)
			}
		}
		if other == p {
			continue
		}
		for _, w := range p.writers {
			for _, r := range other.readers {
				e.match(w, r)
			}
		}
	}
	log.Debugw(p.ctx, "participant created", "domain", pcfg.Domain,
		"writers", len(p.writers), "readers", len(p.readers))
	return p, nil
}

// match connects a writer and a reader of the same topic. The caller holds
// the engine lock.
func (e *Engine) match(w *writer, r *reader) {
	if w.topic != r.topic {
		return
	}
	w.matched = append(w.matched, r)
	r.matched = append(r.matched, w)
	w.sig.broadcast()
	r.sig.broadcast()
	e.logMatch(w.p.ctx, "matched", w, r)
}

// unmatch disconnects a writer and a reader. The caller holds the engine
// lock.
func (e *Engine) unmatch(w *writer, r *reader) {
	w.matched = remove(w.matched, r)
	r.matched = remove(r.matched, w)
	w.sig.broadcast()
	r.sig.broadcast()
	e.logMatch(w.p.ctx, "unmatched", w, r)
}

func (e *Engine) logMatch(ctx context.Context, msg string, w *writer, r *reader) {
	kvs := []any{"topic", w.topic, "writer", w.cfg.Name, "reader", r.cfg.Name}
	if e.opts.logMatching {
		log.Infow(ctx, msg, kvs...)
		return
	}
	log.Debugw(ctx, msg, kvs...)
}

// close removes a participant and unmatches its endpoints.
func (e *Engine) close(p *participant) {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	for _, w := range p.writers {
		for _, r := range append([]*reader{}, w.matched...) {
			e.unmatch(w, r)
		}
	}
	for _, r := range p.readers {
		for _, w := range append([]*writer{}, r.matched...) {
			e.unmatch(w, r)
		}
	}
	e.participants = remove(e.participants, p)
	p.closed = true
	p.sig.broadcast()
	for _, r := range p.readers {
		r.sig.broadcast()
	}
	log.Debugw(p.ctx, "participant closed")
}

// waitFor blocks until cond holds, re-checking each time the signal returned
// by sig fires. cond and sig are called with the engine lock held. A negative
// timeout waits forever.
func (e *Engine) waitFor(timeout time.Duration, sig func() *signal, cond func() bool) error {
	var deadline <-chan time.Time
	if timeout >= 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}
	for {
		e.mtx.Lock()
		if cond() {
			e.mtx.Unlock()
			return nil
		}
		ch := sig().ch
		e.mtx.Unlock()
		select {
		case <-ch:
		case <-deadline:
			return engine.ErrTimeout
		}
	}
}

// signal is a broadcast notification. Waiters capture ch under the engine
// lock; broadcast closes it and installs a fresh channel.
type signal struct {
	ch chan struct{}
}

func newSignal() *signal {
	return &signal{ch: make(chan struct{})}
}

func (s *signal) broadcast() {
	close(s.ch)
	s.ch = make(chan struct{})
}

type participant struct {
	e       *Engine
	cfg     *config.Participant
	ctx     context.Context
	readers []*reader
	writers []*writer
	sig     *signal
	closed  bool
}

func (p *participant) Reader(name string) (engine.Reader, error) {
	for _, r := range p.readers {
		if r.cfg.Name == name {
			return r, nil
		}
	}
	return nil, engine.Errorf("reader %q not found in participant %q", name, p.cfg.Name)
}

func (p *participant) Writer(name string) (engine.Writer, error) {
	for _, w := range p.writers {
		if w.cfg.Name == name {
			return w, nil
		}
	}
	return nil, engine.Errorf("writer %q not found in participant %q", name, p.cfg.Name)
}

// WaitForData blocks until any reader of the participant has unread samples.
func (p *participant) WaitForData(timeout time.Duration) error {
	err := p.e.waitFor(timeout, func() *signal { return p.sig }, func() bool {
		if p.closed {
			return true
		}
		for _, r := range p.readers {
			if r.hasUnread() {
				return true
			}
		}
		return false
	})
	if err != nil {
		return err
	}
	return p.checkOpen()
}

func (p *participant) Close() error {
	if p.closed {
		return nil
	}
	p.e.close(p)
	return nil
}

func (p *participant) checkOpen() error {
	if p.closed {
		return engine.Errorf("participant %q is closed", p.cfg.Name)
	}
	return nil
}

func remove[T comparable](s []T, v T) []T {
	out := s[:0]
	for _, x := range s {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}

func matchedJSON(names []*string) ([]byte, error) {
	endpoints := make([]engine.MatchedEndpoint, len(names))
	for i, name := range names {
		endpoints[i] = engine.MatchedEndpoint{Name: name}
	}
	data, err := json.Marshal(endpoints)
	if err != nil {
		return nil, fmt.Errorf("failed to encode matched endpoints: %w", err)
	}
	return data, nil
}
