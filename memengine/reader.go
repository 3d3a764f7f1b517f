package memengine

import (
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/wkalt/dynconn/config"
	"github.com/wkalt/dynconn/dyndata"
	"github.com/wkalt/dynconn/engine"
	"github.com/wkalt/dynconn/fieldpath"
	"github.com/wkalt/dynconn/wire"
)

// sample is one delivered write. Samples are immutable once queued except for
// the read flag, which is guarded by the engine lock.
type sample struct {
	data               *dyndata.Data
	valid              bool
	read               bool
	instance           uint64
	sourceTimestamp    int64
	receptionTimestamp int64
	identity           engine.SampleIdentity
	related            *engine.SampleIdentity
}

// loaned is a sample in the reader's current batch, with the states it had
// when the batch was taken.
type loaned struct {
	*sample
	sampleState   string
	viewState     string
	instanceState string
}

// instance is the reader's view of one keyed instance.
type instance struct {
	state  string
	viewed bool
}

type reader struct {
	p     *participant
	cfg   *config.Endpoint
	topic string
	t     *dyndata.Type

	// guarded by the engine lock
	queue      []*sample
	instances  map[uint64]*instance
	matched    []*writer
	lastCounts int
	sig        *signal

	batch []loaned
}

func newReader(p *participant, cfg *config.Endpoint) (*reader, error) {
	t, err := p.e.cfg.TopicType(cfg.Topic)
	if err != nil {
		return nil, engine.Errorf("failed to create reader %q: %s", cfg.Name, err)
	}
	return &reader{
		p:         p,
		cfg:       cfg,
		topic:     cfg.Topic,
		t:         t,
		instances: make(map[uint64]*instance),
		sig:       newSignal(),
	}, nil
}

// deliver decodes a write into the reader's queue. The caller holds the
// engine lock.
func (r *reader) deliver(payload []byte, action engine.Action, key uint64, s sample) error {
	data, err := dyndata.Decode(r.t, payload)
	if err != nil {
		return engine.Errorf("reader %q failed to decode sample: %s", r.cfg.Name, err)
	}
	s.data = data
	s.instance = key
	s.receptionTimestamp = r.p.e.opts.clock().UnixNano()

	inst, ok := r.instances[key]
	if !ok {
		inst = &instance{}
		r.instances[key] = inst
	}
	switch action {
	case engine.ActionWrite:
		if inst.state != engine.InstanceStateAlive {
			inst.state = engine.InstanceStateAlive
			inst.viewed = false
		}
	case engine.ActionDispose:
		inst.state = engine.InstanceStateNotAliveDisposed
	case engine.ActionUnregister:
		inst.state = engine.InstanceStateNotAliveNoWriters
	}

	r.queue = append(r.queue, &s)
	if depth := r.cfg.HistoryDepth; depth > 0 {
		r.trimInstance(key, depth)
	}
	if limit := r.p.e.opts.maxSamples; limit > 0 && len(r.queue) > limit {
		r.queue = r.queue[len(r.queue)-limit:]
	}
	r.sig.broadcast()
	r.p.sig.broadcast()
	return nil
}

// trimInstance drops the oldest samples of an instance beyond depth.
func (r *reader) trimInstance(key uint64, depth int) {
	count := 0
	for _, s := range r.queue {
		if s.instance == key {
			count++
		}
	}
	if count <= depth {
		return
	}
	drop := count - depth
	out := r.queue[:0]
	for _, s := range r.queue {
		if s.instance == key && drop > 0 {
			drop--
			continue
		}
		out = append(out, s)
	}
	r.queue = out
}

// hasUnread reports whether the queue holds a sample not yet read. The caller
// holds the engine lock.
func (r *reader) hasUnread() bool {
	for _, s := range r.queue {
		if !s.read {
			return true
		}
	}
	return false
}

func (r *reader) Read() (int, error) {
	return r.load(false)
}

func (r *reader) Take() (int, error) {
	return r.load(true)
}

// load replaces the current batch with the queue contents, recording the
// states each sample has at this point and then marking samples read and
// instances viewed.
func (r *reader) load(take bool) (int, error) {
	if err := r.p.checkOpen(); err != nil {
		return 0, err
	}
	e := r.p.e
	e.mtx.Lock()
	defer e.mtx.Unlock()
	batch := make([]loaned, len(r.queue))
	for i, s := range r.queue {
		inst := r.instances[s.instance]
		l := loaned{
			sample:        s,
			sampleState:   engine.SampleStateNotRead,
			viewState:     engine.ViewStateNew,
			instanceState: inst.state,
		}
		if s.read {
			l.sampleState = engine.SampleStateRead
		}
		if inst.viewed {
			l.viewState = engine.ViewStateNotNew
		}
		batch[i] = l
	}
	for _, l := range batch {
		l.read = true
		r.instances[l.instance].viewed = true
	}
	if take {
		r.queue = nil
	}
	r.batch = batch
	return len(batch), nil
}

func (r *reader) Count() int {
	return len(r.batch)
}

func (r *reader) at(index int) (*loaned, error) {
	if index < 1 || index > len(r.batch) {
		return nil, engine.Errorf("sample index %d out of range [1, %d]", index, len(r.batch))
	}
	return &r.batch[index-1], nil
}

func (r *reader) Value(index int, path fieldpath.Path) (wire.Value, error) {
	l, err := r.at(index)
	if err != nil {
		return wire.Value{}, err
	}
	return l.data.Value(path)
}

func (r *reader) JSON(index int, path fieldpath.Path) ([]byte, error) {
	l, err := r.at(index)
	if err != nil {
		return nil, err
	}
	return l.data.JSON(path)
}

// Info returns sample metadata. Timestamps are reported as decimal text and
// identities as JSON text so that 64-bit values survive the scalar channel.
func (r *reader) Info(index int, key string) (wire.Value, error) {
	l, err := r.at(index)
	if err != nil {
		return wire.Value{}, err
	}
	switch key {
	case engine.InfoValidData:
		return wire.BooleanValue(l.valid), nil
	case engine.InfoSampleState:
		return wire.TextValue(l.sampleState), nil
	case engine.InfoViewState:
		return wire.TextValue(l.viewState), nil
	case engine.InfoInstanceState:
		return wire.TextValue(l.instanceState), nil
	case engine.InfoSourceTimestamp:
		return wire.TextValue(strconv.FormatInt(l.sourceTimestamp, 10)), nil
	case engine.InfoReceptionTimestamp:
		return wire.TextValue(strconv.FormatInt(l.receptionTimestamp, 10)), nil
	case engine.InfoSampleIdentity, engine.InfoIdentity:
		return identityValue(l.identity)
	case engine.InfoRelatedSampleIdentity:
		if l.related == nil {
			return identityValue(engine.SampleIdentity{})
		}
		return identityValue(*l.related)
	}
	return wire.Value{}, &engine.UnknownMemberError{Path: "info", Member: key}
}

func identityValue(id engine.SampleIdentity) (wire.Value, error) {
	data, err := json.Marshal(id)
	if err != nil {
		return wire.Value{}, engine.Errorf("failed to encode sample identity: %s", err)
	}
	return wire.TextValue(string(data)), nil
}

// WaitForData blocks until the reader has unread samples or its participant
// closes.
func (r *reader) WaitForData(timeout time.Duration) error {
	err := r.p.e.waitFor(timeout, func() *signal { return r.sig }, func() bool {
		return r.p.closed || r.hasUnread()
	})
	if err != nil {
		return err
	}
	return r.p.checkOpen()
}

// WaitForMatch blocks until the number of matched writers differs from the
// count seen by the previous call, and returns the difference.
func (r *reader) WaitForMatch(timeout time.Duration) (int, error) {
	var delta int
	err := r.p.e.waitFor(timeout, func() *signal { return r.sig }, func() bool {
		delta = len(r.matched) - r.lastCounts
		if delta == 0 {
			return false
		}
		r.lastCounts = len(r.matched)
		return true
	})
	if err != nil {
		return 0, err
	}
	return delta, nil
}

func (r *reader) Matched() ([]byte, error) {
	e := r.p.e
	e.mtx.Lock()
	names := make([]*string, len(r.matched))
	for i, w := range r.matched {
		names[i] = w.cfg.EndpointName
	}
	e.mtx.Unlock()
	return matchedJSON(names)
}
