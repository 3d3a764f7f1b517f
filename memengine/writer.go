package memengine

import (
	"time"

	"github.com/google/uuid"
	"github.com/wkalt/dynconn/config"
	"github.com/wkalt/dynconn/dyndata"
	"github.com/wkalt/dynconn/engine"
	"github.com/wkalt/dynconn/fieldpath"
	"github.com/wkalt/dynconn/util/log"
)

type writer struct {
	p     *participant
	cfg   *config.Endpoint
	topic string
	data  *dyndata.Data
	guid  engine.GUID
	seq   int64

	// guarded by the engine lock
	instances  map[uint64]bool
	matched    []*reader
	lastCounts int
	sig        *signal
}

func newWriter(p *participant, cfg *config.Endpoint) (*writer, error) {
	t, err := p.e.cfg.TopicType(cfg.Topic)
	if err != nil {
		return nil, engine.Errorf("failed to create writer %q: %s", cfg.Name, err)
	}
	return &writer{
		p:         p,
		cfg:       cfg,
		topic:     cfg.Topic,
		data:      dyndata.New(t),
		guid:      engine.GUID(uuid.New()),
		instances: make(map[uint64]bool),
		sig:       newSignal(),
	}, nil
}

func (w *writer) SetNumber(path fieldpath.Path, v float64) error {
	return w.data.SetNumber(path, v)
}

func (w *writer) SetBoolean(path fieldpath.Path, v bool) error {
	return w.data.SetBoolean(path, v)
}

func (w *writer) SetString(path fieldpath.Path, v string) error {
	return w.data.SetString(path, v)
}

func (w *writer) SetJSON(path fieldpath.Path, data []byte) error {
	return w.data.SetJSON(path, data)
}

func (w *writer) JSON(path fieldpath.Path) ([]byte, error) {
	return w.data.JSON(path)
}

func (w *writer) ClearMember(path fieldpath.Path) error {
	return w.data.Clear(path)
}

func (w *writer) Clear() error {
	w.data.Reset()
	return nil
}

// Write publishes the staged record to every matched reader. Dispose and
// unregister publish only the key members.
func (w *writer) Write(params []byte) error {
	if err := w.p.checkOpen(); err != nil {
		return err
	}
	wp, err := engine.ParseWriteParams(params)
	if err != nil {
		return err
	}
	key, err := w.data.KeyHash()
	if err != nil {
		return engine.Errorf("failed to compute instance key: %s", err)
	}
	payload := w.data
	if wp.Action != engine.ActionWrite {
		payload = w.data.KeyOnly()
	}
	encoded, err := payload.Encode()
	if err != nil {
		return engine.Errorf("failed to encode sample: %s", err)
	}

	e := w.p.e
	e.mtx.Lock()
	defer e.mtx.Unlock()
	ctx := log.AddTags(w.p.ctx, "writer", w.cfg.Name)
	switch wp.Action {
	case engine.ActionWrite, engine.ActionDispose:
		if !w.instances[key] {
			if limit := w.cfg.MaxInstances; limit > 0 && len(w.instances) >= limit {
				log.Warnw(ctx, "instance limit reached", "maxInstances", limit)
				return engine.Errorf("failed to write: out of resources: writer %q reached max_instances %d", w.cfg.Name, limit)
			}
			w.instances[key] = true
		}
	case engine.ActionUnregister:
		if !w.instances[key] {
			return engine.Errorf("failed to unregister: instance is not registered with writer %q", w.cfg.Name)
		}
		delete(w.instances, key)
	}
	if wp.Action != engine.ActionWrite {
		log.Debugw(ctx, "instance "+string(wp.Action), "instance", key)
	}

	w.seq++
	s := sample{
		valid:    wp.Action == engine.ActionWrite,
		identity: engine.SampleIdentity{WriterGUID: w.guid, SequenceNumber: engine.SequenceNumber(w.seq)},
		related:  wp.RelatedSampleIdentity,
	}
	if wp.Identity != nil {
		s.identity = *wp.Identity
	}
	if wp.SourceTimestamp != nil {
		s.sourceTimestamp = *wp.SourceTimestamp
	} else {
		s.sourceTimestamp = e.opts.clock().UnixNano()
	}
	for _, r := range w.matched {
		if err := r.deliver(encoded, wp.Action, key, s); err != nil {
			return err
		}
	}
	return nil
}

// WaitForAcknowledgments returns immediately: delivery to matched readers is
// complete when Write returns.
func (w *writer) WaitForAcknowledgments(_ time.Duration) error {
	return w.p.checkOpen()
}

// WaitForMatch blocks until the number of matched readers differs from the
// count seen by the previous call, and returns the difference.
func (w *writer) WaitForMatch(timeout time.Duration) (int, error) {
	var delta int
	err := w.p.e.waitFor(timeout, func() *signal { return w.sig }, func() bool {
		delta = len(w.matched) - w.lastCounts
		if delta == 0 {
			return false
		}
		w.lastCounts = len(w.matched)
		return true
	})
	if err != nil {
		return 0, err
	}
	return delta, nil
}

func (w *writer) Matched() ([]byte, error) {
	e := w.p.e
	e.mtx.Lock()
	names := make([]*string, len(w.matched))
	for i, r := range w.matched {
		names[i] = r.cfg.EndpointName
	}
	e.mtx.Unlock()
	return matchedJSON(names)
}
