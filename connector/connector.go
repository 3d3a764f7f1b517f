package connector

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/wkalt/dynconn/engine"
	"github.com/wkalt/dynconn/fieldpath"
	"github.com/wkalt/dynconn/util/log"
)

/*
Package connector reads and writes typed records of a middleware engine by
field path. A Connector opens one participant of an engine configuration and
hands out an Input per reader and an Output per writer.

Inputs expose the samples of the most recent Read or Take as a Samples batch.
Each Read or Take replaces the batch; batches, samples and iterators of an
earlier call fail with ErrStaleSamples instead of answering from the new
batch. Outputs stage one record in an Instance, which keeps its values across
writes until they are cleared.

Field values cross the engine boundary as one of four scalar kinds (absent,
number, boolean, text) or as JSON for whole structs, unions, sequences and
arrays. Integers that a double cannot represent exactly travel as text or
JSON, never as numbers.

Connector types do no locking. Callers sharing a connector between
goroutines must serialize their calls.
*/

////////////////////////////////////////////////////////////////////////////////

// Infinite is the timeout of a wait that never expires.
const Infinite = engine.Infinite

// Connector is an open participant.
type Connector struct {
	ctx         context.Context
	name        string
	participant engine.Participant
	paths       *fieldpath.Cache
	inputs      map[string]*Input
	outputs     map[string]*Output
	closed      bool
}

// New opens the participant configName of eng.
func New(eng engine.Engine, configName string, opts ...Option) (*Connector, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	participant, err := eng.Open(configName)
	if err != nil {
		return nil, fmt.Errorf("failed to open participant %q: %w", configName, err)
	}
	return &Connector{
		ctx:         log.AddTags(o.ctx, "participant", configName),
		name:        configName,
		participant: participant,
		paths:       fieldpath.NewCache(o.pathCacheSize),
		inputs:      make(map[string]*Input),
		outputs:     make(map[string]*Output),
	}, nil
}

// Close closes the participant. Inputs and outputs of the connector must not
// be used afterwards.
func (c *Connector) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	if err := c.participant.Close(); err != nil {
		return fmt.Errorf("failed to close participant %q: %w", c.name, err)
	}
	log.Debugw(c.ctx, "connector closed")
	return nil
}

// Input returns the input bound to the named reader. Repeated calls return the
// same input.
func (c *Connector) Input(name string) (*Input, error) {
	if in, ok := c.inputs[name]; ok {
		return in, nil
	}
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	reader, err := c.participant.Reader(name)
	if err != nil {
		return nil, fmt.Errorf("failed to get input %q: %w", name, err)
	}
	in := &Input{
		c:      c,
		ctx:    log.AddTags(c.ctx, "input", name),
		name:   name,
		reader: reader,
	}
	in.samples = &Samples{in: in}
	c.inputs[name] = in
	return in, nil
}

// Output returns the output bound to the named writer. Repeated calls return
// the same output.
func (c *Connector) Output(name string) (*Output, error) {
	if out, ok := c.outputs[name]; ok {
		return out, nil
	}
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	writer, err := c.participant.Writer(name)
	if err != nil {
		return nil, fmt.Errorf("failed to get output %q: %w", name, err)
	}
	out := &Output{
		c:      c,
		ctx:    log.AddTags(c.ctx, "output", name),
		name:   name,
		writer: writer,
	}
	out.instance = &Instance{out: out}
	c.outputs[name] = out
	return out, nil
}

// Wait blocks until any input of the connector has data, or the timeout
// expires with ErrTimeout.
func (c *Connector) Wait(timeout time.Duration) error {
	return c.participant.WaitForData(timeout)
}

func (c *Connector) checkOpen() error {
	if c.closed {
		return &EngineError{Message: fmt.Sprintf("connector for participant %q is closed", c.name)}
	}
	return nil
}

// parse parses a field path through the connector's cache.
func (c *Connector) parse(path string) (fieldpath.Path, error) {
	return c.paths.Parse(path)
}

// engineIndex converts a 0-based batch index to the engine's 1-based sample
// index. Every sample access goes through it.
func engineIndex(i int) int {
	return i + 1
}

func parseMatched(data []byte) ([]engine.MatchedEndpoint, error) {
	var matched []engine.MatchedEndpoint
	if err := json.Unmarshal(data, &matched); err != nil {
		return nil, fmt.Errorf("failed to decode matched endpoints: %w", err)
	}
	return matched, nil
}
