package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/wkalt/dynconn/dyndata"
	"github.com/wkalt/dynconn/idl"
	"gopkg.in/yaml.v3"
)

/*
Package config loads engine topologies from YAML. A configuration declares
IDL types, topics binding a name to a type, and participants on a domain
holding named writers and readers. Participants are opened by name; writers
and readers of participants on the same domain and topic match each other.

	types: |
	  struct ShapeType { @key string<128> color; long x; long y; };
	topics:
	  - name: Square
	    type: ShapeType
	participants:
	  - name: MyParticipantLibrary::Zero
	    domain: 0
	    writers:
	      - name: MyPublisher::MySquareWriter
	        topic: Square
	        endpointName: MyWriter

IDL may also be kept in a separate file referenced by typesFile, resolved
relative to the configuration file.
*/

////////////////////////////////////////////////////////////////////////////////

// Config is a parsed and validated topology.
type Config struct {
	Types        string        `yaml:"types"`
	TypesFile    string        `yaml:"typesFile"`
	Topics       []Topic       `yaml:"topics"`
	Participants []Participant `yaml:"participants"`

	types map[string]*dyndata.Type
}

// Topic binds a topic name to a type name.
type Topic struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// Participant is a named set of endpoints on one domain.
type Participant struct {
	Name    string     `yaml:"name"`
	Domain  int        `yaml:"domain"`
	Writers []Endpoint `yaml:"writers"`
	Readers []Endpoint `yaml:"readers"`
}

// Endpoint is a writer or reader. EndpointName is the name announced to
// matched endpoints; endpoints without one are listed with a null name.
type Endpoint struct {
	Name         string  `yaml:"name"`
	Topic        string  `yaml:"topic"`
	EndpointName *string `yaml:"endpointName"`

	// MaxInstances limits the instances a writer may register. Zero is
	// unlimited.
	MaxInstances int `yaml:"maxInstances"`

	// HistoryDepth limits the samples a reader keeps per instance. Zero keeps
	// all samples.
	HistoryDepth int `yaml:"historyDepth"`
}

// Load reads and validates a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data, filepath.Dir(path))
}

// Parse decodes and validates a configuration. dir is the directory
// typesFile is resolved against.
func Parse(data []byte, dir string) (*Config, error) {
	c := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := c.loadTypes(dir); err != nil {
		return nil, err
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Type returns a type declared by the configuration's IDL.
func (c *Config) Type(name string) (*dyndata.Type, bool) {
	t, ok := c.types[name]
	return t, ok
}

// TypeNames returns the names of the declared types.
func (c *Config) TypeNames() []string {
	names := make([]string, 0, len(c.types))
	for name := range c.types {
		names = append(names, name)
	}
	return names
}

// TopicType returns the type of a topic.
func (c *Config) TopicType(topic string) (*dyndata.Type, error) {
	for _, t := range c.Topics {
		if t.Name == topic {
			typ, ok := c.types[t.Type]
			if !ok {
				return nil, &ValidationError{Field: "topics." + topic, Reason: fmt.Sprintf("unknown type %s", t.Type)}
			}
			return typ, nil
		}
	}
	return nil, &ValidationError{Field: "topics", Reason: fmt.Sprintf("unknown topic %s", topic)}
}

// Participant looks up a participant by name.
func (c *Config) Participant(name string) (*Participant, bool) {
	for i := range c.Participants {
		if c.Participants[i].Name == name {
			return &c.Participants[i], true
		}
	}
	return nil, false
}

// Writer looks up a writer of the participant.
func (p *Participant) Writer(name string) (*Endpoint, bool) {
	return findEndpoint(p.Writers, name)
}

// Reader looks up a reader of the participant.
func (p *Participant) Reader(name string) (*Endpoint, bool) {
	return findEndpoint(p.Readers, name)
}

func findEndpoint(endpoints []Endpoint, name string) (*Endpoint, bool) {
	for i := range endpoints {
		if endpoints[i].Name == name {
			return &endpoints[i], true
		}
	}
	return nil, false
}

func (c *Config) loadTypes(dir string) error {
	text := c.Types
	if c.TypesFile != "" {
		if text != "" {
			return &ValidationError{Field: "typesFile", Reason: "types and typesFile are mutually exclusive"}
		}
		path := c.TypesFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read types file: %w", err)
		}
		text = string(data)
	}
	types, err := idl.Parse(text)
	if err != nil {
		return fmt.Errorf("failed to parse types: %w", err)
	}
	c.types = types
	return nil
}

func (c *Config) validate() error {
	topics := map[string]bool{}
	for i, t := range c.Topics {
		field := fmt.Sprintf("topics[%d]", i)
		if t.Name == "" {
			return &ValidationError{Field: field, Reason: "missing name"}
		}
		if topics[t.Name] {
			return &ValidationError{Field: field, Reason: fmt.Sprintf("duplicate topic %s", t.Name)}
		}
		topics[t.Name] = true
		typ, ok := c.types[t.Type]
		if !ok {
			return &ValidationError{Field: field, Reason: fmt.Sprintf("unknown type %q", t.Type)}
		}
		if typ.Kind != dyndata.KindStruct && typ.Kind != dyndata.KindUnion {
			return &ValidationError{Field: field, Reason: fmt.Sprintf("type %s is not a struct or union", t.Type)}
		}
	}
	participants := map[string]bool{}
	for i, p := range c.Participants {
		field := fmt.Sprintf("participants[%d]", i)
		if p.Name == "" {
			return &ValidationError{Field: field, Reason: "missing name"}
		}
		if participants[p.Name] {
			return &ValidationError{Field: field, Reason: fmt.Sprintf("duplicate participant %s", p.Name)}
		}
		participants[p.Name] = true
		if p.Domain < 0 {
			return &ValidationError{Field: field, Reason: "domain must be non-negative"}
		}
		if err := validateEndpoints(field+".writers", p.Writers, topics); err != nil {
			return err
		}
		if err := validateEndpoints(field+".readers", p.Readers, topics); err != nil {
			return err
		}
	}
	return nil
}

func validateEndpoints(field string, endpoints []Endpoint, topics map[string]bool) error {
	seen := map[string]bool{}
	for i, e := range endpoints {
		at := fmt.Sprintf("%s[%d]", field, i)
		if e.Name == "" {
			return &ValidationError{Field: at, Reason: "missing name"}
		}
		if seen[e.Name] {
			return &ValidationError{Field: at, Reason: fmt.Sprintf("duplicate endpoint %s", e.Name)}
		}
		seen[e.Name] = true
		if !topics[e.Topic] {
			return &ValidationError{Field: at, Reason: fmt.Sprintf("unknown topic %q", e.Topic)}
		}
		if e.MaxInstances < 0 {
			return &ValidationError{Field: at, Reason: "maxInstances must be non-negative"}
		}
		if e.HistoryDepth < 0 {
			return &ValidationError{Field: at, Reason: "historyDepth must be non-negative"}
		}
	}
	return nil
}
