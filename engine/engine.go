package engine

import (
	"time"

	"github.com/wkalt/dynconn/fieldpath"
	"github.com/wkalt/dynconn/wire"
)

/*
Package engine is the narrow request/response boundary between the connector
and a middleware engine. The engine owns participants, readers, writers,
discovery and transport; the connector sees only path-addressed getters and
setters over the four wire kinds, JSON blobs for complex values, and blocking
waits with timeouts.

Sample indexes passed to Reader methods are 1-based, following the native
engine convention. The connector converts from its 0-based indexes in one
place.
*/

////////////////////////////////////////////////////////////////////////////////

// Infinite is the timeout that never expires.
const Infinite time.Duration = -1

// Engine opens participants from named configurations.
type Engine interface {
	Open(configName string) (Participant, error)
}

// Participant owns the readers and writers of one configuration.
type Participant interface {
	Reader(name string) (Reader, error)
	Writer(name string) (Writer, error)
	// WaitForData blocks until any reader of the participant has unread
	// data.
	WaitForData(timeout time.Duration) error
	Close() error
}

// Reader is the receiving side of a topic.
type Reader interface {
	// Read refreshes the reader's batch without removing samples from the
	// engine queue. Take removes them.
	Read() (int, error)
	Take() (int, error)
	// Count is the size of the current batch.
	Count() int
	Value(index int, path fieldpath.Path) (wire.Value, error)
	// JSON returns nil when the addressed member is absent.
	JSON(index int, path fieldpath.Path) ([]byte, error)
	Info(index int, key string) (wire.Value, error)
	WaitForData(timeout time.Duration) error
	// WaitForMatch returns the change in matched writers since the previous
	// call.
	WaitForMatch(timeout time.Duration) (int, error)
	// Matched returns a JSON list of MatchedEndpoint.
	Matched() ([]byte, error)
}

// Writer is the sending side of a topic. It holds one staged record.
type Writer interface {
	SetNumber(path fieldpath.Path, v float64) error
	SetBoolean(path fieldpath.Path, v bool) error
	SetString(path fieldpath.Path, v string) error
	// SetJSON merges a JSON value into the member at path.
	SetJSON(path fieldpath.Path, data []byte) error
	JSON(path fieldpath.Path) ([]byte, error)
	ClearMember(path fieldpath.Path) error
	Clear() error
	// Write publishes the staged record. params is a JSON WriteParams
	// document and may be empty.
	Write(params []byte) error
	WaitForAcknowledgments(timeout time.Duration) error
	WaitForMatch(timeout time.Duration) (int, error)
	Matched() ([]byte, error)
}

// MatchedEndpoint is one entry of a Matched list. Name is nil for endpoints
// that did not publish a name.
type MatchedEndpoint struct {
	Name *string `json:"name"`
}

// Sample info keys understood by Reader.Info.
const (
	InfoValidData             = "valid_data"
	InfoSampleState           = "sample_state"
	InfoViewState             = "view_state"
	InfoInstanceState         = "instance_state"
	InfoSourceTimestamp       = "source_timestamp"
	InfoReceptionTimestamp    = "reception_timestamp"
	InfoSampleIdentity        = "sample_identity"
	InfoIdentity              = "identity"
	InfoRelatedSampleIdentity = "related_sample_identity"
)

// Sample, view and instance states as reported by Info.
const (
	SampleStateRead    = "READ"
	SampleStateNotRead = "NOT_READ"

	ViewStateNew    = "NEW"
	ViewStateNotNew = "NOT_NEW"

	InstanceStateAlive             = "ALIVE"
	InstanceStateNotAliveDisposed  = "NOT_ALIVE_DISPOSED"
	InstanceStateNotAliveNoWriters = "NOT_ALIVE_NO_WRITERS"
)
