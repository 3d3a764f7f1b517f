package engine

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
)

// MaxTimestamp is DDS_TIME_MAX in nanoseconds: 0x7fffffff seconds plus
// 999999999 nanoseconds.
const MaxTimestamp int64 = 2147483647999999999

// Action selects what a write does to its instance.
type Action string

const (
	ActionWrite      Action = "write"
	ActionDispose    Action = "dispose"
	ActionUnregister Action = "unregister"
)

// GUID identifies a writer.
type GUID [16]byte

// MarshalJSON renders the GUID as a list of 16 integers.
func (g GUID) MarshalJSON() ([]byte, error) {
	buf := &bytes.Buffer{}
	buf.WriteByte('[')
	for i, b := range g {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Itoa(int(b)))
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// UnmarshalJSON accepts a list of 16 integers, either bare or wrapped as
// {"value": [...]}.
func (g *GUID) UnmarshalJSON(data []byte) error {
	var raw []int
	if err := json.Unmarshal(data, &raw); err != nil {
		var wrapped struct {
			Value []int `json:"value"`
		}
		if werr := json.Unmarshal(data, &wrapped); werr != nil {
			return fmt.Errorf("invalid writer_guid: %w", err)
		}
		raw = wrapped.Value
	}
	if len(raw) != len(g) {
		return fmt.Errorf("invalid writer_guid: expected %d bytes, found %d", len(g), len(raw))
	}
	for i, b := range raw {
		if b < 0 || b > 255 {
			return fmt.Errorf("invalid writer_guid: byte %d out of range", b)
		}
		g[i] = byte(b)
	}
	return nil
}

// SequenceNumber is the writer-local sequence number of a sample.
type SequenceNumber int64

// UnmarshalJSON accepts an integer or a {"high": h, "low": l} pair.
func (s *SequenceNumber) UnmarshalJSON(data []byte) error {
	var n int64
	if err := json.Unmarshal(data, &n); err == nil {
		*s = SequenceNumber(n)
		return nil
	}
	var pair struct {
		High int32  `json:"high"`
		Low  uint32 `json:"low"`
	}
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("invalid sequence_number: %w", err)
	}
	*s = SequenceNumber(int64(pair.High)<<32 | int64(pair.Low))
	return nil
}

// SampleIdentity identifies a sample across the system.
type SampleIdentity struct {
	WriterGUID     GUID           `json:"writer_guid"`
	SequenceNumber SequenceNumber `json:"sequence_number"`
}

// WriteParams are the options of a Writer.Write call.
type WriteParams struct {
	Action                Action          `json:"action,omitempty"`
	SourceTimestamp       *int64          `json:"source_timestamp,omitempty"`
	Identity              *SampleIdentity `json:"identity,omitempty"`
	RelatedSampleIdentity *SampleIdentity `json:"related_sample_identity,omitempty"`
}

// Marshal renders the params as the JSON document Writer.Write expects.
func (p WriteParams) Marshal() ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode write params: %w", err)
	}
	return data, nil
}

// ParseWriteParams decodes and validates a write params document. Empty
// input yields a plain write.
func ParseWriteParams(data []byte) (WriteParams, error) {
	params := WriteParams{Action: ActionWrite}
	if len(bytes.TrimSpace(data)) == 0 {
		return params, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&params); err != nil {
		return params, Errorf("failed to parse write params: %s", err)
	}
	switch params.Action {
	case "":
		params.Action = ActionWrite
	case ActionWrite, ActionDispose, ActionUnregister:
	default:
		return params, Errorf("invalid action %q", params.Action)
	}
	if ts := params.SourceTimestamp; ts != nil {
		if *ts > MaxTimestamp {
			return params, Errorf("source timestamp is larger than DDS_TIME_MAX")
		}
		if *ts < 0 {
			return params, Errorf("source timestamp is negative")
		}
	}
	return params, nil
}
