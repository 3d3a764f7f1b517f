package connector

import (
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/wkalt/dynconn/engine"
	"github.com/wkalt/dynconn/fieldpath"
	"github.com/wkalt/dynconn/wire"
)

// Sample is one record of a batch.
type Sample struct {
	samples *Samples
	index   int
}

// Index returns the sample's 0-based position in its batch.
func (s *Sample) Index() int {
	return s.index
}

func (s *Sample) reader() engine.Reader {
	return s.samples.in.reader
}

// check fails when the batch was replaced or the sample lies outside it, as
// for an iterator that is not on a sample.
func (s *Sample) check() error {
	if err := s.samples.check(); err != nil {
		return err
	}
	if s.index < 0 || s.index >= s.samples.count {
		return &IndexOutOfRangeError{Index: s.index, Limit: s.samples.count}
	}
	return nil
}

// resolve checks the sample and parses path.
func (s *Sample) resolve(path string) (fieldpath.Path, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	return s.samples.in.c.parse(path)
}

// Scalar returns the leaf at path as it crosses the engine boundary. Struct,
// union, sequence and array members fail with TypeMismatchError; use Complex
// for those.
func (s *Sample) Scalar(path string) (wire.Value, error) {
	p, err := s.resolve(path)
	if err != nil {
		return wire.Value{}, err
	}
	v, err := s.reader().Value(engineIndex(s.index), p)
	if err != nil {
		return wire.Value{}, err
	}
	return v, nil
}

// Get returns the leaf at path decoded into a complex value. Integers sent as
// text come back exact. It returns nil when the member is absent.
func (s *Sample) Get(path string) (wire.Complex, error) {
	v, err := s.Scalar(path)
	if err != nil {
		return nil, err
	}
	return wire.Decode(v)
}

// Number returns a numeric leaf. Booleans read as 1 and 0. Integers too large
// for a double fail with ValueTooLargeError; read them with Get or Complex.
// ok is false when the member is absent.
func (s *Sample) Number(path string) (float64, bool, error) {
	v, err := s.Scalar(path)
	if err != nil {
		return 0, false, err
	}
	switch v.Kind() {
	case wire.KindAbsent:
		return 0, false, nil
	case wire.KindNumber, wire.KindBoolean:
		f, _ := v.Number()
		return f, true, nil
	}
	// Text only stands in for a number when the integer is too large for a
	// double. Any other text is a string member.
	text, _ := v.Text()
	c, err := wire.Decode(v)
	if err != nil {
		return 0, false, err
	}
	if num, ok := c.(wire.Number); ok && num.IsInteger() && !num.IsSafeInteger() {
		return 0, false, &ValueTooLargeError{Path: path, Value: text, Limit: "2^53"}
	}
	return 0, false, &TypeMismatchError{Path: path, Expected: "number", Actual: "string"}
}

// Boolean returns a boolean leaf. Numbers read as true when non-zero.
func (s *Sample) Boolean(path string) (bool, bool, error) {
	v, err := s.Scalar(path)
	if err != nil {
		return false, false, err
	}
	switch v.Kind() {
	case wire.KindAbsent:
		return false, false, nil
	case wire.KindBoolean:
		b, _ := v.Boolean()
		return b, true, nil
	case wire.KindNumber:
		f, _ := v.Number()
		return f != 0, true, nil
	}
	return false, false, &TypeMismatchError{Path: path, Expected: "boolean", Actual: "string"}
}

// String returns a leaf as text. Numbers use the shortest formatting that
// round-trips and booleans read as "true" or "false".
func (s *Sample) String(path string) (string, bool, error) {
	v, err := s.Scalar(path)
	if err != nil {
		return "", false, err
	}
	switch v.Kind() {
	case wire.KindAbsent:
		return "", false, nil
	case wire.KindNumber:
		f, _ := v.Number()
		return wire.FormatNumber(f), true, nil
	case wire.KindBoolean:
		b, _ := v.Boolean()
		return strconv.FormatBool(b), true, nil
	}
	text, _ := v.Text()
	return text, true, nil
}

// Complex returns the member at path as a complex value. The empty path is
// the whole record. ok is false when the member is an unset optional or an
// unselected union member.
func (s *Sample) Complex(path string) (wire.Complex, bool, error) {
	p, err := s.resolve(path)
	if err != nil {
		return nil, false, err
	}
	data, err := s.reader().JSON(engineIndex(s.index), p)
	if err != nil {
		return nil, false, err
	}
	if data == nil {
		return nil, false, nil
	}
	c, err := wire.Unmarshal(data)
	if err != nil {
		return nil, false, fmt.Errorf("failed to decode %q: %w", path, err)
	}
	return c, true, nil
}

// ValidData reports whether the sample carries data. Dispose and unregister
// notifications do not; they answer key members only and report defaults for
// every other member.
func (s *Sample) ValidData() (bool, error) {
	v, err := s.Info().value(engine.InfoValidData)
	if err != nil {
		return false, err
	}
	b, ok := v.Boolean()
	if !ok {
		return false, &TypeMismatchError{Path: engine.InfoValidData, Expected: "boolean", Actual: v.Kind().String()}
	}
	return b, nil
}

// Info returns the sample's metadata.
func (s *Sample) Info() *SampleInfo {
	return &SampleInfo{sample: s}
}

// SampleInfo is the metadata of a sample.
type SampleInfo struct {
	sample *Sample
}

func (i *SampleInfo) value(key string) (wire.Value, error) {
	s := i.sample
	if err := s.check(); err != nil {
		return wire.Value{}, err
	}
	return s.reader().Info(engineIndex(s.index), key)
}

// Get returns one metadata entry by key: valid_data, sample_state,
// view_state, instance_state, source_timestamp, reception_timestamp,
// sample_identity (or identity) and related_sample_identity. Timestamps are
// exact nanosecond counts; identities are objects holding writer_guid and
// sequence_number. Unknown keys fail with UnknownMemberError.
func (i *SampleInfo) Get(key string) (wire.Complex, error) {
	v, err := i.value(key)
	if err != nil {
		return nil, err
	}
	return wire.Decode(v)
}

// SourceTimestamp returns the source timestamp in nanoseconds.
func (i *SampleInfo) SourceTimestamp() (int64, error) {
	return i.timestamp(engine.InfoSourceTimestamp)
}

// ReceptionTimestamp returns the reception timestamp in nanoseconds.
func (i *SampleInfo) ReceptionTimestamp() (int64, error) {
	return i.timestamp(engine.InfoReceptionTimestamp)
}

func (i *SampleInfo) timestamp(key string) (int64, error) {
	c, err := i.Get(key)
	if err != nil {
		return 0, err
	}
	num, ok := c.(wire.Number)
	if !ok {
		return 0, &TypeMismatchError{Path: key, Expected: "number", Actual: kindOf(c)}
	}
	ts, err := num.Int64()
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return ts, nil
}

// Identity returns the identity of the sample.
func (i *SampleInfo) Identity() (engine.SampleIdentity, error) {
	return i.identity(engine.InfoSampleIdentity)
}

// RelatedIdentity returns the identity of the sample this one relates to, as
// given by the writer. It is zero when the writer gave none.
func (i *SampleInfo) RelatedIdentity() (engine.SampleIdentity, error) {
	return i.identity(engine.InfoRelatedSampleIdentity)
}

func (i *SampleInfo) identity(key string) (engine.SampleIdentity, error) {
	var id engine.SampleIdentity
	v, err := i.value(key)
	if err != nil {
		return id, err
	}
	text, ok := v.Text()
	if !ok {
		return id, &TypeMismatchError{Path: key, Expected: "text", Actual: v.Kind().String()}
	}
	if err := json.Unmarshal([]byte(text), &id); err != nil {
		return id, fmt.Errorf("invalid %s: %w", key, err)
	}
	return id, nil
}

// InstanceState returns ALIVE, NOT_ALIVE_DISPOSED or NOT_ALIVE_NO_WRITERS.
func (i *SampleInfo) InstanceState() (string, error) {
	return i.text(engine.InfoInstanceState)
}

// ViewState returns NEW or NOT_NEW.
func (i *SampleInfo) ViewState() (string, error) {
	return i.text(engine.InfoViewState)
}

// SampleState returns READ or NOT_READ.
func (i *SampleInfo) SampleState() (string, error) {
	return i.text(engine.InfoSampleState)
}

func (i *SampleInfo) text(key string) (string, error) {
	v, err := i.value(key)
	if err != nil {
		return "", err
	}
	text, ok := v.Text()
	if !ok {
		return "", &TypeMismatchError{Path: key, Expected: "text", Actual: v.Kind().String()}
	}
	return text, nil
}

func kindOf(c wire.Complex) string {
	if c == nil {
		return "absent"
	}
	return c.Kind().String()
}
