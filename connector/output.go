package connector

import (
	"context"
	"fmt"
	"time"

	"github.com/wkalt/dynconn/engine"
	"github.com/wkalt/dynconn/fieldpath"
	"github.com/wkalt/dynconn/util/log"
	"github.com/wkalt/dynconn/wire"
)

// Output publishes the records of one writer.
type Output struct {
	c        *Connector
	ctx      context.Context
	name     string
	writer   engine.Writer
	instance *Instance
}

// WriteOption is an option for Output.Write.
type WriteOption func(*engine.WriteParams)

// WithAction sets what the write does to its instance: write (the default),
// dispose or unregister.
func WithAction(action engine.Action) WriteOption {
	return func(p *engine.WriteParams) {
		p.Action = action
	}
}

// WithSourceTimestamp sets the source timestamp of the sample in nanoseconds.
func WithSourceTimestamp(ns int64) WriteOption {
	return func(p *engine.WriteParams) {
		p.SourceTimestamp = &ns
	}
}

// WithIdentity sets the identity of the sample instead of the one the writer
// would assign.
func WithIdentity(id engine.SampleIdentity) WriteOption {
	return func(p *engine.WriteParams) {
		p.Identity = &id
	}
}

// WithRelatedSampleIdentity records the identity of a sample this one relates
// to, such as the request a reply answers.
func WithRelatedSampleIdentity(id engine.SampleIdentity) WriteOption {
	return func(p *engine.WriteParams) {
		p.RelatedSampleIdentity = &id
	}
}

// Name returns the writer name the output was created with.
func (o *Output) Name() string {
	return o.name
}

// Instance returns the output's staged record.
func (o *Output) Instance() *Instance {
	return o.instance
}

// Write publishes the staged record. The staged values are kept for the next
// write.
func (o *Output) Write(opts ...WriteOption) error {
	var params []byte
	wp := engine.WriteParams{}
	if len(opts) > 0 {
		for _, opt := range opts {
			opt(&wp)
		}
		var err error
		if params, err = wp.Marshal(); err != nil {
			return err
		}
	}
	if err := o.writer.Write(params); err != nil {
		return fmt.Errorf("failed to write %q: %w", o.name, err)
	}
	if wp.Action != "" && wp.Action != engine.ActionWrite {
		log.Debugw(o.ctx, "wrote instance change", "action", wp.Action)
	}
	return nil
}

// Wait blocks until matched readers acknowledged the written samples, or the
// timeout expires with ErrTimeout.
func (o *Output) Wait(timeout time.Duration) error {
	return o.writer.WaitForAcknowledgments(timeout)
}

// WaitForSubscriptions blocks until the number of matched readers changes and
// returns the change since the previous call.
func (o *Output) WaitForSubscriptions(timeout time.Duration) (int, error) {
	return o.writer.WaitForMatch(timeout)
}

// MatchedSubscriptions lists the readers matched with the output.
func (o *Output) MatchedSubscriptions() ([]engine.MatchedEndpoint, error) {
	data, err := o.writer.Matched()
	if err != nil {
		return nil, fmt.Errorf("failed to list matched subscriptions: %w", err)
	}
	return parseMatched(data)
}

// ClearMembers resets every member of the staged record to its default.
func (o *Output) ClearMembers() error {
	return o.instance.ClearMembers()
}

// Instance is the record an output stages for writing. Setters change it in
// place and a failed setter leaves it unchanged.
type Instance struct {
	out *Output
}

func (i *Instance) writer() engine.Writer {
	return i.out.writer
}

func (i *Instance) parse(path string) (fieldpath.Path, error) {
	return i.out.c.parse(path)
}

// Set assigns v to the member at path, choosing the setter from v's type: nil
// clears, booleans and strings use the boolean and string setters, numbers
// the numeric setter unless they are integers a double cannot represent, and
// maps, slices and complex values the complex setter.
func (i *Instance) Set(path string, v any) error {
	switch v := v.(type) {
	case nil:
		return i.ClearMember(path)
	case bool:
		return i.SetBoolean(path, v)
	case string:
		return i.SetString(path, v)
	case wire.Value:
		return i.setValue(path, v)
	}
	c, err := wire.FromGo(v)
	if err != nil {
		return withPath(path, err)
	}
	switch c := c.(type) {
	case wire.Null:
		return i.ClearMember(path)
	case wire.Bool:
		return i.SetBoolean(path, bool(c))
	case wire.String:
		return i.SetString(path, string(c))
	case wire.Number:
		if c.IsInteger() && !c.IsSafeInteger() {
			return i.setComplex(path, c)
		}
		return i.setNumber(path, c)
	}
	return i.setComplex(path, c)
}

func (i *Instance) setValue(path string, v wire.Value) error {
	switch v.Kind() {
	case wire.KindNumber:
		f, _ := v.Number()
		return i.SetNumber(path, f)
	case wire.KindBoolean:
		b, _ := v.Boolean()
		return i.SetBoolean(path, b)
	case wire.KindText:
		s, _ := v.Text()
		return i.SetString(path, s)
	}
	return i.ClearMember(path)
}

// SetNumber assigns a number to a numeric member. Booleans are assigned as 1
// and 0 and nil clears the member. Go integers of magnitude 2^53 or more fail
// with ValueTooLargeError; pass them to SetComplex or SetDictionary. Floats
// are already doubles and are sent as they are at any magnitude, so a float64
// such as 1<<60 reaches an integer member exactly.
func (i *Instance) SetNumber(path string, v any) error {
	switch v := v.(type) {
	case nil:
		return i.ClearMember(path)
	case bool:
		if v {
			return i.setNumber(path, wire.Int(1))
		}
		return i.setNumber(path, wire.Int(0))
	}
	c, err := wire.FromGo(v)
	if err != nil {
		return withPath(path, err)
	}
	num, ok := c.(wire.Number)
	if !ok {
		return &TypeMismatchError{Path: path, Expected: "number", Actual: kindOf(c)}
	}
	return i.setNumber(path, num)
}

func (i *Instance) setNumber(path string, num wire.Number) error {
	if num.IsInteger() && !num.IsSafeInteger() {
		return &ValueTooLargeError{Path: path, Value: string(num), Limit: "2^53"}
	}
	f, err := num.Float64()
	if err != nil {
		return withPath(path, err)
	}
	p, err := i.parse(path)
	if err != nil {
		return err
	}
	return i.writer().SetNumber(p, f)
}

// SetBoolean assigns a boolean member. nil clears the member; any other
// non-boolean fails with TypeMismatchError.
func (i *Instance) SetBoolean(path string, v any) error {
	switch v := v.(type) {
	case nil:
		return i.ClearMember(path)
	case bool:
		p, err := i.parse(path)
		if err != nil {
			return err
		}
		return i.writer().SetBoolean(p, v)
	}
	return &TypeMismatchError{Path: path, Expected: "boolean", Actual: describe(v)}
}

// SetString assigns a string, char or enum member. nil clears the member;
// numbers and booleans are never converted and fail with TypeMismatchError.
func (i *Instance) SetString(path string, v any) error {
	switch v := v.(type) {
	case nil:
		return i.ClearMember(path)
	case string:
		p, err := i.parse(path)
		if err != nil {
			return err
		}
		return i.writer().SetString(p, v)
	}
	return &TypeMismatchError{Path: path, Expected: "string", Actual: describe(v)}
}

// SetComplex merges v into the member at path. v may be a wire.Complex or
// any value wire.FromGo accepts. Objects merge member by member and keep
// members they do not name; null values clear members; arrays replace
// sequences. Integers are carried exactly up to 64 bits.
func (i *Instance) SetComplex(path string, v any) error {
	c, err := wire.FromGo(v)
	if err != nil {
		return withPath(path, err)
	}
	return i.setComplex(path, c)
}

func (i *Instance) setComplex(path string, c wire.Complex) error {
	if _, ok := c.(wire.Null); ok {
		return i.ClearMember(path)
	}
	p, err := i.parse(path)
	if err != nil {
		return err
	}
	data, err := wire.Marshal(c)
	if err != nil {
		return withPath(path, err)
	}
	return i.writer().SetJSON(p, data)
}

// SetDictionary merges an object into the whole record. Members it does not
// name keep their staged values; call ClearMembers first to start from
// defaults.
func (i *Instance) SetDictionary(v any) error {
	c, err := wire.FromGo(v)
	if err != nil {
		return err
	}
	if _, ok := c.(wire.Object); !ok {
		return &TypeMismatchError{Expected: "object", Actual: kindOf(c)}
	}
	return i.setComplex("", c)
}

// ClearMember resets the member at path: optional members become unset and
// others return to their declared default.
func (i *Instance) ClearMember(path string) error {
	p, err := i.parse(path)
	if err != nil {
		return err
	}
	return i.writer().ClearMember(p)
}

// ClearMembers resets the whole record to its defaults.
func (i *Instance) ClearMembers() error {
	if err := i.writer().Clear(); err != nil {
		return fmt.Errorf("failed to clear %q: %w", i.out.name, err)
	}
	return nil
}

// Dictionary returns the staged record.
func (i *Instance) Dictionary() (wire.Object, error) {
	data, err := i.writer().JSON(fieldpath.Path{})
	if err != nil {
		return nil, err
	}
	c, err := wire.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode staged record: %w", err)
	}
	obj, ok := c.(wire.Object)
	if !ok {
		return nil, &TypeMismatchError{Expected: "object", Actual: kindOf(c)}
	}
	return obj, nil
}

// Commit returns the record the next Write will publish. It does not reset
// the staged values.
func (i *Instance) Commit() (wire.Object, error) {
	return i.Dictionary()
}

func describe(v any) string {
	c, err := wire.FromGo(v)
	if err != nil {
		return fmt.Sprintf("%T", v)
	}
	return kindOf(c)
}

func withPath(path string, err error) error {
	if path == "" {
		return err
	}
	return fmt.Errorf("%s: %w", path, err)
}
