package connector

import (
	"errors"

	"github.com/wkalt/dynconn/engine"
	"github.com/wkalt/dynconn/fieldpath"
	"github.com/wkalt/dynconn/wire"
)

// BadPathError is returned when a field path does not parse. It is detected
// before any engine call.
type BadPathError = fieldpath.BadPathError

// UnknownMemberError is returned when a path does not name a member of the
// record's type, or a sample info key is not known.
type UnknownMemberError = engine.UnknownMemberError

// TypeMismatchError is returned when a scalar accessor is used on a complex
// member, or a value's kind does not fit the setter or member.
type TypeMismatchError = wire.TypeMismatchError

// ValueTooLargeError is returned when an integer cannot be carried exactly by
// the accessor it was given to.
type ValueTooLargeError = wire.ValueTooLargeError

// IndexOutOfRangeError is returned for sample indexes outside the batch and
// element indexes beyond a sequence bound or array length.
type IndexOutOfRangeError = engine.IndexOutOfRangeError

// EngineError carries a failure reported by the engine with its diagnostic
// text.
type EngineError = engine.Error

// ErrTimeout is returned when a blocking wait exceeds its timeout.
var ErrTimeout = engine.ErrTimeout

// ErrStaleSamples is returned when a batch, sample or iterator is used after
// a later Read or Take on the same input replaced its batch.
var ErrStaleSamples = errors.New("samples were replaced by a later read or take")
