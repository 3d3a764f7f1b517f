package engine

import (
	"errors"
	"fmt"

	"github.com/wkalt/dynconn/wire"
)

/*
Errors that can cross the engine boundary. Engines report the four outcome
classes the connector distinguishes: the path does not resolve, the value kind
does not fit, an index is outside its bounds, or a general failure with the
engine's own diagnostic text.
*/

////////////////////////////////////////////////////////////////////////////////

// ErrTimeout is returned when a blocking wait exceeds its deadline.
var ErrTimeout = errors.New("timeout")

// ErrNoData is returned by engines that signal an empty read as an error.
// Callers treat it as a zero count.
var ErrNoData = errors.New("no data")

// TypeMismatchError is shared with the value codec.
type TypeMismatchError = wire.TypeMismatchError

// UnknownMemberError is returned when a path does not name a member of the
// record's type.
type UnknownMemberError struct {
	Path   string
	Member string
}

func (e *UnknownMemberError) Error() string {
	if e.Path == "" || e.Path == e.Member {
		return fmt.Sprintf("unknown member %q", e.Member)
	}
	return fmt.Sprintf("unknown member %q in %q", e.Member, e.Path)
}

// Is returns true if the target error is an UnknownMemberError.
func (e *UnknownMemberError) Is(target error) bool {
	_, ok := target.(*UnknownMemberError)
	return ok
}

// IndexOutOfRangeError is returned when an index falls outside a sample batch,
// an array's length, or a sequence's bound.
type IndexOutOfRangeError struct {
	Path  string
	Index int
	Limit int
}

func (e *IndexOutOfRangeError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("index %d out of range [0, %d)", e.Index, e.Limit)
	}
	return fmt.Sprintf("%s: index %d out of range [0, %d)", e.Path, e.Index, e.Limit)
}

// Is returns true if the target error is an IndexOutOfRangeError.
func (e *IndexOutOfRangeError) Is(target error) bool {
	_, ok := target.(*IndexOutOfRangeError)
	return ok
}

// Error is a failure reported by the engine. Message is the engine's
// diagnostic text.
type Error struct {
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is returns true if the target error is an engine Error.
func (e *Error) Is(target error) bool {
	_, ok := target.(*Error)
	return ok
}

// Errorf returns an engine Error with a formatted message.
func Errorf(format string, args ...any) error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}
