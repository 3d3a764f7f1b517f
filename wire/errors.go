package wire

import "fmt"

// ValueTooLargeError is returned when an integer cannot be carried losslessly
// by the channel it was given to.
type ValueTooLargeError struct {
	Path  string
	Value string
	Limit string
}

func (e *ValueTooLargeError) Error() string {
	msg := fmt.Sprintf("value %s exceeds %s", e.Value, e.Limit)
	if e.Path != "" {
		msg = fmt.Sprintf("%s: %s", e.Path, msg)
	}
	if e.Limit == "2^53" {
		msg += "; use the complex channel to pass 64-bit integers exactly"
	}
	return msg
}

// Is returns true if the target is a ValueTooLargeError.
func (e *ValueTooLargeError) Is(target error) bool {
	_, ok := target.(*ValueTooLargeError)
	return ok
}

// TypeMismatchError is returned when a value's kind does not match what the
// operation or member requires.
type TypeMismatchError struct {
	Path     string
	Expected string
	Actual   string
	Hint     string
}

func (e *TypeMismatchError) Error() string {
	msg := fmt.Sprintf("type mismatch: expected %s, got %s", e.Expected, e.Actual)
	if e.Path != "" {
		msg = fmt.Sprintf("%s: %s", e.Path, msg)
	}
	if e.Hint != "" {
		msg += "; " + e.Hint
	}
	return msg
}

// Is returns true if the target is a TypeMismatchError.
func (e *TypeMismatchError) Is(target error) bool {
	_, ok := target.(*TypeMismatchError)
	return ok
}
