package dyndata

import "fmt"

// TypeError is returned when a type definition is malformed.
type TypeError struct {
	Type   string
	Reason string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("invalid type %s: %s", e.Type, e.Reason)
}

// Is returns true if the target error is a TypeError.
func (e *TypeError) Is(target error) bool {
	_, ok := target.(*TypeError)
	return ok
}
