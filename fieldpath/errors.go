package fieldpath

import "fmt"

// BadPathError is returned when a field path does not conform to the path
// grammar.
type BadPathError struct {
	Path   string
	Offset int
	Reason string
}

func (e *BadPathError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("bad field path %q at offset %d: %s", e.Path, e.Offset, e.Reason)
	}
	return fmt.Sprintf("bad field path %q: %s", e.Path, e.Reason)
}

// Is returns true if the target error is a BadPathError.
func (e *BadPathError) Is(target error) bool {
	_, ok := target.(*BadPathError)
	return ok
}
