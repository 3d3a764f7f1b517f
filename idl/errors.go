package idl

import (
	"fmt"

	"github.com/alecthomas/participle/v2/lexer"
)

// ParseError is returned when IDL text cannot be parsed or refers to
// undefined types.
type ParseError struct {
	Pos    lexer.Position
	Reason string
}

func (e *ParseError) Error() string {
	if e.Pos.Line == 0 {
		return fmt.Sprintf("idl: %s", e.Reason)
	}
	return fmt.Sprintf("idl:%d:%d: %s", e.Pos.Line, e.Pos.Column, e.Reason)
}

// Is returns true if the target error is a ParseError.
func (e *ParseError) Is(target error) bool {
	_, ok := target.(*ParseError)
	return ok
}
