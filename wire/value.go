package wire

import (
	"fmt"
	"strconv"
)

/*
Package wire defines the values that cross the engine boundary and the rules
for converting them to and from application values.

The boundary transports four kinds of scalar value: numbers (IEEE doubles),
booleans, text, and "absent". Everything else -- 64-bit integers beyond the
range a double represents exactly, structs, sequences, arrays and unions --
travels as JSON text. Decode performs the explicit try-JSON-then-literal step
that recovers those values on the receiving side.
*/

////////////////////////////////////////////////////////////////////////////////

// Kind is the tag of a Value.
type Kind uint8

const (
	// KindAbsent marks an unset optional member or a missing sample value.
	KindAbsent Kind = iota
	// KindNumber is a double.
	KindNumber
	// KindBoolean is a boolean.
	KindBoolean
	// KindText is a string, possibly holding JSON.
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindAbsent:
		return "absent"
	case KindNumber:
		return "number"
	case KindBoolean:
		return "boolean"
	case KindText:
		return "text"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is a tagged scalar transported across the engine boundary. The zero
// Value is absent.
type Value struct {
	kind Kind
	num  float64
	b    bool
	text string
}

// Absent returns the absent value.
func Absent() Value {
	return Value{}
}

// NumberValue returns a numeric value.
func NumberValue(f float64) Value {
	return Value{kind: KindNumber, num: f}
}

// BooleanValue returns a boolean value.
func BooleanValue(b bool) Value {
	return Value{kind: KindBoolean, b: b}
}

// TextValue returns a text value.
func TextValue(s string) Value {
	return Value{kind: KindText, text: s}
}

// Kind returns the tag of the value.
func (v Value) Kind() Kind {
	return v.kind
}

// IsAbsent reports whether the value is absent.
func (v Value) IsAbsent() bool {
	return v.kind == KindAbsent
}

// Number returns the numeric payload. Booleans read as 1 and 0.
func (v Value) Number() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.num, true
	case KindBoolean:
		if v.b {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// Boolean returns the boolean payload.
func (v Value) Boolean() (bool, bool) {
	if v.kind != KindBoolean {
		return false, false
	}
	return v.b, true
}

// Text returns the text payload.
func (v Value) Text() (string, bool) {
	if v.kind != KindText {
		return "", false
	}
	return v.text, true
}

// String renders the value for display. Numbers use the shortest
// representation that round-trips.
func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return FormatNumber(v.num)
	case KindBoolean:
		return strconv.FormatBool(v.b)
	case KindText:
		return v.text
	default:
		return "<absent>"
	}
}

// FormatNumber renders a double the way the engine renders numbers as text.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
