package wire

import (
	"math"
	"math/big"
	"sort"
	"strconv"
	"strings"
)

// ComplexKind is the tag of a Complex value.
type ComplexKind uint8

const (
	ComplexNull ComplexKind = iota + 1
	ComplexBool
	ComplexNumber
	ComplexString
	ComplexArray
	ComplexObject
)

func (k ComplexKind) String() string {
	switch k {
	case ComplexNull:
		return "null"
	case ComplexBool:
		return "bool"
	case ComplexNumber:
		return "number"
	case ComplexString:
		return "string"
	case ComplexArray:
		return "array"
	case ComplexObject:
		return "object"
	default:
		return "invalid"
	}
}

// Complex is the JSON-shaped tree used for whole structs, sequences, arrays
// and unions. The set of implementations is closed: Object, Array, Number,
// Bool, String and Null.
type Complex interface {
	Kind() ComplexKind
	sealed()
}

// Object maps member names to values.
type Object map[string]Complex

// Array is an ordered list of elements.
type Array []Complex

// Number is a JSON number held as its exact decimal text.
type Number string

// Bool is a JSON boolean.
type Bool bool

// String is a JSON string.
type String string

// Null is the JSON null literal. Inside an object passed to a dictionary
// setter it clears the member.
type Null struct{}

func (Object) Kind() ComplexKind { return ComplexObject }
func (Array) Kind() ComplexKind  { return ComplexArray }
func (Number) Kind() ComplexKind { return ComplexNumber }
func (Bool) Kind() ComplexKind   { return ComplexBool }
func (String) Kind() ComplexKind { return ComplexString }
func (Null) Kind() ComplexKind   { return ComplexNull }

func (Object) sealed() {}
func (Array) sealed()  {}
func (Number) sealed() {}
func (Bool) sealed()   {}
func (String) sealed() {}
func (Null) sealed()   {}

// Int returns the exact Number for an int64.
func Int(i int64) Number {
	return Number(strconv.FormatInt(i, 10))
}

// Uint returns the exact Number for a uint64.
func Uint(u uint64) Number {
	return Number(strconv.FormatUint(u, 10))
}

// Float returns the Number for a double, using the shortest representation
// that round-trips.
func Float(f float64) Number {
	return Number(FormatNumber(f))
}

// Keys returns the object's member names in sorted order.
func (o Object) Keys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsInteger reports whether the number is written without fraction or
// exponent.
func (n Number) IsInteger() bool {
	s := string(n)
	if s == "" {
		return false
	}
	return !strings.ContainsAny(s, ".eE")
}

// Int64 returns the number as an int64. Numbers that are not integral or do
// not fit fail with a ValueTooLargeError or TypeMismatchError.
func (n Number) Int64() (int64, error) {
	if i, err := strconv.ParseInt(string(n), 10, 64); err == nil {
		return i, nil
	}
	bi, err := n.bigInt()
	if err != nil {
		return 0, err
	}
	if !bi.IsInt64() {
		return 0, &ValueTooLargeError{Value: string(n), Limit: "int64"}
	}
	return bi.Int64(), nil
}

// Uint64 returns the number as a uint64.
func (n Number) Uint64() (uint64, error) {
	if u, err := strconv.ParseUint(string(n), 10, 64); err == nil {
		return u, nil
	}
	bi, err := n.bigInt()
	if err != nil {
		return 0, err
	}
	if !bi.IsUint64() {
		return 0, &ValueTooLargeError{Value: string(n), Limit: "uint64"}
	}
	return bi.Uint64(), nil
}

// Float64 returns the number as a double. Precision beyond 2^53 is lost.
func (n Number) Float64() (float64, error) {
	f, err := strconv.ParseFloat(string(n), 64)
	if err != nil {
		return 0, &TypeMismatchError{Expected: "number", Actual: strconv.Quote(string(n))}
	}
	return f, nil
}

// bigInt converts an integral number, possibly written with an exponent, to a
// big.Int.
func (n Number) bigInt() (*big.Int, error) {
	r, ok := new(big.Rat).SetString(string(n))
	if !ok {
		return nil, &TypeMismatchError{Expected: "number", Actual: strconv.Quote(string(n))}
	}
	if !r.IsInt() {
		return nil, &TypeMismatchError{Expected: "integer", Actual: string(n)}
	}
	return r.Num(), nil
}

// IsSafeInteger reports whether the number is an integer a double represents
// exactly.
func (n Number) IsSafeInteger() bool {
	i, err := n.Int64()
	if err != nil {
		return false
	}
	return i >= -MaxSafeInteger && i <= MaxSafeInteger
}

func validNumber(s string) bool {
	if s == "" {
		return false
	}
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		// ParseFloat reports range errors for huge exponents but the text is
		// still a number.
		var numErr *strconv.NumError
		if ok := asNumError(err, &numErr); !ok || numErr.Err != strconv.ErrRange {
			return false
		}
	}
	// ParseFloat also accepts forms JSON does not, like "Inf", "0x1p3" or
	// "+1".
	if s[0] == '+' || strings.ContainsAny(s, "xXpPiInN_") {
		return false
	}
	return true
}

func asNumError(err error, target **strconv.NumError) bool {
	ne, ok := err.(*strconv.NumError) // nolint:errorlint
	if ok {
		*target = ne
	}
	return ok
}

// Equal reports whether two complex values are equal. Numbers compare by
// value, so "1" equals "1.0".
func Equal(a, b Complex) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch a := a.(type) {
	case Object:
		b := b.(Object)
		if len(a) != len(b) {
			return false
		}
		for k, av := range a {
			bv, ok := b[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	case Array:
		b := b.(Array)
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if !Equal(a[i], b[i]) {
				return false
			}
		}
		return true
	case Number:
		b := b.(Number)
		if a == b {
			return true
		}
		ar, ok1 := new(big.Rat).SetString(string(a))
		br, ok2 := new(big.Rat).SetString(string(b))
		return ok1 && ok2 && ar.Cmp(br) == 0
	case Bool:
		return a == b.(Bool)
	case String:
		return a == b.(String)
	case Null:
		return true
	}
	return false
}

// isFinite reports whether f can be written as a JSON number.
func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
