package wire

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strconv"

	"github.com/goccy/go-json"
)

// MaxSafeInteger is the largest integer magnitude a double represents
// exactly. Integers at or beyond 2^53 cannot use the numeric channel.
const MaxSafeInteger = 1<<53 - 1

// CheckScalarInteger fails with a ValueTooLargeError when i cannot travel
// through the numeric channel without loss.
func CheckScalarInteger(i int64) error {
	if i > MaxSafeInteger || i < -MaxSafeInteger {
		return &ValueTooLargeError{Value: strconv.FormatInt(i, 10), Limit: "2^53"}
	}
	return nil
}

// CheckScalarUnsigned is CheckScalarInteger for unsigned values.
func CheckScalarUnsigned(u uint64) error {
	if u > MaxSafeInteger {
		return &ValueTooLargeError{Value: strconv.FormatUint(u, 10), Limit: "2^53"}
	}
	return nil
}

// Decode converts a value read through the scalar channel into a complex
// value. Text that parses as a JSON number, object, array or literal is
// returned parsed; any other text is returned as a String. Absent decodes to
// nil.
func Decode(v Value) (Complex, error) {
	switch v.kind {
	case KindAbsent:
		return nil, nil
	case KindNumber:
		if !isFinite(v.num) {
			return nil, &TypeMismatchError{Expected: "finite number", Actual: FormatNumber(v.num)}
		}
		return Float(v.num), nil
	case KindBoolean:
		return Bool(v.b), nil
	case KindText:
		if looksLikeJSON(v.text) {
			if c, err := Unmarshal([]byte(v.text)); err == nil {
				if _, ok := c.(String); !ok {
					return c, nil
				}
			}
		}
		return String(v.text), nil
	default:
		return nil, fmt.Errorf("unknown value kind %d", v.kind)
	}
}

// looksLikeJSON is a cheap filter so plain text skips the decoder.
func looksLikeJSON(s string) bool {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\r', '\n':
			continue
		case '{', '[', '-', 't', 'f', 'n':
			return true
		default:
			return s[i] >= '0' && s[i] <= '9'
		}
	}
	return false
}

// Unmarshal parses a single JSON document. Numbers keep their exact decimal
// text.
func Unmarshal(data []byte) (Complex, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("failed to decode json: %w", err)
	}
	if dec.More() {
		return nil, errors.New("failed to decode json: trailing data")
	}
	return fromDecoded(v)
}

func fromDecoded(v any) (Complex, error) {
	switch v := v.(type) {
	case nil:
		return Null{}, nil
	case bool:
		return Bool(v), nil
	case string:
		return String(v), nil
	case json.Number:
		return Number(v), nil
	case map[string]any:
		obj := make(Object, len(v))
		for k, elem := range v {
			c, err := fromDecoded(elem)
			if err != nil {
				return nil, err
			}
			obj[k] = c
		}
		return obj, nil
	case []any:
		arr := make(Array, len(v))
		for i, elem := range v {
			c, err := fromDecoded(elem)
			if err != nil {
				return nil, err
			}
			arr[i] = c
		}
		return arr, nil
	default:
		return nil, &TypeMismatchError{Expected: "json", Actual: fmt.Sprintf("%T", v)}
	}
}

// Marshal renders a complex value as JSON. Object keys are emitted in sorted
// order and numbers are written exactly as held. A nil value renders as null.
func Marshal(c Complex) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := encode(buf, c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encode(buf *bytes.Buffer, c Complex) error {
	switch c := c.(type) {
	case nil, Null:
		buf.WriteString("null")
	case Bool:
		buf.WriteString(strconv.FormatBool(bool(c)))
	case Number:
		if !validNumber(string(c)) {
			return &TypeMismatchError{Expected: "number", Actual: strconv.Quote(string(c))}
		}
		buf.WriteString(string(c))
	case String:
		b, err := json.Marshal(string(c))
		if err != nil {
			return fmt.Errorf("failed to encode string: %w", err)
		}
		buf.Write(b)
	case Array:
		buf.WriteByte('[')
		for i, elem := range c {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encode(buf, elem); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case Object:
		buf.WriteByte('{')
		for i, k := range c.Keys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(k)
			if err != nil {
				return fmt.Errorf("failed to encode key: %w", err)
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := encode(buf, c[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return &TypeMismatchError{Expected: "complex", Actual: fmt.Sprintf("%T", c)}
	}
	return nil
}

// FromGo converts an application value into a complex value. Maps need string
// keys; slices and arrays become arrays; every Go integer and float kind,
// *big.Int and json.Number become numbers. Integers outside
// [MinInt64, MaxUint64] fail with ValueTooLargeError and unsupported types
// with TypeMismatchError.
func FromGo(v any) (Complex, error) {
	switch v := v.(type) {
	case nil:
		return Null{}, nil
	case Complex:
		return v, nil
	case Value:
		return fromValue(v)
	case bool:
		return Bool(v), nil
	case string:
		return String(v), nil
	case int:
		return Int(int64(v)), nil
	case int8:
		return Int(int64(v)), nil
	case int16:
		return Int(int64(v)), nil
	case int32:
		return Int(int64(v)), nil
	case int64:
		return Int(v), nil
	case uint:
		return Uint(uint64(v)), nil
	case uint8:
		return Uint(uint64(v)), nil
	case uint16:
		return Uint(uint64(v)), nil
	case uint32:
		return Uint(uint64(v)), nil
	case uint64:
		return Uint(v), nil
	case float32:
		if !isFinite(float64(v)) {
			return nil, &TypeMismatchError{Expected: "finite number", Actual: FormatNumber(float64(v))}
		}
		return Number(strconv.FormatFloat(float64(v), 'g', -1, 32)), nil
	case float64:
		if !isFinite(v) {
			return nil, &TypeMismatchError{Expected: "finite number", Actual: FormatNumber(v)}
		}
		return Float(v), nil
	case *big.Int:
		return fromBigInt(v)
	case json.Number:
		return checkedNumber(string(v))
	case map[string]any:
		obj := make(Object, len(v))
		for k, elem := range v {
			c, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("member %s: %w", k, err)
			}
			obj[k] = c
		}
		return obj, nil
	case []any:
		arr := make(Array, len(v))
		for i, elem := range v {
			c, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			arr[i] = c
		}
		return arr, nil
	}
	return fromReflect(reflect.ValueOf(v))
}

func fromValue(v Value) (Complex, error) {
	if v.IsAbsent() {
		return Null{}, nil
	}
	return Decode(v)
}

func fromBigInt(b *big.Int) (Complex, error) {
	if b == nil {
		return Null{}, nil
	}
	if !b.IsInt64() && !b.IsUint64() {
		return nil, &ValueTooLargeError{Value: b.String(), Limit: "64 bits"}
	}
	return Number(b.String()), nil
}

func checkedNumber(s string) (Complex, error) {
	n := Number(s)
	if !validNumber(s) {
		return nil, &TypeMismatchError{Expected: "number", Actual: strconv.Quote(s)}
	}
	if n.IsInteger() {
		if _, err := n.Int64(); err != nil {
			if _, uerr := n.Uint64(); uerr != nil {
				return nil, &ValueTooLargeError{Value: s, Limit: "64 bits"}
			}
		}
	}
	return n, nil
}

func fromReflect(rv reflect.Value) (Complex, error) {
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Null{}, nil
		}
		return FromGo(rv.Elem().Interface())
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, &TypeMismatchError{Expected: "map with string keys", Actual: rv.Type().String()}
		}
		if rv.IsNil() {
			return Null{}, nil
		}
		obj := make(Object, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			c, err := FromGo(iter.Value().Interface())
			if err != nil {
				return nil, fmt.Errorf("member %s: %w", iter.Key().String(), err)
			}
			obj[iter.Key().String()] = c
		}
		return obj, nil
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return Array{}, nil
		}
		arr := make(Array, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			c, err := FromGo(rv.Index(i).Interface())
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			arr[i] = c
		}
		return arr, nil
	case reflect.Bool:
		return Bool(rv.Bool()), nil
	case reflect.String:
		return String(rv.String()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return Uint(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return FromGo(rv.Float())
	}
	return nil, &TypeMismatchError{Expected: "json-compatible value", Actual: rv.Type().String()}
}

// ToGo converts a complex value to plain Go values: map[string]any, []any,
// int64, uint64, float64, bool, string and nil.
func ToGo(c Complex) any {
	switch c := c.(type) {
	case Object:
		m := make(map[string]any, len(c))
		for k, v := range c {
			m[k] = ToGo(v)
		}
		return m
	case Array:
		s := make([]any, len(c))
		for i, v := range c {
			s[i] = ToGo(v)
		}
		return s
	case Number:
		if c.IsInteger() {
			if i, err := c.Int64(); err == nil {
				return i
			}
			if u, err := c.Uint64(); err == nil {
				return u
			}
		}
		f, err := c.Float64()
		if err != nil {
			return math.NaN()
		}
		return f
	case Bool:
		return bool(c)
	case String:
		return string(c)
	default:
		return nil
	}
}
