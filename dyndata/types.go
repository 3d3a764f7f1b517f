package dyndata

import (
	"fmt"
	"strings"

	"github.com/wkalt/dynconn/wire"
)

/*
Package dyndata implements typed dynamic data: records whose layout is
described at runtime by a Type and whose members are addressed by field paths.
It is the engine-side counterpart of the connector's field accessors and is
used by the in-process engine to stage, transport and answer samples.
*/

////////////////////////////////////////////////////////////////////////////////

// Kind is the kind of a type.
type Kind int

const (
	KindBool Kind = iota + 1
	KindOctet
	KindChar
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindFloat32
	KindFloat64
	KindString
	KindEnum
	KindStruct
	KindUnion
	KindSequence
	KindArray
)

var kindNames = map[Kind]string{
	KindBool:     "boolean",
	KindOctet:    "octet",
	KindChar:     "char",
	KindInt8:     "int8",
	KindInt16:    "int16",
	KindInt32:    "int32",
	KindInt64:    "int64",
	KindUint8:    "uint8",
	KindUint16:   "uint16",
	KindUint32:   "uint32",
	KindUint64:   "uint64",
	KindFloat32:  "float32",
	KindFloat64:  "float64",
	KindString:   "string",
	KindEnum:     "enum",
	KindStruct:   "struct",
	KindUnion:    "union",
	KindSequence: "sequence",
	KindArray:    "array",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// IsSigned reports whether the kind is a signed integer.
func (k Kind) IsSigned() bool {
	return k >= KindInt8 && k <= KindInt64
}

// IsUnsigned reports whether the kind is an unsigned integer or octet.
func (k Kind) IsUnsigned() bool {
	return k == KindOctet || (k >= KindUint8 && k <= KindUint64)
}

// IsFloat reports whether the kind is a floating point number.
func (k Kind) IsFloat() bool {
	return k == KindFloat32 || k == KindFloat64
}

// IsNumeric reports whether the kind reads through the numeric channel.
func (k Kind) IsNumeric() bool {
	return k.IsSigned() || k.IsUnsigned() || k.IsFloat() || k == KindEnum
}

// IsPrimitive reports whether values of the kind are leaves.
func (k Kind) IsPrimitive() bool {
	return k >= KindBool && k <= KindEnum
}

// Type describes the layout of dynamic data.
type Type struct {
	Kind Kind
	Name string

	// Struct and union members.
	Members []*Member

	// Sequence and array element type.
	Elem *Type

	// Maximum length of a sequence or string. Zero is unbounded.
	Bound int

	// Length of a fixed array.
	Length int

	// Enumerators of an enum, in declaration order.
	Enumerators []Enumerator

	// Discriminator type of a union: an integer kind or an enum.
	Discriminator *Type
}

// Member is a struct or union member.
type Member struct {
	Name     string
	Type     *Type
	Key      bool
	Optional bool

	// Default is the declared default value, or nil.
	Default wire.Complex

	// Case labels of a union member. DefaultCase marks the "default:" case.
	Labels      []int64
	DefaultCase bool
}

// Enumerator is a named enum value.
type Enumerator struct {
	Name  string
	Value int64
}

// nolint:gochecknoglobals
var primitives = map[Kind]*Type{}

func init() {
	for k := KindBool; k <= KindString; k++ {
		primitives[k] = &Type{Kind: k}
	}
}

// Primitive returns the shared type of a primitive kind. Strings returned
// here are unbounded.
func Primitive(k Kind) *Type {
	if t, ok := primitives[k]; ok {
		return t
	}
	panic(fmt.Sprintf("not a primitive kind: %s", k))
}

// BoundedString returns a string type with a maximum length.
func BoundedString(bound int) *Type {
	return &Type{Kind: KindString, Bound: bound}
}

// SequenceOf returns a sequence type. A bound of zero is unbounded.
func SequenceOf(elem *Type, bound int) *Type {
	return &Type{Kind: KindSequence, Elem: elem, Bound: bound}
}

// ArrayOf returns a fixed-length array type.
func ArrayOf(elem *Type, length int) *Type {
	return &Type{Kind: KindArray, Elem: elem, Length: length}
}

// NewStruct returns a struct type.
func NewStruct(name string, members ...*Member) *Type {
	return &Type{Kind: KindStruct, Name: name, Members: members}
}

// NewUnion returns a union type switched on disc.
func NewUnion(name string, disc *Type, members ...*Member) *Type {
	return &Type{Kind: KindUnion, Name: name, Discriminator: disc, Members: members}
}

// NewEnum returns an enum type.
func NewEnum(name string, enumerators ...Enumerator) *Type {
	return &Type{Kind: KindEnum, Name: name, Enumerators: enumerators}
}

// NewMember returns a plain member.
func NewMember(name string, t *Type) *Member {
	return &Member{Name: name, Type: t}
}

// Member returns the position and definition of the named member.
func (t *Type) Member(name string) (int, *Member) {
	for i, m := range t.Members {
		if m.Name == name {
			return i, m
		}
	}
	return -1, nil
}

// KeyMembers returns the positions of the key members of a struct.
func (t *Type) KeyMembers() []int {
	var keys []int
	for i, m := range t.Members {
		if m.Key {
			keys = append(keys, i)
		}
	}
	return keys
}

// DefaultCase returns the member a union selects by default: the member of
// the "default:" case if there is one, otherwise the first member.
func (t *Type) DefaultCase() int {
	for i, m := range t.Members {
		if m.DefaultCase {
			return i
		}
	}
	return 0
}

// EnumeratorByName looks up an enumerator.
func (t *Type) EnumeratorByName(name string) (Enumerator, bool) {
	for _, e := range t.Enumerators {
		if e.Name == name {
			return e, true
		}
	}
	return Enumerator{}, false
}

// EnumeratorByValue looks up an enumerator.
func (t *Type) EnumeratorByValue(v int64) (Enumerator, bool) {
	for _, e := range t.Enumerators {
		if e.Value == v {
			return e, true
		}
	}
	return Enumerator{}, false
}

// TypeName renders a short name such as "Point", "sequence<int32, 10>" or
// "string<8>".
func (t *Type) TypeName() string {
	switch t.Kind {
	case KindStruct, KindUnion, KindEnum:
		if t.Name != "" {
			return t.Name
		}
		return t.Kind.String()
	case KindString:
		if t.Bound > 0 {
			return fmt.Sprintf("string<%d>", t.Bound)
		}
		return "string"
	case KindSequence:
		if t.Bound > 0 {
			return fmt.Sprintf("sequence<%s, %d>", t.Elem.TypeName(), t.Bound)
		}
		return fmt.Sprintf("sequence<%s>", t.Elem.TypeName())
	case KindArray:
		dims := ""
		e := t
		for e.Kind == KindArray {
			dims += fmt.Sprintf("[%d]", e.Length)
			e = e.Elem
		}
		return e.TypeName() + dims
	default:
		return t.Kind.String()
	}
}

// Describe renders the type as an indented tree.
func (t *Type) Describe() string {
	sb := &strings.Builder{}
	sb.WriteString(t.TypeName())
	t.describe(sb, 1)
	return sb.String()
}

func (t *Type) describe(sb *strings.Builder, depth int) {
	indent := strings.Repeat("  ", depth)
	switch t.Kind {
	case KindStruct, KindUnion:
		for _, m := range t.Members {
			fmt.Fprintf(sb, "\n%s%s: %s", indent, m.Name, m.Type.TypeName())
			var tags []string
			if m.Key {
				tags = append(tags, "key")
			}
			if m.Optional {
				tags = append(tags, "optional")
			}
			if m.DefaultCase {
				tags = append(tags, "default case")
			}
			if m.Default != nil {
				data, err := wire.Marshal(m.Default)
				if err == nil {
					tags = append(tags, "default="+string(data))
				}
			}
			if len(tags) > 0 {
				fmt.Fprintf(sb, " (%s)", strings.Join(tags, ", "))
			}
			m.Type.describe(sb, depth+1)
		}
	case KindEnum:
		for _, e := range t.Enumerators {
			fmt.Fprintf(sb, "\n%s%s = %d", indent, e.Name, e.Value)
		}
	case KindSequence, KindArray:
		if !t.Elem.Kind.IsPrimitive() {
			t.Elem.describe(sb, depth)
		}
	}
}

// Validate checks that the type is well formed.
func (t *Type) Validate() error {
	return t.validate(t.TypeName())
}

func (t *Type) validate(at string) error {
	switch t.Kind {
	case KindStruct:
		if len(t.Members) == 0 {
			return &TypeError{Type: at, Reason: "struct has no members"}
		}
		return validateMembers(t, at)
	case KindUnion:
		if len(t.Members) == 0 {
			return &TypeError{Type: at, Reason: "union has no members"}
		}
		if t.Discriminator == nil {
			return &TypeError{Type: at, Reason: "union has no discriminator"}
		}
		d := t.Discriminator.Kind
		if !d.IsSigned() && !d.IsUnsigned() && d != KindEnum && d != KindBool && d != KindChar {
			return &TypeError{Type: at, Reason: fmt.Sprintf("invalid discriminator type %s", d)}
		}
		defaults := 0
		for _, m := range t.Members {
			if m.DefaultCase {
				defaults++
			}
			if m.Optional || m.Key {
				return &TypeError{Type: at, Reason: fmt.Sprintf("union member %s cannot be optional or key", m.Name)}
			}
		}
		if defaults > 1 {
			return &TypeError{Type: at, Reason: "union has more than one default case"}
		}
		return validateMembers(t, at)
	case KindEnum:
		if len(t.Enumerators) == 0 {
			return &TypeError{Type: at, Reason: "enum has no enumerators"}
		}
		seen := map[string]bool{}
		for _, e := range t.Enumerators {
			if seen[e.Name] {
				return &TypeError{Type: at, Reason: fmt.Sprintf("duplicate enumerator %s", e.Name)}
			}
			seen[e.Name] = true
		}
	case KindSequence:
		if t.Elem == nil {
			return &TypeError{Type: at, Reason: "sequence has no element type"}
		}
		if t.Bound < 0 {
			return &TypeError{Type: at, Reason: "negative sequence bound"}
		}
		return t.Elem.validate(at + "[]")
	case KindArray:
		if t.Elem == nil {
			return &TypeError{Type: at, Reason: "array has no element type"}
		}
		if t.Length <= 0 {
			return &TypeError{Type: at, Reason: "array length must be positive"}
		}
		return t.Elem.validate(at + "[]")
	default:
		if !t.Kind.IsPrimitive() {
			return &TypeError{Type: at, Reason: fmt.Sprintf("invalid kind %s", t.Kind)}
		}
	}
	return nil
}

func validateMembers(t *Type, at string) error {
	seen := map[string]bool{}
	for _, m := range t.Members {
		if m.Name == "" {
			return &TypeError{Type: at, Reason: "member has no name"}
		}
		if seen[m.Name] {
			return &TypeError{Type: at, Reason: fmt.Sprintf("duplicate member %s", m.Name)}
		}
		seen[m.Name] = true
		if m.Type == nil {
			return &TypeError{Type: at, Reason: fmt.Sprintf("member %s has no type", m.Name)}
		}
		if err := m.Type.validate(at + "." + m.Name); err != nil {
			return err
		}
		if m.Default != nil {
			n := newNode(m.Type)
			if err := n.merge(m.Default, m.Name); err != nil {
				return &TypeError{Type: at, Reason: fmt.Sprintf("invalid default for %s: %s", m.Name, err)}
			}
		}
	}
	return nil
}
