package dyndata

import (
	"math"
	"strconv"
	"unicode/utf8"

	"github.com/wkalt/dynconn/engine"
	"github.com/wkalt/dynconn/wire"
)

// node holds the value of one member. Only the fields relevant to the node's
// kind are used.
type node struct {
	t *Type

	i int64   // signed integers and enums
	u uint64  // unsigned integers and octets
	f float64 // floats; float32 values are stored rounded
	b bool
	s string // strings and chars

	fields []*node // struct members, nil for unset optionals
	sel    int     // selected union member
	val    *node   // value of the selected union member
	elems  []*node // sequence and array elements
}

func newNode(t *Type) *node {
	n := &node{t: t}
	switch t.Kind {
	case KindEnum:
		if len(t.Enumerators) > 0 {
			n.i = t.Enumerators[0].Value
		}
	case KindStruct:
		n.fields = make([]*node, len(t.Members))
		for i, m := range t.Members {
			if !m.Optional {
				n.fields[i] = newMemberNode(m)
			}
		}
	case KindUnion:
		if len(t.Members) > 0 {
			n.sel = t.DefaultCase()
			n.val = newMemberNode(t.Members[n.sel])
		}
	case KindArray:
		n.elems = make([]*node, t.Length)
		for i := range n.elems {
			n.elems[i] = newNode(t.Elem)
		}
	}
	return n
}

// newMemberNode returns the default value of a member, honoring its declared
// default.
func newMemberNode(m *Member) *node {
	n := newNode(m.Type)
	if m.Default != nil {
		// Defaults are checked by Type.Validate.
		_ = n.merge(m.Default, m.Name)
	}
	return n
}

func (n *node) clone() *node {
	if n == nil {
		return nil
	}
	c := *n
	if n.fields != nil {
		c.fields = make([]*node, len(n.fields))
		for i, f := range n.fields {
			c.fields[i] = f.clone()
		}
	}
	c.val = n.val.clone()
	if n.elems != nil {
		c.elems = make([]*node, len(n.elems))
		for i, e := range n.elems {
			c.elems[i] = e.clone()
		}
	}
	return &c
}

// scalar returns the value of a leaf as it crosses the scalar channel.
func (n *node) scalar(at string) (wire.Value, error) {
	k := n.t.Kind
	switch {
	case k == KindBool:
		return wire.BooleanValue(n.b), nil
	case k == KindString || k == KindChar:
		return wire.TextValue(n.s), nil
	case k.IsSigned() || k == KindEnum:
		if wire.CheckScalarInteger(n.i) != nil {
			return wire.TextValue(strconv.FormatInt(n.i, 10)), nil
		}
		return wire.NumberValue(float64(n.i)), nil
	case k.IsUnsigned():
		if wire.CheckScalarUnsigned(n.u) != nil {
			return wire.TextValue(strconv.FormatUint(n.u, 10)), nil
		}
		return wire.NumberValue(float64(n.u)), nil
	case k == KindFloat32:
		f, _ := strconv.ParseFloat(strconv.FormatFloat(n.f, 'g', -1, 32), 64)
		return wire.NumberValue(f), nil
	case k == KindFloat64:
		return wire.NumberValue(n.f), nil
	}
	return wire.Value{}, &wire.TypeMismatchError{
		Path:     at,
		Expected: "scalar member",
		Actual:   n.t.TypeName(),
		Hint:     "use the complex accessor",
	}
}

// complex returns the JSON-shaped value of the node. Unset optional members
// are omitted.
func (n *node) complex() wire.Complex {
	k := n.t.Kind
	switch {
	case k == KindBool:
		return wire.Bool(n.b)
	case k == KindString || k == KindChar:
		return wire.String(n.s)
	case k.IsSigned() || k == KindEnum:
		return wire.Int(n.i)
	case k.IsUnsigned():
		return wire.Uint(n.u)
	case k == KindFloat32:
		return wire.Number(strconv.FormatFloat(n.f, 'g', -1, 32))
	case k == KindFloat64:
		return wire.Float(n.f)
	case k == KindStruct:
		obj := make(wire.Object, len(n.fields))
		for i, f := range n.fields {
			if f != nil {
				obj[n.t.Members[i].Name] = f.complex()
			}
		}
		return obj
	case k == KindUnion:
		if n.val == nil {
			return wire.Object{}
		}
		return wire.Object{n.t.Members[n.sel].Name: n.val.complex()}
	default:
		arr := make(wire.Array, len(n.elems))
		for i, e := range n.elems {
			arr[i] = e.complex()
		}
		return arr
	}
}

// setNumber assigns a double to a numeric leaf.
func (n *node) setNumber(f float64, at string) error {
	k := n.t.Kind
	if !k.IsNumeric() {
		return &wire.TypeMismatchError{Path: at, Expected: n.t.TypeName(), Actual: "number"}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return engine.Errorf("%s: value %s is not finite", at, wire.FormatNumber(f))
	}
	if k.IsFloat() {
		return n.setFloat(f, at)
	}
	if f != math.Trunc(f) {
		return engine.Errorf("%s: fractional value %s for %s member", at, wire.FormatNumber(f), n.t.TypeName())
	}
	if k.IsUnsigned() {
		if f < 0 || f >= math.Exp2(64) {
			return outOfRange(at, wire.FormatNumber(f), n.t)
		}
		return n.setUint(uint64(f), at)
	}
	if f < math.MinInt64 || f >= math.Exp2(63) {
		return outOfRange(at, wire.FormatNumber(f), n.t)
	}
	return n.setInt(int64(f), at)
}

// setExact assigns a JSON number to a numeric leaf without passing through a
// double.
func (n *node) setExact(num wire.Number, at string) error {
	k := n.t.Kind
	switch {
	case k.IsFloat():
		f, err := num.Float64()
		if err != nil {
			return engine.Errorf("%s: %s", at, err)
		}
		return n.setFloat(f, at)
	case k.IsUnsigned():
		u, err := num.Uint64()
		if err != nil {
			return engine.Errorf("%s: invalid value %s for %s member", at, num, n.t.TypeName())
		}
		return n.setUint(u, at)
	case k.IsSigned() || k == KindEnum:
		i, err := num.Int64()
		if err != nil {
			return engine.Errorf("%s: invalid value %s for %s member", at, num, n.t.TypeName())
		}
		return n.setInt(i, at)
	}
	return engine.Errorf("%s: cannot assign number %s to %s member", at, num, n.t.TypeName())
}

func (n *node) setInt(i int64, at string) error {
	var lo, hi int64
	switch n.t.Kind {
	case KindInt8:
		lo, hi = math.MinInt8, math.MaxInt8
	case KindInt16:
		lo, hi = math.MinInt16, math.MaxInt16
	case KindInt32:
		lo, hi = math.MinInt32, math.MaxInt32
	case KindInt64:
		lo, hi = math.MinInt64, math.MaxInt64
	case KindEnum:
		if _, ok := n.t.EnumeratorByValue(i); !ok {
			return engine.Errorf("%s: %d is not an enumerator of %s", at, i, n.t.TypeName())
		}
		n.i = i
		return nil
	default:
		if i < 0 {
			return outOfRange(at, strconv.FormatInt(i, 10), n.t)
		}
		return n.setUint(uint64(i), at)
	}
	if i < lo || i > hi {
		return outOfRange(at, strconv.FormatInt(i, 10), n.t)
	}
	n.i = i
	return nil
}

func (n *node) setUint(u uint64, at string) error {
	var hi uint64
	switch n.t.Kind {
	case KindOctet, KindUint8:
		hi = math.MaxUint8
	case KindUint16:
		hi = math.MaxUint16
	case KindUint32:
		hi = math.MaxUint32
	case KindUint64:
		hi = math.MaxUint64
	default:
		if u > math.MaxInt64 {
			return outOfRange(at, strconv.FormatUint(u, 10), n.t)
		}
		return n.setInt(int64(u), at)
	}
	if u > hi {
		return outOfRange(at, strconv.FormatUint(u, 10), n.t)
	}
	n.u = u
	return nil
}

func (n *node) setFloat(f float64, at string) error {
	if n.t.Kind == KindFloat32 {
		if math.Abs(f) > math.MaxFloat32 {
			return outOfRange(at, wire.FormatNumber(f), n.t)
		}
		n.f = float64(float32(f))
		return nil
	}
	n.f = f
	return nil
}

func (n *node) setBoolean(b bool, at string) error {
	if n.t.Kind != KindBool {
		return &wire.TypeMismatchError{Path: at, Expected: n.t.TypeName(), Actual: "boolean"}
	}
	n.b = b
	return nil
}

func (n *node) setString(s string, at string) error {
	switch n.t.Kind {
	case KindString:
		if n.t.Bound > 0 && utf8.RuneCountInString(s) > n.t.Bound {
			return engine.Errorf("%s: string of length %d exceeds bound %d", at, utf8.RuneCountInString(s), n.t.Bound)
		}
		n.s = s
		return nil
	case KindChar:
		if utf8.RuneCountInString(s) > 1 {
			return engine.Errorf("%s: %q is not a single character", at, s)
		}
		n.s = s
		return nil
	case KindEnum:
		e, ok := n.t.EnumeratorByName(s)
		if !ok {
			return engine.Errorf("%s: %q is not an enumerator of %s", at, s, n.t.TypeName())
		}
		n.i = e.Value
		return nil
	}
	return &wire.TypeMismatchError{Path: at, Expected: n.t.TypeName(), Actual: "string"}
}

// merge applies a JSON-shaped value to the node. Objects merge member by
// member and null clears; arrays replace sequences and overwrite a prefix of
// an array; a one-member object selects a union member.
func (n *node) merge(c wire.Complex, at string) error {
	if _, ok := c.(wire.Null); ok {
		*n = *newNode(n.t)
		return nil
	}
	switch n.t.Kind {
	case KindStruct:
		obj, ok := c.(wire.Object)
		if !ok {
			return shapeError(at, n.t, c)
		}
		for _, name := range obj.Keys() {
			i, m := n.t.Member(name)
			if m == nil {
				return engine.Errorf("%s: unknown member %q of %s", joinMember(at, name), name, n.t.TypeName())
			}
			if _, null := obj[name].(wire.Null); null {
				n.fields[i] = resetMember(m)
				continue
			}
			if n.fields[i] == nil {
				n.fields[i] = newMemberNode(m)
			}
			if err := n.fields[i].merge(obj[name], joinMember(at, name)); err != nil {
				return err
			}
		}
		return nil
	case KindUnion:
		obj, ok := c.(wire.Object)
		if !ok {
			return shapeError(at, n.t, c)
		}
		if len(obj) == 0 {
			return nil
		}
		if len(obj) > 1 {
			return engine.Errorf("%s: union %s takes exactly one member, found %d", at, n.t.TypeName(), len(obj))
		}
		name := obj.Keys()[0]
		i, m := n.t.Member(name)
		if m == nil {
			return engine.Errorf("%s: unknown member %q of %s", joinMember(at, name), name, n.t.TypeName())
		}
		n.selectMember(i)
		return n.val.merge(obj[name], joinMember(at, name))
	case KindSequence:
		arr, ok := c.(wire.Array)
		if !ok {
			return shapeError(at, n.t, c)
		}
		if n.t.Bound > 0 && len(arr) > n.t.Bound {
			return engine.Errorf("%s: %d elements exceed the bound %d of %s", at, len(arr), n.t.Bound, n.t.TypeName())
		}
		elems := make([]*node, len(arr))
		for i, e := range arr {
			elems[i] = newNode(n.t.Elem)
			if err := elems[i].merge(e, joinIndex(at, i)); err != nil {
				return err
			}
		}
		n.elems = elems
		return nil
	case KindArray:
		arr, ok := c.(wire.Array)
		if !ok {
			return shapeError(at, n.t, c)
		}
		if len(arr) > n.t.Length {
			return engine.Errorf("%s: %d elements exceed the length %d of %s", at, len(arr), n.t.Length, n.t.TypeName())
		}
		for i, e := range arr {
			elem := newNode(n.t.Elem)
			if err := elem.merge(e, joinIndex(at, i)); err != nil {
				return err
			}
			n.elems[i] = elem
		}
		return nil
	}
	return n.mergeLeaf(c, at)
}

func (n *node) mergeLeaf(c wire.Complex, at string) error {
	k := n.t.Kind
	switch v := c.(type) {
	case wire.Number:
		if !k.IsNumeric() {
			return shapeError(at, n.t, c)
		}
		return n.setExact(v, at)
	case wire.Bool:
		switch {
		case k == KindBool:
			n.b = bool(v)
			return nil
		case k.IsNumeric() && k != KindEnum:
			if v {
				return n.setExact(wire.Int(1), at)
			}
			return n.setExact(wire.Int(0), at)
		}
		return shapeError(at, n.t, c)
	case wire.String:
		if k != KindString && k != KindChar && k != KindEnum {
			return shapeError(at, n.t, c)
		}
		return n.setString(string(v), at)
	}
	return shapeError(at, n.t, c)
}

// selectMember switches a union to member i, re-initializing the value when
// the selection changes.
func (n *node) selectMember(i int) {
	if n.val != nil && n.sel == i {
		return
	}
	n.sel = i
	n.val = newMemberNode(n.t.Members[i])
}

// resetMember returns the cleared value of a member: unset for optionals,
// the declared default otherwise.
func resetMember(m *Member) *node {
	if m.Optional {
		return nil
	}
	return newMemberNode(m)
}

func shapeError(at string, t *Type, c wire.Complex) error {
	if at == "" {
		return engine.Errorf("cannot assign %s to %s", c.Kind(), t.TypeName())
	}
	return engine.Errorf("%s: cannot assign %s to %s", at, c.Kind(), t.TypeName())
}

func outOfRange(at string, v string, t *Type) error {
	return engine.Errorf("%s: value %s out of range for %s", at, v, t.TypeName())
}

func joinMember(at, name string) string {
	if at == "" {
		return name
	}
	return at + "." + name
}

func joinIndex(at string, i int) string {
	return at + "[" + strconv.Itoa(i) + "]"
}
