package dyndata

import (
	"github.com/wkalt/dynconn/engine"
	"github.com/wkalt/dynconn/fieldpath"
	"github.com/wkalt/dynconn/wire"
)

// Data is a record of a given type. The zero Data is not usable; use New.
type Data struct {
	t    *Type
	root *node
}

// New returns a record holding the default value of t: declared defaults,
// zeros, empty strings and sequences, the first enumerator of enums, unset
// optionals, and unions selecting their default case.
func New(t *Type) *Data {
	return &Data{t: t, root: newNode(t)}
}

// Type returns the record's type.
func (d *Data) Type() *Type {
	return d.t
}

// Clone returns a deep copy of the record.
func (d *Data) Clone() *Data {
	return &Data{t: d.t, root: d.root.clone()}
}

// Reset restores every member to its default.
func (d *Data) Reset() {
	d.root = newNode(d.t)
}

// Complex returns the JSON-shaped value at path. It returns nil when the path
// runs through an unset optional member or an unselected union member.
func (d *Data) Complex(path fieldpath.Path) (wire.Complex, error) {
	if path.HasLength() {
		v, err := d.Value(path)
		if err != nil {
			return nil, err
		}
		return wire.Decode(v)
	}
	n, err := d.lookup(path)
	if err != nil || n == nil {
		return nil, err
	}
	return n.complex(), nil
}

// JSON is Complex rendered as JSON. It returns nil when the member is absent.
func (d *Data) JSON(path fieldpath.Path) ([]byte, error) {
	c, err := d.Complex(path)
	if err != nil || c == nil {
		return nil, err
	}
	return wire.Marshal(c)
}

// Value returns the scalar at path. Paths ending in "#" report the length of
// a sequence or array as a number, and the selected member of a union as
// text. Members that are absent read as wire.Absent.
func (d *Data) Value(path fieldpath.Path) (wire.Value, error) {
	if path.HasLength() {
		parent := path.Parent()
		if _, err := d.typeAt(path); err != nil {
			return wire.Value{}, err
		}
		n, err := d.lookup(parent)
		if err != nil || n == nil {
			return wire.Value{}, err
		}
		if n.t.Kind == KindUnion {
			if n.val == nil {
				return wire.Value{}, nil
			}
			return wire.TextValue(n.t.Members[n.sel].Name), nil
		}
		return wire.NumberValue(float64(len(n.elems))), nil
	}
	n, err := d.lookup(path)
	if err != nil || n == nil {
		return wire.Value{}, err
	}
	return n.scalar(path.String())
}

// SetNumber assigns a number to the leaf at path.
func (d *Data) SetNumber(path fieldpath.Path, v float64) error {
	return d.mutate(path, func(n *node, at string) error {
		return n.setNumber(v, at)
	})
}

// SetBoolean assigns a boolean to the leaf at path.
func (d *Data) SetBoolean(path fieldpath.Path, v bool) error {
	return d.mutate(path, func(n *node, at string) error {
		return n.setBoolean(v, at)
	})
}

// SetString assigns a string to the leaf at path. Enum members accept
// enumerator names.
func (d *Data) SetString(path fieldpath.Path, v string) error {
	return d.mutate(path, func(n *node, at string) error {
		return n.setString(v, at)
	})
}

// SetComplex merges a JSON-shaped value into the member at path. A Null value
// clears the member.
func (d *Data) SetComplex(path fieldpath.Path, c wire.Complex) error {
	if _, ok := c.(wire.Null); ok || c == nil {
		return d.Clear(path)
	}
	return d.mutate(path, func(n *node, at string) error {
		return n.merge(c, at)
	})
}

// SetJSON is SetComplex with the value given as JSON.
func (d *Data) SetJSON(path fieldpath.Path, data []byte) error {
	c, err := wire.Unmarshal(data)
	if err != nil {
		return engine.Errorf("invalid json for %q: %s", path.String(), err)
	}
	return d.SetComplex(path, c)
}

// Clear resets the member at path: optional members become unset, others
// return to their declared default. Clearing the root resets the record.
func (d *Data) Clear(path fieldpath.Path) error {
	if path.IsRoot() {
		d.Reset()
		return nil
	}
	if path.HasLength() {
		return engine.Errorf("cannot clear %q: length markers are read-only", path.String())
	}
	if _, err := d.typeAt(path); err != nil {
		return err
	}
	parent, err := d.lookup(path.Parent())
	if err != nil {
		return err
	}
	if parent == nil {
		return nil
	}
	last, _ := path.Last()
	switch last.Kind {
	case fieldpath.MemberSegment:
		i, m := parent.t.Member(last.Name)
		if parent.t.Kind == KindUnion {
			if parent.sel == i {
				parent.val = newMemberNode(m)
			}
			return nil
		}
		parent.fields[i] = resetMember(m)
	case fieldpath.IndexSegment:
		if last.Index < len(parent.elems) {
			parent.elems[last.Index] = newNode(parent.t.Elem)
		}
	}
	return nil
}

// KeyOnly returns a copy holding only the key members of the record. Every
// other member holds its default.
func (d *Data) KeyOnly() *Data {
	out := New(d.t)
	if d.t.Kind != KindStruct {
		return out
	}
	for _, i := range d.t.KeyMembers() {
		out.root.fields[i] = d.root.fields[i].clone()
	}
	return out
}

// mutate resolves path, creating unset optionals, switching unions and
// growing sequences on the way, and applies fn to the target. The record is
// left untouched when any step fails.
func (d *Data) mutate(path fieldpath.Path, fn func(n *node, at string) error) error {
	if path.HasLength() {
		return engine.Errorf("cannot set %q: length markers are read-only", path.String())
	}
	if _, err := d.typeAt(path); err != nil {
		return err
	}
	root := d.root.clone()
	n := root
	for _, seg := range path {
		switch seg.Kind {
		case fieldpath.MemberSegment:
			i, m := n.t.Member(seg.Name)
			if n.t.Kind == KindUnion {
				n.selectMember(i)
				n = n.val
				continue
			}
			if n.fields[i] == nil {
				n.fields[i] = newMemberNode(m)
			}
			n = n.fields[i]
		case fieldpath.IndexSegment:
			for len(n.elems) <= seg.Index {
				n.elems = append(n.elems, newNode(n.t.Elem))
			}
			n = n.elems[seg.Index]
		}
	}
	if err := fn(n, path.String()); err != nil {
		return err
	}
	d.root = root
	return nil
}

// lookup resolves path without modifying the record. It returns nil when the
// path runs through an unset optional or an unselected union member.
// Reading past the end of a sequence is an IndexOutOfRangeError.
func (d *Data) lookup(path fieldpath.Path) (*node, error) {
	if _, err := d.typeAt(path); err != nil {
		return nil, err
	}
	n := d.root
	for k, seg := range path {
		switch seg.Kind {
		case fieldpath.MemberSegment:
			i, _ := n.t.Member(seg.Name)
			if n.t.Kind == KindUnion {
				if n.val == nil || n.sel != i {
					return nil, nil
				}
				n = n.val
				continue
			}
			n = n.fields[i]
			if n == nil {
				return nil, nil
			}
		case fieldpath.IndexSegment:
			if seg.Index >= len(n.elems) {
				return nil, &engine.IndexOutOfRangeError{
					Path:  path.Prefix(k + 1).String(),
					Index: seg.Index,
					Limit: len(n.elems),
				}
			}
			n = n.elems[seg.Index]
		case fieldpath.LengthSegment:
			return n, nil
		}
	}
	return n, nil
}

// typeAt checks path against the record's type and returns the type it
// addresses. Paths built by hand are validated first. For paths ending in "#" it returns the type the marker applies
// to.
func (d *Data) typeAt(path fieldpath.Path) (*Type, error) {
	if err := path.Validate(); err != nil {
		return nil, err
	}
	t := d.t
	for k, seg := range path {
		switch seg.Kind {
		case fieldpath.MemberSegment:
			if t.Kind != KindStruct && t.Kind != KindUnion {
				return nil, &engine.UnknownMemberError{Path: path.Prefix(k + 1).String(), Member: seg.Name}
			}
			_, m := t.Member(seg.Name)
			if m == nil {
				return nil, &engine.UnknownMemberError{Path: path.Prefix(k + 1).String(), Member: seg.Name}
			}
			t = m.Type
		case fieldpath.IndexSegment:
			switch t.Kind {
			case KindSequence:
				if t.Bound > 0 && seg.Index >= t.Bound {
					return nil, &engine.IndexOutOfRangeError{
						Path:  path.Prefix(k + 1).String(),
						Index: seg.Index,
						Limit: t.Bound,
					}
				}
			case KindArray:
				if seg.Index >= t.Length {
					return nil, &engine.IndexOutOfRangeError{
						Path:  path.Prefix(k + 1).String(),
						Index: seg.Index,
						Limit: t.Length,
					}
				}
			default:
				return nil, &wire.TypeMismatchError{
					Path:     path.Prefix(k + 1).String(),
					Expected: "sequence or array",
					Actual:   t.TypeName(),
				}
			}
			t = t.Elem
		case fieldpath.LengthSegment:
			switch t.Kind {
			case KindSequence, KindArray, KindUnion:
			default:
				return nil, &wire.TypeMismatchError{
					Path:     path.String(),
					Expected: "sequence, array or union",
					Actual:   t.TypeName(),
				}
			}
		}
	}
	return t, nil
}
