package dyndata

import (
	"bytes"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

/*
Records travel between writers and readers of the in-process engine as
msgpack. The encoding is positional: structs are arrays of their members in
declaration order with nil for unset optionals, unions are a pair of the
selected member index and its value, and sequences and arrays are arrays of
their elements. Decoding therefore requires the record's type.
*/

////////////////////////////////////////////////////////////////////////////////

// EncodeMsgpack implements msgpack.CustomEncoder.
func (d *Data) EncodeMsgpack(enc *msgpack.Encoder) error {
	return encodeNode(enc, d.root)
}

// DecodeMsgpack implements msgpack.CustomDecoder. The receiver must have been
// created with New so that its type is known.
func (d *Data) DecodeMsgpack(dec *msgpack.Decoder) error {
	if d.t == nil {
		return fmt.Errorf("cannot decode into untyped data")
	}
	root, err := decodeNode(dec, d.t)
	if err != nil {
		return err
	}
	d.root = root
	return nil
}

// Encode returns the msgpack encoding of the record.
func (d *Data) Encode() ([]byte, error) {
	buf := &bytes.Buffer{}
	enc := msgpack.GetEncoder()
	defer msgpack.PutEncoder(enc)
	enc.Reset(buf)
	if err := d.EncodeMsgpack(enc); err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", d.t.TypeName(), err)
	}
	return buf.Bytes(), nil
}

// Decode parses a record of type t from its msgpack encoding.
func Decode(t *Type, data []byte) (*Data, error) {
	dec := msgpack.GetDecoder()
	defer msgpack.PutDecoder(dec)
	dec.Reset(bytes.NewReader(data))
	d := &Data{t: t}
	if err := d.DecodeMsgpack(dec); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", t.TypeName(), err)
	}
	return d, nil
}

// KeyHash identifies the instance of the record: the xxhash of the msgpack
// encoding of its key members. Records of keyless types all hash to zero.
func (d *Data) KeyHash() (uint64, error) {
	if d.t.Kind != KindStruct {
		return 0, nil
	}
	keys := d.t.KeyMembers()
	if len(keys) == 0 {
		return 0, nil
	}
	buf := &bytes.Buffer{}
	enc := msgpack.GetEncoder()
	defer msgpack.PutEncoder(enc)
	enc.Reset(buf)
	for _, i := range keys {
		if err := encodeNode(enc, d.root.fields[i]); err != nil {
			return 0, fmt.Errorf("failed to encode key %s: %w", d.t.Members[i].Name, err)
		}
	}
	return xxhash.Sum64(buf.Bytes()), nil
}

func encodeNode(enc *msgpack.Encoder, n *node) error {
	if n == nil {
		return enc.EncodeNil()
	}
	k := n.t.Kind
	switch {
	case k == KindBool:
		return enc.EncodeBool(n.b)
	case k == KindString || k == KindChar:
		return enc.EncodeString(n.s)
	case k.IsSigned() || k == KindEnum:
		return enc.EncodeInt(n.i)
	case k.IsUnsigned():
		return enc.EncodeUint(n.u)
	case k == KindFloat32:
		return enc.EncodeFloat32(float32(n.f))
	case k == KindFloat64:
		return enc.EncodeFloat64(n.f)
	case k == KindStruct:
		if err := enc.EncodeArrayLen(len(n.fields)); err != nil {
			return err
		}
		for _, f := range n.fields {
			if err := encodeNode(enc, f); err != nil {
				return err
			}
		}
		return nil
	case k == KindUnion:
		if err := enc.EncodeArrayLen(2); err != nil {
			return err
		}
		if err := enc.EncodeInt(int64(n.sel)); err != nil {
			return err
		}
		return encodeNode(enc, n.val)
	default:
		if err := enc.EncodeArrayLen(len(n.elems)); err != nil {
			return err
		}
		for _, e := range n.elems {
			if err := encodeNode(enc, e); err != nil {
				return err
			}
		}
		return nil
	}
}

func decodeNode(dec *msgpack.Decoder, t *Type) (*node, error) {
	n := &node{t: t}
	var err error
	k := t.Kind
	switch {
	case k == KindBool:
		n.b, err = dec.DecodeBool()
	case k == KindString || k == KindChar:
		n.s, err = dec.DecodeString()
	case k.IsSigned() || k == KindEnum:
		n.i, err = dec.DecodeInt64()
	case k.IsUnsigned():
		n.u, err = dec.DecodeUint64()
	case k == KindFloat32:
		var f float32
		f, err = dec.DecodeFloat32()
		n.f = float64(f)
	case k == KindFloat64:
		n.f, err = dec.DecodeFloat64()
	case k == KindStruct:
		n.fields, err = decodeFields(dec, t)
	case k == KindUnion:
		err = decodeUnion(dec, n)
	default:
		n.elems, err = decodeElems(dec, t)
	}
	if err != nil {
		return nil, err
	}
	return n, nil
}

func decodeFields(dec *msgpack.Decoder, t *Type) ([]*node, error) {
	count, err := dec.DecodeArrayLen()
	if err != nil {
		return nil, err
	}
	if count != len(t.Members) {
		return nil, fmt.Errorf("%s: expected %d members, found %d", t.TypeName(), len(t.Members), count)
	}
	fields := make([]*node, count)
	for i, m := range t.Members {
		code, err := dec.PeekCode()
		if err != nil {
			return nil, err
		}
		if code == msgpcode.Nil {
			if err := dec.DecodeNil(); err != nil {
				return nil, err
			}
			if !m.Optional {
				return nil, fmt.Errorf("%s: missing required member %s", t.TypeName(), m.Name)
			}
			continue
		}
		if fields[i], err = decodeNode(dec, m.Type); err != nil {
			return nil, err
		}
	}
	return fields, nil
}

func decodeUnion(dec *msgpack.Decoder, n *node) error {
	count, err := dec.DecodeArrayLen()
	if err != nil {
		return err
	}
	if count != 2 {
		return fmt.Errorf("%s: malformed union", n.t.TypeName())
	}
	sel, err := dec.DecodeInt()
	if err != nil {
		return err
	}
	if sel < 0 || sel >= len(n.t.Members) {
		return fmt.Errorf("%s: invalid union selection %d", n.t.TypeName(), sel)
	}
	n.sel = sel
	n.val, err = decodeNode(dec, n.t.Members[sel].Type)
	return err
}

func decodeElems(dec *msgpack.Decoder, t *Type) ([]*node, error) {
	count, err := dec.DecodeArrayLen()
	if err != nil {
		return nil, err
	}
	if t.Kind == KindArray && count != t.Length {
		return nil, fmt.Errorf("%s: expected %d elements, found %d", t.TypeName(), t.Length, count)
	}
	if t.Kind == KindSequence && t.Bound > 0 && count > t.Bound {
		return nil, fmt.Errorf("%s: %d elements exceed bound %d", t.TypeName(), count, t.Bound)
	}
	elems := make([]*node, count)
	for i := range elems {
		if elems[i], err = decodeNode(dec, t.Elem); err != nil {
			return nil, err
		}
	}
	return elems, nil
}
