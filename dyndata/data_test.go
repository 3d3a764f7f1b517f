package dyndata_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wkalt/dynconn/dyndata"
	"github.com/wkalt/dynconn/engine"
	"github.com/wkalt/dynconn/fieldpath"
	"github.com/wkalt/dynconn/util/testutils"
	"github.com/wkalt/dynconn/wire"
)

var p = fieldpath.MustParse

func newTestData(t *testing.T) *dyndata.Data {
	t.Helper()
	return dyndata.New(testutils.Type(t, "DataAccessTest"))
}

func TestDefaults(t *testing.T) {
	d := newTestData(t)
	cases := []struct {
		path     string
		expected wire.Value
	}{
		{"my_long", wire.NumberValue(0)},
		{"my_string", wire.TextValue("")},
		{"my_enum", wire.NumberValue(2)},
		{"my_default_short", wire.NumberValue(42)},
		{"my_default_enum", wire.NumberValue(1)},
		{"my_union#", wire.TextValue("point")},
		{"my_int_union#", wire.TextValue("my_string")},
		{"my_array#", wire.NumberValue(5)},
		{"my_point_sequence#", wire.NumberValue(0)},
		{"my_optional_long", wire.Absent()},
		{"my_optional_point.x", wire.Absent()},
		{"my_optional_bool", wire.Absent()},
		{"my_union.my_long", wire.Absent()},
	}
	for _, c := range cases {
		t.Run(c.path, func(t *testing.T) {
			v, err := d.Value(p(c.path))
			require.NoError(t, err)
			assert.Equal(t, c.expected, v)
		})
	}

	c, err := d.Complex(p("my_optional_point"))
	require.NoError(t, err)
	assert.Nil(t, c)

	obj, err := d.Complex(p(""))
	require.NoError(t, err)
	assert.NotContains(t, obj, "my_optional_long")
	assert.Contains(t, obj, "my_long")
}

func TestScalarReads(t *testing.T) {
	d := newTestData(t)
	require.NoError(t, d.SetComplex(p(""), wire.Object{
		"my_int64":  wire.Int(math.MaxInt64),
		"my_uint64": wire.Uint(1 << 53),
		"my_float":  wire.Float(3.3),
		"my_char":   wire.String("c"),
	}))

	v, err := d.Value(p("my_int64"))
	require.NoError(t, err)
	assert.Equal(t, wire.TextValue("9223372036854775807"), v)

	v, err = d.Value(p("my_uint64"))
	require.NoError(t, err)
	assert.Equal(t, wire.TextValue("9007199254740992"), v)

	v, err = d.Value(p("my_float"))
	require.NoError(t, err)
	assert.Equal(t, wire.NumberValue(3.3), v)

	v, err = d.Value(p("my_char"))
	require.NoError(t, err)
	assert.Equal(t, wire.TextValue("c"), v)

	_, err = d.Value(p("my_point"))
	require.ErrorIs(t, err, &wire.TypeMismatchError{})

	_, err = d.Value(p("my_nonexistent_member"))
	require.ErrorIs(t, err, &engine.UnknownMemberError{})

	_, err = d.Value(p("my_long.x"))
	require.ErrorIs(t, err, &engine.UnknownMemberError{})

	_, err = d.Value(p("my_point_sequence[3].y"))
	require.ErrorIs(t, err, &engine.IndexOutOfRangeError{})

	_, err = d.Value(p("my_long#"))
	require.ErrorIs(t, err, &wire.TypeMismatchError{})
}

func TestSetScalars(t *testing.T) {
	cases := []struct {
		assertion string
		apply     func(d *dyndata.Data) error
		err       error
	}{
		{"number", func(d *dyndata.Data) error { return d.SetNumber(p("my_long"), 10) }, nil},
		{"enum by value", func(d *dyndata.Data) error { return d.SetNumber(p("my_enum"), 3) }, nil},
		{"enum by name", func(d *dyndata.Data) error { return d.SetString(p("my_enum"), "BLUE") }, nil},
		{"unknown enumerator", func(d *dyndata.Data) error { return d.SetNumber(p("my_enum"), 7) }, &engine.Error{}},
		{"fraction into integer", func(d *dyndata.Data) error { return d.SetNumber(p("my_long"), 1.5) }, &engine.Error{}},
		{"int32 overflow", func(d *dyndata.Data) error { return d.SetNumber(p("my_long"), 1<<31) }, &engine.Error{}},
		{"octet overflow", func(d *dyndata.Data) error { return d.SetNumber(p("my_octet"), 256) }, &engine.Error{}},
		{"negative unsigned", func(d *dyndata.Data) error { return d.SetNumber(p("my_uint64"), -1) }, &engine.Error{}},
		{"nan", func(d *dyndata.Data) error { return d.SetNumber(p("my_double"), math.NaN()) }, &engine.Error{}},
		{"number into string", func(d *dyndata.Data) error { return d.SetNumber(p("my_string"), 1) }, &wire.TypeMismatchError{}},
		{"number into boolean", func(d *dyndata.Data) error { return d.SetNumber(p("my_optional_bool"), 1) }, &wire.TypeMismatchError{}},
		{"string into number", func(d *dyndata.Data) error { return d.SetString(p("my_long"), "1") }, &wire.TypeMismatchError{}},
		{"boolean into string", func(d *dyndata.Data) error { return d.SetBoolean(p("my_string"), true) }, &wire.TypeMismatchError{}},
		{"number into struct", func(d *dyndata.Data) error { return d.SetNumber(p("my_point"), 1) }, &wire.TypeMismatchError{}},
		{"string bound", func(d *dyndata.Data) error { return d.SetString(p("my_int_union.my_string"), "abcdefghijklmnopqrstuvwxyz") }, &engine.Error{}},
		{"char length", func(d *dyndata.Data) error { return d.SetString(p("my_char"), "ab") }, &engine.Error{}},
		{"unknown member", func(d *dyndata.Data) error { return d.SetNumber(p("nope"), 1) }, &engine.UnknownMemberError{}},
		{"sequence bound", func(d *dyndata.Data) error { return d.SetNumber(p("my_int_sequence[10]"), 1) }, &engine.IndexOutOfRangeError{}},
		{"array length", func(d *dyndata.Data) error { return d.SetNumber(p("my_array[5].x"), 1) }, &engine.IndexOutOfRangeError{}},
		{"length marker", func(d *dyndata.Data) error { return d.SetNumber(p("my_int_sequence#"), 1) }, &engine.Error{}},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			d := newTestData(t)
			before, err := d.JSON(p(""))
			require.NoError(t, err)
			err = c.apply(d)
			if c.err == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, c.err)
			after, err := d.JSON(p(""))
			require.NoError(t, err)
			assert.JSONEq(t, string(before), string(after), "failed set must not modify the record")
		})
	}
}

func TestSequenceGrowth(t *testing.T) {
	d := newTestData(t)
	require.NoError(t, d.SetNumber(p("my_int_sequence[3]"), 10))
	c, err := d.Complex(p("my_int_sequence"))
	require.NoError(t, err)
	assert.Equal(t, wire.Array{wire.Int(0), wire.Int(0), wire.Int(0), wire.Int(10)}, c)

	require.NoError(t, d.SetNumber(p("my_point_sequence[1].y"), 20))
	v, err := d.Value(p("my_point_sequence#"))
	require.NoError(t, err)
	assert.Equal(t, wire.NumberValue(2), v)

	require.NoError(t, d.SetNumber(p("my_array[4].x"), 5))
	v, err = d.Value(p("my_array#"))
	require.NoError(t, err)
	assert.Equal(t, wire.NumberValue(5), v)
}

func TestUnionSelection(t *testing.T) {
	d := newTestData(t)
	require.NoError(t, d.SetNumber(p("my_union.my_int_sequence[0]"), 4))
	v, err := d.Value(p("my_union#"))
	require.NoError(t, err)
	assert.Equal(t, wire.TextValue("my_int_sequence"), v)

	require.NoError(t, d.SetNumber(p("my_union.my_long"), 3))
	v, err = d.Value(p("my_union#"))
	require.NoError(t, err)
	assert.Equal(t, wire.TextValue("my_long"), v)

	v, err = d.Value(p("my_union.my_int_sequence#"))
	require.NoError(t, err)
	assert.True(t, v.IsAbsent())

	require.NoError(t, d.SetComplex(p("my_union"), wire.Object{"my_int_sequence": wire.Array{wire.Int(1)}}))
	c, err := d.Complex(p("my_union"))
	require.NoError(t, err)
	assert.Equal(t, wire.Object{"my_int_sequence": wire.Array{wire.Int(1)}}, c)

	err = d.SetComplex(p("my_union"), wire.Object{"point": wire.Null{}, "my_long": wire.Int(1)})
	require.ErrorIs(t, err, &engine.Error{})
}

func TestRootUnion(t *testing.T) {
	d := dyndata.New(testutils.Type(t, "RootUnion"))
	v, err := d.Value(p("#"))
	require.NoError(t, err)
	assert.Equal(t, wire.TextValue("a"), v)

	require.NoError(t, d.SetString(p("b"), "hello"))
	v, err = d.Value(p("#"))
	require.NoError(t, err)
	assert.Equal(t, wire.TextValue("b"), v)

	_, err = newTestData(t).Value(p("#"))
	require.ErrorIs(t, err, &wire.TypeMismatchError{})
}

func TestOptionals(t *testing.T) {
	d := newTestData(t)
	require.NoError(t, d.SetNumber(p("my_optional_point.x"), 101))
	require.NoError(t, d.SetNumber(p("my_point_alias.x"), 202))
	c, err := d.Complex(p("my_optional_point"))
	require.NoError(t, err)
	assert.Equal(t, wire.Object{"x": wire.Int(101), "y": wire.Int(0)}, c)

	require.NoError(t, d.Clear(p("my_optional_point")))
	require.NoError(t, d.Clear(p("my_point_alias")))
	v, err := d.Value(p("my_optional_point.x"))
	require.NoError(t, err)
	assert.True(t, v.IsAbsent())
	v, err = d.Value(p("my_point_alias.x"))
	require.NoError(t, err)
	assert.True(t, v.IsAbsent())

	require.NoError(t, d.SetBoolean(p("my_optional_bool"), true))
	require.NoError(t, d.Clear(p("my_optional_bool")))
	v, err = d.Value(p("my_optional_bool"))
	require.NoError(t, err)
	assert.True(t, v.IsAbsent())
}

func TestClear(t *testing.T) {
	d := newTestData(t)
	require.NoError(t, d.SetNumber(p("my_point.x"), 44))
	require.NoError(t, d.SetNumber(p("my_default_short"), 7))
	require.NoError(t, d.SetNumber(p("my_union.my_int_sequence[3]"), 10))

	require.NoError(t, d.Clear(p("my_point")))
	require.NoError(t, d.Clear(p("my_default_short")))
	require.NoError(t, d.Clear(p("my_union.my_int_sequence")))

	v, err := d.Value(p("my_point.x"))
	require.NoError(t, err)
	assert.Equal(t, wire.NumberValue(0), v)
	v, err = d.Value(p("my_default_short"))
	require.NoError(t, err)
	assert.Equal(t, wire.NumberValue(42), v)
	v, err = d.Value(p("my_union.my_int_sequence#"))
	require.NoError(t, err)
	assert.Equal(t, wire.NumberValue(0), v)

	require.ErrorIs(t, d.Clear(p("my_nonexistent_member")), &engine.UnknownMemberError{})
	require.NoError(t, d.Clear(p("my_optional_point.x")), "clearing below an unset optional is a no-op")

	require.NoError(t, d.SetNumber(p("my_long"), 5))
	require.NoError(t, d.Clear(p("")))
	v, err = d.Value(p("my_long"))
	require.NoError(t, err)
	assert.Equal(t, wire.NumberValue(0), v)
}

func TestMerge(t *testing.T) {
	d := newTestData(t)
	require.NoError(t, d.SetComplex(p(""), wire.Object{
		"my_long":           wire.Int(10),
		"my_double":         wire.Float(3.3),
		"my_optional_bool":  wire.Bool(true),
		"my_enum":           wire.Int(1),
		"my_string":         wire.String("hello"),
		"my_point":          wire.Object{"x": wire.Int(3), "y": wire.Int(4)},
		"my_point_alias":    wire.Object{"x": wire.Int(30), "y": wire.Int(40)},
		"my_union":          wire.Object{"my_int_sequence": wire.Array{wire.Int(10), wire.Int(20), wire.Int(30)}},
		"my_int_union":      wire.Object{"my_long": wire.Int(222)},
		"my_point_sequence": wire.Array{wire.Object{"x": wire.Int(10), "y": wire.Int(20)}, wire.Object{"x": wire.Int(11)}},
		"my_int_sequence":   wire.Array{wire.Int(1), wire.Int(2), wire.Int(3)},
		"my_array":          wire.Array{wire.Null{}, wire.Object{"x": wire.Int(5)}},
	}))

	t.Run("values", func(t *testing.T) {
		cases := []struct {
			path     string
			expected wire.Value
		}{
			{"my_long", wire.NumberValue(10)},
			{"my_double", wire.NumberValue(3.3)},
			{"my_optional_bool", wire.BooleanValue(true)},
			{"my_point.y", wire.NumberValue(4)},
			{"my_point_sequence[1].x", wire.NumberValue(11)},
			{"my_point_sequence[1].y", wire.NumberValue(0)},
			{"my_int_sequence[2]", wire.NumberValue(3)},
			{"my_array[1].x", wire.NumberValue(5)},
			{"my_union#", wire.TextValue("my_int_sequence")},
			{"my_int_union.my_long", wire.NumberValue(222)},
		}
		for _, c := range cases {
			v, err := d.Value(p(c.path))
			require.NoError(t, err, c.path)
			assert.Equal(t, c.expected, v, c.path)
		}
	})

	t.Run("partial merge keeps other members", func(t *testing.T) {
		require.NoError(t, d.SetComplex(p(""), wire.Object{"my_point": wire.Object{"x": wire.Int(9)}}))
		c, err := d.Complex(p("my_point"))
		require.NoError(t, err)
		assert.Equal(t, wire.Object{"x": wire.Int(9), "y": wire.Int(4)}, c)
	})

	t.Run("null clears", func(t *testing.T) {
		require.NoError(t, d.SetComplex(p(""), wire.Object{
			"my_point_alias":    wire.Null{},
			"my_long":           wire.Null{},
			"my_optional_bool":  wire.Null{},
			"my_point_sequence": wire.Null{},
			"my_string":         wire.Null{},
			"my_union":          wire.Null{},
			"my_enum":           wire.Null{},
		}))
		cases := []struct {
			path     string
			expected wire.Value
		}{
			{"my_point_alias.x", wire.Absent()},
			{"my_long", wire.NumberValue(0)},
			{"my_optional_bool", wire.Absent()},
			{"my_point_sequence#", wire.NumberValue(0)},
			{"my_string", wire.TextValue("")},
			{"my_union#", wire.TextValue("point")},
			{"my_enum", wire.NumberValue(2)},
			{"my_double", wire.NumberValue(3.3)},
		}
		for _, c := range cases {
			v, err := d.Value(p(c.path))
			require.NoError(t, err, c.path)
			assert.Equal(t, c.expected, v, c.path)
		}
	})

	t.Run("exact 64-bit integers", func(t *testing.T) {
		require.NoError(t, d.SetComplex(p(""), wire.Object{
			"my_int64":          wire.Int(math.MinInt64),
			"my_uint64":         wire.Uint(math.MaxUint64),
			"my_int64_sequence": wire.Array{wire.Int(1 << 53), wire.Int(1<<53 + 1)},
		}))
		data, err := d.JSON(p("my_int64_sequence"))
		require.NoError(t, err)
		assert.Equal(t, "[9007199254740992,9007199254740993]", string(data))
		c, err := d.Complex(p("my_uint64"))
		require.NoError(t, err)
		assert.Equal(t, wire.Number("18446744073709551615"), c)
	})

	t.Run("errors name the member and leave the record unchanged", func(t *testing.T) {
		before, err := d.JSON(p(""))
		require.NoError(t, err)
		cases := []struct {
			assertion string
			input     wire.Complex
			message   string
		}{
			{"unknown member", wire.Object{"my_long": wire.Int(1), "bogus": wire.Int(1)}, "bogus"},
			{"nested unknown member", wire.Object{"my_point": wire.Object{"z": wire.Int(1)}}, "my_point.z"},
			{"out of range element", wire.Object{"my_point_sequence": wire.Array{wire.Object{"x": wire.Int(1 << 40)}}}, "my_point_sequence[0].x"},
			{"sequence bound", wire.Object{"my_int_sequence": make(wire.Array, 11)}, "my_int_sequence"},
			{"array length", wire.Object{"my_array": make(wire.Array, 6)}, "my_array"},
			{"wrong shape", wire.Object{"my_point": wire.Int(1)}, "my_point"},
			{"string into number", wire.Object{"my_long": wire.String("1")}, "my_long"},
			{"fraction into integer", wire.Object{"my_long": wire.Number("1.5")}, "my_long"},
			{"int64 overflow", wire.Object{"my_int64": wire.Number("9223372036854775808")}, "my_int64"},
		}
		for _, c := range cases {
			t.Run(c.assertion, func(t *testing.T) {
				err := d.SetComplex(p(""), c.input)
				require.ErrorIs(t, err, &engine.Error{})
				assert.Contains(t, err.Error(), c.message)
				after, err := d.JSON(p(""))
				require.NoError(t, err)
				assert.JSONEq(t, string(before), string(after))
			})
		}
	})

	t.Run("booleans set numbers", func(t *testing.T) {
		require.NoError(t, d.SetComplex(p("my_long"), wire.Bool(true)))
		v, err := d.Value(p("my_long"))
		require.NoError(t, err)
		assert.Equal(t, wire.NumberValue(1), v)
	})

	t.Run("set json", func(t *testing.T) {
		require.NoError(t, d.SetJSON(p("my_point"), []byte(`{"x": 77}`)))
		v, err := d.Value(p("my_point.x"))
		require.NoError(t, err)
		assert.Equal(t, wire.NumberValue(77), v)
		require.ErrorIs(t, d.SetJSON(p("my_point"), []byte(`{`)), &engine.Error{})
	})
}

func TestKeyOnly(t *testing.T) {
	d := dyndata.New(testutils.Type(t, "ShapeType"))
	require.NoError(t, d.SetString(p("color"), "BLUE"))
	require.NoError(t, d.SetNumber(p("x"), 3))
	keyOnly := d.KeyOnly()
	c, err := keyOnly.Complex(p(""))
	require.NoError(t, err)
	assert.Equal(t, wire.Object{
		"color":     wire.String("BLUE"),
		"x":         wire.Int(0),
		"y":         wire.Int(0),
		"shapesize": wire.Int(0),
		"z":         wire.Bool(false),
	}, c)
}

func TestEncoding(t *testing.T) {
	d := newTestData(t)
	require.NoError(t, d.SetComplex(p(""), wire.Object{
		"my_long":            wire.Int(-4),
		"my_optional_long":   wire.Int(8),
		"my_float":           wire.Float(1.25),
		"my_uint64":          wire.Uint(math.MaxUint64),
		"my_union":           wire.Object{"my_long": wire.Int(3)},
		"my_point_sequence":  wire.Array{wire.Object{"x": wire.Int(1)}},
		"my_string":          wire.String("héllo"),
		"my_optional_point":  wire.Object{"y": wire.Int(2)},
		"my_int64_sequence":  wire.Array{wire.Int(math.MinInt64)},
		"my_default_enum":    wire.String("BLUE"),
		"my_optional_bool":   wire.Bool(false),
		"my_array":           wire.Array{wire.Object{"x": wire.Int(9)}},
		"my_int_union":       wire.Object{"my_short": wire.Int(-2)},
		"my_octet":           wire.Int(255),
		"my_char":            wire.String("z"),
		"my_double":          wire.Float(math.Pi),
		"my_default_short":   wire.Int(-1),
		"my_point_alias":     wire.Object{},
		"my_enum":            wire.Int(3),
		"my_int64":           wire.Int(1 << 60),
		"my_point":           wire.Object{"x": wire.Int(1), "y": wire.Int(1)},
		"my_int_sequence":    wire.Array{},
	}))
	data, err := d.Encode()
	require.NoError(t, err)
	decoded, err := dyndata.Decode(d.Type(), data)
	require.NoError(t, err)

	expected, err := d.JSON(p(""))
	require.NoError(t, err)
	actual, err := decoded.JSON(p(""))
	require.NoError(t, err)
	assert.Equal(t, string(expected), string(actual))

	_, err = dyndata.Decode(testutils.Type(t, "ShapeType"), data)
	require.Error(t, err)
}

func TestKeyHash(t *testing.T) {
	shape := testutils.Type(t, "ShapeType")
	a := dyndata.New(shape)
	b := dyndata.New(shape)
	require.NoError(t, a.SetString(p("color"), "RED"))
	require.NoError(t, b.SetString(p("color"), "RED"))
	require.NoError(t, b.SetNumber(p("x"), 99))

	ha, err := a.KeyHash()
	require.NoError(t, err)
	hb, err := b.KeyHash()
	require.NoError(t, err)
	assert.Equal(t, ha, hb)

	require.NoError(t, b.SetString(p("color"), "BLUE"))
	hb, err = b.KeyHash()
	require.NoError(t, err)
	assert.NotEqual(t, ha, hb)

	keyless, err := newTestData(t).KeyHash()
	require.NoError(t, err)
	assert.Zero(t, keyless)
}

func TestClone(t *testing.T) {
	d := newTestData(t)
	require.NoError(t, d.SetNumber(p("my_point.x"), 1))
	c := d.Clone()
	require.NoError(t, c.SetNumber(p("my_point.x"), 2))
	v, err := d.Value(p("my_point.x"))
	require.NoError(t, err)
	assert.Equal(t, wire.NumberValue(1), v)
}

func TestHandBuiltPaths(t *testing.T) {
	d := newTestData(t)
	cases := []struct {
		assertion string
		path      fieldpath.Path
	}{
		{"negative index", fieldpath.Path{fieldpath.Member("my_int_sequence"), fieldpath.Index(-1)}},
		{"empty member", fieldpath.Path{fieldpath.Member("")}},
		{"length before member", fieldpath.Path{fieldpath.Member("my_union"), fieldpath.Length(), fieldpath.Member("my_long")}},
		{"leading index", fieldpath.Path{fieldpath.Index(0)}},
	}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			_, err := d.Value(c.path)
			require.ErrorIs(t, err, &fieldpath.BadPathError{})
			_, err = d.Complex(c.path)
			require.ErrorIs(t, err, &fieldpath.BadPathError{})
			require.ErrorIs(t, d.SetNumber(c.path, 1), &fieldpath.BadPathError{})
		})
	}

	v, err := d.Value(fieldpath.Path{fieldpath.Member("my_int_sequence"), fieldpath.Length()})
	require.NoError(t, err)
	assert.Equal(t, wire.NumberValue(0), v)
}
