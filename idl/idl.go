package idl

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/wkalt/dynconn/dyndata"
	"github.com/wkalt/dynconn/wire"
)

// nolint:gochecknoglobals
var primitiveKinds = map[string]dyndata.Kind{
	"boolean":          dyndata.KindBool,
	"octet":            dyndata.KindOctet,
	"char":             dyndata.KindChar,
	"wchar":            dyndata.KindChar,
	"short":            dyndata.KindInt16,
	"long":             dyndata.KindInt32,
	"longlong":         dyndata.KindInt64,
	"unsignedshort":    dyndata.KindUint16,
	"unsignedlong":     dyndata.KindUint32,
	"unsignedlonglong": dyndata.KindUint64,
	"float":            dyndata.KindFloat32,
	"double":           dyndata.KindFloat64,
	"int8":             dyndata.KindInt8,
	"int16":            dyndata.KindInt16,
	"int32":            dyndata.KindInt32,
	"int64":            dyndata.KindInt64,
	"uint8":            dyndata.KindUint8,
	"uint16":           dyndata.KindUint16,
	"uint32":           dyndata.KindUint32,
	"uint64":           dyndata.KindUint64,
}

// Parse parses IDL text and returns its named types keyed by their fully
// qualified names ("Point", "shapes::Shape"). Typedefs are included under
// their own names.
func Parse(text string) (map[string]*dyndata.Type, error) {
	ast, err := fileParser.ParseString("", text)
	if err != nil {
		var perr participle.Error
		if errors.As(err, &perr) {
			return nil, &ParseError{Pos: perr.Position(), Reason: perr.Message()}
		}
		return nil, &ParseError{Reason: err.Error()}
	}
	b := &builder{types: map[string]*dyndata.Type{}}
	if err := b.definitions(nil, ast.Definitions); err != nil {
		return nil, err
	}
	for _, name := range b.order {
		t := b.types[name]
		if t.Kind == dyndata.KindStruct || t.Kind == dyndata.KindUnion {
			if err := t.Validate(); err != nil {
				return nil, err
			}
		}
	}
	return b.types, nil
}

// ParseFile parses an IDL file.
func ParseFile(path string) (map[string]*dyndata.Type, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	types, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return types, nil
}

type builder struct {
	types map[string]*dyndata.Type
	order []string
}

func (b *builder) definitions(scope []string, defs []*definitionAST) error {
	for _, def := range defs {
		var err error
		switch {
		case def.Module != nil:
			err = b.definitions(append(scope[:len(scope):len(scope)], def.Module.Name), def.Module.Definitions)
		case def.Enum != nil:
			err = b.enum(scope, def.Enum)
		case def.Struct != nil:
			err = b.structure(scope, def.Struct)
		case def.Union != nil:
			err = b.union(scope, def.Union)
		case def.Typedef != nil:
			err = b.typedef(scope, def.Typedef)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) declare(pos lexer.Position, scope []string, name string, t *dyndata.Type) error {
	qualified := qualify(scope, name)
	if _, ok := b.types[qualified]; ok {
		return &ParseError{Pos: pos, Reason: fmt.Sprintf("duplicate definition of %s", qualified)}
	}
	b.types[qualified] = t
	b.order = append(b.order, qualified)
	return nil
}

func (b *builder) enum(scope []string, ast *enumAST) error {
	t := dyndata.NewEnum(qualify(scope, ast.Name))
	next := int64(0)
	for _, e := range ast.Enumerators {
		value := next
		if e.Value != nil {
			value = *e.Value
		}
		for _, a := range e.Annotations {
			if strings.EqualFold(a.Name, "value") && a.Value != nil && a.Value.Int != nil {
				value = *a.Value.Int
			}
		}
		t.Enumerators = append(t.Enumerators, dyndata.Enumerator{Name: e.Name, Value: value})
		next = value + 1
	}
	if err := t.Validate(); err != nil {
		return &ParseError{Pos: ast.Pos, Reason: err.Error()}
	}
	return b.declare(ast.Pos, scope, ast.Name, t)
}

func (b *builder) structure(scope []string, ast *structAST) error {
	t := dyndata.NewStruct(qualify(scope, ast.Name))
	// Declared before the members are resolved so that the name is taken
	// even if a member fails.
	if err := b.declare(ast.Pos, scope, ast.Name, t); err != nil {
		return err
	}
	for _, m := range ast.Members {
		base, err := b.resolve(scope, m.Type)
		if err != nil {
			return err
		}
		for _, d := range m.Declarators {
			member := dyndata.NewMember(d.Name, withDims(base, d.Dims))
			if err := applyAnnotations(member, m.Annotations); err != nil {
				return &ParseError{Pos: m.Pos, Reason: err.Error()}
			}
			t.Members = append(t.Members, member)
		}
	}
	return nil
}

func (b *builder) union(scope []string, ast *unionAST) error {
	disc, err := b.resolve(scope, ast.Switch)
	if err != nil {
		return err
	}
	t := dyndata.NewUnion(qualify(scope, ast.Name), disc)
	if err := b.declare(ast.Pos, scope, ast.Name, t); err != nil {
		return err
	}
	for _, c := range ast.Cases {
		elem, err := b.resolve(scope, c.Type)
		if err != nil {
			return err
		}
		member := dyndata.NewMember(c.Declarator.Name, withDims(elem, c.Declarator.Dims))
		if err := applyAnnotations(member, c.Annotations); err != nil {
			return &ParseError{Pos: c.Pos, Reason: err.Error()}
		}
		for _, label := range c.Labels {
			if label.Default {
				member.DefaultCase = true
				continue
			}
			v, err := labelValue(disc, label.Value)
			if err != nil {
				return &ParseError{Pos: c.Pos, Reason: err.Error()}
			}
			member.Labels = append(member.Labels, v)
		}
		t.Members = append(t.Members, member)
	}
	return nil
}

func (b *builder) typedef(scope []string, ast *typedefAST) error {
	base, err := b.resolve(scope, ast.Type)
	if err != nil {
		return err
	}
	return b.declare(ast.Pos, scope, ast.Declarator.Name, withDims(base, ast.Declarator.Dims))
}

// resolve returns the type a reference names. Named references are looked up
// from the innermost enclosing module outwards.
func (b *builder) resolve(scope []string, ref *typeRefAST) (*dyndata.Type, error) {
	switch {
	case ref.Sequence != nil:
		elem, err := b.resolve(scope, ref.Sequence.Elem)
		if err != nil {
			return nil, err
		}
		return dyndata.SequenceOf(elem, int(ref.Sequence.Bound)), nil
	case ref.String != nil:
		if ref.String.Bound > 0 {
			return dyndata.BoundedString(int(ref.String.Bound)), nil
		}
		return dyndata.Primitive(dyndata.KindString), nil
	case ref.Primitive != nil:
		kind, ok := primitiveKinds[*ref.Primitive]
		if !ok {
			return nil, &ParseError{Pos: ref.Pos, Reason: fmt.Sprintf("unsupported type %s", *ref.Primitive)}
		}
		return dyndata.Primitive(kind), nil
	case ref.Named != nil:
		name := *ref.Named
		if strings.HasPrefix(name, "::") {
			if t, ok := b.types[strings.TrimPrefix(name, "::")]; ok {
				return t, nil
			}
		} else {
			for i := len(scope); i >= 0; i-- {
				if t, ok := b.types[qualify(scope[:i], name)]; ok {
					return t, nil
				}
			}
		}
		return nil, &ParseError{Pos: ref.Pos, Reason: fmt.Sprintf("unknown type %s", name)}
	}
	return nil, &ParseError{Pos: ref.Pos, Reason: "empty type reference"}
}

func withDims(t *dyndata.Type, dims []int64) *dyndata.Type {
	for i := len(dims) - 1; i >= 0; i-- {
		t = dyndata.ArrayOf(t, int(dims[i]))
	}
	return t
}

func applyAnnotations(m *dyndata.Member, annotations []*annotationAST) error {
	for _, a := range annotations {
		switch strings.ToLower(a.Name) {
		case "key":
			m.Key = a.Value == nil || literalTrue(a.Value)
		case "optional":
			m.Optional = a.Value == nil || literalTrue(a.Value)
		case "default":
			if a.Value == nil {
				return fmt.Errorf("@default on %s requires a value", m.Name)
			}
			m.Default = literalValue(a.Value)
		}
	}
	return nil
}

func literalTrue(l *literalAST) bool {
	return l.Ident != nil && strings.EqualFold(*l.Ident, "true")
}

// literalValue converts an annotation argument to the JSON-shaped value used
// for defaults. Identifiers other than TRUE and FALSE name enumerators.
func literalValue(l *literalAST) wire.Complex {
	switch {
	case l.Float != nil:
		return wire.Float(*l.Float)
	case l.Int != nil:
		return wire.Int(*l.Int)
	case l.String != nil:
		return wire.String(*l.String)
	case l.Ident != nil:
		switch strings.ToLower(*l.Ident) {
		case "true":
			return wire.Bool(true)
		case "false":
			return wire.Bool(false)
		}
		return wire.String(*l.Ident)
	}
	return wire.Null{}
}

func labelValue(disc *dyndata.Type, l *literalAST) (int64, error) {
	switch {
	case l.Int != nil:
		return *l.Int, nil
	case l.Ident != nil:
		switch strings.ToLower(*l.Ident) {
		case "true":
			return 1, nil
		case "false":
			return 0, nil
		}
		name := *l.Ident
		if i := strings.LastIndex(name, "::"); i >= 0 {
			name = name[i+2:]
		}
		if disc.Kind == dyndata.KindEnum {
			if e, ok := disc.EnumeratorByName(name); ok {
				return e.Value, nil
			}
		}
		return 0, fmt.Errorf("unknown case label %s", *l.Ident)
	}
	return 0, errors.New("case labels must be integers or enumerators")
}

func qualify(scope []string, name string) string {
	if len(scope) == 0 {
		return name
	}
	return strings.Join(scope, "::") + "::" + name
}
