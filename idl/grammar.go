package idl

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

/*
Grammar for the subset of OMG IDL used to describe record types: modules,
enums, structs, unions with a switch, typedefs, bounded strings and
sequences, fixed arrays, and the @key, @optional, @default and @value
annotations.
*/

// nolint:gochecknoglobals
var (
	Lexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Comment", Pattern: `//[^\n]*|/\*([^*]|\*+[^*/])*\*+/`},
		{Name: "Whitespace", Pattern: `\s+`},
		{Name: "Float", Pattern: `[-+]?\d+\.\d*([eE][-+]?\d+)?`},
		{Name: "Integer", Pattern: `[-+]?(0[xX][0-9a-fA-F]+|\d+)`},
		{Name: "String", Pattern: `"(\\.|[^"\\])*"`},
		{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
		{Name: "Scope", Pattern: `::`},
		{Name: "Punct", Pattern: `[{}();:,<>\[\]@=]`},
	})

	fileParser = participle.MustBuild[fileAST](
		participle.Lexer(Lexer),
		participle.Elide("Whitespace", "Comment"),
		participle.Unquote("String"),
		participle.UseLookahead(4),
	)
)

type fileAST struct {
	Definitions []*definitionAST `parser:"@@*"`
}

type definitionAST struct {
	Module  *moduleAST  `parser:"  @@"`
	Enum    *enumAST    `parser:"| @@"`
	Struct  *structAST  `parser:"| @@"`
	Union   *unionAST   `parser:"| @@"`
	Typedef *typedefAST `parser:"| @@"`
}

type moduleAST struct {
	Name        string           `parser:"\"module\" @Ident \"{\""`
	Definitions []*definitionAST `parser:"@@* \"}\" \";\"?"`
}

type enumAST struct {
	Pos         lexer.Position
	Name        string           `parser:"\"enum\" @Ident \"{\""`
	Enumerators []*enumeratorAST `parser:"@@ ( \",\" @@ )* \",\"? \"}\" \";\"?"`
}

type enumeratorAST struct {
	Annotations []*annotationAST `parser:"@@*"`
	Name        string           `parser:"@Ident"`
	Value       *int64           `parser:"( \"=\" @Integer )?"`
}

type structAST struct {
	Pos     lexer.Position
	Name    string       `parser:"\"struct\" @Ident \"{\""`
	Members []*memberAST `parser:"@@* \"}\" \";\"?"`
}

type memberAST struct {
	Pos         lexer.Position
	Annotations []*annotationAST `parser:"@@*"`
	Type        *typeRefAST      `parser:"@@"`
	Declarators []*declaratorAST `parser:"@@ ( \",\" @@ )* \";\""`
}

type declaratorAST struct {
	Name string  `parser:"@Ident"`
	Dims []int64 `parser:"( \"[\" @Integer \"]\" )*"`
}

type unionAST struct {
	Pos    lexer.Position
	Name   string      `parser:"\"union\" @Ident"`
	Switch *typeRefAST `parser:"\"switch\" \"(\" @@ \")\""`
	Cases  []*caseAST  `parser:"\"{\" @@+ \"}\" \";\"?"`
}

type caseAST struct {
	Pos         lexer.Position
	Labels      []*labelAST      `parser:"@@+"`
	Annotations []*annotationAST `parser:"@@*"`
	Type        *typeRefAST      `parser:"@@"`
	Declarator  *declaratorAST   `parser:"@@ \";\""`
}

type labelAST struct {
	Default bool        `parser:"  @\"default\" \":\""`
	Value   *literalAST `parser:"| \"case\" @@ \":\""`
}

type typedefAST struct {
	Pos        lexer.Position
	Type       *typeRefAST    `parser:"\"typedef\" @@"`
	Declarator *declaratorAST `parser:"@@ \";\""`
}

type annotationAST struct {
	Name  string      `parser:"\"@\" @Ident"`
	Value *literalAST `parser:"( \"(\" @@ \")\" )?"`
}

type literalAST struct {
	Float  *float64 `parser:"  @Float"`
	Int    *int64   `parser:"| @Integer"`
	String *string  `parser:"| @String"`
	Ident  *string  `parser:"| @( Ident ( Scope Ident )* )"`
}

type typeRefAST struct {
	Pos       lexer.Position
	Sequence  *sequenceAST `parser:"  @@"`
	String    *stringAST   `parser:"| @@"`
	Primitive *string      `parser:"| @( \"unsigned\" ( \"long\" \"long\"? | \"short\" ) | \"long\" \"long\"? | \"short\" | \"boolean\" | \"octet\" | \"char\" | \"wchar\" | \"float\" | \"double\" | \"int8\" | \"int16\" | \"int32\" | \"int64\" | \"uint8\" | \"uint16\" | \"uint32\" | \"uint64\" )"`
	Named     *string      `parser:"| @( Scope? Ident ( Scope Ident )* )"`
}

type sequenceAST struct {
	Elem  *typeRefAST `parser:"\"sequence\" \"<\" @@"`
	Bound int64       `parser:"( \",\" @Integer )? \">\""`
}

type stringAST struct {
	Keyword string `parser:"@( \"string\" | \"wstring\" )"`
	Bound   int64  `parser:"( \"<\" @Integer \">\" )?"`
}
