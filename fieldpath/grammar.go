package fieldpath

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

/*
This file contains the participle grammar for field paths. A field path is an
identifier followed by any number of ".member" or "[index]" groups and an
optional trailing "#". The grammar is purely syntactic: whether a path resolves
against a given record is only known once an engine evaluates it.

Negative indexes are lexed as integers so that they can be reported with a
precise message rather than as an unexpected token.
*/

////////////////////////////////////////////////////////////////////////////////

// nolint:gochecknoglobals
var (
	Lexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
		{Name: "Integer", Pattern: `-?[0-9]+`},
		{Name: "Dot", Pattern: `\.`},
		{Name: "LBracket", Pattern: `\[`},
		{Name: "RBracket", Pattern: `\]`},
		{Name: "Hash", Pattern: `#`},
	})

	pathParser = participle.MustBuild[pathAST](
		participle.Lexer(Lexer),
	)
)

type pathAST struct {
	Head   *string       `parser:"( @Ident"`
	Tail   []*segmentAST `parser:"  @@* )?"`
	Length bool          `parser:"@Hash?"`
}

type segmentAST struct {
	Pos    lexer.Position
	Member *string `parser:"  Dot @Ident"`
	Index  *int64  `parser:"| LBracket @Integer RBracket"`
}
