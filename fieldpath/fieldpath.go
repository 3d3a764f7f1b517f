package fieldpath

import (
	"errors"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
)

/*
Package fieldpath parses and renders field paths such as "a.b[2].c", "seq#"
and "u#". Parsed paths are plain values and can be freely copied; segments are
never shared between paths returned by this package.
*/

////////////////////////////////////////////////////////////////////////////////

// SegmentKind identifies the kind of a path segment.
type SegmentKind uint8

const (
	// MemberSegment addresses a struct or union member by name.
	MemberSegment SegmentKind = iota + 1
	// IndexSegment addresses an element of a sequence or array.
	IndexSegment
	// LengthSegment is the trailing "#": the element count of a sequence or
	// array, or the selected member of a union.
	LengthSegment
)

func (k SegmentKind) String() string {
	switch k {
	case MemberSegment:
		return "member"
	case IndexSegment:
		return "index"
	case LengthSegment:
		return "length"
	default:
		return "unknown"
	}
}

// Segment is one element of a Path.
type Segment struct {
	Kind  SegmentKind
	Name  string
	Index int
}

// Member returns a member segment.
func Member(name string) Segment {
	return Segment{Kind: MemberSegment, Name: name}
}

// Index returns an index segment.
func Index(i int) Segment {
	return Segment{Kind: IndexSegment, Index: i}
}

// Length returns a length-marker segment.
func Length() Segment {
	return Segment{Kind: LengthSegment}
}

func (s Segment) String() string {
	switch s.Kind {
	case MemberSegment:
		return "member(" + s.Name + ")"
	case IndexSegment:
		return "index(" + strconv.Itoa(s.Index) + ")"
	case LengthSegment:
		return "length"
	default:
		return "invalid"
	}
}

// Path is a parsed field path. The empty path addresses the whole record.
type Path []Segment

// Parse parses a field path. Parse errors are returned as *BadPathError.
func Parse(text string) (Path, error) {
	if text == "" {
		return Path{}, nil
	}
	ast, err := pathParser.ParseString("", text)
	if err != nil {
		return nil, newBadPathError(text, err)
	}
	path := make(Path, 0, len(ast.Tail)+2)
	if ast.Head != nil {
		path = append(path, Member(*ast.Head))
	}
	for _, seg := range ast.Tail {
		switch {
		case seg.Member != nil:
			path = append(path, Member(*seg.Member))
		case seg.Index != nil:
			if *seg.Index < 0 {
				return nil, &BadPathError{
					Path:   text,
					Offset: seg.Pos.Offset,
					Reason: "index must be non-negative, found " + strconv.FormatInt(*seg.Index, 10),
				}
			}
			if *seg.Index > maxIndex {
				return nil, &BadPathError{
					Path:   text,
					Offset: seg.Pos.Offset,
					Reason: "index " + strconv.FormatInt(*seg.Index, 10) + " is too large",
				}
			}
			path = append(path, Index(int(*seg.Index)))
		}
	}
	if ast.Length {
		path = append(path, Length())
	}
	return path, nil
}

// MustParse is like Parse but panics on error. It is intended for tests and
// package-level constants.
func MustParse(text string) Path {
	path, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return path
}

const maxIndex = 1<<31 - 1

// String renders the path in normalized form.
func (p Path) String() string {
	sb := &strings.Builder{}
	for i, seg := range p {
		switch seg.Kind {
		case MemberSegment:
			if i > 0 {
				sb.WriteByte('.')
			}
			sb.WriteString(seg.Name)
		case IndexSegment:
			sb.WriteByte('[')
			sb.WriteString(strconv.Itoa(seg.Index))
			sb.WriteByte(']')
		case LengthSegment:
			sb.WriteByte('#')
		}
	}
	return sb.String()
}

// IsRoot reports whether the path addresses the whole record.
func (p Path) IsRoot() bool {
	return len(p) == 0
}

// HasLength reports whether the path ends with a length marker.
func (p Path) HasLength() bool {
	return len(p) > 0 && p[len(p)-1].Kind == LengthSegment
}

// Last returns the final segment. The second return value is false for the
// root path.
func (p Path) Last() (Segment, bool) {
	if len(p) == 0 {
		return Segment{}, false
	}
	return p[len(p)-1], true
}

// Parent returns the path without its final segment.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return Path{}
	}
	return p.clone()[:len(p)-1]
}

// Prefix returns the first n segments of the path.
func (p Path) Prefix(n int) Path {
	if n > len(p) {
		n = len(p)
	}
	return p.clone()[:n]
}

func (p Path) clone() Path {
	out := make(Path, len(p))
	copy(out, p)
	return out
}

// Validate checks the structural invariants of a path that was built by hand
// rather than by Parse. Records validate every path they resolve.
func (p Path) Validate() error {
	for i, seg := range p {
		switch seg.Kind {
		case MemberSegment:
			if seg.Name == "" {
				return &BadPathError{Path: p.String(), Offset: -1, Reason: "empty member name"}
			}
		case IndexSegment:
			if seg.Index < 0 {
				return &BadPathError{Path: p.String(), Offset: -1, Reason: "negative index"}
			}
			if i == 0 {
				return &BadPathError{Path: p.String(), Offset: -1, Reason: "path cannot start with an index"}
			}
		case LengthSegment:
			if i != len(p)-1 {
				return &BadPathError{Path: p.String(), Offset: -1, Reason: "length marker must be the final segment"}
			}
		default:
			return &BadPathError{Path: p.String(), Offset: -1, Reason: "invalid segment"}
		}
	}
	return nil
}

func newBadPathError(text string, err error) *BadPathError {
	var perr participle.Error
	if errors.As(err, &perr) {
		return &BadPathError{
			Path:   text,
			Offset: perr.Position().Offset,
			Reason: perr.Message(),
		}
	}
	return &BadPathError{Path: text, Offset: -1, Reason: err.Error()}
}
