// Package segment splits a component source file into the regions owned by each embedded language.
//
// Extraction is a pure function of the text: it never fails and always covers the whole document.
// Delimited regions carry a Status so callers can tell a well-formed block from one the user is
// still typing.
package segment

import (
	"fmt"

	"github.com/walteh/astrols/pkg/position"
)

type Kind int

const (
	KindUnsupported Kind = iota
	KindFrontmatter
	KindMarkup
	KindExpression
)

func (k Kind) String() string {
	switch k {
	case KindFrontmatter:
		return "frontmatter"
	case KindMarkup:
		return "markup"
	case KindExpression:
		return "expression"
	default:
		return "unsupported"
	}
}

// Status describes whether a delimiter-bounded region is absent, opened without a matching close, or closed.
type Status int

const (
	StatusDoesntExist Status = iota
	StatusOpen
	StatusClosed
)

func (s Status) String() string {
	switch s {
	case StatusOpen:
		return "open"
	case StatusClosed:
		return "closed"
	default:
		return "doesnt-exist"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Segment is a maximal region of the source in one language.
type Segment struct {
	Kind   Kind
	Span   position.Span
	Status Status
	// Inner is the span without delimiters. For markup it equals Span.
	Inner position.Span
	// Parent is the index of the enclosing markup segment for expressions, -1 otherwise.
	Parent int
}

func (s Segment) Text(source string) string {
	return s.Span.Text(source)
}

func (s Segment) InnerText(source string) string {
	return s.Inner.Text(source)
}

func (s Segment) String() string {
	return fmt.Sprintf("%s%s(%s)", s.Kind, s.Span, s.Status)
}

// Result is the ordered output of Extract.
type Result struct {
	Segments    []Segment
	Frontmatter Status

	// Opaque lists the markup ranges that hold neither tags nor expressions: HTML comments and the
	// bodies of script and style elements.
	Opaque []position.Span
}

// FrontmatterSegment returns the frontmatter segment when the document has one.
func (me *Result) FrontmatterSegment() (Segment, bool) {
	for _, seg := range me.Segments {
		if seg.Kind == KindFrontmatter {
			return seg, true
		}
	}
	return Segment{}, false
}

// Markup returns the markup segment. Every extraction has exactly one.
func (me *Result) Markup() Segment {
	for _, seg := range me.Segments {
		if seg.Kind == KindMarkup {
			return seg
		}
	}
	return Segment{Kind: KindMarkup, Parent: -1}
}

func (me *Result) Expressions() []Segment {
	var exprs []Segment
	for _, seg := range me.Segments {
		if seg.Kind == KindExpression {
			exprs = append(exprs, seg)
		}
	}
	return exprs
}

// At returns the innermost segment containing offset. The end offset of the document belongs to the
// last segment.
func (me *Result) At(offset int) (Segment, bool) {
	var best Segment
	found := false
	for _, seg := range me.Segments {
		if !seg.Span.ContainsInclusive(offset) {
			continue
		}
		if !found || seg.Span.Length() <= best.Span.Length() {
			best = seg
			found = true
		}
	}
	return best, found
}

// Extract splits text into frontmatter, markup and expression segments.
func Extract(text string) *Result {
	fm := ScanFrontmatter(text)

	res := &Result{Frontmatter: fm.Status}

	markupStart := 0
	if fm.Status != StatusDoesntExist {
		res.Segments = append(res.Segments, Segment{
			Kind:   KindFrontmatter,
			Span:   fm.Span,
			Status: fm.Status,
			Inner:  fm.Inner,
			Parent: -1,
		})
		markupStart = fm.Span.End
	}

	markup := position.Span{Start: markupStart, End: len(text)}
	res.Segments = append(res.Segments, Segment{
		Kind:   KindMarkup,
		Span:   markup,
		Status: StatusClosed,
		Inner:  markup,
		Parent: -1,
	})
	parent := len(res.Segments) - 1

	exprs, opaque := scanExpressions(text, markup)
	for _, expr := range exprs {
		expr.Parent = parent
		res.Segments = append(res.Segments, expr)
	}
	res.Opaque = opaque

	return res
}
