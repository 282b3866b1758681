package segment

import (
	"strings"

	"github.com/walteh/astrols/pkg/position"
)

const Delimiter = "---"

const bom = "\ufeff"

// Frontmatter is the outcome of scanning for the delimited block at the top of a file.
type Frontmatter struct {
	Status Status
	// Span covers both delimiters when closed, or runs to the end of the text when open.
	Span position.Span
	// Inner is the content between the delimiters.
	Inner position.Span
}

type fmState int

const (
	fmLeading fmState = iota
	fmBody
	fmLineStart
	fmDone
)

// ScanFrontmatter runs the delimiter state machine over text.
//
// The opening delimiter must be the first non-whitespace content of the document. A closing delimiter
// only counts at the start of a line (after optional spaces or tabs), so "---" inside a line of
// script is content.
func ScanFrontmatter(text string) Frontmatter {
	state := fmLeading
	res := Frontmatter{Status: StatusDoesntExist}

	i := 0
	if strings.HasPrefix(text, bom) {
		i = len(bom)
	}

	for i < len(text) && state != fmDone {
		c := text[i]
		switch state {
		case fmLeading:
			switch c {
			case ' ', '\t', '\r', '\n':
				i++
			default:
				if !strings.HasPrefix(text[i:], Delimiter) {
					return res
				}
				res.Status = StatusOpen
				res.Span.Start = i
				i += len(Delimiter)
				res.Inner.Start = i
				state = fmBody
			}
		case fmBody:
			if c == '\n' {
				state = fmLineStart
			}
			i++
		case fmLineStart:
			switch c {
			case ' ', '\t':
				i++
			case '\n':
				i++
			default:
				if strings.HasPrefix(text[i:], Delimiter) {
					res.Status = StatusClosed
					res.Inner.End = i
					res.Span.End = i + len(Delimiter)
					state = fmDone
					continue
				}
				state = fmBody
			}
		}
	}

	if res.Status == StatusOpen {
		res.Inner.End = len(text)
		res.Span.End = len(text)
	}

	return res
}
