package segment

import (
	"strings"

	"github.com/walteh/astrols/pkg/position"
)

var rawTextElements = []string{"script", "style"}

// scanExpressions finds the top-level {...} holes inside the markup span, along with the comments and
// raw text bodies it stepped over.
func scanExpressions(text string, markup position.Span) (out []Segment, opaque []position.Span) {
	rawClose := ""
	i := markup.Start
	for i < markup.End {
		c := text[i]
		switch {
		case strings.HasPrefix(text[i:markup.End], "<!--"):
			end := strings.Index(text[i+4:markup.End], "-->")
			if end < 0 {
				return out, append(opaque, position.Span{Start: i, End: markup.End})
			}
			opaque = append(opaque, position.Span{Start: i, End: i + 4 + end + 3})
			i += 4 + end + 3
		case c == '<':
			if name := rawTextOpening(text[i+1 : markup.End]); name != "" {
				rawClose = "</" + name
			}
			i++
		case c == '>' && rawClose != "":
			end := indexFold(text[i+1:markup.End], rawClose)
			if end < 0 {
				return out, append(opaque, position.Span{Start: i + 1, End: markup.End})
			}
			if end > 0 {
				opaque = append(opaque, position.Span{Start: i + 1, End: i + 1 + end})
			}
			i += 1 + end
			rawClose = ""
		case c == '{':
			seg := scanExpression(text, i, markup.End)
			out = append(out, seg)
			i = seg.Span.End
		default:
			i++
		}
	}

	return out, opaque
}

func rawTextOpening(rest string) string {
	for _, name := range rawTextElements {
		if len(rest) <= len(name) || !strings.EqualFold(rest[:len(name)], name) {
			continue
		}
		switch rest[len(name)] {
		case ' ', '\t', '\r', '\n', '>', '/':
			return name
		}
	}
	return ""
}

func indexFold(s, substr string) int {
	return strings.Index(strings.ToLower(s), strings.ToLower(substr))
}

// scanExpression reads one expression starting at the opening brace at start. Braces nest, and string
// literals, template literals (with ${} holes) and comments are skipped so their braces do not count.
func scanExpression(text string, start, limit int) Segment {
	// each entry is '{' for a code brace or '$' for a template literal hole
	stack := []byte{'{'}
	inTemplate := false

	i := start + 1
	for i < limit {
		c := text[i]

		if inTemplate {
			switch {
			case c == '\\':
				i += 2
			case c == '`':
				inTemplate = false
				i++
			case c == '$' && i+1 < limit && text[i+1] == '{':
				stack = append(stack, '$')
				inTemplate = false
				i += 2
			default:
				i++
			}
			continue
		}

		switch {
		case c == '"' || c == '\'':
			i = skipString(text, i, limit)
		case c == '`':
			inTemplate = true
			i++
		case strings.HasPrefix(text[i:limit], "//"):
			end := strings.IndexByte(text[i:limit], '\n')
			if end < 0 {
				i = limit
			} else {
				i += end
			}
		case strings.HasPrefix(text[i:limit], "/*"):
			end := strings.Index(text[i+2:limit], "*/")
			if end < 0 {
				i = limit
			} else {
				i += 2 + end + 2
			}
		case c == '{':
			stack = append(stack, '{')
			i++
		case c == '}':
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			i++
			if len(stack) == 0 {
				return Segment{
					Kind:   KindExpression,
					Span:   position.Span{Start: start, End: i},
					Inner:  position.Span{Start: start + 1, End: i - 1},
					Status: StatusClosed,
				}
			}
			if top == '$' {
				inTemplate = true
			}
		default:
			i++
		}
	}

	return Segment{
		Kind:   KindExpression,
		Span:   position.Span{Start: start, End: limit},
		Inner:  position.Span{Start: start + 1, End: limit},
		Status: StatusOpen,
	}
}

// skipString returns the offset just past the string literal opened at i. Unterminated strings end at
// the line break.
func skipString(text string, i, limit int) int {
	quote := text[i]
	i++
	for i < limit {
		switch text[i] {
		case '\\':
			i += 2
			continue
		case quote:
			return i + 1
		case '\n':
			return i
		}
		i++
	}
	return limit
}
