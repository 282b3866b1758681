package lexical

import (
	"context"
	"strings"

	"github.com/walteh/astrols/pkg/engine"
	"github.com/walteh/astrols/pkg/position"
)

// Format re-indents lines by bracket depth and applies the whitespace options.
func (me *Engine) Format(ctx context.Context, doc engine.Document, opts engine.FormatOptions) ([]engine.TextEdit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s := scan(doc.Text)
	unit := "\t"
	if opts.InsertSpaces {
		size := opts.TabSize
		if size <= 0 {
			size = 4
		}
		unit = strings.Repeat(" ", size)
	}

	var edits []engine.TextEdit
	depth := 0
	lineStart := 0
	for lineStart <= len(doc.Text) {
		lineEnd := strings.IndexByte(doc.Text[lineStart:], '\n')
		if lineEnd < 0 {
			lineEnd = len(doc.Text)
		} else {
			lineEnd += lineStart
		}

		raw := strings.TrimSuffix(doc.Text[lineStart:lineEnd], "\r")
		masked := s.masked[lineStart : lineStart+len(raw)]
		content := strings.TrimLeft(raw, " \t")
		indentEnd := lineStart + len(raw) - len(content)
		// lines continuing a template literal or block comment are left alone
		continued := lineStart > 0 && s.literal[lineStart-1]

		switch {
		case continued:
		case strings.TrimSpace(raw) == "":
			if opts.TrimTrailingWhitespace && raw != "" {
				edits = append(edits, engine.TextEdit{Span: position.NewSpan(lineStart, len(raw))})
			}
		default:
			closers := 0
			for _, c := range strings.TrimLeft(masked, " \t") {
				if c != '}' && c != ')' && c != ']' {
					break
				}
				closers++
			}

			want := strings.Repeat(unit, max(depth-closers, 0))
			if raw[:len(raw)-len(content)] != want {
				edits = append(edits, engine.TextEdit{
					Span:    position.Span{Start: lineStart, End: indentEnd},
					NewText: want,
				})
			}

			if opts.TrimTrailingWhitespace {
				trimmed := strings.TrimRight(content, " \t")
				if len(trimmed) < len(content) {
					edits = append(edits, engine.TextEdit{
						Span: position.Span{Start: indentEnd + len(trimmed), End: indentEnd + len(content)},
					})
				}
			}
		}

		for _, c := range masked {
			switch c {
			case '{', '(', '[':
				depth++
			case '}', ')', ']':
				depth = max(depth-1, 0)
			}
		}

		if lineEnd == len(doc.Text) {
			break
		}
		lineStart = lineEnd + 1
	}

	if opts.InsertFinalNewline && doc.Text != "" && !strings.HasSuffix(doc.Text, "\n") {
		edits = append(edits, engine.TextEdit{Span: position.Span{Start: len(doc.Text), End: len(doc.Text)}, NewText: "\n"})
	}

	return edits, nil
}
