package segment_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/astrols/pkg/diff"
	"github.com/walteh/astrols/pkg/position"
	"github.com/walteh/astrols/pkg/segment"
)

func TestFrontmatterStatus(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		wantStatus segment.Status
		wantInner  string
	}{
		{
			name:       "no delimiter",
			text:       "<div/>",
			wantStatus: segment.StatusDoesntExist,
		},
		{
			name:       "empty document",
			text:       "",
			wantStatus: segment.StatusDoesntExist,
		},
		{
			name:       "opened and never closed",
			text:       "---\nconst x = 1;",
			wantStatus: segment.StatusOpen,
			wantInner:  "\nconst x = 1;",
		},
		{
			name:       "opened and closed",
			text:       "---\nconst x = 1;\n---\n<div/>",
			wantStatus: segment.StatusClosed,
			wantInner:  "\nconst x = 1;\n",
		},
		{
			name:       "closing delimiter at exact end of file",
			text:       "---\nconst x = 1;\n---",
			wantStatus: segment.StatusClosed,
			wantInner:  "\nconst x = 1;\n",
		},
		{
			name:       "delimiter inside a line is content",
			text:       "---\nconst s = 'a---b';\n",
			wantStatus: segment.StatusOpen,
			wantInner:  "\nconst s = 'a---b';\n",
		},
		{
			name:       "indented closing delimiter",
			text:       "---\nconst x = 1;\n  ---\n<p/>",
			wantStatus: segment.StatusClosed,
			wantInner:  "\nconst x = 1;\n  ",
		},
		{
			name:       "leading whitespace before opening",
			text:       "\n\n---\nlet a;\n---\n",
			wantStatus: segment.StatusClosed,
			wantInner:  "\nlet a;\n",
		},
		{
			name:       "delimiter after markup is not frontmatter",
			text:       "<p/>\n---\nlet a;\n---\n",
			wantStatus: segment.StatusDoesntExist,
		},
		{
			name:       "byte order mark",
			text:       "\ufeff---\nlet a;\n---\n",
			wantStatus: segment.StatusClosed,
			wantInner:  "\nlet a;\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := segment.Extract(tt.text)
			assert.Equal(t, tt.wantStatus, res.Frontmatter)
			assert.Equal(t, tt.wantStatus.String(), res.Frontmatter.String())

			fm, ok := res.FrontmatterSegment()
			if tt.wantStatus == segment.StatusDoesntExist {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.wantInner, fm.InnerText(tt.text))
		})
	}
}

func TestExtractCoversDocument(t *testing.T) {
	texts := []string{
		"",
		"<div/>",
		"---\nconst x = 1;",
		"---\nconst x = 1;\n---\n<div>{x}</div>",
	}

	for _, text := range texts {
		res := segment.Extract(text)
		require.NotEmpty(t, res.Segments)

		// top level segments tile the document
		next := 0
		for _, seg := range res.Segments {
			if seg.Kind == segment.KindExpression {
				continue
			}
			assert.Equal(t, next, seg.Span.Start, "text %q", text)
			next = seg.Span.End
		}
		assert.Equal(t, len(text), next, "text %q", text)
	}
}

func TestExpressions(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantInner []string
		wantOpen  []bool
	}{
		{
			name:      "simple holes",
			text:      "<h1>{title}</h1><p class={cls}>x</p>",
			wantInner: []string{"title", "cls"},
			wantOpen:  []bool{false, false},
		},
		{
			name:      "nested braces",
			text:      "<ul>{items.map((i) => { return <li>{i}</li> })}</ul>",
			wantInner: []string{"items.map((i) => { return <li>{i}</li> })"},
			wantOpen:  []bool{false},
		},
		{
			name:      "braces in strings and templates are skipped",
			text:      "<p>{'}' + `a${b + '}'}c` + \"{\"}</p>",
			wantInner: []string{"'}' + `a${b + '}'}c` + \"{\""},
			wantOpen:  []bool{false},
		},
		{
			name:      "comments inside expressions",
			text:      "<p>{a /* } */ // }\n}</p>",
			wantInner: []string{"a /* } */ // }\n"},
			wantOpen:  []bool{false},
		},
		{
			name:      "html comments and raw text are skipped",
			text:      "<!-- {no} --><script>if (a) { b }</script><style>p{color:red}</style>{yes}",
			wantInner: []string{"yes"},
			wantOpen:  []bool{false},
		},
		{
			name:      "unclosed expression runs to the end",
			text:      "<p>{title</p>",
			wantInner: []string{"title</p>"},
			wantOpen:  []bool{true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := segment.Extract(tt.text)
			exprs := res.Expressions()
			require.Len(t, exprs, len(tt.wantInner))
			for i, expr := range exprs {
				assert.Equal(t, tt.wantInner[i], expr.InnerText(tt.text))
				assert.Equal(t, tt.wantOpen[i], expr.Status == segment.StatusOpen)
				assert.Equal(t, segment.KindMarkup, res.Segments[expr.Parent].Kind)
			}
		})
	}
}

func TestOpaqueRanges(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []position.Span
	}{
		{
			name: "comment and raw text bodies",
			text: "<!-- {no} --><script>if (a) { b }</script><style>p{color:red}</style>{yes}",
			want: []position.Span{{Start: 0, End: 13}, {Start: 21, End: 33}, {Start: 49, End: 61}},
		},
		{
			name: "unterminated comment runs to the end",
			text: "<p>a</p><!-- <Card />",
			want: []position.Span{{Start: 8, End: 21}},
		},
		{
			name: "empty script body",
			text: "<script></script>",
			want: nil,
		},
		{
			name: "plain markup",
			text: "<p>{a}</p>",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, segment.Extract(tt.text).Opaque)
		})
	}
}

func TestExpressionsAfterFrontmatter(t *testing.T) {
	text := "---\nconst obj = { a: 1 };\n---\n<p>{obj.a}</p>"
	res := segment.Extract(text)

	exprs := res.Expressions()
	require.Len(t, exprs, 1)
	assert.Equal(t, "obj.a", exprs[0].InnerText(text))
	assert.Greater(t, exprs[0].Span.Start, res.Markup().Span.Start)
}

func TestAt(t *testing.T) {
	text := "---\nlet a;\n---\n<p>{a}</p>"
	res := segment.Extract(text)

	seg, ok := res.At(5)
	require.True(t, ok)
	assert.Equal(t, segment.KindFrontmatter, seg.Kind)

	seg, ok = res.At(len("---\nlet a;\n---\n<p>{"))
	require.True(t, ok)
	assert.Equal(t, segment.KindExpression, seg.Kind)

	seg, ok = res.At(len(text))
	require.True(t, ok)
	assert.Equal(t, segment.KindMarkup, seg.Kind)
	assert.Equal(t, position.Span{Start: 14, End: len(text)}, seg.Span)
}

func TestExtractSegments(t *testing.T) {
	text := "---\nlet a;\n---\n<p>{a}</p>"

	want := &segment.Result{
		Frontmatter: segment.StatusClosed,
		Segments: []segment.Segment{
			{Kind: segment.KindFrontmatter, Span: position.Span{Start: 0, End: 14}, Status: segment.StatusClosed, Inner: position.Span{Start: 3, End: 11}, Parent: -1},
			{Kind: segment.KindMarkup, Span: position.Span{Start: 14, End: 25}, Status: segment.StatusClosed, Inner: position.Span{Start: 14, End: 25}, Parent: -1},
			{Kind: segment.KindExpression, Span: position.Span{Start: 18, End: 21}, Status: segment.StatusClosed, Inner: position.Span{Start: 19, End: 20}, Parent: 1},
		},
	}

	if d := diff.Exported(want, segment.Extract(text)); d != "" {
		t.Fatal(d)
	}
}
