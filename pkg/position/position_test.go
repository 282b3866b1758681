package position_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/walteh/astrols/pkg/position"
)

func TestPlaceAt(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		offset int
		want   position.Place
	}{
		{
			name:   "empty text",
			text:   "",
			offset: 0,
			want:   position.Place{Line: 0, Character: 0},
		},
		{
			name:   "single line",
			text:   "Hello, World!",
			offset: 7,
			want:   position.Place{Line: 0, Character: 7},
		},
		{
			name:   "second line",
			text:   "---\nconst x = 1;\n---",
			offset: 10,
			want:   position.Place{Line: 1, Character: 6},
		},
		{
			name:   "start of line after newline",
			text:   "a\nb",
			offset: 2,
			want:   position.Place{Line: 1, Character: 0},
		},
		{
			name:   "surrogate pair counts as two units",
			text:   "😀x",
			offset: 4,
			want:   position.Place{Line: 0, Character: 2},
		},
		{
			name:   "offset past end is clamped",
			text:   "ab",
			offset: 99,
			want:   position.Place{Line: 0, Character: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := position.NewIndex(tt.text).PlaceAt(tt.offset)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOffsetAt(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		place position.Place
		want  int
	}{
		{
			name:  "first line",
			text:  "<div/>",
			place: position.Place{Line: 0, Character: 3},
			want:  3,
		},
		{
			name:  "character past line end clamps",
			text:  "ab\ncd",
			place: position.Place{Line: 0, Character: 10},
			want:  2,
		},
		{
			name:  "crlf line end is not part of the line",
			text:  "ab\r\ncd",
			place: position.Place{Line: 0, Character: 10},
			want:  2,
		},
		{
			name:  "line past end clamps to document end",
			text:  "ab\ncd",
			place: position.Place{Line: 7, Character: 0},
			want:  5,
		},
		{
			name:  "after surrogate pair",
			text:  "😀x",
			place: position.Place{Line: 0, Character: 2},
			want:  4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := position.NewIndex(tt.text).OffsetAt(tt.place)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRangeRoundTrip(t *testing.T) {
	text := "---\nconst title = 'hi';\n---\n<h1>{title}</h1>\n"
	idx := position.NewIndex(text)

	for start := 0; start <= len(text); start++ {
		span := position.Span{Start: start, End: start}
		assert.Equal(t, span, idx.SpanOf(idx.RangeOf(span)), "offset %d", start)
	}
}

func TestApplyChange(t *testing.T) {
	text := "---\nconst x = 1;\n---\n<div/>"

	got := position.ApplyChange(text, &position.Range{
		Start: position.Place{Line: 1, Character: 6},
		End:   position.Place{Line: 1, Character: 7},
	}, "value")
	assert.Equal(t, "---\nconst value = 1;\n---\n<div/>", got)

	assert.Equal(t, "full", position.ApplyChange(text, nil, "full"))
}

func TestLineUntil(t *testing.T) {
	idx := position.NewIndex("<div/>\n  --")

	tests := []struct {
		name   string
		offset int
		want   string
	}{
		{name: "end of text", offset: 11, want: "  --"},
		{name: "inside first line", offset: 3, want: "<di"},
		{name: "past the end", offset: 40, want: "  --"},
		{name: "negative", offset: -5, want: ""},
		{name: "line start", offset: 7, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, idx.LineUntil(tt.offset))
		})
	}
}
