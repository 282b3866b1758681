package position

import (
	"fmt"
	"sort"
	"unicode/utf16"
	"unicode/utf8"
)

// Place is a zero-based line and UTF-16 character offset, as the editor protocol counts them.
type Place struct {
	Line      int
	Character int
}

type Range struct {
	Start Place
	End   Place
}

// Span is a half-open byte range [Start, End) in some document's text.
type Span struct {
	Start int
	End   int
}

func NewSpan(start, length int) Span {
	return Span{Start: start, End: start + length}
}

func (s Span) Length() int {
	return s.End - s.Start
}

func (s Span) IsEmpty() bool {
	return s.End <= s.Start
}

// Contains reports whether offset falls inside the span. The end is exclusive.
func (s Span) Contains(offset int) bool {
	return offset >= s.Start && offset < s.End
}

// ContainsInclusive also accepts the end offset, which is where a cursor sits after the last character.
func (s Span) ContainsInclusive(offset int) bool {
	return offset >= s.Start && offset <= s.End
}

func (s Span) Text(text string) string {
	if s.Start < 0 || s.End > len(text) || s.Start > s.End {
		return ""
	}
	return text[s.Start:s.End]
}

func (s Span) String() string {
	return fmt.Sprintf("[%d,%d)", s.Start, s.End)
}

// Index converts between byte offsets and protocol places for one immutable text.
type Index struct {
	text       string
	lineStarts []int
}

func NewIndex(text string) *Index {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &Index{text: text, lineStarts: starts}
}

func (me *Index) Text() string {
	return me.text
}

func (me *Index) LineCount() int {
	return len(me.lineStarts)
}

// PlaceAt returns the place of a byte offset. Offsets outside the text are clamped.
func (me *Index) PlaceAt(offset int) Place {
	if offset < 0 {
		offset = 0
	}
	if offset > len(me.text) {
		offset = len(me.text)
	}

	line := sort.Search(len(me.lineStarts), func(i int) bool {
		return me.lineStarts[i] > offset
	}) - 1

	start := me.lineStarts[line]
	return Place{Line: line, Character: utf16Len(me.text[start:offset])}
}

// OffsetAt returns the byte offset of a place. Characters past the end of a line clamp to the line end,
// lines past the end of the document clamp to the document end.
func (me *Index) OffsetAt(p Place) int {
	if p.Line < 0 {
		return 0
	}
	if p.Line >= len(me.lineStarts) {
		return len(me.text)
	}

	start := me.lineStarts[p.Line]
	end := len(me.text)
	if p.Line+1 < len(me.lineStarts) {
		end = me.lineStarts[p.Line+1] - 1
	}

	if end > start && me.text[end-1] == '\r' {
		end--
	}

	units := 0
	offset := start
	for offset < end && units < p.Character {
		r, size := utf8.DecodeRuneInString(me.text[offset:end])
		units += utf16.RuneLen(r)
		if units > p.Character {
			// the place points into the middle of a surrogate pair
			break
		}
		offset += size
	}
	return offset
}

func (me *Index) RangeOf(s Span) Range {
	return Range{Start: me.PlaceAt(s.Start), End: me.PlaceAt(s.End)}
}

func (me *Index) SpanOf(r Range) Span {
	start := me.OffsetAt(r.Start)
	end := me.OffsetAt(r.End)
	if end < start {
		start, end = end, start
	}
	return Span{Start: start, End: end}
}

// LineUntil returns the text of the line containing offset, up to offset.
func (me *Index) LineUntil(offset int) string {
	offset = max(0, min(offset, len(me.text)))
	p := me.PlaceAt(offset)
	return me.text[me.lineStarts[p.Line]:offset]
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

// ApplyChange replaces the text covered by rng with newText. A nil range replaces the whole document.
func ApplyChange(text string, rng *Range, newText string) string {
	if rng == nil {
		return newText
	}
	span := NewIndex(text).SpanOf(*rng)
	return text[:span.Start] + newText + text[span.End:]
}
