package mapping

import (
	"sort"

	"github.com/walteh/astrols/pkg/position"
	"gitlab.com/tozd/go/errors"
)

// Table is an immutable list of mappings for one generated document, sorted by generated offset.
// Generated ranges never overlap; source ranges may.
type Table struct {
	byGenerated []CodeMapping
	bySource    []CodeMapping
}

// NewTable sorts mappings by generated offset and rejects overlapping generated ranges.
func NewTable(mappings ...CodeMapping) (*Table, error) {
	gen := make([]CodeMapping, 0, len(mappings))
	for _, m := range mappings {
		if m.SourceLength < 0 || m.GeneratedLength < 0 {
			return nil, errors.Errorf("negative mapping length: %s", m)
		}
		gen = append(gen, m)
	}

	sort.SliceStable(gen, func(i, j int) bool {
		return gen[i].GeneratedOffset < gen[j].GeneratedOffset
	})

	for i := 1; i < len(gen); i++ {
		prev := gen[i-1]
		if prev.GeneratedOffset+prev.GeneratedLength > gen[i].GeneratedOffset {
			return nil, errors.Errorf("overlapping generated ranges: %s and %s", prev, gen[i])
		}
	}

	src := make([]CodeMapping, len(gen))
	copy(src, gen)
	sort.SliceStable(src, func(i, j int) bool {
		return src[i].SourceOffset < src[j].SourceOffset
	})

	return &Table{byGenerated: gen, bySource: src}, nil
}

// MustTable is NewTable for generators whose mappings are non-overlapping by construction.
func MustTable(mappings ...CodeMapping) *Table {
	t, err := NewTable(mappings...)
	if err != nil {
		panic(err)
	}
	return t
}

// Mappings returns the entries ordered by generated offset.
func (t *Table) Mappings() []CodeMapping {
	if t == nil {
		return nil
	}
	return t.byGenerated
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.byGenerated)
}

// AtGenerated returns the mapping whose generated range contains offset. With inclusiveEnd a
// mapping also claims the offset just past its end; a mapping that starts there wins the tie.
func (t *Table) AtGenerated(offset int, inclusiveEnd bool) (CodeMapping, bool) {
	if t == nil {
		return CodeMapping{}, false
	}
	ms := t.byGenerated

	// rightmost mapping starting at or before offset
	i := sort.Search(len(ms), func(i int) bool {
		return ms[i].GeneratedOffset > offset
	}) - 1

	for ; i >= 0; i-- {
		m := ms[i]
		gen := m.Generated()
		if gen.Contains(offset) || (inclusiveEnd && gen.ContainsInclusive(offset)) {
			return m, true
		}
		// ranges are disjoint, so only an empty mapping at the same offset can precede a match
		if m.GeneratedOffset+m.GeneratedLength < offset {
			break
		}
	}
	return CodeMapping{}, false
}

// Touches reports whether a mapping carrying want overlaps generated or meets one of its ends.
// Zero-length mappings count.
func (t *Table) Touches(generated position.Span, want Capabilities) bool {
	if t == nil {
		return false
	}
	ms := t.byGenerated

	i := sort.Search(len(ms), func(i int) bool {
		return ms[i].GeneratedOffset+ms[i].GeneratedLength >= generated.Start
	})
	for ; i < len(ms) && ms[i].GeneratedOffset <= generated.End; i++ {
		if ms[i].Data.Has(want) {
			return true
		}
	}
	return false
}

// AtSource returns every mapping whose source range contains offset, innermost first.
func (t *Table) AtSource(offset int, inclusiveEnd bool) []CodeMapping {
	if t == nil {
		return nil
	}
	ms := t.bySource

	end := sort.Search(len(ms), func(i int) bool {
		return ms[i].SourceOffset > offset
	})

	var out []CodeMapping
	for _, m := range ms[:end] {
		src := m.Source()
		if src.Contains(offset) || (inclusiveEnd && src.ContainsInclusive(offset)) {
			out = append(out, m)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SourceLength < out[j].SourceLength
	})
	return out
}

// ToSource maps a generated offset to its source offset using only mappings carrying want.
// The range end is exclusive.
func (t *Table) ToSource(generated int, want Capabilities) (int, bool) {
	return t.toSource(generated, want, false)
}

// ToSourceEnd is ToSource with an inclusive range end, for cursors and the end of ranges.
func (t *Table) ToSourceEnd(generated int, want Capabilities) (int, bool) {
	return t.toSource(generated, want, true)
}

func (t *Table) toSource(generated int, want Capabilities, inclusiveEnd bool) (int, bool) {
	m, ok := t.AtGenerated(generated, inclusiveEnd)
	if !ok || !IsEligible(m, want) {
		return 0, false
	}
	return translate(generated, m.GeneratedOffset, m.SourceOffset, m.SourceLength), true
}

// ToGenerated maps a source offset to its generated offset. When several mappings cover the offset the
// innermost eligible one wins.
func (t *Table) ToGenerated(source int, want Capabilities) (int, CodeMapping, bool) {
	return t.toGenerated(source, want, false)
}

func (t *Table) ToGeneratedEnd(source int, want Capabilities) (int, CodeMapping, bool) {
	return t.toGenerated(source, want, true)
}

func (t *Table) toGenerated(source int, want Capabilities, inclusiveEnd bool) (int, CodeMapping, bool) {
	for _, m := range t.AtSource(source, inclusiveEnd) {
		if !IsEligible(m, want) {
			continue
		}
		return translate(source, m.SourceOffset, m.GeneratedOffset, m.GeneratedLength), m, true
	}
	return 0, CodeMapping{}, false
}

// ToSourceSpan maps a generated span. If either end has no eligible source counterpart the result is
// the empty span at offset 0 and ok is false; pointing at the top of the file is less misleading than a
// range that runs to the end of it.
func (t *Table) ToSourceSpan(generated position.Span, want Capabilities) (position.Span, bool) {
	start, ok := t.ToSource(generated.Start, want)
	if !ok && generated.IsEmpty() {
		start, ok = t.ToSourceEnd(generated.Start, want)
	}
	if !ok {
		return position.Span{}, false
	}

	end, ok := t.ToSourceEnd(generated.End, want)
	if !ok || end < start {
		return position.Span{}, false
	}
	return position.Span{Start: start, End: end}, true
}

// ToGeneratedSpan maps a source span to generated coordinates.
func (t *Table) ToGeneratedSpan(source position.Span, want Capabilities) (position.Span, bool) {
	start, _, ok := t.ToGeneratedEnd(source.Start, want)
	if !ok {
		return position.Span{}, false
	}
	end, _, ok := t.ToGeneratedEnd(source.End, want)
	if !ok || end < start {
		return position.Span{}, false
	}
	return position.Span{Start: start, End: end}, true
}
