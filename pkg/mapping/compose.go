package mapping

// Compose chains two translation stages. outer relates the source to an intermediate document, inner
// relates that intermediate document to the final generated text. Each resulting mapping carries only
// the capabilities both stages grant.
func Compose(outer, inner *Table) (*Table, error) {
	var out []CodeMapping

	for _, m := range inner.Mappings() {
		mEnd := m.SourceOffset + m.SourceLength

		for _, o := range outer.Mappings() {
			oEnd := o.GeneratedOffset + o.GeneratedLength

			lo := max(m.SourceOffset, o.GeneratedOffset)
			hi := min(mEnd, oEnd)
			if lo > hi || (lo == hi && m.SourceLength > 0) {
				continue
			}

			srcStart := translate(lo, o.GeneratedOffset, o.SourceOffset, o.SourceLength)
			srcEnd := translate(hi, o.GeneratedOffset, o.SourceOffset, o.SourceLength)

			var genStart, genEnd int
			switch {
			case lo == m.SourceOffset && hi == mEnd:
				genStart, genEnd = m.GeneratedOffset, m.GeneratedOffset+m.GeneratedLength
			default:
				genStart = translate(lo, m.SourceOffset, m.GeneratedOffset, m.GeneratedLength)
				genEnd = translate(hi, m.SourceOffset, m.GeneratedOffset, m.GeneratedLength)
			}

			out = append(out, CodeMapping{
				SourceOffset:    srcStart,
				GeneratedOffset: genStart,
				SourceLength:    srcEnd - srcStart,
				GeneratedLength: genEnd - genStart,
				Data:            o.Data & m.Data,
			})

			if m.SourceLength == 0 {
				break
			}
		}
	}

	return NewTable(out...)
}

// Shift offsets the source side of every mapping, for when a generated fragment was produced from text
// that starts at delta in the real source.
func Shift(t *Table, delta int) *Table {
	ms := make([]CodeMapping, 0, t.Len())
	for _, m := range t.Mappings() {
		m.SourceOffset += delta
		ms = append(ms, m)
	}
	return MustTable(ms...)
}
