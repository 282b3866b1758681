package virtualcode

import (
	"github.com/walteh/astrols/pkg/mapping"
	"github.com/walteh/astrols/pkg/position"
)

// Location is a position inside one virtual code.
type Location struct {
	Code    *VirtualCode
	Offset  int
	Mapping mapping.CodeMapping
}

// ToGenerated finds where a source offset lives in the generated documents. When several codes cover
// the offset, the one whose mapping spans the fewest source bytes wins, and equal spans are settled by
// code kind: expression, then frontmatter, then collection, then markup.
func (me *Result) ToGenerated(offset int, c mapping.Capabilities) (Location, bool) {
	var best Location
	found := false

	for _, code := range me.Codes {
		gen, m, ok := code.ToGenerated(offset, c)
		if !ok {
			continue
		}
		cand := Location{Code: code, Offset: gen, Mapping: m}
		if !found || better(cand, best) {
			best = cand
			found = true
		}
	}
	return best, found
}

func better(a, b Location) bool {
	if a.Mapping.SourceLength != b.Mapping.SourceLength {
		return a.Mapping.SourceLength < b.Mapping.SourceLength
	}
	return a.Code.Kind.priority() > b.Code.Kind.priority()
}

// ToGeneratedIn maps a source offset into the named code only.
func (me *Result) ToGeneratedIn(id string, offset int, c mapping.Capabilities) (int, bool) {
	code, ok := me.Code(id)
	if !ok {
		return 0, false
	}
	gen, _, ok := code.ToGenerated(offset, c)
	return gen, ok
}

func (me *Result) ToSource(id string, offset int, c mapping.Capabilities) (int, bool) {
	code, ok := me.Code(id)
	if !ok {
		return 0, false
	}
	return code.ToSource(offset, c)
}

// ToSourceSpan maps a generated span of the named code. Spans without a faithful source counterpart
// become the empty span at the start of the file.
func (me *Result) ToSourceSpan(id string, span position.Span, c mapping.Capabilities) (position.Span, bool) {
	code, ok := me.Code(id)
	if !ok {
		return position.Span{}, false
	}
	return code.ToSourceSpan(span, c)
}
