// Package mapping relates offsets in a generated document back to the source file it was built from.
package mapping

import (
	"fmt"
	"strings"

	"github.com/walteh/astrols/pkg/position"
)

// Capabilities marks which features may trust results produced inside a mapped region.
type Capabilities uint8

const (
	Verification Capabilities = 1 << iota
	Completion
	Semantic
	Navigation
	Structure
	Format
)

const (
	None Capabilities = 0
	All               = Verification | Completion | Semantic | Navigation | Structure | Format
)

var capabilityNames = []struct {
	c    Capabilities
	name string
}{
	{Verification, "verification"},
	{Completion, "completion"},
	{Semantic, "semantic"},
	{Navigation, "navigation"},
	{Structure, "structure"},
	{Format, "format"},
}

// Has reports whether every flag in want is set.
func (c Capabilities) Has(want Capabilities) bool {
	return c&want == want
}

func (c Capabilities) String() string {
	if c == None {
		return "none"
	}
	var names []string
	for _, n := range capabilityNames {
		if c.Has(n.c) {
			names = append(names, n.name)
		}
	}
	return strings.Join(names, "|")
}

// CodeMapping relates a source range to a generated range. The two sides may differ in length when
// the generator rewrote the text (quoting a YAML scalar, for example).
type CodeMapping struct {
	SourceOffset    int
	GeneratedOffset int
	SourceLength    int
	GeneratedLength int
	Data            Capabilities
}

// Identity maps length bytes at the same relative position on both sides.
func Identity(sourceOffset, generatedOffset, length int, data Capabilities) CodeMapping {
	return CodeMapping{
		SourceOffset:    sourceOffset,
		GeneratedOffset: generatedOffset,
		SourceLength:    length,
		GeneratedLength: length,
		Data:            data,
	}
}

func (m CodeMapping) Source() position.Span {
	return position.NewSpan(m.SourceOffset, m.SourceLength)
}

func (m CodeMapping) Generated() position.Span {
	return position.NewSpan(m.GeneratedOffset, m.GeneratedLength)
}

func (m CodeMapping) String() string {
	return fmt.Sprintf("src%s -> gen%s {%s}", m.Source(), m.Generated(), m.Data)
}

// IsEligible is the capability gate: results anchored in m may only be used by a feature whose
// capability is set on the mapping.
func IsEligible(m CodeMapping, c Capabilities) bool {
	return m.Data.Has(c)
}

// translate moves offset from one side of a mapping to the other. Offsets past the end of the shorter
// side clamp to its end.
func translate(offset, fromStart, toStart, toLength int) int {
	rel := offset - fromStart
	if rel > toLength {
		rel = toLength
	}
	return toStart + rel
}
