package completion

import (
	"regexp"
	"strings"
)

var tagOpenRe = regexp.MustCompile(`^<([A-Z][\w]*(?:\.[\w]+)*)\s`)

// TagContext describes a cursor inside the start tag of a component.
type TagContext struct {
	Tag string
	// Start is the offset of the '<'.
	Start int
}

// NewTagContext finds the component start tag enclosing offset in markup, whose offsets must match the
// source file.
func NewTagContext(markup string, offset int) (*TagContext, bool) {
	if offset < 0 || offset > len(markup) {
		return nil, false
	}

	before := markup[:offset]
	open := strings.LastIndexByte(before, '<')
	if open < 0 || strings.ContainsRune(before[open:], '>') {
		return nil, false
	}

	m := tagOpenRe.FindStringSubmatch(markup[open:offset])
	if m == nil {
		return nil, false
	}

	return &TagContext{Tag: m[1], Start: open}, true
}

// InAttributeValue reports whether the cursor sits inside a quoted attribute value.
func (me *TagContext) InAttributeValue(markup string, offset int) bool {
	quotes := 0
	for _, c := range markup[me.Start:offset] {
		if c == '"' || c == '\'' {
			quotes++
		}
	}
	return quotes%2 == 1
}
