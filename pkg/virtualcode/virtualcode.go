// Package virtualcode builds the single-language documents that stand in for a component or content
// file, and translates positions between them and the real file.
package virtualcode

import (
	"path"
	"strings"

	"github.com/walteh/astrols/pkg/mapping"
	"github.com/walteh/astrols/pkg/position"
	"github.com/walteh/astrols/pkg/segment"
)

// Kind discriminates the variants of VirtualCode.
type Kind int

const (
	KindFrontmatter Kind = iota + 1
	KindMarkup
	KindExpression
	KindCollection
	KindMarkdown
)

func (k Kind) String() string {
	switch k {
	case KindFrontmatter:
		return "frontmatter"
	case KindMarkup:
		return "markup"
	case KindExpression:
		return "expression"
	case KindCollection:
		return "collection"
	case KindMarkdown:
		return "markdown"
	default:
		return "unknown"
	}
}

// priority breaks ties between codes whose mappings cover a source offset equally tightly.
func (k Kind) priority() int {
	switch k {
	case KindExpression:
		return 4
	case KindFrontmatter:
		return 3
	case KindCollection:
		return 2
	case KindMarkup:
		return 1
	default:
		return 0
	}
}

// ScriptKind mirrors the script kind numbers the typescript language service expects.
type ScriptKind int

const (
	ScriptKindUnknown  ScriptKind = 0
	ScriptKindTS       ScriptKind = 3
	ScriptKindTSX      ScriptKind = 4
	ScriptKindExternal ScriptKind = 5
	ScriptKindDeferred ScriptKind = 7
)

const (
	IDFrontmatter     = "frontmatter-ts"
	IDFrontmatterYAML = "frontmatter-yaml"
	IDMarkup          = "html"
	IDExpression      = "tsx"
	IDCollection      = "yaml-ts"
	IDMarkdown        = "markdown"
)

var knownIDs = []string{IDFrontmatter, IDFrontmatterYAML, IDMarkup, IDExpression, IDCollection, IDMarkdown}

// VirtualCode is one generated document.
type VirtualCode struct {
	ID         string
	Kind       Kind
	LanguageID string
	Extension  string
	ScriptKind ScriptKind
	Text       string
	Mappings   *mapping.Table
	// Segments are the source regions this code was generated from.
	Segments []segment.Segment

	// key captures every input the code was generated from, for reuse across builds.
	key string
}

// FileName is the stable name the code is known by to language engines.
func (me *VirtualCode) FileName(sourcePath string) string {
	return sourcePath + "." + me.ID + me.Extension
}

// ParseFileName splits a virtual file name produced by FileName. ok is false for real files.
func ParseFileName(name string) (sourcePath, id string, ok bool) {
	for _, known := range knownIDs {
		marker := "." + known + "."
		i := strings.LastIndex(name, marker)
		if i < 0 || strings.ContainsRune(name[i+len(marker):], '/') {
			continue
		}
		return name[:i], known, true
	}
	return name, "", false
}

// IsComponentPath reports whether p names a component file.
func IsComponentPath(p string) bool {
	return strings.EqualFold(path.Ext(p), ".astro")
}

// ScriptFileName is the name a language engine knows the file at sourcePath by. Components are only
// visible to script tooling through their host script.
func ScriptFileName(sourcePath string) string {
	if IsComponentPath(sourcePath) {
		return sourcePath + "." + IDExpression + ".tsx"
	}
	return sourcePath
}

// ToGenerated maps a source offset into this code.
func (me *VirtualCode) ToGenerated(offset int, c mapping.Capabilities) (int, mapping.CodeMapping, bool) {
	gen, m, ok := me.Mappings.ToGenerated(offset, c)
	if !ok {
		return me.Mappings.ToGeneratedEnd(offset, c)
	}
	return gen, m, true
}

// ToSource maps a generated offset (a cursor, so the end of a mapping counts) back to the source.
func (me *VirtualCode) ToSource(offset int, c mapping.Capabilities) (int, bool) {
	src, ok := me.Mappings.ToSource(offset, c)
	if !ok {
		return me.Mappings.ToSourceEnd(offset, c)
	}
	return src, true
}

// ToSourceSpan maps a generated span, collapsing to the start of the file when it has no source.
func (me *VirtualCode) ToSourceSpan(span position.Span, c mapping.Capabilities) (position.Span, bool) {
	return me.Mappings.ToSourceSpan(span, c)
}

func (me *VirtualCode) ToGeneratedSpan(span position.Span, c mapping.Capabilities) (position.Span, bool) {
	return me.Mappings.ToGeneratedSpan(span, c)
}

// blank replaces every byte of s except line breaks with a space, keeping offsets and lines aligned.
func blank(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c != '\n' && c != '\r' {
			b[i] = ' '
		}
	}
	return string(b)
}
