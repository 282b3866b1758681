package virtualcode

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/walteh/astrols/pkg/mapping"
	"github.com/walteh/astrols/pkg/segment"
)

const componentBoilerplate = `
declare const Astro: Readonly<import("astro").AstroGlobal>;
declare const Fragment: any;

export default function __AstroComponent_(_props: Record<string, any>): any {
`

var componentTagRe = regexp.MustCompile(`<([A-Z][A-Za-z0-9_]*(?:\.[A-Za-z0-9_]+)*)`)

const (
	// script copied into the host keeps every capability except formatting, which belongs to the
	// standalone frontmatter code
	hostScriptFlags = mapping.All &^ mapping.Format
	// component references in markup only exist so navigation and checking can reach the import
	tagReferenceFlags = mapping.Navigation | mapping.Semantic | mapping.Verification
)

func (me *Builder) buildComponent(res *Result) error {
	text := res.Source.Text
	segs := segment.Extract(text)
	res.Segments = segs

	fm, hasFM := segs.FrontmatterSegment()
	if hasFM && fm.Status == segment.StatusOpen {
		res.Diagnostics = append(res.Diagnostics, unclosedFrontmatter(fm.Span.Start))
	}

	res.Codes = append(res.Codes, frontmatterCode(text, fm, hasFM))

	html, tags := markupCode(text, segs)
	res.Codes = append(res.Codes, html)

	tsx, err := hostScriptCode(text, segs, tags)
	if err != nil {
		return err
	}
	res.Codes = append(res.Codes, tsx)

	for _, expr := range segs.Expressions() {
		if expr.Status == segment.StatusOpen {
			res.Diagnostics = append(res.Diagnostics, unclosedExpression(expr.Span.Start))
		}
	}

	return nil
}

// frontmatterCode is the script block verbatim. Without a block it is empty, anchored at offset 0 so
// problems about the missing block still have a place in the source.
func frontmatterCode(text string, fm segment.Segment, ok bool) *VirtualCode {
	code := &VirtualCode{
		ID:         IDFrontmatter,
		Kind:       KindFrontmatter,
		LanguageID: "typescript",
		Extension:  ".ts",
		ScriptKind: ScriptKindTS,
	}

	if !ok {
		code.Mappings = mapping.MustTable(mapping.CodeMapping{Data: mapping.Verification})
		code.key = "none"
		return code
	}

	code.Text = fm.InnerText(text)
	code.Segments = []segment.Segment{fm}
	code.Mappings = mapping.MustTable(mapping.Identity(fm.Inner.Start, 0, fm.Inner.Length(), mapping.All))
	code.key = fmt.Sprintf("%s:%d:%s", fm.Status, fm.Inner.Start, code.Text)
	return code
}

type tagReference struct {
	name   string
	offset int
}

// markupCode keeps the file's layout with the script block and expression interiors blanked out, so
// markup offsets equal source offsets.
func markupCode(text string, segs *segment.Result) (*VirtualCode, []tagReference) {
	markup := segs.Markup()
	exprs := segs.Expressions()

	var b strings.Builder
	b.Grow(len(text))
	b.WriteString(blank(text[:markup.Span.Start]))

	var maps []mapping.CodeMapping
	cursor := markup.Span.Start
	for _, expr := range exprs {
		b.WriteString(text[cursor:expr.Inner.Start])
		b.WriteString(blank(expr.InnerText(text)))
		maps = appendIdentity(maps, cursor, expr.Inner.Start, mapping.All)
		cursor = expr.Inner.End
	}
	b.WriteString(text[cursor:markup.Span.End])
	maps = appendIdentity(maps, cursor, markup.Span.End, mapping.All)

	out := b.String()

	// tags written inside comments or script and style bodies are not rendered
	scan := []byte(out)
	for _, span := range segs.Opaque {
		copy(scan[span.Start:span.End], blank(out[span.Start:span.End]))
	}

	var tags []tagReference
	for _, m := range componentTagRe.FindAllSubmatchIndex(scan, -1) {
		tags = append(tags, tagReference{name: out[m[2]:m[3]], offset: m[2]})
	}

	code := &VirtualCode{
		ID:         IDMarkup,
		Kind:       KindMarkup,
		LanguageID: "html",
		Extension:  ".html",
		ScriptKind: ScriptKindExternal,
		Text:       out,
		Mappings:   mapping.MustTable(maps...),
		Segments:   []segment.Segment{markup},
		key:        out,
	}
	return code, tags
}

func appendIdentity(maps []mapping.CodeMapping, start, end int, data mapping.Capabilities) []mapping.CodeMapping {
	if end <= start {
		return maps
	}
	return append(maps, mapping.Identity(start, start, end-start, data))
}

// hostScriptCode places the frontmatter at module scope and every expression and component reference
// inside a render function, so expressions resolve names declared by the script.
func hostScriptCode(text string, segs *segment.Result, tags []tagReference) (*VirtualCode, error) {
	var b strings.Builder
	var maps []mapping.CodeMapping
	var key strings.Builder
	var owned []segment.Segment

	if fm, ok := segs.FrontmatterSegment(); ok {
		inner := fm.InnerText(text)
		maps = append(maps, mapping.Identity(fm.Inner.Start, 0, len(inner), hostScriptFlags))
		b.WriteString(inner)
		if !strings.HasSuffix(inner, "\n") {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&key, "fm:%d:%s\x00", fm.Inner.Start, inner)
		owned = append(owned, fm)
	}

	b.WriteString(componentBoilerplate)

	for _, expr := range segs.Expressions() {
		inner := expr.InnerText(text)
		flags := hostScriptFlags
		if expr.Status == segment.StatusOpen {
			// the parse errors of a half typed expression are reported once, by the builder
			flags &^= mapping.Verification
		}

		b.WriteString("  (")
		maps = append(maps, mapping.Identity(expr.Inner.Start, b.Len(), len(inner), flags))
		b.WriteString(inner)
		b.WriteString(");\n")

		fmt.Fprintf(&key, "ex:%d:%s:%s\x00", expr.Inner.Start, expr.Status, inner)
		owned = append(owned, expr)
	}

	for _, tag := range tags {
		b.WriteString("  ")
		maps = append(maps, mapping.Identity(tag.offset, b.Len(), len(tag.name), tagReferenceFlags))
		b.WriteString(tag.name)
		b.WriteString(";\n")

		fmt.Fprintf(&key, "tag:%d:%s\x00", tag.offset, tag.name)
	}

	b.WriteString("}\n")

	tbl, err := mapping.NewTable(maps...)
	if err != nil {
		return nil, err
	}

	return &VirtualCode{
		ID:         IDExpression,
		Kind:       KindExpression,
		LanguageID: "typescriptreact",
		Extension:  ".tsx",
		ScriptKind: ScriptKindTSX,
		Text:       b.String(),
		Mappings:   tbl,
		Segments:   owned,
		key:        key.String(),
	}, nil
}
