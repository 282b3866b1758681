package virtualcode

import (
	"fmt"
	"path"
	"strings"

	"github.com/walteh/astrols/pkg/mapping"
	"github.com/walteh/astrols/pkg/position"
	"github.com/walteh/astrols/pkg/segment"
	"github.com/walteh/astrols/pkg/yaml2ts"
)

var contentLanguages = map[string]string{
	".md":   "markdown",
	".mdx":  "mdx",
	".mdoc": "mdoc",
}

func (me *Builder) buildContent(res *Result) error {
	text := res.Source.Text
	fm := segment.ScanFrontmatter(text)

	res.Segments = &segment.Result{Frontmatter: fm.Status}
	if fm.Status != segment.StatusDoesntExist {
		res.Segments.Segments = append(res.Segments.Segments, segment.Segment{
			Kind: segment.KindFrontmatter, Span: fm.Span, Inner: fm.Inner, Status: fm.Status, Parent: -1,
		})
	}
	body := position.Span{Start: fm.Span.End, End: len(text)}
	res.Segments.Segments = append(res.Segments.Segments, segment.Segment{
		Kind: segment.KindMarkup, Span: body, Inner: body, Status: segment.StatusClosed, Parent: -1,
	})

	res.Codes = append(res.Codes, markdownCode(res.Source.Path, text, body))

	if fm.Status == segment.StatusOpen {
		res.Diagnostics = append(res.Diagnostics, unclosedFrontmatter(fm.Span.Start))
	}

	if me.collections == nil {
		return nil
	}
	col, ok := me.collections.CollectionFor(res.Source.Path)
	if !ok {
		return nil
	}

	if !col.HasSchema {
		if fm.Status != segment.StatusDoesntExist {
			res.Codes = append(res.Codes, plainFrontmatterCode(text, fm))
			res.Diagnostics = append(res.Diagnostics, collectionWithoutSchema(col.Name, position.NewSpan(fm.Span.Start, len(segment.Delimiter))))
		}
		return nil
	}

	code, diags, err := collectionCode(text, fm, col.Name)
	if err != nil {
		return err
	}
	res.Codes = append(res.Codes, code)
	res.Diagnostics = append(res.Diagnostics, diags...)
	return nil
}

// markdownCode is the whole file, unchanged. Codes built from the frontmatter map it more tightly and win
// offsets inside the block.
func markdownCode(p, text string, body position.Span) *VirtualCode {
	return &VirtualCode{
		ID:         IDMarkdown,
		Kind:       KindMarkdown,
		LanguageID: contentLanguages[strings.ToLower(path.Ext(p))],
		Extension:  strings.ToLower(path.Ext(p)),
		ScriptKind: ScriptKindDeferred,
		Text:       text,
		Mappings:   mapping.MustTable(mapping.Identity(0, 0, len(text), mapping.All)),
		Segments:   []segment.Segment{{Kind: segment.KindMarkup, Span: body, Inner: body, Parent: -1}},
		key:        text,
	}
}

// plainFrontmatterCode is the fallback for collections without a schema: the block as yaml, offering
// structure only.
func plainFrontmatterCode(text string, fm segment.Frontmatter) *VirtualCode {
	inner := fm.Inner.Text(text)
	return &VirtualCode{
		ID:         IDFrontmatterYAML,
		Kind:       KindFrontmatter,
		LanguageID: "yaml",
		Extension:  ".yaml",
		ScriptKind: ScriptKindExternal,
		Text:       inner,
		Mappings:   mapping.MustTable(mapping.Identity(fm.Inner.Start, 0, len(inner), mapping.Structure|mapping.Format)),
		key:        fmt.Sprintf("%d:%s", fm.Inner.Start, inner),
	}
}

// collectionCode feeds the block, delimiters blanked, through the yaml transpiler and composes its
// mapping with the block's position in the file.
func collectionCode(text string, fm segment.Frontmatter, collection string) (*VirtualCode, []Diagnostic, error) {
	var diags []Diagnostic

	block := ""
	outer := mapping.MustTable(mapping.Identity(0, 0, 0, mapping.All))
	if fm.Status != segment.StatusDoesntExist {
		raw := fm.Span.Text(text)
		block = blank(raw[:fm.Inner.Start-fm.Span.Start]) + fm.Inner.Text(text) + blank(raw[fm.Inner.End-fm.Span.Start:])
		outer = mapping.MustTable(mapping.Identity(fm.Span.Start, 0, len(block), mapping.All))
	} else {
		diags = append(diags, missingFrontmatter(collection))
	}

	tr, err := yaml2ts.Transpile(block, collection)
	if err != nil {
		return nil, nil, err
	}

	tbl, err := mapping.Compose(outer, tr.Mappings)
	if err != nil {
		return nil, nil, err
	}

	for _, e := range tr.Errors {
		diags = append(diags, Diagnostic{
			Span:     position.Span{Start: e.Span.Start + fm.Span.Start, End: e.Span.End + fm.Span.Start},
			Severity: SeverityError,
			Code:     CodeFrontmatterSyntax,
			Message:  e.Message,
		})
	}

	var owned []segment.Segment
	if fm.Status != segment.StatusDoesntExist {
		owned = append(owned, segment.Segment{Kind: segment.KindFrontmatter, Span: fm.Span, Inner: fm.Inner, Status: fm.Status, Parent: -1})
	}

	return &VirtualCode{
		ID:         IDCollection,
		Kind:       KindCollection,
		LanguageID: "typescript",
		Extension:  ".ts",
		ScriptKind: ScriptKindTS,
		Text:       tr.Text,
		Mappings:   tbl,
		Segments:   owned,
		key:        fmt.Sprintf("%s:%d:%s", collection, fm.Span.Start, block),
	}, diags, nil
}
