// Package outline lists the symbols of a document: the script block and its declarations for
// components, frontmatter keys and headings for content files.
package outline

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/walteh/astrols/pkg/engine"
	"github.com/walteh/astrols/pkg/mapping"
	"github.com/walteh/astrols/pkg/position"
	"github.com/walteh/astrols/pkg/segment"
	"github.com/walteh/astrols/pkg/snapshot"
	"github.com/walteh/astrols/pkg/virtualcode"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"
)

type Symbol struct {
	Name           string
	Detail         string
	Kind           engine.SymbolKind
	Range          position.Range
	SelectionRange position.Range
	Children       []Symbol
}

type Provider struct {
	engine engine.Engine
	md     goldmark.Markdown
}

func New(eng engine.Engine) *Provider {
	return &Provider{
		engine: eng,
		md:     goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

func (me *Provider) Symbols(ctx context.Context, entry *snapshot.Entry) ([]Symbol, error) {
	if ctx.Err() != nil {
		return nil, nil
	}

	res := entry.Result
	var out []Symbol

	fm, hasFM := res.Segments.FrontmatterSegment()

	if virtualcode.IsComponentPath(res.Source.Path) {
		if !hasFM {
			return nil, nil
		}
		block := me.blockSymbol(entry, fm, "Component script")
		block.Children = me.scriptSymbols(ctx, entry)
		if ctx.Err() != nil {
			return nil, nil
		}
		return append(out, block), nil
	}

	if hasFM {
		block := me.blockSymbol(entry, fm, "Frontmatter")
		block.Children = frontmatterKeys(entry, fm)
		out = append(out, block)
	}

	if code, ok := res.Code(virtualcode.IDMarkdown); ok {
		out = append(out, me.headings(entry, code)...)
	}

	return out, nil
}

func (me *Provider) blockSymbol(entry *snapshot.Entry, fm segment.Segment, name string) Symbol {
	idx := entry.Index()
	return Symbol{
		Name:           name,
		Kind:           engine.SymbolModule,
		Range:          idx.RangeOf(fm.Span),
		SelectionRange: idx.RangeOf(position.NewSpan(fm.Span.Start, len(segment.Delimiter))),
	}
}

// scriptSymbols asks the engine for the host script's declarations. Declarations the host script adds
// itself have no source and are dropped.
func (me *Provider) scriptSymbols(ctx context.Context, entry *snapshot.Entry) []Symbol {
	sp, ok := me.engine.(engine.SymbolProvider)
	if !ok {
		return nil
	}

	res := entry.Result
	code, ok := res.ServiceScript()
	if !ok {
		return nil
	}

	syms, err := sp.Symbols(ctx, engine.DocumentOf(res.Source.Path, code))
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("code", code.ID).Msg("engine symbols failed")
		return nil
	}

	idx := entry.Index()
	var out []Symbol
	for _, s := range syms {
		full, ok := code.ToSourceSpan(s.Span, mapping.Structure)
		if !ok {
			continue
		}
		sel, ok := code.ToSourceSpan(s.Selection, mapping.Structure)
		if !ok {
			sel = full
		}
		out = append(out, Symbol{
			Name:           s.Name,
			Detail:         s.Detail,
			Kind:           s.Kind,
			Range:          idx.RangeOf(full),
			SelectionRange: idx.RangeOf(sel),
		})
	}
	return out
}

// frontmatterKeys lists the top level keys of the frontmatter block. Blocks that do not parse have
// none.
func frontmatterKeys(entry *snapshot.Entry, fm segment.Segment) []Symbol {
	src := entry.Result.Source.Text
	inner := fm.InnerText(src)

	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(inner), &doc); err != nil || len(doc.Content) == 0 {
		return nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil
	}

	innerIdx := position.NewIndex(inner)
	idx := entry.Index()

	var out []Symbol
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		start := fm.Inner.Start + innerIdx.OffsetAt(position.Place{Line: key.Line - 1, Character: key.Column - 1})
		sel := position.NewSpan(start, len(key.Value))

		sym := Symbol{
			Name:           key.Value,
			Kind:           engine.SymbolKey,
			Range:          idx.RangeOf(sel),
			SelectionRange: idx.RangeOf(sel),
		}
		if val.Kind == yaml.ScalarNode {
			sym.Detail = val.Value
		}
		out = append(out, sym)
	}
	return out
}

type heading struct {
	level int
	sym   Symbol
}

// headings nests markdown headings by level.
func (me *Provider) headings(entry *snapshot.Entry, code *virtualcode.VirtualCode) []Symbol {
	src := []byte(code.Text)
	// the frontmatter block would otherwise read as a rule and a setext heading
	for _, seg := range code.Segments {
		if seg.Kind != segment.KindMarkup {
			continue
		}
		for i := 0; i < seg.Span.Start && i < len(src); i++ {
			if src[i] != '\n' {
				src[i] = ' '
			}
		}
	}
	doc := me.md.Parser().Parse(text.NewReader(src))
	idx := entry.Index()

	var flat []heading
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		h, ok := n.(*ast.Heading)
		if !ok || !entering {
			return ast.WalkContinue, nil
		}
		lines := h.Lines()
		if lines.Len() == 0 {
			return ast.WalkSkipChildren, nil
		}

		first, last := lines.At(0), lines.At(lines.Len()-1)
		lineStart := strings.LastIndexByte(code.Text[:first.Start], '\n') + 1

		full, ok := code.ToSourceSpan(position.Span{Start: lineStart, End: last.Stop}, mapping.Structure)
		if !ok {
			return ast.WalkSkipChildren, nil
		}
		sel, ok := code.ToSourceSpan(position.Span{Start: first.Start, End: last.Stop}, mapping.Structure)
		if !ok {
			sel = full
		}

		flat = append(flat, heading{level: h.Level, sym: Symbol{
			Name:           strings.TrimSpace(string(lines.Value(src))),
			Kind:           engine.SymbolString,
			Detail:         strings.Repeat("#", h.Level),
			Range:          idx.RangeOf(full),
			SelectionRange: idx.RangeOf(sel),
		}})
		return ast.WalkSkipChildren, nil
	})

	i := 0
	return nest(flat, &i, 0)
}

// nest consumes headings deeper than level, attaching each one's deeper successors as children.
func nest(flat []heading, i *int, level int) []Symbol {
	var out []Symbol
	for *i < len(flat) && flat[*i].level > level {
		h := flat[*i]
		*i++
		h.sym.Children = nest(flat, i, h.level)
		out = append(out, h.sym)
	}
	return out
}
