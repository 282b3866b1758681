// Package lexical is a small built-in engine that answers from declarations it can find by scanning the
// text. It keeps the server useful when no external type checker is attached.
package lexical

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/walteh/astrols/pkg/engine"
	"github.com/walteh/astrols/pkg/position"
	"github.com/walteh/astrols/pkg/virtualcode"
)

const diagnosticSource = "ts"

var keywords = []string{
	"as", "async", "await", "break", "case", "catch", "class", "const", "continue", "default", "else",
	"export", "false", "for", "from", "function", "if", "import", "in", "instanceof", "interface", "let",
	"new", "null", "of", "return", "switch", "throw", "true", "try", "type", "typeof", "undefined", "var",
	"while",
}

type astroMember struct {
	name   string
	detail string
}

var astroMembers = []astroMember{
	{"clientAddress", "string"},
	{"cookies", "AstroCookies"},
	{"generator", "string"},
	{"glob", "(globStr: string) => Promise<any[]>"},
	{"locals", "App.Locals"},
	{"params", "Record<string, string | undefined>"},
	{"props", "Record<string, any>"},
	{"redirect", "(path: string, status?: number) => Response"},
	{"request", "Request"},
	{"response", "ResponseInit"},
	{"self", "AstroComponentFactory"},
	{"site", "URL | undefined"},
	{"slots", "AstroSharedContext['slots']"},
	{"url", "URL"},
}

// bare statements the host script emits for component tags
var referenceStmtRe = regexp.MustCompile(`(?m)^[ \t]*([A-Z][\w$]*)(?:\.[\w$]+)*;[ \t]*$`)

var callRe = regexp.MustCompile(`\b([A-Za-z_$][\w$]*)\s*\(`)

type Engine struct{}

var _ engine.Engine = (*Engine)(nil)

func New() *Engine {
	return &Engine{}
}

func (me *Engine) Completions(ctx context.Context, doc engine.Document, offset int) ([]engine.Completion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s := scan(doc.Text)
	if offset < 0 || offset > len(doc.Text) || s.inLiteral(offset) {
		return nil, nil
	}

	start := offset
	for start > 0 && isIdentByte(s.masked[start-1]) {
		start--
	}
	prefix := s.masked[start:offset]
	replace := position.Span{Start: start, End: offset}

	if start > 0 && s.masked[start-1] == '.' {
		recv, ok := s.wordAt(start - 1)
		if !ok || recv.Text(s.masked) != "Astro" {
			return nil, nil
		}
		var out []engine.Completion
		for _, m := range astroMembers {
			if strings.HasPrefix(m.name, prefix) {
				out = append(out, engine.Completion{
					Label:      m.name,
					Kind:       engine.CompletionProperty,
					Detail:     m.detail,
					InsertText: m.name,
					SortText:   "0" + m.name,
					Replace:    replace,
				})
			}
		}
		return out, nil
	}

	seen := map[string]bool{}
	var out []engine.Completion
	for _, d := range s.decls {
		if seen[d.name] || !strings.HasPrefix(d.name, prefix) {
			continue
		}
		if d.scope >= 0 && !s.encloses(d.scope, offset) {
			continue
		}
		seen[d.name] = true
		out = append(out, engine.Completion{
			Label:         d.name,
			Kind:          completionKind(d.kind),
			Detail:        display(d),
			Documentation: s.docComment(d.stmt),
			InsertText:    d.name,
			SortText:      "0" + d.name,
			Replace:       replace,
		})
	}

	if prefix != "" {
		for _, kw := range keywords {
			if seen[kw] || !strings.HasPrefix(kw, prefix) {
				continue
			}
			out = append(out, engine.Completion{
				Label:      kw,
				Kind:       engine.CompletionKeyword,
				InsertText: kw,
				SortText:   "1" + kw,
				Replace:    replace,
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SortText < out[j].SortText
	})

	zerolog.Ctx(ctx).Trace().Str("file", doc.FileName).Int("offset", offset).Int("items", len(out)).Msg("lexical completions")

	return out, nil
}

func completionKind(k declKind) engine.CompletionKind {
	switch k {
	case declFunction:
		return engine.CompletionFunction
	case declClass:
		return engine.CompletionClass
	case declInterface, declType:
		return engine.CompletionInterface
	case declImport:
		return engine.CompletionModule
	default:
		return engine.CompletionVariable
	}
}

// display renders a declaration the way a type checker's quick info would.
func display(d decl) string {
	switch d.kind {
	case declConst, declLet, declVar:
		typ := d.typ
		if typ == "" {
			typ = literalType(d.init, d.kind != declConst)
		}
		if typ == "" {
			typ = "any"
		}
		return fmt.Sprintf("%s %s: %s", d.kind, d.name, typ)
	case declFunction:
		return d.sig
	case declType:
		if d.typ != "" {
			return fmt.Sprintf("type %s = %s", d.name, d.typ)
		}
		return "type " + d.name
	case declImport:
		return fmt.Sprintf("(alias) import %s from %q", d.name, d.module)
	default:
		return fmt.Sprintf("%s %s", d.kind, d.name)
	}
}

func (me *Engine) QuickInfo(ctx context.Context, doc engine.Document, offset int) (*engine.QuickInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s := scan(doc.Text)
	word, ok := s.wordAt(offset)
	if !ok || s.inLiteral(word.Start+1) {
		return nil, nil
	}
	name := word.Text(s.masked)

	if word.Start > 0 && s.masked[word.Start-1] == '.' {
		if recv, ok := s.wordAt(word.Start - 1); ok && recv.Text(s.masked) == "Astro" {
			for _, m := range astroMembers {
				if m.name == name {
					return &engine.QuickInfo{Span: word, Display: fmt.Sprintf("(property) %s: %s", m.name, m.detail)}, nil
				}
			}
		}
		return nil, nil
	}

	d, ok := s.lookup(name, offset)
	if !ok {
		return nil, nil
	}

	return &engine.QuickInfo{
		Span:          word,
		Display:       display(d),
		Documentation: s.docComment(d.stmt),
	}, nil
}

func (me *Engine) Definition(ctx context.Context, doc engine.Document, offset int) (*engine.Definitions, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s := scan(doc.Text)
	word, ok := s.wordAt(offset)
	if !ok {
		return nil, nil
	}

	d, ok := s.lookup(word.Text(s.masked), offset)
	if !ok {
		return nil, nil
	}

	defs := &engine.Definitions{Bound: word}

	if d.kind == declImport {
		importer, _, _ := virtualcode.ParseFileName(doc.FileName)
		target, ok := resolveModule(importer, d.module)
		if !ok {
			return nil, nil
		}
		defs.Definitions = append(defs.Definitions, engine.Location{
			FileName: virtualcode.ScriptFileName(target),
			Span:     position.Span{},
		})
		return defs, nil
	}

	defs.Definitions = append(defs.Definitions, engine.Location{FileName: doc.FileName, Span: d.span})
	return defs, nil
}

func (me *Engine) InlayHints(ctx context.Context, doc engine.Document, span position.Span) ([]engine.InlayHint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s := scan(doc.Text)
	var out []engine.InlayHint

	for _, d := range s.decls {
		if !span.ContainsInclusive(d.span.End) || d.typ != "" {
			continue
		}
		if d.kind != declConst && d.kind != declLet && d.kind != declVar {
			continue
		}
		typ := literalType(d.init, true)
		if typ == "" || typ == "null" {
			continue
		}
		out = append(out, engine.InlayHint{
			Offset: d.span.End,
			Label:  ": " + typ,
			Kind:   engine.InlayHintType,
		})
	}

	funcs := map[string]decl{}
	for _, d := range s.decls {
		if d.kind == declFunction {
			funcs[d.name] = d
		}
	}

	for _, g := range callRe.FindAllStringSubmatchIndex(s.masked, -1) {
		fn, ok := funcs[s.masked[g[2]:g[3]]]
		if !ok || g[2] == fn.span.Start || !span.Contains(g[0]) {
			continue
		}
		open := g[1] - 1
		args := splitTopLevel(s.masked, open+1, matching(s.masked, open))
		for i, arg := range args {
			if i >= len(fn.params) {
				break
			}
			text := strings.TrimSpace(arg.Text(doc.Text))
			if literalType(text, true) == "" {
				continue
			}
			at := arg.Start + strings.Index(arg.Text(doc.Text), text)
			out = append(out, engine.InlayHint{
				Offset:       at,
				Label:        fn.params[i].name + ":",
				Kind:         engine.InlayHintParameter,
				PaddingRight: true,
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Offset < out[j].Offset
	})
	return out, nil
}

func (me *Engine) Diagnostics(ctx context.Context, doc engine.Document) ([]engine.Diagnostic, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s := scan(doc.Text)
	var out []engine.Diagnostic

	type scoped struct {
		scope int
		name  string
	}
	byName := map[scoped][]decl{}
	for _, d := range s.decls {
		k := scoped{d.scope, d.name}
		byName[k] = append(byName[k], d)
	}

	for _, group := range byName {
		if len(group) < 2 {
			continue
		}
		conflict := false
		for _, d := range group {
			if d.kind.blockScoped() {
				conflict = true
			}
		}
		if !conflict {
			continue
		}
		for _, d := range group {
			out = append(out, engine.Diagnostic{
				Span:     d.span,
				Severity: engine.SeverityError,
				Code:     "2451",
				Message:  fmt.Sprintf("Cannot redeclare block-scoped variable '%s'.", d.name),
				Source:   diagnosticSource,
			})
		}
	}

	for _, g := range referenceStmtRe.FindAllStringSubmatchIndex(s.masked, -1) {
		name := s.masked[g[2]:g[3]]
		if _, ok := s.lookup(name, g[2]); ok {
			continue
		}
		out = append(out, engine.Diagnostic{
			Span:     position.Span{Start: g[2], End: g[3]},
			Severity: engine.SeverityError,
			Code:     "2304",
			Message:  fmt.Sprintf("Cannot find name '%s'.", name),
			Source:   diagnosticSource,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Span.Start < out[j].Span.Start
	})
	return out, nil
}
