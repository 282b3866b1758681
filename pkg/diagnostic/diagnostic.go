package diagnostic

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"github.com/walteh/astrols/pkg/engine"
	"github.com/walteh/astrols/pkg/mapping"
	"github.com/walteh/astrols/pkg/position"
	"github.com/walteh/astrols/pkg/snapshot"
	"github.com/walteh/astrols/pkg/virtualcode"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// Source labels the problems the server finds itself rather than an engine.
const Source = "astro"

// Generator is responsible for generating diagnostics for one document version
type Generator interface {
	Generate(ctx context.Context, entry *snapshot.Entry) (*Diagnostics, error)
}

// Diagnostics is every problem found in one version of a document, in source coordinates.
type Diagnostics struct {
	URI     string
	Version int32
	Items   []Diagnostic
}

// Count returns how many items have the given severity.
func (me *Diagnostics) Count(sev DiagnosticSeverity) int {
	n := 0
	for _, d := range me.Items {
		if d.Severity == sev {
			n++
		}
	}
	return n
}

type Diagnostic struct {
	Range    position.Range
	Severity DiagnosticSeverity
	Code     string
	Message  string
	Source   string
}

// DiagnosticSeverity uses the protocol's numbering.
type DiagnosticSeverity int

const (
	Error DiagnosticSeverity = iota + 1
	Warning
	Info
	Hint
)

func (s DiagnosticSeverity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	case Info:
		return "info"
	case Hint:
		return "hint"
	default:
		return "unknown"
	}
}

// DefaultGenerator combines the builder's own diagnostics with those of the engine for every script
// code.
type DefaultGenerator struct {
	engine engine.Engine
}

func NewDefaultGenerator(eng engine.Engine) *DefaultGenerator {
	return &DefaultGenerator{engine: eng}
}

var _ Generator = (*DefaultGenerator)(nil)

// Generate never fails because an engine did; those failures are logged and the rest is returned.
// A cancelled request returns nil.
func (me *DefaultGenerator) Generate(ctx context.Context, entry *snapshot.Entry) (*Diagnostics, error) {
	if ctx.Err() != nil {
		return nil, nil
	}

	res := entry.Result
	idx := entry.Index()

	out := &Diagnostics{URI: entry.URI, Version: entry.Version}
	for _, d := range res.Diagnostics {
		out.Items = append(out.Items, fromBuilder(d, idx))
	}

	var (
		mu     sync.Mutex
		failed error
		seen   = map[Diagnostic]bool{}
	)

	var g errgroup.Group
	for _, code := range res.Codes {
		if !engine.IsScript(code) {
			continue
		}
		g.Go(func() error {
			diags, err := me.engine.Diagnostics(ctx, engine.DocumentOf(res.Source.Path, code))

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				failed = multierr.Append(failed, err)
				return nil
			}
			for _, d := range diags {
				item, ok := fromEngine(d, code, idx)
				if !ok || seen[item] {
					continue
				}
				seen[item] = true
				out.Items = append(out.Items, item)
			}
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		return nil, nil
	}
	if failed != nil {
		zerolog.Ctx(ctx).Warn().Err(failed).Str("uri", entry.URI).Msg("engine diagnostics incomplete")
	}

	sort.SliceStable(out.Items, func(i, j int) bool {
		a, b := out.Items[i].Range.Start, out.Items[j].Range.Start
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Character != b.Character {
			return a.Character < b.Character
		}
		return out.Items[i].Message < out.Items[j].Message
	})

	zerolog.Ctx(ctx).Debug().
		Str("uri", entry.URI).
		Int32("version", entry.Version).
		Int("errors", out.Count(Error)).
		Int("total", len(out.Items)).
		Msg("diagnostics generated")

	return out, nil
}

func fromBuilder(d virtualcode.Diagnostic, idx *position.Index) Diagnostic {
	msg := d.Message
	if d.Hint != "" {
		msg += "\n\n" + d.Hint
	}
	return Diagnostic{
		Range:    idx.RangeOf(d.Span),
		Severity: DiagnosticSeverity(d.Severity),
		Code:     d.Code,
		Message:  msg,
		Source:   Source,
	}
}

// fromEngine translates an engine diagnostic. Problems in generated-only text are dropped; problems that
// reach eligible text but do not map cleanly are kept at the start of the file.
func fromEngine(d engine.Diagnostic, code *virtualcode.VirtualCode, idx *position.Index) (Diagnostic, bool) {
	span, ok := code.ToSourceSpan(d.Span, mapping.Verification)
	if !ok {
		if m, in := code.Mappings.AtGenerated(d.Span.Start, true); in && !m.Data.Has(mapping.Verification) {
			return Diagnostic{}, false
		}
		if !code.Mappings.Touches(d.Span, mapping.Verification) {
			return Diagnostic{}, false
		}
		span = position.Span{}
	}

	return Diagnostic{
		Range:    idx.RangeOf(span),
		Severity: DiagnosticSeverity(d.Severity),
		Code:     d.Code,
		Message:  d.Message,
		Source:   d.Source,
	}, true
}
