// Package inlay maps the engine's inlay hints for the host script back onto the source.
package inlay

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/walteh/astrols/pkg/engine"
	"github.com/walteh/astrols/pkg/mapping"
	"github.com/walteh/astrols/pkg/position"
	"github.com/walteh/astrols/pkg/snapshot"
)

type Hint struct {
	Place        position.Place
	Label        string
	Kind         engine.InlayHintKind
	PaddingLeft  bool
	PaddingRight bool
}

type Provider struct {
	engine engine.Engine
}

func New(eng engine.Engine) *Provider {
	return &Provider{engine: eng}
}

// Hints returns the hints that fall inside rng. Hints placed in generated-only text are dropped.
func (me *Provider) Hints(ctx context.Context, entry *snapshot.Entry, rng position.Range) ([]Hint, error) {
	if ctx.Err() != nil {
		return nil, nil
	}

	res := entry.Result
	idx := entry.Index()

	code, ok := res.ServiceScript()
	if !ok || !engine.IsScript(code) {
		return nil, nil
	}

	want := idx.SpanOf(rng)

	// the requested range rarely maps as a whole, so ask for the entire script and filter afterwards
	gen, ok := code.ToGeneratedSpan(want, mapping.Semantic)
	if !ok {
		gen = position.Span{Start: 0, End: len(code.Text)}
	}

	hints, err := me.engine.InlayHints(ctx, engine.DocumentOf(res.Source.Path, code), gen)
	if ctx.Err() != nil {
		return nil, nil
	}
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("code", code.ID).Msg("engine inlay hints failed")
		return nil, nil
	}

	var out []Hint
	for _, h := range hints {
		src, ok := code.ToSource(h.Offset, mapping.Semantic)
		if !ok || !want.ContainsInclusive(src) {
			continue
		}
		out = append(out, Hint{
			Place:        idx.PlaceAt(src),
			Label:        h.Label,
			Kind:         h.Kind,
			PaddingLeft:  h.PaddingLeft,
			PaddingRight: h.PaddingRight,
		})
	}

	return out, nil
}
