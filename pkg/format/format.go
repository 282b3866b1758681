// Package format formats the component script block.
package format

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/walteh/astrols/pkg/engine"
	"github.com/walteh/astrols/pkg/mapping"
	"github.com/walteh/astrols/pkg/position"
	"github.com/walteh/astrols/pkg/snapshot"
	"github.com/walteh/astrols/pkg/virtualcode"
)

type Edit struct {
	Range   position.Range
	NewText string
}

// OptionsFunc adjusts the client's options for a file, for example from an .editorconfig.
type OptionsFunc func(path string, base engine.FormatOptions) engine.FormatOptions

type Provider struct {
	engine  engine.Engine
	options OptionsFunc
}

func New(eng engine.Engine, options OptionsFunc) *Provider {
	return &Provider{engine: eng, options: options}
}

// Format returns edits for the script block. Edits reaching outside text that may be formatted are
// dropped whole.
func (me *Provider) Format(ctx context.Context, entry *snapshot.Entry, opts engine.FormatOptions) ([]Edit, error) {
	if ctx.Err() != nil {
		return nil, nil
	}

	res := entry.Result
	code, ok := res.Code(virtualcode.IDFrontmatter)
	if !ok || code.Text == "" {
		return nil, nil
	}

	if me.options != nil {
		opts = me.options(res.Source.Path, opts)
	}

	edits, err := me.engine.Format(ctx, engine.DocumentOf(res.Source.Path, code), opts)
	if ctx.Err() != nil {
		return nil, nil
	}
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("code", code.ID).Msg("engine format failed")
		return nil, nil
	}

	idx := entry.Index()
	var out []Edit
	dropped := 0
	for _, e := range edits {
		span, ok := code.ToSourceSpan(e.Span, mapping.Format)
		if !ok {
			dropped++
			continue
		}
		out = append(out, Edit{Range: idx.RangeOf(span), NewText: e.NewText})
	}

	if dropped > 0 {
		zerolog.Ctx(ctx).Debug().Int("dropped", dropped).Str("uri", entry.URI).Msg("format edits outside the script block")
	}

	return out, nil
}
