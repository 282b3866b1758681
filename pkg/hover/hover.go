// Package hover provides functionality for generating hover information.
package hover

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"github.com/walteh/astrols/pkg/engine"
	"github.com/walteh/astrols/pkg/mapping"
	"github.com/walteh/astrols/pkg/position"
	"github.com/walteh/astrols/pkg/snapshot"
)

// HoverInfo is the markdown shown for a symbol and the source range it applies to.
type HoverInfo struct {
	Content string
	// Range is nil when the symbol's span has no source counterpart.
	Range *position.Range
}

// displayParts rewrites engine wording that reads wrong inside a template.
var displayParts = strings.NewReplacer("JSX attribute", "HTML attribute")

// FormatHoverResponse renders quick info as a typescript fence followed by any documentation.
func FormatHoverResponse(info *engine.QuickInfo) string {
	var sb strings.Builder
	sb.WriteString("```typescript\n")
	sb.WriteString(displayParts.Replace(info.Display))
	sb.WriteString("\n```")

	if doc := strings.TrimSpace(info.Documentation); doc != "" {
		sb.WriteString("\n---\n")
		sb.WriteString(doc)
	}

	return sb.String()
}

type Provider struct {
	engine engine.Engine
}

func New(eng engine.Engine) *Provider {
	return &Provider{engine: eng}
}

func (me *Provider) Hover(ctx context.Context, entry *snapshot.Entry, at position.Place) (*HoverInfo, error) {
	if ctx.Err() != nil {
		return nil, nil
	}

	res := entry.Result
	idx := entry.Index()

	loc, ok := res.ToGenerated(idx.OffsetAt(at), mapping.Semantic)
	if !ok || !engine.IsScript(loc.Code) {
		return nil, nil
	}

	info, err := me.engine.QuickInfo(ctx, engine.DocumentOf(res.Source.Path, loc.Code), loc.Offset)
	if ctx.Err() != nil {
		return nil, nil
	}
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("code", loc.Code.ID).Msg("engine quick info failed")
		return nil, nil
	}
	if info == nil || info.Display == "" {
		return nil, nil
	}

	out := &HoverInfo{Content: FormatHoverResponse(info)}
	if span, ok := loc.Code.ToSourceSpan(info.Span, mapping.Semantic); ok {
		rng := idx.RangeOf(span)
		out.Range = &rng
	}

	return out, nil
}
