// Package completion answers completion requests for component and content files.
package completion

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/walteh/astrols/pkg/completion/providers"
	"github.com/walteh/astrols/pkg/engine"
	"github.com/walteh/astrols/pkg/mapping"
	"github.com/walteh/astrols/pkg/position"
	"github.com/walteh/astrols/pkg/snapshot"
	"github.com/walteh/astrols/pkg/virtualcode"
	"gitlab.com/tozd/go/errors"
)

// TriggerDash is the trigger character that offers the script block snippet.
const TriggerDash = "-"

type List struct {
	Items        []providers.Item
	IsIncomplete bool
}

type Provider struct {
	engine engine.Engine
	fs     afero.Fs
}

type Opt func(*Provider)

// WithFs sets the filesystem component files are read from.
func WithFs(fs afero.Fs) Opt {
	return func(p *Provider) {
		p.fs = fs
	}
}

func New(eng engine.Engine, opts ...Opt) *Provider {
	p := &Provider{engine: eng, fs: afero.NewOsFs()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Complete returns the completions at a place in the entry's source. Results are remembered per place
// for the lifetime of the entry. A cancelled request yields no list.
func (me *Provider) Complete(ctx context.Context, entry *snapshot.Entry, at position.Place, trigger string) (*List, error) {
	if ctx.Err() != nil {
		return nil, nil
	}

	tag := fmt.Sprintf("completion:%d:%d:%s", at.Line, at.Character, trigger)
	list, err := snapshot.Memo(entry, tag, func() (*List, error) {
		return me.complete(ctx, entry, at, trigger)
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, nil
		}
		return nil, err
	}
	return list, nil
}

func (me *Provider) complete(ctx context.Context, entry *snapshot.Entry, at position.Place, trigger string) (*List, error) {
	res := entry.Result
	idx := entry.Index()
	offset := idx.OffsetAt(at)
	list := &List{IsIncomplete: true}

	if trigger == TriggerDash {
		if !virtualcode.IsComponentPath(res.Source.Path) {
			return list, nil
		}
		if item, ok := providers.FrontmatterSnippet(res.Segments.Frontmatter, idx.LineUntil(offset), at); ok {
			list.Items = append(list.Items, item)
		}
		return list, nil
	}

	if props, ok := me.propItems(ctx, entry, offset); ok {
		list.Items = append(list.Items, props...)
	}

	loc, ok := res.ToGenerated(offset, mapping.Completion)
	if !ok || !engine.IsScript(loc.Code) {
		return list, nil
	}

	items, err := me.engine.Completions(ctx, engine.DocumentOf(res.Source.Path, loc.Code), loc.Offset)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("code", loc.Code.ID).Msg("engine completions failed")
		return list, nil
	}

	for _, it := range items {
		item, ok := fromEngine(it, loc.Code, idx)
		if !ok {
			continue
		}
		list.Items = append(list.Items, item)
	}

	zerolog.Ctx(ctx).Debug().
		Str("code", loc.Code.ID).
		Int("generated_offset", loc.Offset).
		Int("items", len(list.Items)).
		Msg("completions")

	return list, nil
}

// propItems offers the declared props of the component whose start tag holds the cursor.
func (me *Provider) propItems(ctx context.Context, entry *snapshot.Entry, offset int) ([]providers.Item, bool) {
	res := entry.Result
	html, ok := res.Code(virtualcode.IDMarkup)
	if !ok {
		return nil, false
	}

	tc, ok := NewTagContext(html.Text, offset)
	if !ok || tc.InAttributeValue(html.Text, offset) {
		return nil, false
	}

	fm, ok := res.Segments.FrontmatterSegment()
	if !ok {
		return nil, false
	}
	spec, ok := providers.ImportSource(fm.InnerText(res.Source.Text), tc.Tag)
	if !ok {
		return nil, false
	}
	target, ok := providers.ResolveComponent(res.Source.Path, spec)
	if !ok {
		return nil, false
	}

	stamp := "missing"
	if fi, err := me.fs.Stat(target); err == nil {
		stamp = fmt.Sprintf("%d:%d", fi.ModTime().UnixNano(), fi.Size())
	}

	props, err := snapshot.Memo(entry, "props:"+target+":"+stamp, func() ([]providers.Prop, error) {
		return providers.ReadProps(me.fs, target)
	})
	if err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Str("tag", tc.Tag).Msg("no props for component")
		return nil, false
	}

	return providers.PropItems(props), true
}

func fromEngine(it engine.Completion, code *virtualcode.VirtualCode, idx *position.Index) (providers.Item, bool) {
	item := providers.Item{
		Label:         it.Label,
		Kind:          kindName(it.Kind),
		Detail:        it.Detail,
		Documentation: it.Documentation,
		InsertText:    it.InsertText,
		SortText:      it.SortText,
	}

	span, ok := code.ToSourceSpan(it.Replace, mapping.Completion)
	if !ok {
		return providers.Item{}, false
	}
	text := it.InsertText
	if text == "" {
		text = it.Label
	}
	item.Edit = &providers.Edit{Range: idx.RangeOf(span), NewText: text}

	return item, true
}

func kindName(k engine.CompletionKind) string {
	switch k {
	case engine.CompletionKeyword:
		return "keyword"
	case engine.CompletionVariable:
		return "variable"
	case engine.CompletionFunction:
		return "function"
	case engine.CompletionClass:
		return "class"
	case engine.CompletionInterface:
		return "interface"
	case engine.CompletionProperty:
		return "property"
	case engine.CompletionModule:
		return "module"
	case engine.CompletionSnippet:
		return "snippet"
	default:
		return "text"
	}
}
