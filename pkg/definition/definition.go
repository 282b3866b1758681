// Package definition resolves go-to-definition requests back into real files.
package definition

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/walteh/astrols/pkg/engine"
	"github.com/walteh/astrols/pkg/mapping"
	"github.com/walteh/astrols/pkg/position"
	"github.com/walteh/astrols/pkg/snapshot"
	"github.com/walteh/astrols/pkg/virtualcode"
)

// Link is a definition target in real-file coordinates.
type Link struct {
	OriginRange          position.Range
	TargetPath           string
	TargetRange          position.Range
	TargetSelectionRange position.Range
}

type Provider struct {
	engine engine.Engine
	fs     afero.Fs
}

func New(eng engine.Engine, fs afero.Fs) *Provider {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Provider{engine: eng, fs: fs}
}

func (me *Provider) Definition(ctx context.Context, entry *snapshot.Entry, at position.Place) ([]Link, error) {
	if ctx.Err() != nil {
		return nil, nil
	}

	res := entry.Result
	idx := entry.Index()

	loc, ok := res.ToGenerated(idx.OffsetAt(at), mapping.Navigation)
	if !ok || !engine.IsScript(loc.Code) {
		return nil, nil
	}

	defs, err := me.engine.Definition(ctx, engine.DocumentOf(res.Source.Path, loc.Code), loc.Offset)
	if ctx.Err() != nil {
		return nil, nil
	}
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("code", loc.Code.ID).Msg("engine definition failed")
		return nil, nil
	}
	if defs == nil {
		return nil, nil
	}

	origin, _ := loc.Code.ToSourceSpan(defs.Bound, mapping.Navigation)

	var links []Link
	for _, d := range defs.Definitions {
		link, ok := me.resolve(ctx, entry, d)
		if !ok {
			continue
		}
		link.OriginRange = idx.RangeOf(origin)
		links = append(links, link)
	}

	return links, nil
}

// resolve places one engine location in a real file. Targets inside this file go through its
// mappings; other components are only known through their host scripts, whose offsets mean nothing
// in the real file, so they point at its start.
func (me *Provider) resolve(ctx context.Context, entry *snapshot.Entry, loc engine.Location) (Link, bool) {
	res := entry.Result
	srcPath, id, isVirtual := virtualcode.ParseFileName(loc.FileName)

	switch {
	case isVirtual && srcPath == res.Source.Path:
		code, ok := res.Code(id)
		if !ok {
			return Link{}, false
		}
		span, _ := code.ToSourceSpan(loc.Span, mapping.Navigation)
		rng := entry.Index().RangeOf(span)
		return Link{TargetPath: srcPath, TargetRange: rng, TargetSelectionRange: rng}, true

	case isVirtual, virtualcode.IsComponentPath(loc.FileName):
		return Link{TargetPath: srcPath}, true
	}

	data, err := afero.ReadFile(me.fs, loc.FileName)
	if err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Str("file", loc.FileName).Msg("definition target unreadable")
		return Link{TargetPath: loc.FileName}, true
	}

	rng := position.NewIndex(string(data)).RangeOf(loc.Span)
	return Link{TargetPath: loc.FileName, TargetRange: rng, TargetSelectionRange: rng}, true
}
