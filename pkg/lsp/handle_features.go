package lsp

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/walteh/astrols/pkg/engine"
	"github.com/walteh/astrols/pkg/snapshot"
	"gitlab.com/tozd/go/errors"
	"go.lsp.dev/protocol"
)

// entry resolves the document for a feature request. A nil entry means the request has nothing to
// answer, including when it was cancelled while waiting on the build.
func (me *Server) entry(ctx context.Context, uri protocol.DocumentURI) (*snapshot.Entry, error) {
	if ctx.Err() != nil {
		return nil, nil
	}
	e, err := me.resolve(ctx, uri)
	if ctx.Err() != nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (me *Server) Completion(ctx context.Context, params *protocol.CompletionParams) (*CompletionList, error) {
	entry, err := me.entry(ctx, params.TextDocument.URI)
	if err != nil || entry == nil {
		return nil, err
	}

	trigger := ""
	if params.Context != nil && params.Context.TriggerKind == protocol.CompletionTriggerKindTriggerCharacter {
		trigger = params.Context.TriggerCharacter
	}

	list, err := me.completion.Complete(ctx, entry, fromPosition(params.Position), trigger)
	if err != nil {
		return nil, errors.Errorf("completing: %w", err)
	}
	if list == nil {
		return nil, nil
	}

	out := &CompletionList{IsIncomplete: list.IsIncomplete, Items: make([]CompletionItem, 0, len(list.Items))}
	for _, it := range list.Items {
		out.Items = append(out.Items, toCompletionItem(it))
	}

	zerolog.Ctx(ctx).Debug().Int("items", len(out.Items)).Str("trigger", trigger).Msg("completion")

	return out, nil
}

func (me *Server) Hover(ctx context.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	entry, err := me.entry(ctx, params.TextDocument.URI)
	if err != nil || entry == nil {
		return nil, err
	}

	info, err := me.hover.Hover(ctx, entry, fromPosition(params.Position))
	if err != nil {
		return nil, errors.Errorf("hovering: %w", err)
	}
	if info == nil {
		return nil, nil
	}

	out := &protocol.Hover{Contents: protocol.MarkupContent{Kind: protocol.Markdown, Value: info.Content}}
	if info.Range != nil {
		r := toRange(*info.Range)
		out.Range = &r
	}
	return out, nil
}

func (me *Server) Definition(ctx context.Context, params *protocol.DefinitionParams) ([]protocol.LocationLink, error) {
	entry, err := me.entry(ctx, params.TextDocument.URI)
	if err != nil || entry == nil {
		return nil, err
	}

	links, err := me.definition.Definition(ctx, entry, fromPosition(params.Position))
	if err != nil {
		return nil, errors.Errorf("finding definition: %w", err)
	}

	var out []protocol.LocationLink
	for _, l := range links {
		origin := toRange(l.OriginRange)
		target := pathToURI(l.TargetPath)
		if l.TargetPath == entry.Result.Source.Path {
			// keep the client's spelling of its own document
			target = params.TextDocument.URI
		}
		out = append(out, protocol.LocationLink{
			OriginSelectionRange: &origin,
			TargetURI:            target,
			TargetRange:          toRange(l.TargetRange),
			TargetSelectionRange: toRange(l.TargetSelectionRange),
		})
	}
	return out, nil
}

func (me *Server) InlayHint(ctx context.Context, params *InlayHintParams) ([]InlayHint, error) {
	entry, err := me.entry(ctx, params.TextDocument.URI)
	if err != nil || entry == nil {
		return nil, err
	}

	hints, err := me.inlay.Hints(ctx, entry, fromRange(params.Range))
	if err != nil {
		return nil, errors.Errorf("computing inlay hints: %w", err)
	}

	var out []InlayHint
	for _, h := range hints {
		out = append(out, InlayHint{
			Position:     toPosition(h.Place),
			Label:        h.Label,
			Kind:         InlayHintKind(h.Kind),
			PaddingLeft:  h.PaddingLeft,
			PaddingRight: h.PaddingRight,
		})
	}
	return out, nil
}

func (me *Server) Diagnostic(ctx context.Context, params *DocumentDiagnosticParams) (*DocumentDiagnosticReport, error) {
	report := &DocumentDiagnosticReport{Kind: DiagnosticReportFull, ResultID: uuid.NewString(), Items: []protocol.Diagnostic{}}

	entry, err := me.entry(ctx, params.TextDocument.URI)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return report, nil
	}

	diags, err := me.diagnostics.Generate(ctx, entry)
	if err != nil {
		return nil, errors.Errorf("generating diagnostics: %w", err)
	}
	if diags != nil {
		report.Items = toDiagnostics(diags.Items)
	}
	return report, nil
}

func (me *Server) CodeLens(ctx context.Context, params *protocol.CodeLensParams) ([]protocol.CodeLens, error) {
	entry, err := me.entry(ctx, params.TextDocument.URI)
	if err != nil || entry == nil {
		return nil, err
	}

	lenses, err := me.codelens.Lenses(ctx, entry)
	if err != nil {
		return nil, errors.Errorf("computing code lenses: %w", err)
	}

	var out []protocol.CodeLens
	for _, l := range lenses {
		out = append(out, protocol.CodeLens{
			Range:   toRange(l.Range),
			Command: &protocol.Command{Title: l.Title},
		})
	}
	return out, nil
}

func (me *Server) Formatting(ctx context.Context, params *protocol.DocumentFormattingParams) ([]protocol.TextEdit, error) {
	entry, err := me.entry(ctx, params.TextDocument.URI)
	if err != nil || entry == nil {
		return nil, err
	}

	edits, err := me.format.Format(ctx, entry, engine.FormatOptions{
		TabSize:                int(params.Options.TabSize),
		InsertSpaces:           params.Options.InsertSpaces,
		TrimTrailingWhitespace: params.Options.TrimTrailingWhitespace,
		InsertFinalNewline:     params.Options.InsertFinalNewline,
	})
	if err != nil {
		return nil, errors.Errorf("formatting: %w", err)
	}

	out := make([]protocol.TextEdit, 0, len(edits))
	for _, e := range edits {
		out = append(out, protocol.TextEdit{Range: toRange(e.Range), NewText: e.NewText})
	}
	return out, nil
}

func (me *Server) DocumentSymbol(ctx context.Context, params *protocol.DocumentSymbolParams) ([]protocol.DocumentSymbol, error) {
	entry, err := me.entry(ctx, params.TextDocument.URI)
	if err != nil || entry == nil {
		return nil, err
	}

	syms, err := me.outline.Symbols(ctx, entry)
	if err != nil {
		return nil, errors.Errorf("listing symbols: %w", err)
	}
	return toDocumentSymbols(syms), nil
}
