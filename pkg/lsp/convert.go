package lsp

import (
	"github.com/walteh/astrols/pkg/completion/providers"
	"github.com/walteh/astrols/pkg/diagnostic"
	"github.com/walteh/astrols/pkg/outline"
	"github.com/walteh/astrols/pkg/position"
	"go.lsp.dev/protocol"
)

func toPosition(p position.Place) protocol.Position {
	return protocol.Position{Line: uint32(p.Line), Character: uint32(p.Character)}
}

func toRange(r position.Range) protocol.Range {
	return protocol.Range{Start: toPosition(r.Start), End: toPosition(r.End)}
}

func fromPosition(p protocol.Position) position.Place {
	return position.Place{Line: int(p.Line), Character: int(p.Character)}
}

func fromRange(r protocol.Range) position.Range {
	return position.Range{Start: fromPosition(r.Start), End: fromPosition(r.End)}
}

func fromRangePtr(r *protocol.Range) *position.Range {
	if r == nil {
		return nil
	}
	out := fromRange(*r)
	return &out
}

func toDiagnostics(items []diagnostic.Diagnostic) []protocol.Diagnostic {
	out := make([]protocol.Diagnostic, 0, len(items))
	for _, d := range items {
		pd := protocol.Diagnostic{
			Range:    toRange(d.Range),
			Severity: protocol.DiagnosticSeverity(d.Severity),
			Source:   d.Source,
			Message:  d.Message,
		}
		if d.Code != "" {
			pd.Code = d.Code
		}
		out = append(out, pd)
	}
	return out
}

var completionKinds = map[string]protocol.CompletionItemKind{
	"keyword":   protocol.CompletionItemKindKeyword,
	"variable":  protocol.CompletionItemKindVariable,
	"function":  protocol.CompletionItemKindFunction,
	"class":     protocol.CompletionItemKindClass,
	"interface": protocol.CompletionItemKindInterface,
	"property":  protocol.CompletionItemKindProperty,
	"module":    protocol.CompletionItemKindModule,
	"snippet":   protocol.CompletionItemKindSnippet,
}

func toCompletionItem(it providers.Item) CompletionItem {
	kind, ok := completionKinds[it.Kind]
	if !ok {
		kind = protocol.CompletionItemKindText
	}

	out := CompletionItem{CompletionItem: protocol.CompletionItem{
		Label:      it.Label,
		Kind:       kind,
		Detail:     it.Detail,
		Preselect:  it.Preselect,
		SortText:   it.SortText,
		InsertText: it.InsertText,
	}}
	if it.Documentation != "" {
		out.Documentation = &protocol.MarkupContent{Kind: protocol.Markdown, Value: it.Documentation}
	}
	if it.Snippet {
		out.InsertTextFormat = protocol.InsertTextFormatSnippet
	}
	if it.Edit != nil {
		out.TextEdit = &protocol.TextEdit{Range: toRange(it.Edit.Range), NewText: it.Edit.NewText}
	}
	if it.CommitCharacters != nil {
		chars := it.CommitCharacters
		out.CommitCharacters = &chars
	}
	return out
}

func toDocumentSymbols(syms []outline.Symbol) []protocol.DocumentSymbol {
	if len(syms) == 0 {
		return nil
	}
	out := make([]protocol.DocumentSymbol, 0, len(syms))
	for _, s := range syms {
		out = append(out, protocol.DocumentSymbol{
			Name:           s.Name,
			Detail:         s.Detail,
			Kind:           protocol.SymbolKind(s.Kind),
			Range:          toRange(s.Range),
			SelectionRange: toRange(s.SelectionRange),
			Children:       toDocumentSymbols(s.Children),
		})
	}
	return out
}
