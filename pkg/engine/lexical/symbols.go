package lexical

import (
	"context"

	"github.com/walteh/astrols/pkg/engine"
	"github.com/walteh/astrols/pkg/position"
)

var _ engine.SymbolProvider = (*Engine)(nil)

// Symbols lists module scope declarations other than imports.
func (me *Engine) Symbols(ctx context.Context, doc engine.Document) ([]engine.Symbol, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s := scan(doc.Text)
	var out []engine.Symbol
	for _, d := range s.decls {
		if d.scope >= 0 || d.kind == declImport {
			continue
		}
		out = append(out, engine.Symbol{
			Name:      d.name,
			Kind:      symbolKind(d.kind),
			Detail:    display(d),
			Span:      position.Span{Start: d.stmt, End: d.span.End},
			Selection: d.span,
		})
	}
	return out, nil
}

func symbolKind(k declKind) engine.SymbolKind {
	switch k {
	case declConst:
		return engine.SymbolConstant
	case declFunction:
		return engine.SymbolFunction
	case declClass:
		return engine.SymbolClass
	case declInterface:
		return engine.SymbolInterface
	case declType:
		return engine.SymbolTypeParam
	default:
		return engine.SymbolVariable
	}
}
