// Package engine is the contract with the language tooling that analyses generated documents. Every
// offset and span crossing this boundary is in generated coordinates.
package engine

import (
	"context"

	"github.com/walteh/astrols/pkg/position"
)

// Document is a generated document as the engine sees it.
type Document struct {
	FileName   string
	LanguageID string
	Text       string
}

type CompletionKind int

const (
	CompletionText CompletionKind = iota + 1
	CompletionKeyword
	CompletionVariable
	CompletionFunction
	CompletionClass
	CompletionInterface
	CompletionProperty
	CompletionModule
	CompletionSnippet
)

type Completion struct {
	Label         string
	Kind          CompletionKind
	Detail        string
	Documentation string
	InsertText    string
	SortText      string
	// Replace is the text the completion overwrites. An empty span at the cursor inserts.
	Replace position.Span
}

type QuickInfo struct {
	Span          position.Span
	Display       string
	Documentation string
}

type Location struct {
	FileName string
	Span     position.Span
}

type Definitions struct {
	// Bound is the span of the symbol the request was made on.
	Bound       position.Span
	Definitions []Location
}

type InlayHintKind int

const (
	InlayHintType InlayHintKind = iota + 1
	InlayHintParameter
)

type InlayHint struct {
	Offset       int
	Label        string
	Kind         InlayHintKind
	PaddingLeft  bool
	PaddingRight bool
}

type Severity int

const (
	SeverityError Severity = iota + 1
	SeverityWarning
	SeverityInformation
	SeverityHint
)

type Diagnostic struct {
	Span     position.Span
	Severity Severity
	Code     string
	Message  string
	Source   string
}

type TextEdit struct {
	Span    position.Span
	NewText string
}

type FormatOptions struct {
	TabSize                int
	InsertSpaces           bool
	TrimTrailingWhitespace bool
	InsertFinalNewline     bool
}

// Engine answers questions about one generated document at a time.
type Engine interface {
	Completions(ctx context.Context, doc Document, offset int) ([]Completion, error)
	QuickInfo(ctx context.Context, doc Document, offset int) (*QuickInfo, error)
	Definition(ctx context.Context, doc Document, offset int) (*Definitions, error)
	InlayHints(ctx context.Context, doc Document, span position.Span) ([]InlayHint, error)
	Diagnostics(ctx context.Context, doc Document) ([]Diagnostic, error)
	Format(ctx context.Context, doc Document, opts FormatOptions) ([]TextEdit, error)
}

type SymbolKind int

// Values follow the protocol's SymbolKind numbering.
const (
	SymbolModule    SymbolKind = 2
	SymbolClass     SymbolKind = 5
	SymbolInterface SymbolKind = 11
	SymbolFunction  SymbolKind = 12
	SymbolVariable  SymbolKind = 13
	SymbolConstant  SymbolKind = 14
	SymbolString    SymbolKind = 15
	SymbolKey       SymbolKind = 20
	SymbolTypeParam SymbolKind = 26
)

type Symbol struct {
	Name      string
	Kind      SymbolKind
	Detail    string
	Span      position.Span
	Selection position.Span
}

// SymbolProvider is implemented by engines that can list a document's top level declarations.
type SymbolProvider interface {
	Symbols(ctx context.Context, doc Document) ([]Symbol, error)
}
