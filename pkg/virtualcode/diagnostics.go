package virtualcode

import (
	"github.com/walteh/astrols/pkg/position"
	"github.com/walteh/astrols/pkg/segment"
)

type Severity int

const (
	SeverityError Severity = iota + 1
	SeverityWarning
	SeverityInformation
	SeverityHint
)

// Diagnostic is a problem the builder found itself, already in source coordinates.
type Diagnostic struct {
	Span     position.Span
	Severity Severity
	Code     string
	Message  string
	Hint     string
}

const (
	CodeUnclosedFrontmatter     = "unclosed-frontmatter"
	CodeUnclosedExpression      = "unclosed-expression"
	CodeMissingFrontmatter      = "missing-frontmatter"
	CodeFrontmatterSyntax       = "frontmatter-syntax"
	CodeCollectionWithoutSchema = "collection-without-schema"
)

func unclosedFrontmatter(start int) Diagnostic {
	return Diagnostic{
		Span:     position.NewSpan(start, len(segment.Delimiter)),
		Severity: SeverityWarning,
		Code:     CodeUnclosedFrontmatter,
		Message:  "The component script block is never closed.",
		Hint:     "Add a `---` line after the last line of script.",
	}
}

func unclosedExpression(start int) Diagnostic {
	return Diagnostic{
		Span:     position.NewSpan(start, 1),
		Severity: SeverityError,
		Code:     CodeUnclosedExpression,
		Message:  "Expected a closing `}` for this expression.",
	}
}

func missingFrontmatter(collection string) Diagnostic {
	return Diagnostic{
		Span:     position.Span{},
		Severity: SeverityError,
		Code:     CodeMissingFrontmatter,
		Message:  "Entries of the `" + collection + "` collection require frontmatter.",
		Hint:     "Start the file with a `---` block describing the entry.",
	}
}

func collectionWithoutSchema(collection string, span position.Span) Diagnostic {
	return Diagnostic{
		Span:     span,
		Severity: SeverityInformation,
		Code:     CodeCollectionWithoutSchema,
		Message:  "The `" + collection + "` collection has no schema; frontmatter is not type checked.",
	}
}
