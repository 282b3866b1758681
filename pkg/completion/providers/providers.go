// Package providers produces completion items that do not come from a language engine.
package providers

import "github.com/walteh/astrols/pkg/position"

type Edit struct {
	Range   position.Range
	NewText string
}

// Item is a completion item in source coordinates.
type Item struct {
	Label         string
	Kind          string
	Detail        string
	Documentation string
	InsertText    string
	SortText      string
	Snippet       bool
	Preselect     bool
	Edit          *Edit
	// CommitCharacters is non-nil when the client's defaults must be suppressed.
	CommitCharacters []string
}
