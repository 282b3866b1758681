package providers

import (
	"regexp"

	"github.com/walteh/astrols/pkg/position"
	"github.com/walteh/astrols/pkg/segment"
)

var dashesRe = regexp.MustCompile(`^\s*-+$`)

const fullBlock = segment.Delimiter + "\n$0\n" + segment.Delimiter

// FrontmatterSnippet offers to create or close the component script block. linePrefix is the text of
// the cursor's line up to the cursor.
func FrontmatterSnippet(status segment.Status, linePrefix string, at position.Place) (Item, bool) {
	item := Item{
		Label:            segment.Delimiter,
		Kind:             "snippet",
		SortText:         "\x00",
		Snippet:          true,
		Preselect:        true,
		CommitCharacters: []string{},
	}

	switch status {
	case segment.StatusDoesntExist:
		item.Detail = "Create component script block"
		item.InsertText = fullBlock
	case segment.StatusOpen:
		item.Detail = "Close component script block"
		item.InsertText = segment.Delimiter
		if linePrefix == segment.Delimiter {
			item.InsertText = fullBlock
		}
	default:
		return Item{}, false
	}

	if dashesRe.MatchString(linePrefix) {
		item.Edit = &Edit{
			Range:   position.Range{Start: position.Place{Line: at.Line}, End: at},
			NewText: item.InsertText,
		}
	}

	return item, true
}
