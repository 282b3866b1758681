package engine

import "github.com/walteh/astrols/pkg/virtualcode"

// DocumentOf is the engine's view of one virtual code of the file at sourcePath.
func DocumentOf(sourcePath string, code *virtualcode.VirtualCode) Document {
	return Document{
		FileName:   code.FileName(sourcePath),
		LanguageID: code.LanguageID,
		Text:       code.Text,
	}
}

// IsScript reports whether code is something a script engine can analyse.
func IsScript(code *virtualcode.VirtualCode) bool {
	switch code.ScriptKind {
	case virtualcode.ScriptKindTS, virtualcode.ScriptKindTSX:
		return true
	}
	return false
}
