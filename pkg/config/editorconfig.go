package config

import (
	"bytes"
	"path"
	"strconv"

	"github.com/editorconfig/editorconfig-core-go/v2"
	"github.com/spf13/afero"
	"github.com/walteh/astrols/pkg/engine"
	"gitlab.com/tozd/go/errors"
)

var errNotUnder = errors.Base("path is not under directory")

const editorconfigName = ".editorconfig"

// FormatOptions resolves the format options for the file at p. Settings from .editorconfig files
// override base, nearer files overriding farther ones, and the search stops at a file marked root.
func (me *Workspace) FormatOptions(p string, base engine.FormatOptions) engine.FormatOptions {
	var found []*editorconfig.Definition

	for dir := path.Dir(p); ; dir = path.Dir(dir) {
		ec, ok := me.readEditorconfig(path.Join(dir, editorconfigName))
		if ok {
			rel, err := relTo(dir, p)
			if err == nil {
				if def, err := ec.GetDefinitionForFilename(rel); err == nil {
					found = append(found, def)
				}
			}
			if ec.Root {
				break
			}
		}
		if dir == "/" || dir == "." || (me.Root != "" && dir == me.Root) {
			break
		}
	}

	opts := base
	for i := len(found) - 1; i >= 0; i-- {
		opts = apply(opts, found[i])
	}
	return opts
}

func (me *Workspace) readEditorconfig(p string) (*editorconfig.Editorconfig, bool) {
	if me.fs == nil {
		return nil, false
	}
	data, err := afero.ReadFile(me.fs, p)
	if err != nil {
		return nil, false
	}
	ec, err := editorconfig.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, false
	}
	return ec, true
}

// relTo returns p relative to dir with a leading slash, the form section globs are matched against.
func relTo(dir, p string) (string, error) {
	if dir == "/" {
		return p, nil
	}
	if len(p) > len(dir) && p[:len(dir)] == dir && p[len(dir)] == '/' {
		return p[len(dir):], nil
	}
	return "", errNotUnder
}

func apply(opts engine.FormatOptions, def *editorconfig.Definition) engine.FormatOptions {
	switch def.IndentStyle {
	case editorconfig.IndentStyleTab:
		opts.InsertSpaces = false
	case editorconfig.IndentStyleSpaces:
		opts.InsertSpaces = true
	}

	if n, err := strconv.Atoi(def.IndentSize); err == nil && n > 0 {
		opts.TabSize = n
	} else if def.TabWidth > 0 {
		opts.TabSize = def.TabWidth
	}

	if def.TrimTrailingWhitespace != nil {
		opts.TrimTrailingWhitespace = *def.TrimTrailingWhitespace
	}
	if def.InsertFinalNewline != nil {
		opts.InsertFinalNewline = *def.InsertFinalNewline
	}
	return opts
}
