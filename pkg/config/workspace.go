package config

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/walteh/astrols/pkg/engine"
	"github.com/walteh/astrols/pkg/virtualcode"
	"gitlab.com/tozd/go/errors"
)

// DefaultFormat applies when neither the config nor an .editorconfig says otherwise.
var DefaultFormat = engine.FormatOptions{TabSize: 2, InsertSpaces: true}

// Workspace is the resolved, immutable settings of one workspace root.
type Workspace struct {
	Root     string
	LogLevel zerolog.Level
	Format   engine.FormatOptions

	fs          afero.Fs
	collections map[string]Collection
	// byFolder is sorted longest folder first
	byFolder []Collection
	entries  map[string]string
}

var _ virtualcode.CollectionResolver = (*Workspace)(nil)

// Load reads the workspace config under root, if there is one, and merges the client's
// initialization options over it.
func Load(fs afero.Fs, root string, init *File) (*Workspace, error) {
	base := &File{}
	if p, ok := Find(fs, root); ok {
		f, err := LoadFile(fs, p, root)
		if err != nil {
			return nil, errors.Errorf("loading %s: %w", p, err)
		}
		base = f
	}

	merged := Merge(base, init)
	if err := merged.Validate(); err != nil {
		return nil, err
	}

	return New(fs, root, merged), nil
}

// New builds a workspace from an already validated file.
func New(fs afero.Fs, root string, f *File) *Workspace {
	w := &Workspace{
		Root:        root,
		LogLevel:    zerolog.InfoLevel,
		Format:      DefaultFormat,
		fs:          fs,
		collections: map[string]Collection{},
		entries:     map[string]string{},
	}

	if lvl, err := zerolog.ParseLevel(f.LogLevel); err == nil && f.LogLevel != "" {
		w.LogLevel = lvl
	}

	for _, c := range f.Collections {
		col := *c
		if col.Folder != "" {
			col.Folder = w.abs(col.Folder)
			w.byFolder = append(w.byFolder, col)
		}
		w.collections[col.Name] = col
	}
	sort.SliceStable(w.byFolder, func(i, j int) bool {
		return len(w.byFolder[i].Folder) > len(w.byFolder[j].Folder)
	})

	for p, name := range f.Entries {
		w.entries[strings.ToLower(w.abs(p))] = name
	}

	if f.Format != nil {
		if f.Format.TabSize != nil {
			w.Format.TabSize = *f.Format.TabSize
		}
		if f.Format.InsertSpaces != nil {
			w.Format.InsertSpaces = *f.Format.InsertSpaces
		}
		if f.Format.TrimTrailingWhitespace != nil {
			w.Format.TrimTrailingWhitespace = *f.Format.TrimTrailingWhitespace
		}
		if f.Format.InsertFinalNewline != nil {
			w.Format.InsertFinalNewline = *f.Format.InsertFinalNewline
		}
	}

	return w
}

func (me *Workspace) abs(p string) string {
	if path.IsAbs(p) || me.Root == "" {
		return path.Clean(p)
	}
	return path.Join(me.Root, p)
}

// CollectionFor finds the collection a content file belongs to: an explicit entry first, then the
// collection with the longest folder containing the file.
func (me *Workspace) CollectionFor(p string) (virtualcode.Collection, bool) {
	if me == nil {
		return virtualcode.Collection{}, false
	}

	if name, ok := me.entries[strings.ToLower(path.Clean(p))]; ok {
		col := me.collections[name]
		return virtualcode.Collection{Name: name, HasSchema: col.HasSchema}, true
	}

	for _, col := range me.byFolder {
		if strings.HasPrefix(p, col.Folder+"/") {
			return virtualcode.Collection{Name: col.Name, HasSchema: col.HasSchema}, true
		}
	}

	return virtualcode.Collection{}, false
}

// Collections lists the configured collections by name.
func (me *Workspace) Collections() []Collection {
	out := make([]Collection, 0, len(me.collections))
	for _, c := range me.collections {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Merge lays over on top of base. Collections are replaced by name, entries by path, and any format
// or log level setting in over wins.
func Merge(base, over *File) *File {
	out := &File{Entries: map[string]string{}}
	if base == nil {
		base = &File{}
	}

	out.LogLevel = base.LogLevel
	out.Format = base.Format
	for p, c := range base.Entries {
		out.Entries[p] = c
	}

	byName := map[string]int{}
	for _, c := range base.Collections {
		cp := *c
		byName[cp.Name] = len(out.Collections)
		out.Collections = append(out.Collections, &cp)
	}

	if over == nil {
		return out
	}

	if over.LogLevel != "" {
		out.LogLevel = over.LogLevel
	}
	if over.Format != nil {
		out.Format = over.Format
	}
	for p, c := range over.Entries {
		out.Entries[p] = c
	}
	for _, c := range over.Collections {
		cp := *c
		if i, ok := byName[cp.Name]; ok {
			out.Collections[i] = &cp
			continue
		}
		byName[cp.Name] = len(out.Collections)
		out.Collections = append(out.Collections, &cp)
	}

	return out
}

// Validate reports every problem in the file at once.
func (me *File) Validate() error {
	var result *multierror.Error

	if me.LogLevel != "" {
		if _, err := zerolog.ParseLevel(me.LogLevel); err != nil {
			result = multierror.Append(result, errors.Errorf("log_level: %w", err))
		}
	}

	seen := map[string]bool{}
	for i, c := range me.Collections {
		switch {
		case c.Name == "":
			result = multierror.Append(result, errors.Errorf("collection %d: name is required", i))
		case seen[c.Name]:
			result = multierror.Append(result, errors.Errorf("collection %q: defined more than once", c.Name))
		}
		seen[c.Name] = true
	}

	paths := make([]string, 0, len(me.Entries))
	for p := range me.Entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		if name := me.Entries[p]; !seen[name] {
			result = multierror.Append(result, errors.Errorf("entry %s: unknown collection %q", p, name))
		}
	}

	if me.Format != nil && me.Format.TabSize != nil && *me.Format.TabSize <= 0 {
		result = multierror.Append(result, errors.Errorf("format.tab_size: must be positive, got %d", *me.Format.TabSize))
	}

	if err := result.ErrorOrNil(); err != nil {
		return errors.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func (me *Workspace) String() string {
	return fmt.Sprintf("workspace(%s, %d collections, %d entries)", me.Root, len(me.collections), len(me.entries))
}
