package finder

import (
	"context"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
	"github.com/walteh/astrols/pkg/config"
	"gitlab.com/tozd/go/errors"
)

// DefaultExtensions are the source files the language server understands.
var DefaultExtensions = []string{".astro", ".md", ".mdx", ".mdoc"}

// Ignored are directories never searched for sources.
var Ignored = []string{"**/node_modules", "**/.git", "**/dist", "**/.astro"}

// rootMarkers identify a project root, strongest first.
var rootMarkers = append(append([]string{}, config.FileNames...), "astro.config.mjs", "astro.config.ts", "astro.config.js", "package.json")

// SourceFinder finds the source files of a project
type SourceFinder interface {
	// FindSources finds all files under dir that have one of the given extensions
	FindSources(ctx context.Context, dir string, extensions []string) ([]string, error)
}

type DefaultFinder struct {
	fs afero.Fs
}

func NewDefaultFinder(fs afero.Fs) *DefaultFinder {
	return &DefaultFinder{fs: fs}
}

var _ SourceFinder = (*DefaultFinder)(nil)

// FindSources walks dir and returns matching files in lexical order. Nil extensions means
// DefaultExtensions.
func (me *DefaultFinder) FindSources(ctx context.Context, dir string, extensions []string) ([]string, error) {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}

	info, err := me.fs.Stat(dir)
	if err != nil {
		return nil, errors.Errorf("reading %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, errors.Errorf("%s is not a directory", dir)
	}

	var out []string
	err = afero.Walk(me.fs, dir, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if info.IsDir() {
			if p != dir && ignored(strings.TrimPrefix(p, dir)) {
				return fs.SkipDir
			}
			return nil
		}

		ext := strings.ToLower(path.Ext(p))
		for _, want := range extensions {
			if ext == want {
				out = append(out, p)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.Errorf("walking %s: %w", dir, err)
	}

	sort.Strings(out)
	return out, nil
}

func ignored(rel string) bool {
	rel = strings.TrimPrefix(rel, "/")
	for _, pattern := range Ignored {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// FindRoot walks up from start to the nearest directory holding a workspace config, an astro config or
// a package.json.
func (me *DefaultFinder) FindRoot(start string) (string, bool) {
	dir := path.Clean(start)
	for {
		for _, marker := range rootMarkers {
			if ok, _ := afero.Exists(me.fs, path.Join(dir, marker)); ok {
				return dir, true
			}
		}
		parent := path.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}
