// Package codelens annotates Astro.glob calls with how many files they match.
package codelens

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/walteh/astrols/pkg/mapping"
	"github.com/walteh/astrols/pkg/position"
	"github.com/walteh/astrols/pkg/snapshot"
	"github.com/walteh/astrols/pkg/virtualcode"
	"gitlab.com/tozd/go/errors"
)

var globCallRe = regexp.MustCompile("Astro\\.glob\\(\\s*(['\"`])([^'\"`]+)['\"`]")

// Lens has no command; its title is the whole message.
type Lens struct {
	Range position.Range
	Title string
}

type Provider struct {
	fs afero.Fs
}

func New(fs afero.Fs) *Provider {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Provider{fs: fs}
}

func (me *Provider) Lenses(ctx context.Context, entry *snapshot.Entry) ([]Lens, error) {
	if ctx.Err() != nil {
		return nil, nil
	}

	res := entry.Result
	code, ok := res.Code(virtualcode.IDFrontmatter)
	if !ok || code.Text == "" {
		return nil, nil
	}

	var lenses []Lens
	for _, m := range globCallRe.FindAllStringSubmatchIndex(code.Text, -1) {
		pattern := code.Text[m[4]:m[5]]
		// the lens sits on the argument, quote included
		src, ok := code.ToSource(m[2], mapping.Semantic)
		if !ok {
			continue
		}

		n, err := snapshot.Memo(entry, "glob:"+pattern, func() (int, error) {
			return me.count(res.Source.Path, pattern)
		})
		if err != nil {
			zerolog.Ctx(ctx).Debug().Err(err).Str("pattern", pattern).Msg("glob not counted")
			continue
		}

		at := entry.Index().PlaceAt(src)
		lenses = append(lenses, Lens{
			Range: position.Range{Start: at, End: at},
			Title: title(n),
		})

		if ctx.Err() != nil {
			return nil, nil
		}
	}

	return lenses, nil
}

func title(n int) string {
	return fmt.Sprintf("Matches %d files", n)
}

// count resolves pattern against the directory of the file it appears in.
func (me *Provider) count(sourcePath, pattern string) (int, error) {
	full := pattern
	if !strings.HasPrefix(pattern, "/") {
		full = path.Join(path.Dir(sourcePath), pattern)
	}
	if !doublestar.ValidatePattern(full) {
		return 0, errors.Errorf("invalid glob %q", pattern)
	}

	base, rel := doublestar.SplitPattern(full)
	matches, err := doublestar.Glob(afero.NewIOFS(afero.NewBasePathFs(me.fs, base)), rel, doublestar.WithFilesOnly())
	if err != nil {
		return 0, errors.Errorf("globbing %s: %w", full, err)
	}
	return len(matches), nil
}
