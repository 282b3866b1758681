package virtualcode

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/rs/zerolog"
	"github.com/walteh/astrols/pkg/segment"
	"gitlab.com/tozd/go/errors"
)

var ErrUnsupported = errors.Base("unsupported file type")

// Source is a read-only view of a file at one version.
type Source struct {
	Path    string
	Text    string
	Version int32
}

// Collection names the content collection a file belongs to.
type Collection struct {
	Name      string
	HasSchema bool
}

type CollectionResolver interface {
	CollectionFor(path string) (Collection, bool)
}

// Result is everything generated for one source version.
type Result struct {
	Source      Source
	Segments    *segment.Result
	Codes       []*VirtualCode
	Diagnostics []Diagnostic
	// Reused counts codes carried over unchanged from the previous build.
	Reused int
}

type Builder struct {
	collections CollectionResolver
}

type BuilderOpt func(*Builder)

func WithCollections(r CollectionResolver) BuilderOpt {
	return func(b *Builder) {
		b.collections = r
	}
}

func NewBuilder(opts ...BuilderOpt) *Builder {
	b := &Builder{}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Supported reports whether Build understands the file at p.
func Supported(p string) bool {
	switch strings.ToLower(path.Ext(p)) {
	case ".astro", ".md", ".mdx", ".mdoc":
		return true
	}
	return false
}

// Build generates the virtual codes for src. Codes whose inputs are byte-identical to a code in prev are
// returned as the same pointer.
func (me *Builder) Build(ctx context.Context, src Source, prev *Result) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{Source: src}

	var err error
	switch strings.ToLower(path.Ext(src.Path)) {
	case ".astro":
		err = me.buildComponent(res)
	case ".md", ".mdx", ".mdoc":
		err = me.buildContent(res)
	default:
		return nil, errors.Errorf("building %s: %w", src.Path, ErrUnsupported)
	}
	if err != nil {
		return nil, errors.Errorf("building %s: %w", src.Path, err)
	}

	if prev != nil {
		for i, code := range res.Codes {
			if old, ok := prev.Code(code.ID); ok && old.key == code.key {
				res.Codes[i] = old
				res.Reused++
			}
		}
	}

	zerolog.Ctx(ctx).Debug().
		Str("path", src.Path).
		Int32("version", src.Version).
		Int("codes", len(res.Codes)).
		Int("reused", res.Reused).
		Int("diagnostics", len(res.Diagnostics)).
		Msg("built virtual codes")

	return res, nil
}

// Code returns the code with the given id.
func (me *Result) Code(id string) (*VirtualCode, bool) {
	if me == nil {
		return nil, false
	}
	for _, c := range me.Codes {
		if c.ID == id {
			return c, true
		}
	}
	return nil, false
}

// ServiceScript is the code handed to the script language engine for this file.
func (me *Result) ServiceScript() (*VirtualCode, bool) {
	if c, ok := me.Code(IDExpression); ok {
		return c, true
	}
	return me.Code(IDCollection)
}

func (me *Result) String() string {
	ids := make([]string, 0, len(me.Codes))
	for _, c := range me.Codes {
		ids = append(ids, c.ID)
	}
	return fmt.Sprintf("%s@%d[%s]", me.Source.Path, me.Source.Version, strings.Join(ids, ","))
}
