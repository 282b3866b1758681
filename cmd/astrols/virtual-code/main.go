package virtual_code

import (
	"context"
	"io"
	"path"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/walteh/astrols/pkg/config"
	"github.com/walteh/astrols/pkg/finder"
	"github.com/walteh/astrols/pkg/virtualcode"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

type Handler struct {
	file       string
	root       string
	collection string
	hasSchema  bool

	fs  afero.Fs
	out io.Writer
}

func NewVirtualCodeCommand() *cobra.Command {
	me := &Handler{fs: afero.NewOsFs()}

	cmd := &cobra.Command{
		Use:   "virtual-code <file>",
		Short: "print the segments and generated virtual codes of a file",
	}

	cmd.Flags().StringVar(&me.root, "root", "", "workspace root the collection config is read from (default: nearest project root)")
	cmd.Flags().StringVar(&me.collection, "collection", "", "treat the file as an entry of this collection")
	cmd.Flags().BoolVar(&me.hasSchema, "has-schema", true, "whether the --collection has a schema")
	cmd.Args = cobra.ExactArgs(1)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		me.file = args[0]
		me.out = cmd.OutOrStdout()
		return me.Run(cmd.Context())
	}

	return cmd
}

type fixedCollection virtualcode.Collection

func (me fixedCollection) CollectionFor(string) (virtualcode.Collection, bool) {
	return virtualcode.Collection(me), true
}

type report struct {
	Path        string       `yaml:"path"`
	Frontmatter string       `yaml:"frontmatter"`
	Segments    []segmentOut `yaml:"segments"`
	Codes       []codeOut    `yaml:"codes"`
	Diagnostics []string     `yaml:"diagnostics,omitempty"`
}

type segmentOut struct {
	Kind   string `yaml:"kind"`
	Span   string `yaml:"span"`
	Status string `yaml:"status"`
	Text   string `yaml:"text"`
}

type codeOut struct {
	ID       string   `yaml:"id"`
	File     string   `yaml:"file"`
	Language string   `yaml:"language"`
	Text     string   `yaml:"text"`
	Mappings []string `yaml:"mappings"`
}

// Resolve picks the collection resolver for a file: the --collection flag when set, the workspace
// config otherwise.
func (me *Handler) Resolve() (virtualcode.CollectionResolver, error) {
	if me.collection != "" {
		return fixedCollection{Name: me.collection, HasSchema: me.hasSchema}, nil
	}
	return LoadWorkspace(me.fs, me.root, me.file)
}

// LoadWorkspace reads the workspace config under root. Without a root, the project holding near is
// used, or the directory of near when it is in no project.
func LoadWorkspace(fs afero.Fs, root, near string) (*config.Workspace, error) {
	if root == "" {
		abs, err := filepath.Abs(near)
		if err != nil {
			return nil, errors.Errorf("resolving path: %w", err)
		}
		start := filepath.ToSlash(abs)
		if info, err := fs.Stat(start); err != nil || !info.IsDir() {
			start = path.Dir(start)
		}
		root = start
		if found, ok := finder.NewDefaultFinder(fs).FindRoot(start); ok {
			root = found
		}
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Errorf("resolving root: %w", err)
	}
	ws, err := config.Load(fs, filepath.ToSlash(abs), nil)
	if err != nil {
		return nil, errors.Errorf("loading workspace config: %w", err)
	}
	return ws, nil
}

func (me *Handler) Run(ctx context.Context) error {
	collections, err := me.Resolve()
	if err != nil {
		return err
	}

	res, err := Build(ctx, me.fs, me.file, collections)
	if err != nil {
		return err
	}

	rep := report{
		Path:        res.Source.Path,
		Frontmatter: res.Segments.Frontmatter.String(),
	}
	for _, seg := range res.Segments.Segments {
		rep.Segments = append(rep.Segments, segmentOut{
			Kind:   seg.Kind.String(),
			Span:   seg.Span.String(),
			Status: seg.Status.String(),
			Text:   seg.Text(res.Source.Text),
		})
	}
	for _, code := range res.Codes {
		out := codeOut{
			ID:       code.ID,
			File:     code.FileName(res.Source.Path),
			Language: code.LanguageID,
			Text:     code.Text,
		}
		if code.Mappings != nil {
			for _, m := range code.Mappings.Mappings() {
				out.Mappings = append(out.Mappings, m.String())
			}
		}
		rep.Codes = append(rep.Codes, out)
	}
	for _, d := range res.Diagnostics {
		rep.Diagnostics = append(rep.Diagnostics, d.Code+": "+d.Message)
	}

	enc := yaml.NewEncoder(me.out)
	enc.SetIndent(2)
	defer enc.Close()

	if err := enc.Encode(rep); err != nil {
		return errors.Errorf("encoding report: %w", err)
	}
	return nil
}

// Build reads file and runs the builder over it.
func Build(ctx context.Context, fs afero.Fs, file string, collections virtualcode.CollectionResolver) (*virtualcode.Result, error) {
	abs, err := filepath.Abs(file)
	if err != nil {
		return nil, errors.Errorf("resolving path: %w", err)
	}
	p := filepath.ToSlash(abs)

	if !virtualcode.Supported(p) {
		return nil, errors.Errorf("%s: %w", file, virtualcode.ErrUnsupported)
	}

	data, err := afero.ReadFile(fs, p)
	if err != nil {
		return nil, errors.Errorf("reading %s: %w", file, err)
	}

	res, err := virtualcode.NewBuilder(virtualcode.WithCollections(collections)).Build(ctx, virtualcode.Source{Path: p, Text: string(data), Version: 1}, nil)
	if err != nil {
		return nil, errors.Errorf("building virtual code: %w", err)
	}
	return res, nil
}
