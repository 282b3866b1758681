package diagnostics

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	virtual_code "github.com/walteh/astrols/cmd/astrols/virtual-code"
	"github.com/walteh/astrols/pkg/diagnostic"
	"github.com/walteh/astrols/pkg/engine/lexical"
	"github.com/walteh/astrols/pkg/finder"
	"github.com/walteh/astrols/pkg/snapshot"
	"github.com/walteh/astrols/pkg/virtualcode"
	"gitlab.com/tozd/go/errors"
)

var ErrHasErrors = errors.Base("file has errors")

type Handler struct {
	file   string
	root   string
	format string // text, json

	fs  afero.Fs
	out io.Writer
}

func NewDiagnosticsCommand() *cobra.Command {
	me := &Handler{fs: afero.NewOsFs()}

	cmd := &cobra.Command{
		Use:   "diagnostics <file-or-dir>",
		Short: "print the diagnostics of a file, or of every source under a directory, in source positions",
	}

	cmd.Flags().StringVar(&me.root, "root", "", "workspace root the collection config is read from (default: nearest project root)")
	cmd.Flags().StringVar(&me.format, "format", "text", "output format: text or json")
	cmd.Args = cobra.ExactArgs(1)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		me.file = args[0]
		me.out = cmd.OutOrStdout()
		return me.Run(cmd.Context())
	}

	return cmd
}

type jsonDiagnostic struct {
	File      string `json:"file"`
	Line      int    `json:"line"`
	Character int    `json:"character"`
	EndLine   int    `json:"end_line"`
	EndChar   int    `json:"end_character"`
	Severity  string `json:"severity"`
	Code      string `json:"code,omitempty"`
	Source    string `json:"source,omitempty"`
	Message   string `json:"message"`
}

func (me *Handler) Run(ctx context.Context) error {
	if me.format != "text" && me.format != "json" {
		return errors.Errorf("unknown format %q", me.format)
	}

	ws, err := virtual_code.LoadWorkspace(me.fs, me.root, me.file)
	if err != nil {
		return err
	}

	files := []string{me.file}
	if info, err := me.fs.Stat(me.file); err == nil && info.IsDir() {
		files, err = finder.NewDefaultFinder(me.fs).FindSources(ctx, me.file, nil)
		if err != nil {
			return errors.Errorf("finding sources: %w", err)
		}
	}

	gen := diagnostic.NewDefaultGenerator(lexical.New())
	cache := snapshot.NewCache()

	jsonOut := []jsonDiagnostic{}
	errs := 0
	for _, file := range files {
		diags, err := me.check(ctx, gen, cache, ws, file)
		if err != nil {
			return err
		}
		errs += diags.Count(diagnostic.Error)

		for _, d := range diags.Items {
			if me.format == "json" {
				jsonOut = append(jsonOut, jsonDiagnostic{
					File:      file,
					Line:      d.Range.Start.Line + 1,
					Character: d.Range.Start.Character + 1,
					EndLine:   d.Range.End.Line + 1,
					EndChar:   d.Range.End.Character + 1,
					Severity:  d.Severity.String(),
					Code:      d.Code,
					Source:    d.Source,
					Message:   d.Message,
				})
				continue
			}
			fmt.Fprintf(me.out, "%s:%d:%d: %s %s\n", file, d.Range.Start.Line+1, d.Range.Start.Character+1, severity(d.Severity), describe(d))
		}
	}

	if me.format == "json" {
		enc := json.NewEncoder(me.out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(jsonOut); err != nil {
			return errors.Errorf("encoding diagnostics: %w", err)
		}
	}

	zerolog.Ctx(ctx).Debug().Int("files", len(files)).Int("errors", errs).Msg("checked")

	if errs > 0 {
		return errors.Errorf("%d errors: %w", errs, ErrHasErrors)
	}
	return nil
}

func (me *Handler) check(ctx context.Context, gen diagnostic.Generator, cache *snapshot.Cache, ws virtualcode.CollectionResolver, file string) (*diagnostic.Diagnostics, error) {
	res, err := virtual_code.Build(ctx, me.fs, file, ws)
	if err != nil {
		return nil, err
	}

	// the cache hands out entries with a line index and memo table
	entry, err := cache.GetOrBuild(ctx, res.Source.Path, res.Source.Version, func(context.Context, *virtualcode.Result) (*virtualcode.Result, error) {
		return res, nil
	})
	if err != nil {
		return nil, errors.Errorf("caching build: %w", err)
	}

	diags, err := gen.Generate(ctx, entry)
	if err != nil {
		return nil, errors.Errorf("generating diagnostics for %s: %w", file, err)
	}
	return diags, nil
}

func severity(s diagnostic.DiagnosticSeverity) string {
	switch s {
	case diagnostic.Error:
		return color.New(color.FgRed, color.Bold).Sprint(s)
	case diagnostic.Warning:
		return color.New(color.FgYellow).Sprint(s)
	default:
		return color.New(color.Faint).Sprint(s)
	}
}

func describe(d diagnostic.Diagnostic) string {
	msg := d.Message
	if d.Code != "" {
		msg = "[" + d.Code + "] " + msg
	}
	if d.Source != "" {
		msg += " (" + d.Source + ")"
	}
	return msg
}
