package lsp

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/walteh/astrols/pkg/position"
	"github.com/walteh/astrols/pkg/snapshot"
	"github.com/walteh/astrols/pkg/virtualcode"
	"gitlab.com/tozd/go/errors"
	"go.lsp.dev/protocol"
)

func (me *Server) DidOpen(ctx context.Context, params *protocol.DidOpenTextDocumentParams) error {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("uri", string(params.TextDocument.URI)).Int32("version", params.TextDocument.Version).Msg("document opened")

	me.documents.Store(&Document{
		URI:        params.TextDocument.URI,
		Path:       documentPath(params.TextDocument.URI),
		LanguageID: params.TextDocument.LanguageID,
		Version:    params.TextDocument.Version,
		Content:    params.TextDocument.Text,
	})

	return me.publishDiagnostics(ctx, params.TextDocument.URI)
}

func (me *Server) DidChange(ctx context.Context, params *DidChangeTextDocumentParams) error {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("uri", string(params.TextDocument.URI)).Int32("version", params.TextDocument.Version).Msg("document changed")

	doc, ok := me.documents.Get(params.TextDocument.URI)
	if !ok {
		return invalidParams("document not open: %s", params.TextDocument.URI)
	}

	text := doc.Content
	for _, change := range params.ContentChanges {
		text = position.ApplyChange(text, fromRangePtr(change.Range), change.Text)
	}

	next := *doc
	next.Version = params.TextDocument.Version
	next.Content = text
	me.documents.Store(&next)

	return me.publishDiagnostics(ctx, params.TextDocument.URI)
}

func (me *Server) DidSave(ctx context.Context, params *protocol.DidSaveTextDocumentParams) error {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("uri", string(params.TextDocument.URI)).Msg("document saved")

	doc, ok := me.documents.Get(params.TextDocument.URI)
	if !ok {
		return invalidParams("document not open: %s", params.TextDocument.URI)
	}

	if params.Text != "" && params.Text != doc.Content {
		// same version, different text: what was built for this version no longer holds
		next := *doc
		next.Content = params.Text
		me.documents.Store(&next)
		me.snapshots.Evict(normalizeURI(doc.URI))
	}

	return me.publishDiagnostics(ctx, params.TextDocument.URI)
}

func (me *Server) DidClose(ctx context.Context, params *protocol.DidCloseTextDocumentParams) error {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("uri", string(params.TextDocument.URI)).Msg("document closed")

	me.documents.Delete(params.TextDocument.URI)
	me.snapshots.Evict(normalizeURI(params.TextDocument.URI))

	return me.notify(ctx, "textDocument/publishDiagnostics", &protocol.PublishDiagnosticsParams{
		URI:         params.TextDocument.URI,
		Diagnostics: []protocol.Diagnostic{},
	})
}

func documentPath(uri protocol.DocumentURI) string {
	if p, ok := uriToPath(uri); ok {
		return p
	}
	return string(uri)
}

// resolve returns the build of the document's current version. A nil entry with a nil error means the
// document is not a kind this server understands.
//
// When the document moves on while the build is awaited, the newer version is tried once before giving
// up with ContentModified.
func (me *Server) resolve(ctx context.Context, uri protocol.DocumentURI) (*snapshot.Entry, error) {
	key := normalizeURI(uri)

	for attempt := 0; attempt < 2; attempt++ {
		doc, ok := me.documents.Get(uri)
		if !ok {
			return nil, invalidParams("document not open: %s", uri)
		}
		if !virtualcode.Supported(doc.Path) {
			return nil, nil
		}

		entry, err := me.snapshots.GetOrBuild(ctx, key, doc.Version, func(ctx context.Context, prev *virtualcode.Result) (*virtualcode.Result, error) {
			return me.builder.Build(ctx, virtualcode.Source{Path: doc.Path, Text: doc.Content, Version: doc.Version}, prev)
		})
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, snapshot.ErrSuperseded) {
			continue
		}
		if err != nil {
			return nil, errors.Errorf("building %s@%d: %w", uri, doc.Version, err)
		}

		if cur, ok := me.documents.Get(uri); ok && cur.Version == entry.Version && cur.Content == doc.Content {
			return entry, nil
		}
		zerolog.Ctx(ctx).Debug().Str("uri", string(uri)).Int32("version", entry.Version).Msg("document moved on during build")
	}

	return nil, ContentModifiedError
}

func (me *Server) publishDiagnostics(ctx context.Context, uri protocol.DocumentURI) error {
	entry, err := me.resolve(ctx, uri)
	if errors.Is(err, ContentModifiedError) || ctx.Err() != nil {
		// a later change publishes its own
		return nil
	}
	if err != nil {
		return err
	}
	if entry == nil {
		return nil
	}

	diags, err := me.diagnostics.Generate(ctx, entry)
	if err != nil {
		return errors.Errorf("generating diagnostics: %w", err)
	}
	if diags == nil || ctx.Err() != nil {
		return nil
	}

	if cur, ok := me.documents.Get(uri); !ok || cur.Version != entry.Version {
		return nil
	}

	return me.notify(ctx, "textDocument/publishDiagnostics", &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Version:     uint32(entry.Version),
		Diagnostics: toDiagnostics(diags.Items),
	})
}

func (me *Server) notify(ctx context.Context, method string, params any) error {
	if me.notifier == nil {
		zerolog.Ctx(ctx).Warn().Str("method", method).Msg("no client connection, skipping notification")
		return nil
	}
	if err := me.notifier.Notify(ctx, method, params); err != nil {
		return errors.Errorf("sending %s: %w", method, err)
	}
	return nil
}
