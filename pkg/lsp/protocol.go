package lsp

import (
	"context"
	"fmt"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/handler"
	"github.com/rs/zerolog"
)

var (
	RequestCancelledError = &jrpc2.Error{Code: -32800, Message: "request cancelled"}
	ContentModifiedError  = &jrpc2.Error{Code: -32801, Message: "content modified"}
)

func invalidParams(format string, args ...any) *jrpc2.Error {
	return &jrpc2.Error{Code: -32602, Message: fmt.Sprintf(format, args...)}
}

// Notifier sends notifications to the client.
type Notifier interface {
	Notify(ctx context.Context, method string, params any) error
}

func ApplyRequestToZerolog(ctx context.Context, req *jrpc2.Request) context.Context {
	return zerolog.Ctx(ctx).With().Str("rpc_method", req.Method()).Str("rpc_id", req.ID()).Logger().WithContext(ctx)
}

// track makes the request cancellable by $/cancelRequest until the returned func is called.
func (me *Server) track(ctx context.Context, req *jrpc2.Request) (context.Context, func()) {
	if req.IsNotification() {
		return ctx, func() {}
	}
	ctx, cancel := context.WithCancel(ctx)
	me.cancelFuncs.Store(req.ID(), cancel)
	return ctx, func() {
		me.cancelFuncs.Delete(req.ID())
		cancel()
	}
}

func createHandler[T any, O any](me *Server, method func(ctx context.Context, params *T) (O, error)) handler.Func {
	return handler.New(func(ctx context.Context, r *jrpc2.Request) (any, error) {
		ctx = ApplyRequestToZerolog(ctx, r)
		if !me.initialized.Load() && r.Method() != "initialize" {
			return nil, serverNotInitializedError
		}
		if me.shutdown.Load() {
			return nil, shuttingDownError
		}
		ctx, done := me.track(ctx, r)
		defer done()

		var params T
		if err := r.UnmarshalParams(&params); err != nil {
			return nil, invalidParams("decoding %s params: %v", r.Method(), err)
		}
		if ctx.Err() != nil {
			return nil, RequestCancelledError
		}

		result, err := method(ctx, &params)
		if ctx.Err() != nil {
			return nil, RequestCancelledError
		}
		if err != nil {
			return nil, err
		}
		return result, nil
	})
}

func createEmptyResultHandler[T any](method func(ctx context.Context, params *T) error) handler.Func {
	return handler.New(func(ctx context.Context, r *jrpc2.Request) (any, error) {
		ctx = ApplyRequestToZerolog(ctx, r)
		var params T
		if err := r.UnmarshalParams(&params); err != nil {
			return nil, invalidParams("decoding %s params: %v", r.Method(), err)
		}
		return nil, method(ctx, &params)
	})
}

func createEmptyHandler(method func(ctx context.Context) error) handler.Func {
	return handler.New(func(ctx context.Context, r *jrpc2.Request) (any, error) {
		ctx = ApplyRequestToZerolog(ctx, r)
		return nil, method(ctx)
	})
}

func (me *Server) dispatchMap() handler.Map {
	return handler.Map{
		"initialize":                       createHandler(me, me.Initialize),
		"initialized":                      createEmptyResultHandler(me.Initialized),
		"shutdown":                         createEmptyHandler(me.Shutdown),
		"exit":                             createEmptyHandler(me.Exit),
		"$/cancelRequest":                  createEmptyResultHandler(me.CancelRequest),
		"textDocument/didOpen":             createEmptyResultHandler(me.DidOpen),
		"textDocument/didChange":           createEmptyResultHandler(me.DidChange),
		"textDocument/didSave":             createEmptyResultHandler(me.DidSave),
		"textDocument/didClose":            createEmptyResultHandler(me.DidClose),
		"textDocument/completion":          createHandler(me, me.Completion),
		"textDocument/hover":               createHandler(me, me.Hover),
		"textDocument/definition":          createHandler(me, me.Definition),
		"textDocument/inlayHint":           createHandler(me, me.InlayHint),
		"textDocument/diagnostic":          createHandler(me, me.Diagnostic),
		"textDocument/codeLens":            createHandler(me, me.CodeLens),
		"textDocument/formatting":          createHandler(me, me.Formatting),
		"textDocument/documentSymbol":      createHandler(me, me.DocumentSymbol),
		"workspace/didChangeConfiguration": createEmptyResultHandler(me.DidChangeConfiguration),
	}
}
