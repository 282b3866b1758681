package lsp

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"sync/atomic"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/channel"
	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/walteh/astrols/pkg/codelens"
	"github.com/walteh/astrols/pkg/completion"
	"github.com/walteh/astrols/pkg/config"
	"github.com/walteh/astrols/pkg/definition"
	"github.com/walteh/astrols/pkg/diagnostic"
	"github.com/walteh/astrols/pkg/engine"
	"github.com/walteh/astrols/pkg/engine/lexical"
	"github.com/walteh/astrols/pkg/format"
	"github.com/walteh/astrols/pkg/hover"
	"github.com/walteh/astrols/pkg/inlay"
	"github.com/walteh/astrols/pkg/outline"
	"github.com/walteh/astrols/pkg/snapshot"
	"github.com/walteh/astrols/pkg/virtualcode"
	"gitlab.com/tozd/go/errors"
	"go.lsp.dev/protocol"
	"golang.org/x/sync/errgroup"
)

const serverName = "astrols"

var (
	serverNotInitializedError = &jrpc2.Error{Code: -32002, Message: "server not initialized"}
	shuttingDownError         = &jrpc2.Error{Code: -32600, Message: "server is shutting down"}
)

// Server represents an LSP server instance
type Server struct {
	ctx context.Context

	// Document management
	documents *DocumentManager
	snapshots *snapshot.Cache
	builder   *virtualcode.Builder

	// Workspace management
	fs       afero.Fs
	override *config.File
	watch    bool
	watcher  atomic.Pointer[config.Watcher]
	stopWork context.CancelFunc

	// Server state
	initialized atomic.Bool
	shutdown    atomic.Bool

	// Server identification
	id    string
	debug bool

	// Features
	engine      engine.Engine
	completion  *completion.Provider
	hover       *hover.Provider
	definition  *definition.Provider
	inlay       *inlay.Provider
	diagnostics diagnostic.Generator
	codelens    *codelens.Provider
	format      *format.Provider
	outline     *outline.Provider

	// Context management
	cancelFuncs *sync.Map // map[string]context.CancelFunc

	// LSP client for notifications
	logOut   io.Writer
	instance *jrpc2.Server
	notifier Notifier
}

type ServerOpt func(*Server)

func WithFs(fs afero.Fs) ServerOpt {
	return func(s *Server) {
		s.fs = fs
	}
}

func WithEngine(eng engine.Engine) ServerOpt {
	return func(s *Server) {
		s.engine = eng
	}
}

// WithConfig lays f over the workspace config file. Client initialization options still win.
func WithConfig(f *config.File) ServerOpt {
	return func(s *Server) {
		s.override = f
	}
}

// WithConfigWatch controls whether config files on disk are watched for changes.
func WithConfigWatch(watch bool) ServerOpt {
	return func(s *Server) {
		s.watch = watch
	}
}

// WithLogOutput keeps a copy of every log entry on w as well as sending it to the client.
func WithLogOutput(w io.Writer) ServerOpt {
	return func(s *Server) {
		s.logOut = w
	}
}

// WithDebug pins the log level set on the context, ignoring the workspace log level.
func WithDebug(debug bool) ServerOpt {
	return func(s *Server) {
		s.debug = debug
	}
}

func NewServer(ctx context.Context, opts ...ServerOpt) *Server {
	s := &Server{
		ctx:         ctx,
		id:          xid.New().String(),
		documents:   NewDocumentManager(),
		snapshots:   snapshot.NewCache(),
		cancelFuncs: &sync.Map{},
		fs:          afero.NewOsFs(),
		watch:       true,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.engine == nil {
		s.engine = lexical.New()
	}

	s.builder = virtualcode.NewBuilder(virtualcode.WithCollections(workspaceCollections{s}))
	s.completion = completion.New(s.engine, completion.WithFs(s.fs))
	s.hover = hover.New(s.engine)
	s.definition = definition.New(s.engine, s.fs)
	s.inlay = inlay.New(s.engine)
	s.diagnostics = diagnostic.NewDefaultGenerator(s.engine)
	s.codelens = codelens.New(s.fs)
	s.format = format.New(s.engine, s.formatOptions)
	s.outline = outline.New(s.engine)

	return s
}

func (me *Server) Documents() *DocumentManager {
	return me.documents
}

// BuildServerInstance wires the server to a jrpc2 server. Notifications to the client and log entries
// go through the returned instance once it is started.
func (me *Server) BuildServerInstance(ctx context.Context, opts *jrpc2.ServerOptions) *jrpc2.Server {
	if opts == nil {
		opts = &jrpc2.ServerOptions{}
	}
	opts.AllowPush = true
	opts.NewContext = me.newContext

	me.instance = jrpc2.NewServer(me.dispatchMap(), opts)
	me.notifier = me.instance
	me.ctx = ApplyClientToZerolog(ctx, me.logOut, me.instance)

	zerolog.Ctx(me.ctx).Debug().Str("server_id", me.id).Msg("server instance built")

	return me.instance
}

// Serve runs the server over an LSP framed stream until the client exits or the stream closes.
func (me *Server) Serve(ctx context.Context, r io.Reader, w io.WriteCloser, opts *jrpc2.ServerOptions) error {
	instance := me.BuildServerInstance(ctx, opts)
	if err := instance.Start(channel.LSP(r, w)).Wait(); err != nil {
		return errors.Errorf("serving language server: %w", err)
	}
	return nil
}

func (me *Server) newContext() context.Context {
	ctx := me.ctx
	if ws := me.workspace(); ws != nil && !me.debug {
		ctx = zerolog.Ctx(ctx).Level(ws.LogLevel).WithContext(ctx)
	}
	return ctx
}

func (me *Server) workspace() *config.Workspace {
	if w := me.watcher.Load(); w != nil {
		return w.Current()
	}
	return nil
}

type workspaceCollections struct {
	s *Server
}

func (me workspaceCollections) CollectionFor(p string) (virtualcode.Collection, bool) {
	return me.s.workspace().CollectionFor(p)
}

func (me *Server) formatOptions(p string, base engine.FormatOptions) engine.FormatOptions {
	ws := me.workspace()
	if ws == nil {
		return base
	}
	if base.TabSize <= 0 {
		base = ws.Format
	}
	return ws.FormatOptions(p, base)
}

func (me *Server) Initialize(ctx context.Context, params *protocol.InitializeParams) (*InitializeResult, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("root_uri", string(params.RootURI)).Msg("initializing server")

	init, err := decodeSettings(params.InitializationOptions)
	if err != nil {
		return nil, invalidParams("initializationOptions: %v", err)
	}

	root := workspaceRoot(params)

	watcher, err := config.NewWatcher(me.fs, root, config.Merge(me.override, init), me.onReload)
	if err != nil {
		logger.Warn().Err(err).Str("root", root).Msg("workspace configuration did not load, using defaults")
	}
	me.watcher.Store(watcher)

	if me.watch && root != "" {
		// the watcher outlives this request
		workCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		me.stopWork = cancel
		go func() {
			if err := watcher.Run(workCtx); err != nil {
				zerolog.Ctx(workCtx).Warn().Err(err).Msg("configuration watcher stopped")
			}
		}()
	}

	me.initialized.Store(true)

	return &InitializeResult{
		Capabilities: ServerCapabilities{
			ServerCapabilities: protocol.ServerCapabilities{
				TextDocumentSync: &protocol.TextDocumentSyncOptions{
					OpenClose: true,
					Change:    protocol.TextDocumentSyncKindIncremental,
					Save:      &protocol.SaveOptions{IncludeText: true},
				},
				HoverProvider: true,
				CompletionProvider: &protocol.CompletionOptions{
					TriggerCharacters: []string{completion.TriggerDash, ".", "<", " "},
				},
				DefinitionProvider:         true,
				CodeLensProvider:           &protocol.CodeLensOptions{},
				DocumentFormattingProvider: true,
				DocumentSymbolProvider:     true,
			},
			InlayHintProvider: true,
			DiagnosticProvider: &DiagnosticOptions{
				Identifier: serverName,
			},
		},
		ServerInfo: &protocol.ServerInfo{Name: serverName},
	}, nil
}

func workspaceRoot(params *protocol.InitializeParams) string {
	if p, ok := uriToPath(params.RootURI); ok {
		return p
	}
	for _, f := range params.WorkspaceFolders {
		if p, ok := uriToPath(protocol.DocumentURI(f.URI)); ok {
			return p
		}
	}
	return params.RootPath
}

// decodeSettings reads client settings, either bare or under an "astrols" key.
func decodeSettings(settings any) (*config.File, error) {
	if settings == nil {
		return nil, nil
	}
	raw, err := json.Marshal(settings)
	if err != nil {
		return nil, errors.Errorf("encoding settings: %w", err)
	}

	var keyed map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keyed); err == nil {
		if inner, ok := keyed[serverName]; ok {
			raw = inner
		}
	}

	f, err := config.ParseJSON(raw)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (me *Server) Initialized(ctx context.Context, params *protocol.InitializedParams) error {
	if ws := me.workspace(); ws != nil {
		zerolog.Ctx(ctx).Debug().Str("workspace", ws.String()).Msg("server initialized")
	}
	return nil
}

func (me *Server) Shutdown(ctx context.Context) error {
	zerolog.Ctx(ctx).Debug().Msg("shutting down")
	me.shutdown.Store(true)
	if me.stopWork != nil {
		me.stopWork()
	}
	return nil
}

func (me *Server) Exit(ctx context.Context) error {
	zerolog.Ctx(ctx).Debug().Bool("clean", me.shutdown.Load()).Msg("exit")
	if me.instance != nil {
		// Stop waits for handlers, this one included
		go me.instance.Stop()
	}
	return nil
}

func (me *Server) CancelRequest(ctx context.Context, params *protocol.CancelParams) error {
	// tracked under the id's JSON text
	id, err := json.Marshal(params.ID)
	if err != nil {
		return nil
	}
	if cancel, ok := me.cancelFuncs.Load(string(id)); ok {
		zerolog.Ctx(ctx).Debug().Str("cancelled", string(id)).Msg("cancelling request")
		cancel.(context.CancelFunc)()
	}
	return nil
}

func (me *Server) DidChangeConfiguration(ctx context.Context, params *protocol.DidChangeConfigurationParams) error {
	w := me.watcher.Load()
	if w == nil {
		return nil
	}

	init, err := decodeSettings(params.Settings)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("ignoring configuration change")
		return nil
	}

	// a configuration that does not load is logged and the previous one stays in place
	_ = w.SetInit(ctx, config.Merge(me.override, init))
	return nil
}

// onReload runs after the workspace configuration changed. Every open document is rebuilt, since the
// collection it belongs to may have changed.
func (me *Server) onReload(_ *config.Workspace) {
	ctx := me.newContext()
	go func() {
		if err := me.revalidate(ctx); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("revalidating documents")
		}
	}()
}

func (me *Server) revalidate(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for _, doc := range me.documents.All() {
		me.snapshots.Evict(normalizeURI(doc.URI))
		g.Go(func() error {
			return me.publishDiagnostics(ctx, doc.URI)
		})
	}

	return g.Wait()
}
