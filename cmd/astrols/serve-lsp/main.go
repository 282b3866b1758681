package serve_lsp

import (
	"context"
	"os"
	"path/filepath"

	"github.com/creachadair/jrpc2"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/walteh/astrols/pkg/config"
	"github.com/walteh/astrols/pkg/debug"
	"github.com/walteh/astrols/pkg/lsp"
	"gitlab.com/tozd/go/errors"
)

type Handler struct {
	debug      bool
	configPath string
}

func NewServeLSPCommand() *cobra.Command {
	me := &Handler{}

	cmd := &cobra.Command{
		Use:   "serve-lsp",
		Short: "start the language server on stdin/stdout",
	}

	cmd.Flags().BoolVar(&me.debug, "debug", false, "enable debug logging")
	cmd.Flags().StringVar(&me.configPath, "config", "", "config file laid over the workspace config")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return me.Run(cmd.Context())
	}

	return cmd
}

type RPCLogger struct {
}

func (me *RPCLogger) LogRequest(ctx context.Context, req *jrpc2.Request) {
	zerolog.Ctx(ctx).Debug().Str("rpc_params", req.ParamString()).Str("rpc_id", req.ID()).Str("rpc_method", req.Method()).Msg("client request")
}

func (me *RPCLogger) LogResponse(ctx context.Context, res *jrpc2.Response) {
	zerolog.Ctx(ctx).Debug().Str("rpc_result", res.ResultString()).Str("rpc_id", res.ID()).Msg("server response")
}

func (me *Handler) Run(ctx context.Context) error {
	level := zerolog.InfoLevel
	if me.debug {
		level = zerolog.DebugLevel
	}

	// stdout carries the protocol, so the process log goes to the client and a local copy to stderr
	logger := debug.NewLogger(os.Stderr, level, false)
	ctx = logger.WithContext(ctx)

	opts := []lsp.ServerOpt{
		lsp.WithDebug(me.debug),
		lsp.WithLogOutput(os.Stderr),
	}

	if me.configPath != "" {
		abs, err := filepath.Abs(me.configPath)
		if err != nil {
			return errors.Errorf("resolving config path: %w", err)
		}
		f, err := config.LoadFile(afero.NewOsFs(), filepath.ToSlash(abs), filepath.ToSlash(filepath.Dir(abs)))
		if err != nil {
			return errors.Errorf("loading config: %w", err)
		}
		opts = append(opts, lsp.WithConfig(f))
	}

	server := lsp.NewServer(ctx, opts...)

	zerolog.Ctx(ctx).Info().Bool("debug", me.debug).Msg("starting language server")

	if err := server.Serve(ctx, os.Stdin, os.Stdout, &jrpc2.ServerOptions{RPCLog: &RPCLogger{}}); err != nil {
		return errors.Errorf("error running language server: %w", err)
	}

	return nil
}
