//go:build wasip1

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/creachadair/jrpc2"
	"github.com/rs/zerolog"
	"github.com/walteh/astrols/pkg/debug"
	"github.com/walteh/astrols/pkg/lsp"
)

// wasip1 hosts hand the module stdio, so this is serve-lsp without flags or file watching.
func main() {
	logger := debug.NewLogger(os.Stderr, zerolog.InfoLevel, false).With().Str("service", "astrols-wasi").Logger()
	ctx := logger.WithContext(context.Background())

	server := lsp.NewServer(ctx, lsp.WithConfigWatch(false), lsp.WithLogOutput(os.Stderr))

	// the runtime is single threaded
	opts := &jrpc2.ServerOptions{Concurrency: 1}

	if err := server.Serve(ctx, os.Stdin, os.Stdout, opts); err != nil {
		fmt.Fprintf(os.Stderr, "serving language server: %v\n", err)
		os.Exit(1)
	}
}
