//go:build js && wasm

package main

import (
	"context"
	"os"
	"syscall/js"

	"github.com/rs/zerolog"
	lspcmd "github.com/walteh/astrols/cmd/astrols-wasm/lsp"
	"github.com/walteh/astrols/pkg/debug"
)

// The module exposes astrols_wasm.serve_lsp(send) to the extension host. The host passes every client
// message to astrols_receive and gets server messages through send.
func main() {
	logger := debug.NewLogger(os.Stderr, zerolog.InfoLevel, false).With().Str("service", "astrols-wasm").Logger()
	ctx := logger.WithContext(context.Background())

	js.Global().Set("astrols_wasm", js.ValueOf(map[string]any{
		"serve_lsp": wrapResult(ctx, lspcmd.ServeLSP),
	}))
	js.Global().Set("astrols_initialized", js.ValueOf(true))

	zerolog.Ctx(ctx).Info().Msg("initialized")

	// keep the module alive for callbacks
	select {}
}

func wrapResult[T any](ctx context.Context, fn func(ctx context.Context, this js.Value, args []js.Value) (T, error)) js.Func {
	return js.FuncOf(func(this js.Value, args []js.Value) any {
		result, err := fn(ctx, this, args)
		if err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("call failed")
			return map[string]any{
				"result": nil,
				"error":  err.Error(),
			}
		}
		return map[string]any{
			"result": result,
			"error":  nil,
		}
	})
}
