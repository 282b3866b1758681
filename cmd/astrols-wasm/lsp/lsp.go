//go:build js && wasm

package lsp

import (
	"context"
	"io"
	"sync"
	"syscall/js"

	"github.com/creachadair/jrpc2"
	"github.com/creachadair/jrpc2/channel"
	"github.com/rs/zerolog"
	"github.com/walteh/astrols/pkg/lsp"
	"gitlab.com/tozd/go/errors"
)

const receiveName = "astrols_receive"

// JSChannel carries whole JSON-RPC messages between the server and a JavaScript host. The host frames
// messages itself, so no headers are added.
type JSChannel struct {
	send     js.Value
	incoming chan []byte

	closeOnce sync.Once
	done      chan struct{}
	recv      js.Func
}

var _ channel.Channel = (*JSChannel)(nil)

// NewJSChannel registers the receive callback under recvName and sends outgoing messages with send.
func NewJSChannel(send js.Value, recvName string) *JSChannel {
	me := &JSChannel{
		send:     send,
		incoming: make(chan []byte, 64),
		done:     make(chan struct{}),
	}
	me.recv = js.FuncOf(me.receive)
	js.Global().Set(recvName, me.recv)
	return me
}

func (me *JSChannel) receive(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return nil
	}
	msg := []byte(args[0].String())
	select {
	case me.incoming <- msg:
	case <-me.done:
	}
	return nil
}

func (me *JSChannel) Send(msg []byte) error {
	select {
	case <-me.done:
		return io.ErrClosedPipe
	default:
	}
	me.send.Invoke(string(msg))
	return nil
}

func (me *JSChannel) Recv() ([]byte, error) {
	select {
	case msg := <-me.incoming:
		return msg, nil
	case <-me.done:
		return nil, io.EOF
	}
}

func (me *JSChannel) Close() error {
	me.closeOnce.Do(func() {
		close(me.done)
		me.recv.Release()
	})
	return nil
}

type RPCLogger struct {
}

func (me *RPCLogger) LogRequest(ctx context.Context, req *jrpc2.Request) {
	zerolog.Ctx(ctx).Debug().Str("rpc_id", req.ID()).Str("rpc_method", req.Method()).Msg("client request")
}

func (me *RPCLogger) LogResponse(ctx context.Context, res *jrpc2.Response) {
	zerolog.Ctx(ctx).Debug().Str("rpc_id", res.ID()).Msg("server response")
}

// ServeLSP starts the language server. args[0] is the function server messages are sent with.
func ServeLSP(ctx context.Context, this js.Value, args []js.Value) (string, error) {
	if len(args) < 1 || args[0].Type() != js.TypeFunction {
		return "", errors.New("expected one argument: send_message")
	}

	ch := NewJSChannel(args[0], receiveName)

	// wasm hosts have no file watching
	server := lsp.NewServer(ctx, lsp.WithConfigWatch(false))

	instance := server.BuildServerInstance(ctx, &jrpc2.ServerOptions{
		RPCLog:      &RPCLogger{},
		Concurrency: 1,
	})
	instance.Start(ch)

	go func() {
		if err := instance.Wait(); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("language server stopped")
		}
		ch.Close()
	}()

	zerolog.Ctx(ctx).Info().Str("receive", receiveName).Msg("language server ready")
	return "server started", nil
}
