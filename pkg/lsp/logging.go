package lsp

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"github.com/walteh/astrols/pkg/debug"
	"go.lsp.dev/protocol"
)

var myLoggerId = xid.New().String()

// Message types past protocol's four. Clients show them as plain log lines.
const (
	MessageTypeDebug      protocol.MessageType = 5
	MessageTypeDependency protocol.MessageType = 6
	MessageTypeUnknown    protocol.MessageType = 7
)

// LogMessageParams carries the zerolog entry fields that do not fit in the message.
type LogMessageParams struct {
	protocol.LogMessageParams

	Source string         `json:"source,omitempty"`
	Extra  map[string]any `json:"extra,omitempty"`
	Time   string         `json:"time,omitempty"`
}

func ParseMessageTypeFromZerolog(level string) protocol.MessageType {
	zlgLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		return MessageTypeUnknown
	}
	switch zlgLevel {
	case zerolog.InfoLevel:
		return protocol.MessageTypeInfo
	case zerolog.ErrorLevel, zerolog.FatalLevel, zerolog.PanicLevel:
		return protocol.MessageTypeError
	case zerolog.WarnLevel:
		return protocol.MessageTypeWarning
	case zerolog.DebugLevel:
		return protocol.MessageTypeLog
	case zerolog.TraceLevel:
		return MessageTypeDebug
	default:
		return MessageTypeUnknown
	}
}

// logWriter forwards zerolog JSON entries to the client as window/logMessage notifications.
type logWriter struct {
	mu       sync.Mutex
	notifier Notifier
	ctx      context.Context
}

var _ io.Writer = (*logWriter)(nil)

// ApplyClientToZerolog returns ctx with a logger that writes to out, when set, and to the client.
// Entries that did not come from this logger are marked as dependencies.
func ApplyClientToZerolog(ctx context.Context, out io.Writer, notifier Notifier) context.Context {
	level := zerolog.Ctx(ctx).GetLevel()
	var w io.Writer = &logWriter{notifier: notifier, ctx: context.WithoutCancel(ctx)}
	if out != nil {
		w = zerolog.MultiLevelWriter(out, w)
	}

	return zerolog.New(w).
		Level(level).
		With().
		Str("id", myLoggerId).
		Logger().
		Hook(debug.TimeHook{}).
		Hook(debug.CallerHook{}).
		WithContext(ctx)
}

func (w *logWriter) Write(p []byte) (n int, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var entry map[string]any
	if err := json.Unmarshal(p, &entry); err != nil {
		return len(p), nil // not ours to report
	}

	params := LogMessageParams{Extra: entry}
	params.Type = MessageTypeUnknown

	if l, ok := entry["level"].(string); ok {
		params.Type = ParseMessageTypeFromZerolog(l)
		delete(entry, "level")
	}
	if m, ok := entry["message"].(string); ok {
		params.Message = m
		delete(entry, "message")
	}
	if t, ok := entry["time"].(string); ok {
		params.Time = t
		delete(entry, "time")
	}
	if s, ok := entry["caller"].(string); ok {
		params.Source = s
		delete(entry, "caller")
	}
	if id, _ := entry["id"].(string); id != myLoggerId {
		params.Type = MessageTypeDependency
	}
	delete(entry, "id")

	if len(entry) == 0 {
		params.Extra = nil
	}

	// a failed notification must not fail the log call
	_ = w.notifier.Notify(w.ctx, "window/logMessage", params)
	return len(p), nil
}
