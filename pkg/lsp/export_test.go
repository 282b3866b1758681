package lsp

import (
	"context"

	"github.com/walteh/astrols/pkg/snapshot"
)

func (me *Server) Snapshots() *snapshot.Cache {
	return me.snapshots
}

// Track registers a cancellable request under the JSON text of its id, as the dispatcher does.
func (me *Server) Track(id string) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	me.cancelFuncs.Store(id, cancel)
	return ctx
}

var NormalizeURI = normalizeURI
