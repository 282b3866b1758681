package snapshot

import (
	"context"

	"github.com/walteh/astrols/pkg/virtualcode"
)

func (me *Cache) Install(ctx context.Context, uri string, version int32, res *virtualcode.Result) (*Entry, error) {
	return me.install(ctx, uri, version, res)
}
