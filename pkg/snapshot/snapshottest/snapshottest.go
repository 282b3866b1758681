// Package snapshottest builds cache entries for tests of the feature packages.
package snapshottest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/walteh/astrols/pkg/snapshot"
	"github.com/walteh/astrols/pkg/virtualcode"
)

// Entry builds text as version 1 of the file at path.
func Entry(t testing.TB, b *virtualcode.Builder, path, text string) *snapshot.Entry {
	t.Helper()

	if b == nil {
		b = virtualcode.NewBuilder()
	}

	cache := snapshot.NewCache()
	src := virtualcode.Source{Path: path, Text: text, Version: 1}
	e, err := cache.GetOrBuild(context.Background(), path, 1, func(ctx context.Context, prev *virtualcode.Result) (*virtualcode.Result, error) {
		return b.Build(ctx, src, prev)
	})
	require.NoError(t, err)
	return e
}
