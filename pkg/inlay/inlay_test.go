package inlay_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/walteh/astrols/pkg/engine"
	"github.com/walteh/astrols/pkg/engine/enginemock"
	"github.com/walteh/astrols/pkg/engine/lexical"
	"github.com/walteh/astrols/pkg/inlay"
	"github.com/walteh/astrols/pkg/position"
	"github.com/walteh/astrols/pkg/snapshot/snapshottest"
)

const page = "---\nlet count = 1;\nfunction add(a: number, b: number) {\n  return a + b;\n}\n---\n<p>{add(2, count)}</p>\n"

func whole(text string) position.Range {
	idx := position.NewIndex(text)
	return idx.RangeOf(position.Span{Start: 0, End: len(text)})
}

func TestHints(t *testing.T) {
	entry := snapshottest.Entry(t, nil, "/src/pages/index.astro", page)

	hints, err := inlay.New(lexical.New()).Hints(context.Background(), entry, whole(page))
	require.NoError(t, err)

	assert.Equal(t, []inlay.Hint{
		{Place: position.Place{Line: 1, Character: 9}, Label: ": number", Kind: engine.InlayHintType},
		{Place: position.Place{Line: 6, Character: 8}, Label: "a:", Kind: engine.InlayHintParameter, PaddingRight: true},
	}, hints)
}

func TestHintsOutsideRangeAreDropped(t *testing.T) {
	entry := snapshottest.Entry(t, nil, "/src/pages/index.astro", page)

	rng := position.Range{Start: position.Place{Line: 6}, End: position.Place{Line: 7}}
	hints, err := inlay.New(lexical.New()).Hints(context.Background(), entry, rng)
	require.NoError(t, err)
	require.Len(t, hints, 1)
	assert.Equal(t, "a:", hints[0].Label)
}

func TestHintsInGeneratedTextAreDropped(t *testing.T) {
	entry := snapshottest.Entry(t, nil, "/src/pages/index.astro", page)

	eng := &enginemock.MockEngine{}
	eng.On("InlayHints", mock.Anything, mock.Anything, mock.Anything).Return([]engine.InlayHint{
		{Offset: 5, Label: ": number", Kind: engine.InlayHintType},
		{Offset: 100000, Label: ": any", Kind: engine.InlayHintType},
	}, nil)

	hints, err := inlay.New(eng).Hints(context.Background(), entry, whole(page))
	require.NoError(t, err)
	require.Len(t, hints, 1)
	assert.Equal(t, position.Place{Line: 1, Character: 4}, hints[0].Place)
}

func TestHintsCancelled(t *testing.T) {
	entry := snapshottest.Entry(t, nil, "/src/pages/index.astro", page)

	ctx, cancel := context.WithCancel(context.Background())
	eng := &enginemock.MockEngine{}
	eng.On("InlayHints", mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return([]engine.InlayHint{{Offset: 5, Label: "x"}}, nil)

	hints, err := inlay.New(eng).Hints(ctx, entry, whole(page))
	require.NoError(t, err)
	assert.Nil(t, hints)
}
