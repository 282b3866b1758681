package definition_test

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/walteh/astrols/pkg/definition"
	"github.com/walteh/astrols/pkg/engine"
	"github.com/walteh/astrols/pkg/engine/enginemock"
	"github.com/walteh/astrols/pkg/engine/lexical"
	"github.com/walteh/astrols/pkg/position"
	"github.com/walteh/astrols/pkg/snapshot/snapshottest"
)

const page = "---\nimport Card from './Card.astro';\nconst title = 'hi';\n---\n<h1>{title}</h1>\n<Card />\n"

func TestDefinition(t *testing.T) {
	entry := snapshottest.Entry(t, nil, "/src/pages/index.astro", page)
	p := definition.New(lexical.New(), afero.NewMemMapFs())

	tests := []struct {
		name string
		at   position.Place
		want []definition.Link
	}{
		{
			name: "expression to script declaration",
			at:   position.Place{Line: 4, Character: 6},
			want: []definition.Link{{
				OriginRange:          rng(4, 5, 4, 10),
				TargetPath:           "/src/pages/index.astro",
				TargetRange:          rng(2, 6, 2, 11),
				TargetSelectionRange: rng(2, 6, 2, 11),
			}},
		},
		{
			name: "component tag to its file",
			at:   position.Place{Line: 5, Character: 2},
			want: []definition.Link{{
				OriginRange: rng(5, 1, 5, 5),
				TargetPath:  "/src/pages/Card.astro",
			}},
		},
		{
			name: "markup text",
			at:   position.Place{Line: 4, Character: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			links, err := p.Definition(context.Background(), entry, tt.at)
			require.NoError(t, err)
			assert.Equal(t, tt.want, links)
		})
	}
}

func rng(sl, sc, el, ec int) position.Range {
	return position.Range{
		Start: position.Place{Line: sl, Character: sc},
		End:   position.Place{Line: el, Character: ec},
	}
}

func TestDefinitionInRealFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/src/lib/util.ts", []byte("// helpers\nexport const x = 1;\n"), 0o644))

	entry := snapshottest.Entry(t, nil, "/src/pages/index.astro", page)

	eng := &enginemock.MockEngine{}
	eng.On("Definition", mock.Anything, mock.Anything, mock.Anything).Return(&engine.Definitions{
		Bound: position.Span{Start: 1, End: 4},
		Definitions: []engine.Location{
			{FileName: "/src/lib/util.ts", Span: position.Span{Start: 24, End: 25}},
			{FileName: "/src/lib/missing.ts", Span: position.Span{Start: 3, End: 4}},
		},
	}, nil)

	links, err := definition.New(eng, fs).Definition(context.Background(), entry, position.Place{Line: 1, Character: 2})
	require.NoError(t, err)
	require.Len(t, links, 2)

	assert.Equal(t, "/src/lib/util.ts", links[0].TargetPath)
	assert.Equal(t, rng(1, 13, 1, 14), links[0].TargetRange)
	assert.Equal(t, "/src/lib/missing.ts", links[1].TargetPath)
	assert.Equal(t, position.Range{}, links[1].TargetRange)
}

func TestDefinitionIntoBoilerplate(t *testing.T) {
	entry := snapshottest.Entry(t, nil, "/src/pages/index.astro", page)

	eng := &enginemock.MockEngine{}
	eng.On("Definition", mock.Anything, mock.Anything, mock.Anything).Return(&engine.Definitions{
		Bound: position.Span{Start: 1, End: 7},
		Definitions: []engine.Location{
			{FileName: "/src/pages/index.astro.tsx.tsx", Span: position.Span{Start: 9000, End: 9005}},
		},
	}, nil)

	links, err := definition.New(eng, nil).Definition(context.Background(), entry, position.Place{Line: 1, Character: 2})
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, position.Range{}, links[0].TargetRange, "unmappable targets collapse to the start of the file")
}

func TestDefinitionCancelled(t *testing.T) {
	entry := snapshottest.Entry(t, nil, "/src/pages/index.astro", page)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	eng := &enginemock.MockEngine{}
	links, err := definition.New(eng, nil).Definition(ctx, entry, position.Place{Line: 1, Character: 2})
	require.NoError(t, err)
	assert.Nil(t, links)
	eng.AssertNotCalled(t, "Definition", mock.Anything, mock.Anything, mock.Anything)
}
