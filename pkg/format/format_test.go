package format_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/walteh/astrols/pkg/engine"
	"github.com/walteh/astrols/pkg/engine/enginemock"
	"github.com/walteh/astrols/pkg/engine/lexical"
	"github.com/walteh/astrols/pkg/format"
	"github.com/walteh/astrols/pkg/position"
	"github.com/walteh/astrols/pkg/snapshot/snapshottest"
)

func place(l, c int) position.Place {
	return position.Place{Line: l, Character: c}
}

func TestFormat(t *testing.T) {
	text := "---\nif (a) {\nb();\n}\n---\n<div>\n      <p/>\n</div>\n"
	entry := snapshottest.Entry(t, nil, "/src/pages/index.astro", text)

	tests := []struct {
		name string
		opts engine.FormatOptions
		fn   format.OptionsFunc
		want []format.Edit
	}{
		{
			name: "spaces",
			opts: engine.FormatOptions{TabSize: 4, InsertSpaces: true},
			want: []format.Edit{{Range: position.Range{Start: place(2, 0), End: place(2, 0)}, NewText: "    "}},
		},
		{
			name: "options from the file settings win",
			opts: engine.FormatOptions{TabSize: 4, InsertSpaces: true},
			fn: func(path string, base engine.FormatOptions) engine.FormatOptions {
				assert.Equal(t, "/src/pages/index.astro", path)
				base.TabSize = 2
				return base
			},
			want: []format.Edit{{Range: position.Range{Start: place(2, 0), End: place(2, 0)}, NewText: "  "}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := format.New(lexical.New(), tt.fn).Format(context.Background(), entry, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEditsOutsideTheScriptAreDropped(t *testing.T) {
	text := "---\nconst a = 1;\n---\n<p/>\n"
	entry := snapshottest.Entry(t, nil, "/src/pages/index.astro", text)

	eng := &enginemock.MockEngine{}
	eng.On("Format", mock.Anything, mock.Anything, mock.Anything).Return([]engine.TextEdit{
		{Span: position.Span{Start: 1, End: 1}, NewText: "  "},
		{Span: position.Span{Start: 5, End: 500}, NewText: ""},
	}, nil)

	got, err := format.New(eng, nil).Format(context.Background(), entry, engine.FormatOptions{})
	require.NoError(t, err)
	assert.Equal(t, []format.Edit{{Range: position.Range{Start: place(1, 0), End: place(1, 0)}, NewText: "  "}}, got)
}

func TestNothingToFormat(t *testing.T) {
	eng := &enginemock.MockEngine{}
	entry := snapshottest.Entry(t, nil, "/src/pages/index.astro", "<p/>\n")

	got, err := format.New(eng, nil).Format(context.Background(), entry, engine.FormatOptions{})
	require.NoError(t, err)
	assert.Nil(t, got)
	eng.AssertNotCalled(t, "Format", mock.Anything, mock.Anything, mock.Anything)
}
