package codelens_test

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/astrols/pkg/codelens"
	"github.com/walteh/astrols/pkg/position"
	"github.com/walteh/astrols/pkg/snapshot/snapshottest"
)

func fixture(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for _, p := range []string{
		"/site/src/posts/a.md",
		"/site/src/posts/b.md",
		"/site/src/posts/draft/c.md",
		"/site/src/posts/notes.txt",
		"/site/src/components/Card.astro",
	} {
		require.NoError(t, afero.WriteFile(fs, p, []byte("x"), 0o644))
	}
	return fs
}

func TestLenses(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []codelens.Lens
	}{
		{
			name: "relative pattern",
			text: "---\nconst posts = await Astro.glob('../posts/*.md');\n---\n",
			want: []codelens.Lens{{
				Range: position.Range{Start: position.Place{Line: 1, Character: 31}, End: position.Place{Line: 1, Character: 31}},
				Title: "Matches 2 files",
			}},
		},
		{
			name: "recursive pattern",
			text: "---\nconst all = await Astro.glob(\"../posts/**/*.md\");\n---\n",
			want: []codelens.Lens{{
				Range: position.Range{Start: position.Place{Line: 1, Character: 29}, End: position.Place{Line: 1, Character: 29}},
				Title: "Matches 3 files",
			}},
		},
		{
			name: "single match",
			text: "---\nconst c = Astro.glob(`../components/*.astro`);\n---\n",
			want: []codelens.Lens{{
				Range: position.Range{Start: position.Place{Line: 1, Character: 21}, End: position.Place{Line: 1, Character: 21}},
				Title: "Matches 1 files",
			}},
		},
		{
			name: "no script",
			text: "<p>Astro.glob('./x')</p>\n",
		},
	}

	p := codelens.New(fixture(t))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := snapshottest.Entry(t, nil, "/site/src/pages/index.astro", tt.text)
			got, err := p.Lenses(context.Background(), entry)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLensesAreCountedOncePerVersion(t *testing.T) {
	fs := fixture(t)
	p := codelens.New(fs)
	entry := snapshottest.Entry(t, nil, "/site/src/pages/index.astro", "---\nconst posts = await Astro.glob('../posts/*.md');\n---\n")

	got, err := p.Lenses(context.Background(), entry)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Matches 2 files", got[0].Title)

	require.NoError(t, afero.WriteFile(fs, "/site/src/posts/z.md", []byte("x"), 0o644))

	got, err = p.Lenses(context.Background(), entry)
	require.NoError(t, err)
	assert.Equal(t, "Matches 2 files", got[0].Title, "the count belongs to the version it was computed for")
}
