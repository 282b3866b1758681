package completion_test

import (
	"context"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/walteh/astrols/pkg/completion"
	"github.com/walteh/astrols/pkg/completion/providers"
	"github.com/walteh/astrols/pkg/engine"
	"github.com/walteh/astrols/pkg/engine/enginemock"
	"github.com/walteh/astrols/pkg/engine/lexical"
	"github.com/walteh/astrols/pkg/position"
	"github.com/walteh/astrols/pkg/snapshot/snapshottest"
	"gitlab.com/tozd/go/errors"
)

func TestFrontmatterSnippet(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		at         position.Place
		wantNone   bool
		wantInsert string
		wantDetail string
		wantEdit   *providers.Edit
	}{
		{
			name:       "no block yet",
			text:       "<div />\n",
			at:         position.Place{Line: 0, Character: 0},
			wantInsert: "---\n$0\n---",
			wantDetail: "Create component script block",
		},
		{
			name:       "dashes typed on an empty file",
			text:       "--",
			at:         position.Place{Line: 0, Character: 2},
			wantInsert: "---\n$0\n---",
			wantDetail: "Create component script block",
			wantEdit: &providers.Edit{
				Range:   position.Range{End: position.Place{Character: 2}},
				NewText: "---\n$0\n---",
			},
		},
		{
			name:       "open block is closed",
			text:       "---\nconst a = 1;\n-",
			at:         position.Place{Line: 2, Character: 1},
			wantInsert: "---",
			wantDetail: "Close component script block",
			wantEdit: &providers.Edit{
				Range:   position.Range{Start: position.Place{Line: 2}, End: position.Place{Line: 2, Character: 1}},
				NewText: "---",
			},
		},
		{
			name:       "opening line alone gets the whole block",
			text:       "---",
			at:         position.Place{Line: 0, Character: 3},
			wantInsert: "---\n$0\n---",
			wantDetail: "Close component script block",
			wantEdit: &providers.Edit{
				Range:   position.Range{End: position.Place{Character: 3}},
				NewText: "---\n$0\n---",
			},
		},
		{
			name:     "closed block offers nothing",
			text:     "---\nconst a = 1;\n---\n-",
			at:       position.Place{Line: 3, Character: 1},
			wantNone: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := snapshottest.Entry(t, nil, "/src/pages/index.astro", tt.text)
			list, err := completion.New(lexical.New()).Complete(context.Background(), entry, tt.at, completion.TriggerDash)
			require.NoError(t, err)
			require.NotNil(t, list)

			if tt.wantNone {
				assert.Empty(t, list.Items)
				return
			}

			require.Len(t, list.Items, 1)
			item := list.Items[0]
			assert.Equal(t, "---", item.Label)
			assert.Equal(t, tt.wantInsert, item.InsertText)
			assert.Equal(t, tt.wantDetail, item.Detail)
			assert.Equal(t, "\x00", item.SortText)
			assert.True(t, item.Snippet)
			assert.True(t, item.Preselect)
			assert.NotNil(t, item.CommitCharacters)
			assert.Equal(t, tt.wantEdit, item.Edit)
		})
	}
}

func TestSnippetOnlyForComponents(t *testing.T) {
	entry := snapshottest.Entry(t, nil, "/src/content/post.md", "--")
	list, err := completion.New(lexical.New()).Complete(context.Background(), entry, position.Place{Character: 2}, completion.TriggerDash)
	require.NoError(t, err)
	assert.Empty(t, list.Items)
}

func TestEngineCompletionsInExpression(t *testing.T) {
	text := "---\nconst title = 'hi';\n---\n<h1>{ti}</h1>\n"
	entry := snapshottest.Entry(t, nil, "/src/pages/index.astro", text)

	list, err := completion.New(lexical.New()).Complete(context.Background(), entry, position.Place{Line: 3, Character: 7}, "")
	require.NoError(t, err)
	require.NotEmpty(t, list.Items)

	item := list.Items[0]
	assert.Equal(t, "title", item.Label)
	assert.Equal(t, "variable", item.Kind)
	require.NotNil(t, item.Edit)
	assert.Equal(t, position.Range{
		Start: position.Place{Line: 3, Character: 5},
		End:   position.Place{Line: 3, Character: 7},
	}, item.Edit.Range)
}

func TestNoEngineCompletionsInMarkup(t *testing.T) {
	eng := &enginemock.MockEngine{}
	entry := snapshottest.Entry(t, nil, "/src/pages/index.astro", "---\n---\n<p>hello</p>\n")

	list, err := completion.New(eng).Complete(context.Background(), entry, position.Place{Line: 2, Character: 5}, "")
	require.NoError(t, err)
	assert.Empty(t, list.Items)
	eng.AssertNotCalled(t, "Completions", mock.Anything, mock.Anything, mock.Anything)
}

func TestComponentProps(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/src/components/Card.astro", []byte(strings.Join([]string{
		"---",
		"interface Props {",
		"  title: string;",
		"  draft?: boolean;",
		"  tags?: string[];",
		"}",
		"const { title } = Astro.props;",
		"---",
		"<h2>{title}</h2>",
		"",
	}, "\n")), 0o644))

	text := "---\nimport Card from '../components/Card.astro';\n---\n<Card  />\n"
	entry := snapshottest.Entry(t, nil, "/src/pages/index.astro", text)

	p := completion.New(lexical.New(), completion.WithFs(fs))
	list, err := p.Complete(context.Background(), entry, position.Place{Line: 3, Character: 6}, "")
	require.NoError(t, err)

	byLabel := map[string]providers.Item{}
	for _, it := range list.Items {
		byLabel[it.Label] = it
	}

	require.Contains(t, byLabel, "title")
	assert.Equal(t, `title="$1"`, byLabel["title"].InsertText)
	assert.Equal(t, "string (required)", byLabel["title"].Detail)
	assert.Equal(t, "_title", byLabel["title"].SortText)

	require.Contains(t, byLabel, "draft")
	assert.Equal(t, "draft", byLabel["draft"].InsertText)
	assert.False(t, byLabel["draft"].Snippet)

	require.Contains(t, byLabel, "tags")
	assert.Equal(t, "tags={$1}", byLabel["tags"].InsertText)

	list, err = p.Complete(context.Background(), entry, position.Place{Line: 3, Character: 1}, "")
	require.NoError(t, err)
	assert.NotContains(t, labels(list.Items), "title", "the tag name itself is not an attribute position")
}

func labels(items []providers.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Label)
	}
	return out
}

func TestNewTagContext(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		offset int
		want   string
	}{
		{name: "after tag name", markup: "<Card  />", offset: 6, want: "Card"},
		{name: "after attribute", markup: `<Card title="a" />`, offset: 16, want: "Card"},
		{name: "namespaced", markup: "<UI.Button x", offset: 12, want: "UI.Button"},
		{name: "inside tag name", markup: "<Card />", offset: 3},
		{name: "html element", markup: "<div  />", offset: 5},
		{name: "after the tag closed", markup: "<Card /> x", offset: 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc, ok := completion.NewTagContext(tt.markup, tt.offset)
			if tt.want == "" {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.want, tc.Tag)
			assert.Equal(t, 0, tc.Start)
		})
	}
}

func TestCancelledCompletionIsNotRemembered(t *testing.T) {
	text := "---\nconst title = 'hi';\n---\n<h1>{ti}</h1>\n"
	entry := snapshottest.Entry(t, nil, "/src/pages/index.astro", text)
	at := position.Place{Line: 3, Character: 7}

	ctx, cancel := context.WithCancel(context.Background())
	eng := &enginemock.MockEngine{}
	eng.On("Completions", mock.Anything, mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return([]engine.Completion{{Label: "stale"}}, nil).Once()

	list, err := completion.New(eng).Complete(ctx, entry, at, "")
	require.NoError(t, err)
	assert.Nil(t, list)

	eng.On("Completions", mock.Anything, mock.Anything, mock.Anything).
		Return([]engine.Completion{{Label: "title", Replace: position.Span{Start: 0, End: 0}}}, nil).Once()

	p := completion.New(eng)
	list, err = p.Complete(context.Background(), entry, at, "")
	require.NoError(t, err)
	require.NotNil(t, list)
	assert.Equal(t, []string{"title"}, labels(list.Items))

	// answered from the entry without asking the engine again
	list, err = p.Complete(context.Background(), entry, at, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"title"}, labels(list.Items))
	eng.AssertExpectations(t)
}

func TestEngineFailureIsNotFatal(t *testing.T) {
	text := "---\nconst title = 'hi';\n---\n<h1>{ti}</h1>\n"
	entry := snapshottest.Entry(t, nil, "/src/pages/index.astro", text)

	eng := &enginemock.MockEngine{}
	eng.On("Completions", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("engine crashed"))

	list, err := completion.New(eng).Complete(context.Background(), entry, position.Place{Line: 3, Character: 7}, "")
	require.NoError(t, err)
	require.NotNil(t, list)
	assert.Empty(t, list.Items)
}
