package diagnostic_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/walteh/astrols/pkg/diagnostic"
	"github.com/walteh/astrols/pkg/engine"
	"github.com/walteh/astrols/pkg/engine/enginemock"
	"github.com/walteh/astrols/pkg/engine/lexical"
	"github.com/walteh/astrols/pkg/position"
	"github.com/walteh/astrols/pkg/snapshot/snapshottest"
	"github.com/walteh/astrols/pkg/virtualcode"
	"gitlab.com/tozd/go/errors"
)

func rng(sl, sc, el, ec int) position.Range {
	return position.Range{
		Start: position.Place{Line: sl, Character: sc},
		End:   position.Place{Line: el, Character: ec},
	}
}

func TestDefaultGenerator_Generate(t *testing.T) {
	tests := []struct {
		name string
		path string
		text string
		want []diagnostic.Diagnostic
	}{
		{
			name: "valid component",
			path: "/src/pages/index.astro",
			text: "---\nconst a = 1;\n---\n<p>{a}</p>\n",
			want: nil,
		},
		{
			name: "engine problems are translated and merged across codes",
			path: "/src/pages/index.astro",
			text: "---\nconst a = 1;\nconst a = 2;\n---\n<Missing />\n",
			want: []diagnostic.Diagnostic{
				{Range: rng(1, 6, 1, 7), Severity: diagnostic.Error, Code: "2451", Message: "Cannot redeclare block-scoped variable 'a'.", Source: "ts"},
				{Range: rng(2, 6, 2, 7), Severity: diagnostic.Error, Code: "2451", Message: "Cannot redeclare block-scoped variable 'a'.", Source: "ts"},
				{Range: rng(4, 1, 4, 8), Severity: diagnostic.Error, Code: "2304", Message: "Cannot find name 'Missing'.", Source: "ts"},
			},
		},
		{
			name: "components in comments are not checked",
			path: "/src/pages/index.astro",
			text: "---\nconst a = 1;\n---\n<!-- <Card /> -->\n<p>{a}</p>\n",
			want: nil,
		},
		{
			name: "unclosed script block carries its hint",
			path: "/src/pages/index.astro",
			text: "---\nconst a = 1;\n",
			want: []diagnostic.Diagnostic{
				{
					Range:    rng(0, 0, 0, 3),
					Severity: diagnostic.Warning,
					Code:     virtualcode.CodeUnclosedFrontmatter,
					Message:  "The component script block is never closed.\n\nAdd a `---` line after the last line of script.",
					Source:   diagnostic.Source,
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := snapshottest.Entry(t, nil, tt.path, tt.text)
			got, err := diagnostic.NewDefaultGenerator(lexical.New()).Generate(context.Background(), entry)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, tt.path, got.URI)
			assert.Equal(t, tt.want, got.Items)
		})
	}
}

type collections map[string]virtualcode.Collection

func (me collections) CollectionFor(path string) (virtualcode.Collection, bool) {
	c, ok := me[path]
	return c, ok
}

func TestMissingCollectionFrontmatter(t *testing.T) {
	b := virtualcode.NewBuilder(virtualcode.WithCollections(collections{
		"/src/content/blog/post.md": {Name: "blog", HasSchema: true},
	}))
	entry := snapshottest.Entry(t, b, "/src/content/blog/post.md", "# Hello\n")

	got, err := diagnostic.NewDefaultGenerator(lexical.New()).Generate(context.Background(), entry)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)

	d := got.Items[0]
	assert.Equal(t, position.Range{}, d.Range)
	assert.Equal(t, virtualcode.CodeMissingFrontmatter, d.Code)
	assert.Equal(t, 1, got.Count(diagnostic.Error))
	assert.True(t, strings.HasSuffix(d.Message, "\n\nStart the file with a `---` block describing the entry."))
}

func isHostScript(doc engine.Document) bool {
	return strings.HasSuffix(doc.FileName, ".tsx")
}

func TestVerificationGate(t *testing.T) {
	text := "---\nconst a = 1;\n---\n<p>{a.</p>\n"
	entry := snapshottest.Entry(t, nil, "/src/pages/index.astro", text)

	tsx, ok := entry.Result.Code(virtualcode.IDExpression)
	require.True(t, ok)
	open := strings.Index(tsx.Text, "(a.") + 1
	boiler := strings.Index(tsx.Text, "declare const Fragment")
	decl := strings.Index(tsx.Text, "a = 1")

	eng := &enginemock.MockEngine{}
	eng.On("Diagnostics", mock.Anything, mock.MatchedBy(isHostScript)).Return([]engine.Diagnostic{
		{Span: position.NewSpan(open, 2), Severity: engine.SeverityError, Code: "1003", Message: "Identifier expected.", Source: "ts"},
		{Span: position.NewSpan(boiler, 7), Severity: engine.SeverityWarning, Code: "6133", Message: "unused", Source: "ts"},
		{Span: position.Span{Start: decl, End: boiler + 7}, Severity: engine.SeverityError, Code: "2300", Message: "spills", Source: "ts"},
	}, nil)
	eng.On("Diagnostics", mock.Anything, mock.Anything).Return(nil, nil)

	got, err := diagnostic.NewDefaultGenerator(eng).Generate(context.Background(), entry)
	require.NoError(t, err)

	var codes []string
	for _, d := range got.Items {
		codes = append(codes, d.Code)
		if d.Code == "2300" {
			assert.Equal(t, position.Range{}, d.Range, "a range leaving the script collapses to the start of the file")
		}
	}
	assert.NotContains(t, codes, "1003", "the half typed expression is reported by the builder only")
	assert.NotContains(t, codes, "6133", "generated-only text is never reported")
	assert.Contains(t, codes, "2300")
	assert.Contains(t, codes, virtualcode.CodeUnclosedExpression)
}

func TestEngineFailureKeepsBuilderDiagnostics(t *testing.T) {
	entry := snapshottest.Entry(t, nil, "/src/pages/index.astro", "---\nconst a = 1;\n")

	eng := &enginemock.MockEngine{}
	eng.On("Diagnostics", mock.Anything, mock.Anything).Return(nil, errors.New("engine unavailable"))

	got, err := diagnostic.NewDefaultGenerator(eng).Generate(context.Background(), entry)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, virtualcode.CodeUnclosedFrontmatter, got.Items[0].Code)
}

func TestGenerateCancelled(t *testing.T) {
	entry := snapshottest.Entry(t, nil, "/src/pages/index.astro", "---\nconst a = 1;\n---\n")

	ctx, cancel := context.WithCancel(context.Background())
	eng := &enginemock.MockEngine{}
	eng.On("Diagnostics", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return(nil, nil)

	got, err := diagnostic.NewDefaultGenerator(eng).Generate(ctx, entry)
	require.NoError(t, err)
	assert.Nil(t, got)
}
