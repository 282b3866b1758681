// Package enginemock provides a testify mock of engine.Engine.
package enginemock

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/walteh/astrols/pkg/engine"
	"github.com/walteh/astrols/pkg/position"
)

type MockEngine struct {
	mock.Mock
}

var _ engine.Engine = (*MockEngine)(nil)

func (m *MockEngine) Completions(ctx context.Context, doc engine.Document, offset int) ([]engine.Completion, error) {
	args := m.Called(ctx, doc, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]engine.Completion), args.Error(1)
}

func (m *MockEngine) QuickInfo(ctx context.Context, doc engine.Document, offset int) (*engine.QuickInfo, error) {
	args := m.Called(ctx, doc, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*engine.QuickInfo), args.Error(1)
}

func (m *MockEngine) Definition(ctx context.Context, doc engine.Document, offset int) (*engine.Definitions, error) {
	args := m.Called(ctx, doc, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*engine.Definitions), args.Error(1)
}

func (m *MockEngine) InlayHints(ctx context.Context, doc engine.Document, span position.Span) ([]engine.InlayHint, error) {
	args := m.Called(ctx, doc, span)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]engine.InlayHint), args.Error(1)
}

func (m *MockEngine) Diagnostics(ctx context.Context, doc engine.Document) ([]engine.Diagnostic, error) {
	args := m.Called(ctx, doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]engine.Diagnostic), args.Error(1)
}

func (m *MockEngine) Format(ctx context.Context, doc engine.Document, opts engine.FormatOptions) ([]engine.TextEdit, error) {
	args := m.Called(ctx, doc, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]engine.TextEdit), args.Error(1)
}
