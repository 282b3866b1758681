package lsp

import (
	"path/filepath"
	"strings"
	"sync"

	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
)

// Document is an open document as the client last described it. Documents are replaced, never mutated,
// so a *Document read from the manager is a consistent version.
type Document struct {
	URI        protocol.DocumentURI
	Path       string
	LanguageID protocol.LanguageIdentifier
	Version    int32
	Content    string
}

// DocumentManager handles document operations
type DocumentManager struct {
	store *sync.Map // map[string]*Document
}

func NewDocumentManager() *DocumentManager {
	return &DocumentManager{
		store: &sync.Map{},
	}
}

func (m *DocumentManager) Get(u protocol.DocumentURI) (*Document, bool) {
	content, ok := m.store.Load(normalizeURI(u))
	if !ok {
		return nil, false
	}
	return content.(*Document), true
}

func (m *DocumentManager) Store(doc *Document) {
	m.store.Store(normalizeURI(doc.URI), doc)
}

func (m *DocumentManager) Delete(u protocol.DocumentURI) {
	m.store.Delete(normalizeURI(u))
}

// All returns every open document.
func (m *DocumentManager) All() []*Document {
	var out []*Document
	m.store.Range(func(_, v any) bool {
		out = append(out, v.(*Document))
		return true
	})
	return out
}

// normalizeURI gives the key a document is stored under, so that differently escaped forms of the same
// file URI agree.
func normalizeURI(u protocol.DocumentURI) string {
	if p, ok := uriToPath(u); ok {
		return uri.FileScheme + "://" + p
	}
	return string(u)
}

// uriToPath converts a file URI to a slash separated path. ok is false for other schemes.
func uriToPath(u protocol.DocumentURI) (string, bool) {
	if !strings.HasPrefix(string(u), uri.FileScheme+"://") {
		return "", false
	}
	// Filename panics on what Parse rejects
	if _, err := uri.Parse(string(u)); err != nil {
		return "", false
	}
	return filepath.ToSlash(u.Filename()), true
}

func pathToURI(p string) protocol.DocumentURI {
	return uri.File(filepath.FromSlash(p))
}
