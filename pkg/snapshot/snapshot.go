// Package snapshot caches the virtual codes built for each open document, one version at a time.
package snapshot

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/walteh/astrols/pkg/position"
	"github.com/walteh/astrols/pkg/virtualcode"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/singleflight"
)

// ErrSuperseded is returned for a version older than the one already cached.
var ErrSuperseded = errors.Base("document version superseded")

// BuildFunc produces the codes for one version. prev is the newest result cached for the document, if
// any, so the builder can reuse unchanged codes.
type BuildFunc func(ctx context.Context, prev *virtualcode.Result) (*virtualcode.Result, error)

// Entry is the cached build of one document version. Entries are never mutated after install, except
// for the memo table.
type Entry struct {
	URI     string
	Version int32
	Result  *virtualcode.Result

	memoMu sync.Mutex
	memo   map[string]any

	indexOnce sync.Once
	index     *position.Index
}

// Index is the line index of the source text, computed on first use.
func (me *Entry) Index() *position.Index {
	me.indexOnce.Do(func() {
		me.index = position.NewIndex(me.Result.Source.Text)
	})
	return me.index
}

type Cache struct {
	mu      sync.Mutex
	entries map[string]*Entry
	flights singleflight.Group
}

func NewCache() *Cache {
	return &Cache{entries: make(map[string]*Entry)}
}

// GetOrBuild returns the entry for (uri, version), building it if needed. Concurrent callers for the
// same version share one build. A successful build replaces any older version; a failed one leaves the
// cache untouched so the next call retries.
func (me *Cache) GetOrBuild(ctx context.Context, uri string, version int32, build BuildFunc) (*Entry, error) {
	me.mu.Lock()
	cur := me.entries[uri]
	me.mu.Unlock()

	var prev *virtualcode.Result
	if cur != nil {
		switch {
		case cur.Version == version:
			return cur, nil
		case cur.Version > version:
			return nil, errors.Errorf("%s@%d (have %d): %w", uri, version, cur.Version, ErrSuperseded)
		}
		prev = cur.Result
	}

	key := fmt.Sprintf("%s@%d", uri, version)
	ch := me.flights.DoChan(key, func() (any, error) {
		// an earlier flight for this version may have installed and finished since cur was read
		if e, err := me.installed(uri, version); e != nil || err != nil {
			return e, err
		}
		// the build outlives any one caller's cancellation since others may be waiting on it
		res, err := build(context.WithoutCancel(ctx), prev)
		if err != nil {
			return nil, err
		}
		return me.install(ctx, uri, version, res)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*Entry), nil
	}
}

// installed returns the entry for version when it is already cached, or ErrSuperseded when a newer one
// is.
func (me *Cache) installed(uri string, version int32) (*Entry, error) {
	me.mu.Lock()
	defer me.mu.Unlock()

	cur := me.entries[uri]
	switch {
	case cur == nil || cur.Version < version:
		return nil, nil
	case cur.Version > version:
		return nil, errors.Errorf("%s@%d (have %d): %w", uri, version, cur.Version, ErrSuperseded)
	default:
		return cur, nil
	}
}

func (me *Cache) install(ctx context.Context, uri string, version int32, res *virtualcode.Result) (*Entry, error) {
	me.mu.Lock()
	defer me.mu.Unlock()

	cur := me.entries[uri]
	if cur != nil {
		switch {
		case cur.Version > version:
			return nil, errors.Errorf("%s@%d (have %d): %w", uri, version, cur.Version, ErrSuperseded)
		case cur.Version == version:
			// keep the installed entry and its memo
			return cur, nil
		}
	}

	e := &Entry{URI: uri, Version: version, Result: res}
	me.entries[uri] = e

	if cur != nil {
		zerolog.Ctx(ctx).Trace().
			Str("uri", uri).
			Int32("evicted", cur.Version).
			Int32("installed", version).
			Msg("snapshot replaced")
	}

	return e, nil
}

// Latest returns the newest entry for uri.
func (me *Cache) Latest(uri string) (*Entry, bool) {
	me.mu.Lock()
	defer me.mu.Unlock()
	e, ok := me.entries[uri]
	return e, ok
}

// Evict drops everything cached for uri.
func (me *Cache) Evict(uri string) {
	me.mu.Lock()
	defer me.mu.Unlock()
	delete(me.entries, uri)
}

func (me *Cache) Len() int {
	me.mu.Lock()
	defer me.mu.Unlock()
	return len(me.entries)
}

// Memo returns the value computed by fn for tag on this entry, computing it at most once per entry.
// Errors are not remembered.
func Memo[T any](e *Entry, tag string, fn func() (T, error)) (T, error) {
	e.memoMu.Lock()
	defer e.memoMu.Unlock()

	if v, ok := e.memo[tag]; ok {
		return v.(T), nil
	}

	v, err := fn()
	if err != nil {
		return v, err
	}

	if e.memo == nil {
		e.memo = make(map[string]any)
	}
	e.memo[tag] = v
	return v, nil
}
