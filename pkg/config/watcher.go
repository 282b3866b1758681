package config

import (
	"context"
	"path"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
)

const reloadDebounce = 100 * time.Millisecond

// Watcher holds the current workspace and replaces it whenever a config file in the root changes.
// Readers always see a complete workspace.
type Watcher struct {
	fs      afero.Fs
	root    string
	current atomic.Pointer[Workspace]

	initMu sync.Mutex
	init   *File

	onReload func(*Workspace)

	timerMu sync.Mutex
	timer   *time.Timer
}

// NewWatcher loads the workspace once. Call Run to follow changes. When the config does not load the
// error is returned together with a watcher holding the defaults, so a later fix is still picked up.
func NewWatcher(fs afero.Fs, root string, init *File, onReload func(*Workspace)) (*Watcher, error) {
	w := &Watcher{fs: fs, root: root, init: init, onReload: onReload}

	ws, err := Load(fs, root, init)
	if err != nil {
		w.current.Store(New(fs, root, &File{}))
		return w, err
	}
	w.current.Store(ws)
	return w, nil
}

func (me *Watcher) Current() *Workspace {
	return me.current.Load()
}

// SetInit replaces the client supplied options and reloads.
func (me *Watcher) SetInit(ctx context.Context, init *File) error {
	me.initMu.Lock()
	me.init = init
	me.initMu.Unlock()
	return me.Reload(ctx)
}

// Reload reads the config again. A config that does not load leaves the current workspace in place.
func (me *Watcher) Reload(ctx context.Context) error {
	me.initMu.Lock()
	init := me.init
	me.initMu.Unlock()

	ws, err := Load(me.fs, me.root, init)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("root", me.root).Msg("keeping previous configuration")
		return err
	}

	me.current.Store(ws)
	zerolog.Ctx(ctx).Info().Str("workspace", ws.String()).Msg("configuration loaded")

	if me.onReload != nil {
		me.onReload(ws)
	}
	return nil
}

// Run watches the workspace root until ctx is done.
func (me *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Errorf("creating config watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(me.root); err != nil {
		return errors.Errorf("watching %s: %w", me.root, err)
	}

	zerolog.Ctx(ctx).Debug().Str("root", me.root).Msg("watching configuration")

	for {
		select {
		case <-ctx.Done():
			me.timerMu.Lock()
			if me.timer != nil {
				me.timer.Stop()
			}
			me.timerMu.Unlock()
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !slices.Contains(FileNames, path.Base(event.Name)) {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			me.debounce(ctx)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			zerolog.Ctx(ctx).Warn().Err(err).Msg("config watcher error")
		}
	}
}

func (me *Watcher) debounce(ctx context.Context) {
	me.timerMu.Lock()
	defer me.timerMu.Unlock()

	if me.timer != nil {
		me.timer.Stop()
	}
	me.timer = time.AfterFunc(reloadDebounce, func() {
		_ = me.Reload(ctx)
	})
}
