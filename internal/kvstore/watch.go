package kvstore

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/exp/slog"
)

// Watcher broadcasts a signal whenever another process rewrites the store
// file. It is the portable replacement for listening to another window's
// storage events: a passive notification, no write coordination.
type Watcher struct {
	path    string
	log     *slog.Logger
	watcher *fsnotify.Watcher
	events  chan struct{}
}

// NewWatcher watches the directory containing path for writes to path. The
// directory is watched rather than the file itself because atomic
// rename-replace swaps the inode out from under a file watch.
func NewWatcher(path string, log *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fs watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch store dir: %w", err)
	}
	return &Watcher{
		path:    path,
		log:     log.With("component", "kv_watcher"),
		watcher: fsw,
		events:  make(chan struct{}, 1),
	}, nil
}

// Events delivers one signal per observed external change. The channel is
// never closed while Run is active; signals are coalesced, not queued.
func (w *Watcher) Events() <-chan struct{} {
	return w.events
}

// Run pumps filesystem events until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	defer w.watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Name != w.path {
				continue
			}
			if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Rename) {
				continue
			}
			select {
			case w.events <- struct{}{}:
			default:
				// A signal is already pending; coalesce.
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("store file watch error", "error", err)
		}
	}
}
