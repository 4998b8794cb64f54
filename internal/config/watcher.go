package config

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a config file whenever it changes on disk and delivers
// each valid reload on Updates. Invalid reloads are logged and skipped so a
// half-saved file never replaces a working config.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher
	updates chan *SessionConfig
	logf    func(format string, v ...interface{})
}

// NewWatcher watches path. The file's directory is watched rather than the
// file itself because editors commonly save by rename.
func NewWatcher(path string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	clean := filepath.Clean(path)
	if err := fw.Add(filepath.Dir(clean)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(clean), err)
	}
	return &Watcher{
		path:    clean,
		watcher: fw,
		updates: make(chan *SessionConfig, 1),
		logf:    log.Printf,
	}, nil
}

// Updates delivers reloaded configs. It is closed when Run returns.
func (w *Watcher) Updates() <-chan *SessionConfig { return w.updates }

// Run processes file events until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.updates)
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			cfg, err := Load(w.path)
			if err != nil {
				w.logf("[config] reload %s skipped: %v", w.path, err)
				continue
			}
			// Keep only the newest config if the reader is behind.
			select {
			case <-w.updates:
			default:
			}
			w.updates <- cfg
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logf("[config] watch error: %v", err)
		}
	}
}
