package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/felixgeelhaar/geo-mcp/domain/config"
)

// Watcher reloads a configuration file whenever it changes on disk.
type Watcher struct {
	path     string
	loader   *Loader
	onChange func(*config.ServerConfig)
	onError  func(error)
}

// NewWatcher creates a watcher for path. onChange receives every
// successfully reloaded configuration; onError receives load failures.
func NewWatcher(path string, loader *Loader, onChange func(*config.ServerConfig), onError func(error)) *Watcher {
	if onError == nil {
		onError = func(error) {}
	}
	return &Watcher{path: path, loader: loader, onChange: onChange, onError: onError}
}

// Run watches until ctx is cancelled. The parent directory is watched so
// editors that replace the file atomically are still observed.
func (w *Watcher) Run(ctx context.Context) error {
	abs, err := filepath.Abs(w.path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", abs, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			cfg, err := w.loader.LoadFile(abs)
			if err != nil {
				w.onError(err)
				continue
			}
			w.onChange(cfg)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.onError(err)
		}
	}
}
