package config

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/cisbeo/scorpius-rag/internal/logger"
)

// Watcher reloads the configuration file when it changes on disk and
// hands every valid new Config to the callback. Invalid or unreadable
// versions are logged and skipped, the previous configuration stays in
// effect.
type Watcher struct {
	fw   *fsnotify.Watcher
	path string
	done chan struct{}
}

// Watch starts watching the configuration file at path. The containing
// directory is watched rather than the file itself, since editors and
// atomic writers replace the file instead of rewriting it in place.
func Watch(path string, onChange func(Config)) (*Watcher, error) {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(path), err)
	}

	w := &Watcher{
		fw:   fw,
		path: path,
		done: make(chan struct{}),
	}
	go w.loop(onChange)
	return w, nil
}

func (w *Watcher) loop(onChange func(Config)) {
	for {
		select {
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			cfg, err := Load(w.path)
			if err != nil {
				logger.Warn("Ignoring invalid config change: %v", err)
				continue
			}
			logger.Debug("Configuration reloaded from %s", w.path)
			onChange(cfg)
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			logger.Warn("Config watcher error: %v", err)
		case <-w.done:
			return
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fw.Close()
}
