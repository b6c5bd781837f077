package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the config file when it changes on disk.
type Watcher struct {
	watcher *fsnotify.Watcher
	handler func(*Config)
	done    chan struct{}
}

// NewWatcher creates a watcher that calls handler with every successfully
// reloaded config. Editors often replace files instead of writing them, so
// the directory is watched rather than the file.
func NewWatcher(handler func(*Config)) (*Watcher, error) {
	dir := ConfigDir()
	if dir == "" {
		return nil, fmt.Errorf("could not determine config directory")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch config dir: %w", err)
	}

	return &Watcher{
		watcher: fsw,
		handler: handler,
		done:    make(chan struct{}),
	}, nil
}

// Start watches for changes. This blocks until Stop is called.
func (w *Watcher) Start() {
	name := filepath.Base(ConfigPath())
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			// Small delay to ensure file is fully written
			time.Sleep(50 * time.Millisecond)
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Debug("config watcher error", "error", err)
		case <-w.done:
			return
		}
	}
}

// StartAsync starts watching in a background goroutine.
func (w *Watcher) StartAsync() {
	go w.Start()
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	close(w.done)
	w.watcher.Close()
}

func (w *Watcher) reload() {
	cfg, err := Load()
	if err != nil {
		slog.Error("failed to reload config", "path", ConfigPath(), "error", err)
		return
	}
	slog.Info("config reloaded", "path", ConfigPath())
	w.handler(cfg)
}
