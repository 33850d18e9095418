package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/Digital-Shane/batch-mover/internal/logger"
	"github.com/fsnotify/fsnotify"
)

// debounceDelay collapses the burst of events an editor produces on save.
const debounceDelay = 150 * time.Millisecond

// Watcher reloads a config file when it changes on disk.
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	onChange func(*Config, error)

	mu       sync.Mutex
	debounce *time.Timer
	done     chan struct{}
	stopOnce sync.Once
}

// Watch calls onChange with the freshly loaded config after each change to
// path. The parent directory is watched because editors often replace the
// file rather than write to it.
func Watch(path string, onChange func(*Config, error)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		watcher:  fsw,
		path:     filepath.Clean(path),
		onChange: onChange,
		done:     make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.scheduleReload()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Get().Warn().Err(err).Str("path", w.path).Msg("config watcher error")

		case <-w.done:
			return
		}
	}
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(debounceDelay, func() {
		cfg, err := LoadFile(w.path)
		if err != nil {
			logger.Get().Warn().Err(err).Str("path", w.path).Msg("config reload failed")
		} else {
			logger.Get().Info().Str("path", w.path).Msg("config reloaded")
		}
		if w.onChange != nil {
			w.onChange(cfg, err)
		}
	})
}

// Stop closes the watcher. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.watcher.Close()

		w.mu.Lock()
		if w.debounce != nil {
			w.debounce.Stop()
		}
		w.mu.Unlock()
	})
}
