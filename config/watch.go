package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/hupe1980/streambridge/logging"
)

// Writes arriving closer together than this collapse into one reload.
// Editors and config management tools often emit several events per save.
const watchDebounce = 250 * time.Millisecond

// Watch reloads the configuration file whenever it changes on disk and hands
// each successfully loaded snapshot to onChange. Reload failures are logged
// and the previous configuration stays in effect. The parent directory is
// watched rather than the file itself so atomic replace-style saves are
// picked up. The returned stop function releases the watcher.
func Watch(path string, logger logging.Logger, onChange func(*Config)) (func() error, error) {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	w := &fileWatcher{
		watcher:  watcher,
		path:     abs,
		logger:   logger,
		onChange: onChange,
	}
	go w.run()

	return w.stop, nil
}

type fileWatcher struct {
	watcher  *fsnotify.Watcher
	path     string
	logger   logging.Logger
	onChange func(*Config)

	mu    sync.Mutex
	timer *time.Timer
}

func (w *fileWatcher) run() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.logger.Debug("Config file changed", "path", event.Name, "op", event.Op.String())
			w.schedule()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Config watcher error", "error", err)
		}
	}
}

// schedule arms the debounce timer, replacing any pending one.
func (w *fileWatcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(watchDebounce, w.reload)
}

func (w *fileWatcher) reload() {
	w.mu.Lock()
	w.timer = nil
	w.mu.Unlock()

	cfg, err := Load(w.path)
	if err != nil {
		w.logger.Warn("Config reload failed", "path", w.path, "error", err)
		return
	}
	w.logger.Info("Config reloaded", "path", w.path)
	w.onChange(cfg)
}

func (w *fileWatcher) stop() error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()
	return w.watcher.Close()
}
