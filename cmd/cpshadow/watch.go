package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDelay coalesces the bursts of events editors produce on save.
const reloadDelay = 100 * time.Millisecond

// configWatcher reloads a config file whenever it changes on disk.
type configWatcher struct {
	path     string
	watcher  *fsnotify.Watcher
	onChange func(Config)
	log      *slog.Logger

	mu    sync.Mutex
	timer *time.Timer

	done chan struct{}
	wg   sync.WaitGroup
}

// watchConfig starts watching path. onChange runs on the watcher
// goroutine with every successfully loaded config; invalid files are
// logged and skipped.
func watchConfig(path string, log *slog.Logger, onChange func(Config)) (*configWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}
	// Editors replace files on save, so the directory is watched.
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}

	cw := &configWatcher{
		path:     abs,
		watcher:  w,
		onChange: onChange,
		log:      log,
		done:     make(chan struct{}),
	}
	cw.wg.Add(1)
	go cw.run()
	return cw, nil
}

func (cw *configWatcher) run() {
	defer cw.wg.Done()
	for {
		select {
		case <-cw.done:
			return
		case ev, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != cw.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			cw.schedule()
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			cw.log.Warn("config watcher error", "err", err)
		}
	}
}

func (cw *configWatcher) schedule() {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	if cw.timer != nil {
		cw.timer.Stop()
	}
	cw.timer = time.AfterFunc(reloadDelay, cw.reload)
}

func (cw *configWatcher) reload() {
	select {
	case <-cw.done:
		return
	default:
	}
	cfg, err := LoadConfig(cw.path)
	if err != nil {
		cw.log.Warn("config reload failed", "path", cw.path, "err", err)
		return
	}
	cw.log.Info("config reloaded", "path", cw.path)
	cw.onChange(cfg)
}

// Close stops the watcher and waits for its goroutine.
func (cw *configWatcher) Close() error {
	close(cw.done)
	cw.mu.Lock()
	if cw.timer != nil {
		cw.timer.Stop()
	}
	cw.mu.Unlock()
	err := cw.watcher.Close()
	cw.wg.Wait()
	return err
}
