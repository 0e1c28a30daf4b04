package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/blackspinne/lovable-cpannel/internal/logfields"
)

// ReloadFunc receives a freshly loaded configuration.
type ReloadFunc func(*Config)

// Watcher reloads the configuration file when it changes on disk.
type Watcher struct {
	configPath string
	onReload   ReloadFunc
	watcher    *fsnotify.Watcher
	debounce   time.Duration

	stopOnce sync.Once
	stopChan chan struct{}
	reload   chan struct{}
	done     sync.WaitGroup
}

// NewWatcher creates a watcher for configPath.
func NewWatcher(configPath string, debounce time.Duration, onReload ReloadFunc) (*Watcher, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	return &Watcher{
		configPath: absPath,
		onReload:   onReload,
		watcher:    fw,
		debounce:   debounce,
		stopChan:   make(chan struct{}),
		reload:     make(chan struct{}, 1),
	}, nil
}

// Start watches the directory containing the file, which survives editors
// that replace the file on save.
func (w *Watcher) Start(ctx context.Context) error {
	dir := filepath.Dir(w.configPath)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch config directory %s: %w", dir, err)
	}
	slog.Info("Starting configuration watcher", logfields.Path(w.configPath))

	w.done.Add(2)
	go w.watchLoop(ctx)
	go w.reloadLoop(ctx)
	return nil
}

// Stop ends watching. It is safe to call more than once.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stopChan)
		err = w.watcher.Close()
		w.done.Wait()
	})
	return err
}

func (w *Watcher) watchLoop(ctx context.Context) {
	defer w.done.Done()
	name := filepath.Base(w.configPath)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != name {
				continue
			}
			switch {
			case ev.Has(fsnotify.Write), ev.Has(fsnotify.Create), ev.Has(fsnotify.Rename):
				slog.Debug("Config file change detected", logfields.File(ev.Name), slog.String("op", ev.Op.String()))
				w.trigger()
			case ev.Has(fsnotify.Remove):
				slog.Warn("Config file removed", logfields.File(ev.Name))
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("Config watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) reloadLoop(ctx context.Context) {
	defer w.done.Done()
	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			if timer != nil {
				timer.Stop()
			}
			return
		case <-w.reload:
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.debounce)
			fire = timer.C
		case <-fire:
			fire = nil
			w.apply()
		}
	}
}

func (w *Watcher) trigger() {
	select {
	case w.reload <- struct{}{}:
	default:
	}
}

func (w *Watcher) apply() {
	cfg, err := Load(w.configPath)
	if err != nil {
		slog.Error("Failed to reload configuration", logfields.Path(w.configPath), logfields.Error(err))
		return
	}
	slog.Info("Configuration reloaded", logfields.Path(w.configPath))
	if w.onReload != nil {
		w.onReload(cfg)
	}
}
