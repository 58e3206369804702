package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Holder shares the live configuration between goroutines.
type Holder struct {
	cur atomic.Pointer[Config]
}

// NewHolder returns a Holder holding cfg.
func NewHolder(cfg Config) *Holder {
	h := &Holder{}
	h.Store(cfg)
	return h
}

// Get returns a copy of the current configuration.
func (h *Holder) Get() Config {
	return *h.cur.Load()
}

// Store replaces the current configuration.
func (h *Holder) Store(cfg Config) {
	h.cur.Store(&cfg)
}

// WatchDebounce batches the burst of events an editor produces on save.
const WatchDebounce = 200 * time.Millisecond

// Watch reloads the config file at path into h whenever it changes, until
// ctx is done. A file that fails to load or validate is logged and the
// previous configuration stays in effect. The parent directory is watched so
// editors that replace the file on save are followed.
func Watch(ctx context.Context, path string, h *Holder, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: create watcher: %w", err)
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("config: resolve %s: %w", path, err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("config: watch %s: %w", filepath.Dir(abs), err)
	}

	timer := time.NewTimer(WatchDebounce)
	timer.Stop()
	defer timer.Stop()

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
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				timer.Reset(WatchDebounce)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watch error", zap.Error(err))

		case <-timer.C:
			cfg, err := Load(abs)
			if err != nil {
				logger.Warn("config reload rejected", zap.String("path", abs), zap.Error(err))
				continue
			}
			h.Store(cfg)
			logger.Info("config reloaded", zap.String("path", abs))
		}
	}
}
