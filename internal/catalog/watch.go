package catalog

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch reloads reg whenever the catalog file at path is written or replaced.
// A file that fails to parse or validate is logged and the previous cards stay
// in place. Watch blocks until ctx is done.
func Watch(ctx context.Context, path string, reg *Registry, logger *zap.Logger) (err error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() {
		if closeErr := watcher.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	// Watch the directory so editors that rename-over the file are still seen.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch catalog directory: %w", err)
	}
	target := filepath.Clean(path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			cards, loadErr := LoadFile(path)
			if loadErr == nil {
				loadErr = reg.Replace(cards)
			}
			if loadErr != nil {
				logger.Warn("catalog reload failed", zap.String("path", path), zap.Error(loadErr))
				continue
			}
			logger.Info("catalog reloaded", zap.String("path", path), zap.Int("cards", len(cards)))
		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("catalog watcher error", zap.Error(watchErr))
		}
	}
}
