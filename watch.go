package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/chazu/holefind/pkg/logging"
	"github.com/fsnotify/fsnotify"
)

// debounce batches the burst of events an editor save produces.
const debounce = 100 * time.Millisecond

// watchModel calls run once, then again after every change to path until
// ctx is done. The parent directory is watched so that editors replacing
// the file by rename are seen.
func watchModel(ctx context.Context, path string, run func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}
	logging.Info("watching model", "path", abs)

	run()

	timer := time.NewTimer(debounce)
	timer.Stop()
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
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Warn("watch error", "error", err)

		case <-timer.C:
			logging.Info("model changed", "path", abs)
			run()
		}
	}
}
