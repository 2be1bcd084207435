package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces the burst of events editors emit on save
const watchDebounce = 300 * time.Millisecond

// watch runs the report once, then again after every change to the input file.
// The parent directory is watched so atomic rename-on-save is picked up too.
func (a *app) watch(ctx context.Context) error {
	_, path := a.inputPath()
	if path == "" {
		return fmt.Errorf("--watch needs an input file")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}

	a.runOnce(ctx)

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				debounce = time.After(watchDebounce)
			}

		case <-debounce:
			debounce = nil
			a.log.Info().Str("file", abs).Msg("input changed, re-running report")
			a.runOnce(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			a.log.Warn().Err(err).Msg("watcher error")
		}
	}
}

// runOnce runs the report and reports failures without ending the watch
func (a *app) runOnce(ctx context.Context) {
	if a.params.Out == "" && a.params.Output == "table" {
		fmt.Print("\033[H\033[2J")
	}
	if err := a.run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
}
