package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchAndRun runs the script once, then re-runs it on every change
// until interrupted. Each run gets a fresh runtime so globals and
// registered state never leak between revisions.
func watchAndRun(cfg *Config, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors often replace the file, which
	// swaps its inode and would silently detach a file-level watch.
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	runOnce := func() {
		if err := runFile(cfg, path); err != nil {
			printScriptError(err)
		}
	}

	fmt.Fprintf(os.Stderr, "[watch] %s\n", path)
	runOnce()

	debounce := time.Duration(cfg.Watch.DebounceMS) * time.Millisecond
	var lastRun time.Time

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if filepath.Base(event.Name) != filepath.Base(path) {
				continue
			}
			if time.Since(lastRun) < debounce {
				continue
			}
			lastRun = time.Now()

			fmt.Fprintf(os.Stderr, "[watch] changed: %s\n", event.Name)
			runOnce()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "[watch] error: %v\n", err)
		}
	}
}
