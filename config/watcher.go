package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Logf is the minimal logging hook the watcher needs.
type Logf func(format string, args ...any)

// WatchLexicon reloads the lexicon at path into store whenever the file is
// written or replaced. It watches the parent directory so editors that save
// via rename are picked up. Runs until ctx is cancelled.
func WatchLexicon(ctx context.Context, path string, store *LexiconStore, logf Logf) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("lexicon: new watcher: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		_ = watcher.Close()
		return fmt.Errorf("lexicon: resolve %q: %w", path, err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("lexicon: watch %q: %w", filepath.Dir(abs), err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != abs {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				lex, err := LoadLexicon(abs)
				if err != nil {
					logf("[lexicon] reload of %s failed, keeping previous lexicon: %v", abs, err)
					continue
				}
				store.Swap(lex)
				logf("[lexicon] reloaded %s", abs)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logf("[lexicon] watcher error: %v", err)
			}
		}
	}()
	return nil
}
