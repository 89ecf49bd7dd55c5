package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 100 * time.Millisecond

// runWatch generates the stub, then regenerates it after changes to PHP
// sources or the manifest until ctx is cancelled.
func runWatch(ctx context.Context, c *CommandContext, target outputTarget) error {
	if _, err := generate(ctx, c, target); err != nil {
		return fmt.Errorf("initial generation failed: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watchTree(watcher, c.Cfg.ProjectRoot, c.Cfg.Exclude); err != nil {
		return fmt.Errorf("failed to watch %s: %w", c.Cfg.ProjectRoot, err)
	}
	if c.Cfg.Manifest != "" {
		// The manifest may live outside the project tree.
		_ = watcher.Add(filepath.Dir(c.Cfg.Manifest))
	}

	c.Renderer.Muted(fmt.Sprintf("Watching %s for changes. Press Ctrl+C to stop.", c.Cfg.ProjectRoot))

	w := &watchLoop{c: c, target: target}
	return w.run(ctx, watcher)
}

// watchTree adds root and its subdirectories, skipping hidden and excluded
// directories.
func watchTree(watcher *fsnotify.Watcher, root string, exclude []string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root {
			if strings.HasPrefix(d.Name(), ".") || excludedDir(root, path, exclude) {
				return filepath.SkipDir
			}
		}
		return watcher.Add(path)
	})
}

func excludedDir(root, dir string, exclude []string) bool {
	rel, err := filepath.Rel(root, dir)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, pattern := range exclude {
		// "vendor/**" excludes the vendor directory itself.
		if ok, _ := doublestar.Match(pattern, rel+"/x"); ok {
			return true
		}
	}
	return false
}

type watchLoop struct {
	c      *CommandContext
	target outputTarget

	mu    sync.Mutex
	timer *time.Timer
	// gen serialises regenerations started by overlapping timers.
	gen sync.Mutex
}

func (w *watchLoop) run(ctx context.Context, watcher *fsnotify.Watcher) error {
	defer w.stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() &&
					!excludedDir(w.c.Cfg.ProjectRoot, event.Name, w.c.Cfg.Exclude) {
					_ = watchTree(watcher, event.Name, nil)
				}
			}

			if !w.relevant(event) {
				continue
			}
			w.schedule(ctx, event.Name)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.c.Logger.Warn("watcher error", "error", err)
		}
	}
}

// relevant reports whether event should trigger a regeneration.
func (w *watchLoop) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}

	name := filepath.Clean(event.Name)
	if name == filepath.Clean(w.target.Path) {
		return false
	}
	if w.c.Cfg.Manifest != "" && name == filepath.Clean(w.c.Cfg.Manifest) {
		return true
	}
	return filepath.Ext(name) == ".php"
}

func (w *watchLoop) schedule(ctx context.Context, changed string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(watchDebounce, func() {
		w.gen.Lock()
		defer w.gen.Unlock()
		if ctx.Err() != nil {
			return
		}
		w.c.Logger.Info("change detected", "file", w.c.Cfg.Rel(changed))
		if _, err := generate(ctx, w.c, w.target); err != nil {
			w.c.Renderer.Warning(fmt.Sprintf("Regeneration failed: %v", err))
		}
	})
}

func (w *watchLoop) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}
