package render

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceDelay is how long to wait for further changes before reloading.
const debounceDelay = 300 * time.Millisecond

// Watch reloads the template set whenever a template file changes. It
// blocks until ctx is cancelled. A reload failure (e.g. a half-saved
// template with a parse error) is logged and the previous set stays live.
func (e *Engine) Watch(ctx context.Context) error {
	if e.dir == "" {
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the template directory and all subdirectories.
	err = filepath.WalkDir(e.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		return err
	}

	var timer *time.Timer
	reload := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(event.Name, ".html") && !event.Has(fsnotify.Create) {
				continue
			}
			if event.Has(fsnotify.Create) {
				// New subdirectories need watching too.
				if info, statErr := os.Stat(event.Name); statErr == nil && info.IsDir() {
					_ = watcher.Add(event.Name)
				}
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounceDelay, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			e.logger.Warn("template watcher error", "error", err)
		case <-reload:
			if err := e.Reload(); err != nil {
				e.logger.Warn("template reload failed", "error", err)
			} else {
				e.logger.Debug("templates reloaded", "dir", e.dir)
			}
		}
	}
}
