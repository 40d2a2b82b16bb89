package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/fabriclift-labs/fabriclift/internal/pipeline"
)

// watchDebounce batches rapid file events into one re-run.
const watchDebounce = 500 * time.Millisecond

// watchAndRerun re-runs the migration whenever the source bundle (or any
// bundle in the source directory) changes. It blocks until ctx is done.
func watchAndRerun(ctx context.Context, cmdCtx *CommandContext, pipeCfg pipeline.Config, source string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Watch the containing directory for a file source so editors that
	// replace the file (rename over it) still trigger.
	info, err := os.Stat(source)
	if err != nil {
		return fmt.Errorf("cannot watch source %s: %w", source, err)
	}
	watchDir, matchName := source, ""
	if !info.IsDir() {
		watchDir = filepath.Dir(source)
		matchName = filepath.Base(source)
	}
	if err := watcher.Add(watchDir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", watchDir, err)
	}

	cmdCtx.Renderer.Muted(fmt.Sprintf("Watching %s for changes (Ctrl+C to stop)", source))

	var debounceTimer *time.Timer
	reruns := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-reruns:
			if err := runMigration(ctx, cmdCtx, pipeCfg, source); err != nil {
				cmdCtx.Renderer.Warning(err.Error())
			}

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			name := filepath.Base(event.Name)
			if matchName != "" {
				if name != matchName {
					continue
				}
			} else if !strings.EqualFold(filepath.Ext(name), ".qvf") {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(watchDebounce, func() {
				select {
				case reruns <- struct{}{}:
				default:
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			cmdCtx.Logger.Warn("watcher error", "error", err)
		}
	}
}
