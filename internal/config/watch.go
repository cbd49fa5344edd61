package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watch reloads the config whenever the file changes on disk and hands the
// fresh copy to onChange. The watcher stops when ctx is cancelled. A file
// that fails to parse is logged and skipped, keeping the last good config
// in effect.
func Watch(ctx context.Context, log zerolog.Logger, onChange func(*Config)) error {
	path := Path()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	// Watch the directory, not the file: editors replace the file on save.
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch config directory: %w", err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(path) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				cfg, err := Load()
				if err != nil {
					log.Warn().Err(err).Msg("Ignoring invalid config change")
					continue
				}
				log.Debug().Str("path", path).Msg("Config reloaded")
				onChange(cfg)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Msg("Config watcher error")
			}
		}
	}()

	return nil
}
