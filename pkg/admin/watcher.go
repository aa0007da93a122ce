// Copyright 2024-2026 Aiku AI

package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// WatchConfig calls onChange whenever the file at path is written or
// recreated. It blocks until ctx is done.
func WatchConfig(ctx context.Context, path string, onChange func(), log zerolog.Logger) error {
	log = log.With().Str("component", "config_watcher").Str("path", path).Logger()
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("failed to watch config file %s: %w", path, err)
	}
	log.Info().Msg("Watching configuration file")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Stopping configuration watcher")
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return errors.New("watcher event channel closed")
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				log.Info().Stringer("op", event.Op).Msg("Configuration changed, reloading")
				onChange()
			}
			// Editors and ConfigMap updates replace the file.
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				if err := watcher.Add(path); err != nil {
					log.Debug().Err(err).Msg("Config file not back yet")
					continue
				}
				log.Info().Stringer("op", event.Op).Msg("Configuration replaced, reloading")
				onChange()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.New("watcher error channel closed")
			}
			log.Warn().Err(err).Msg("File watcher error")
		}
	}
}
