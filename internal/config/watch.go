package config

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watch monitors the config file and invokes onChange with the freshly
// loaded configuration whenever it is rewritten. Runtime toggles (mute,
// idle responses) take effect without a restart this way. The returned
// stop function ends the watch.
func Watch(logger zerolog.Logger, onChange func(*Config)) (func(), error) {
	configDir, err := Dir()
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(configDir); err != nil {
		watcher.Close()
		return nil, err
	}

	log := logger.With().Str("component", "config-watch").Logger()
	configPath := filepath.Join(configDir, "config.yaml")

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name != configPath {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				cfg, err := Load()
				if err != nil {
					log.Warn().Err(err).Msg("config reload failed")
					continue
				}
				log.Info().Msg("config reloaded")
				onChange(cfg)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Msg("config watcher error")
			}
		}
	}()

	return func() { watcher.Close() }, nil
}
