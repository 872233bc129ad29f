// voicetutor - speech arbitration and conversational orchestration for a
// tutoring avatar.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/normanking/voicetutor/internal/activity"
	"github.com/normanking/voicetutor/internal/avatar"
	"github.com/normanking/voicetutor/internal/bus"
	"github.com/normanking/voicetutor/internal/config"
	"github.com/normanking/voicetutor/internal/conversation"
	"github.com/normanking/voicetutor/internal/coordinator"
	"github.com/normanking/voicetutor/internal/emotion"
	"github.com/normanking/voicetutor/internal/httpserver"
	"github.com/normanking/voicetutor/internal/logging"
	"github.com/normanking/voicetutor/internal/responder"
	"github.com/normanking/voicetutor/internal/speech"
	"github.com/normanking/voicetutor/internal/tts"
)

// loadEnvFiles loads API keys from .env files into the process
// environment. Existing variables win.
func loadEnvFiles() {
	paths := []string{".env"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".voicetutor", ".env"))
	}
	for _, p := range paths {
		_ = godotenv.Load(p)
	}
}

func main() {
	loadEnvFiles()

	syslog, err := logging.New(nil)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer syslog.Close()
	logger := syslog.Zerolog()

	cfg, err := config.Load()
	if err != nil {
		logger.Warn().Err(err).Msg("config load failed, using defaults")
	}

	events := bus.NewEventBus()

	tracker := activity.NewTracker(activity.Config{IdleThreshold: cfg.Activity.IdleThreshold})
	tracker.SetHandlers(
		func() { events.Publish(bus.Event{Type: bus.EventTypeUserActive}) },
		func() { events.Publish(bus.Event{Type: bus.EventTypeUserIdle}) },
	)

	store := conversation.NewStore(conversation.Config{
		MaxEntries:       cfg.Conversation.MaxEntries,
		MaxEntryAge:      cfg.Conversation.MaxEntryAge,
		SweepInterval:    cfg.Conversation.SweepInterval,
		ContextEntries:   cfg.Conversation.ContextEntries,
		ContextCharLimit: cfg.Conversation.ContextCharLimit,
		ActiveWindow:     cfg.Conversation.ActiveWindow,
	}, events)
	store.SetFlagsProvider(tracker.ContextFlags)
	store.Start()
	defer store.Stop()

	channel := speech.NewChannel()
	settings := speech.NewSettings(cfg.Coordinator.Muted, cfg.Coordinator.IdleResponses, events)

	voice := cfg.TTS.VoiceID
	if persona := config.GetPersona(cfg.Tutor.PersonaID); persona != nil {
		voice = persona.VoiceID
		logger.Info().Str("persona", persona.Name).Str("voice", voice).Msg("persona selected")
	}

	var providers []tts.Provider
	if cfg.TTS.RemoteEnabled {
		providers = append(providers, tts.NewRemoteProvider(logger, &tts.RemoteConfig{
			URL:          cfg.TTS.RemoteURL,
			APIKey:       cfg.TTS.APIKey,
			Model:        cfg.TTS.Model,
			DefaultVoice: voice,
			Speed:        cfg.TTS.Speed,
			Timeout:      cfg.TTS.Timeout,
		}))
	}
	providers = append(providers, tts.NewLocalProvider(logger, &tts.LocalConfig{
		Command:        cfg.TTS.LocalCommand,
		PreferredVoice: cfg.TTS.LocalVoice,
		Language:       cfg.TTS.Language,
	}))

	player := tts.NewCommandPlayer(logger, "")
	engine := speech.NewEngine(logger, channel, settings, player, events, providers...)
	engine.SetVoice(voice, cfg.TTS.Language)

	generator := responder.NewClient(&responder.ClientConfig{
		ServerURL: cfg.Responder.ServerURL,
		Timeout:   cfg.Responder.Timeout,
		UserID:    cfg.Responder.UserID,
	}, logger)

	coord := coordinator.New(logger, coordinator.Config{
		EmotionCooldown:      cfg.Coordinator.EmotionCooldown,
		IdleCooldown:         cfg.Coordinator.IdleCooldown,
		DrainDelay:           cfg.Coordinator.DrainDelay,
		EmotionMinConfidence: cfg.Coordinator.EmotionMinConf,
		EmotionFreshness:     cfg.Coordinator.EmotionFreshness,
	}, channel, settings, tracker, store, generator, engine, events)

	mirror := avatar.NewMirror(events)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Emotion.Enabled && cfg.Emotion.StreamURL != "" {
		stream := emotion.NewStreamClient(cfg.Emotion.StreamURL, cfg.Emotion.ReconnectDelay, logger)
		stream.SetSampleCallback(store.UpdateAmbientContext)
		stream.Connect(ctx)
		defer stream.Disconnect()
	}

	// Config file edits hot-reload the user-facing toggles.
	unwatch, err := config.Watch(logger, func(updated *config.Config) {
		settings.SetMuted(updated.Coordinator.Muted)
		settings.SetIdleResponses(updated.Coordinator.IdleResponses)
	})
	if err != nil {
		logger.Warn().Err(err).Msg("config watcher unavailable")
	} else {
		defer unwatch()
	}

	server := httpserver.New(logger, httpserver.Deps{
		Coordinator: coord,
		Engine:      engine,
		Channel:     channel,
		Settings:    settings,
		Tracker:     tracker,
		Store:       store,
		Mirror:      mirror,
		Events:      events,
		Log:         syslog,
		DefaultUser: responder.UserInfo{ID: cfg.Responder.UserID},
	})

	go func() {
		if err := server.Start(cfg.Server.Addr); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
			stop()
		}
	}()

	logger.Info().Str("addr", cfg.Server.Addr).Msg("voicetutor running")
	<-ctx.Done()

	tracker.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
	}
	logger.Info().Msg("voicetutor stopped")
}
