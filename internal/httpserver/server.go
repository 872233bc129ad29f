// Package httpserver exposes the tutoring core to the UI over HTTP and
// a websocket event stream.
package httpserver

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/normanking/voicetutor/internal/activity"
	"github.com/normanking/voicetutor/internal/avatar"
	"github.com/normanking/voicetutor/internal/bus"
	"github.com/normanking/voicetutor/internal/conversation"
	"github.com/normanking/voicetutor/internal/coordinator"
	"github.com/normanking/voicetutor/internal/logging"
	"github.com/normanking/voicetutor/internal/responder"
	"github.com/normanking/voicetutor/internal/speech"
)

// Deps are the collaborators the server fronts.
type Deps struct {
	Coordinator *coordinator.Coordinator
	Engine      *speech.Engine
	Channel     *speech.Channel
	Settings    *speech.Settings
	Tracker     *activity.Tracker
	Store       *conversation.Store
	Mirror      *avatar.Mirror
	Events      *bus.EventBus
	Log         *logging.Logger

	// DefaultUser is attached to requests that carry no user info.
	DefaultUser responder.UserInfo
}

// Server is the UI-facing HTTP server.
type Server struct {
	echo   *echo.Echo
	deps   Deps
	hub    *hub
	logger zerolog.Logger
}

// New constructs a configured server with all routes registered.
func New(logger zerolog.Logger, deps Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{
		echo:   e,
		deps:   deps,
		hub:    newHub(logger),
		logger: logger.With().Str("component", "httpserver").Logger(),
	}
	s.registerRoutes()
	s.wireEventStream()
	return s
}

// wireEventStream forwards bus events and log entries to websocket
// clients.
func (s *Server) wireEventStream() {
	if s.deps.Events != nil {
		s.deps.Events.SubscribeMultiple([]bus.EventType{
			bus.EventTypeSpeechStarted,
			bus.EventTypeSpeechEnded,
			bus.EventTypeSpeechCancelled,
			bus.EventTypeSpeechFallback,
			bus.EventTypeResponseQueued,
			bus.EventTypeResponseDenied,
			bus.EventTypeQueueDrained,
			bus.EventTypeGreeted,
			bus.EventTypeEntryAppended,
			bus.EventTypeHistoryCleared,
			bus.EventTypeEmotionChanged,
			bus.EventTypeUserActive,
			bus.EventTypeUserIdle,
			bus.EventTypeMuteChanged,
			bus.EventTypeIdleResponsesChanged,
		}, func(evt bus.Event) {
			s.hub.broadcast(wsMessage{Kind: "event", Event: string(evt.Type), Data: evt.Data})
		})
	}
	if s.deps.Log != nil {
		s.deps.Log.SetOnEntry(func(entry logging.Entry) {
			s.hub.broadcast(wsMessage{Kind: "log", Data: map[string]any{
				"timestamp": entry.Timestamp,
				"level":     entry.Level,
				"message":   entry.Message,
			}})
		})
	}
	if s.deps.Mirror != nil {
		s.deps.Mirror.SetOnChange(func(state avatar.State) {
			s.hub.broadcast(wsMessage{Kind: "avatar", Data: map[string]any{
				"emotion":    state.Emotion,
				"isSpeaking": state.IsSpeaking,
				"isThinking": state.IsThinking,
				"isIdle":     state.IsIdle,
			}})
		})
	}
}

// Start blocks serving on addr until Shutdown.
func (s *Server) Start(addr string) error {
	s.logger.Info().Str("addr", addr).Msg("http server starting")
	return s.echo.Start(addr)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.close()
	return s.echo.Shutdown(ctx)
}

// Handler returns the underlying handler, for tests.
func (s *Server) Handler() *echo.Echo {
	return s.echo
}
