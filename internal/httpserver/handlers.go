package httpserver

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/normanking/voicetutor/internal/config"
	"github.com/normanking/voicetutor/internal/responder"
	"github.com/normanking/voicetutor/internal/speech"
)

func (s *Server) registerRoutes() {
	e := s.echo

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	api := e.Group("/api")
	api.POST("/chat", s.handleChat)
	api.POST("/greet", s.handleGreet)
	api.POST("/idle-check", s.handleIdleCheck)
	api.POST("/activity", s.handleActivity)
	api.POST("/speak", s.handleSpeak)
	api.POST("/cancel", s.handleCancel)
	api.GET("/settings", s.handleGetSettings)
	api.POST("/settings/mute", s.handleSetMute)
	api.POST("/settings/idle", s.handleSetIdleResponses)
	api.GET("/history", s.handleGetHistory)
	api.DELETE("/history", s.handleClearHistory)
	api.GET("/context", s.handleGetContext)
	api.GET("/state", s.handleGetState)
	api.GET("/logs", s.handleGetLogs)
	api.GET("/personas", s.handleGetPersonas)

	e.GET("/ws", s.handleWebsocket)
}

type chatRequest struct {
	Message  string `json:"message"`
	UserID   string `json:"userId,omitempty"`
	UserName string `json:"userName,omitempty"`
}

func (s *Server) userFrom(id, name string) responder.UserInfo {
	user := s.deps.DefaultUser
	if id != "" {
		user.ID = id
	}
	if name != "" {
		user.Name = name
	}
	return user
}

func (s *Server) handleChat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Message == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "message is required"})
	}

	outcome := s.deps.Coordinator.HandleUserChat(c.Request().Context(), req.Message, s.userFrom(req.UserID, req.UserName))
	return c.JSON(http.StatusOK, outcome)
}

func (s *Server) handleGreet(c echo.Context) error {
	var req chatRequest
	_ = c.Bind(&req)

	outcome := s.deps.Coordinator.HandleGreeting(c.Request().Context(), s.userFrom(req.UserID, req.UserName))
	return c.JSON(http.StatusOK, outcome)
}

// handleIdleCheck services the UI's idle timer tick.
func (s *Server) handleIdleCheck(c echo.Context) error {
	var req chatRequest
	_ = c.Bind(&req)

	outcome := s.deps.Coordinator.HandleIdleCheck(c.Request().Context(), s.userFrom(req.UserID, req.UserName))
	return c.JSON(http.StatusOK, outcome)
}

type activityRequest struct {
	Flag  string `json:"flag,omitempty"`
	Value bool   `json:"value,omitempty"`
}

// handleActivity records a raw user input event. An optional named flag
// (e.g. inLesson) is set without touching the idle timer when no event
// accompanies it.
func (s *Server) handleActivity(c echo.Context) error {
	var req activityRequest
	_ = c.Bind(&req)

	if req.Flag != "" {
		s.deps.Tracker.SetContextFlag(req.Flag, req.Value)
	} else {
		s.deps.Tracker.RecordActivity()
		s.deps.Store.Touch()
	}
	return c.JSON(http.StatusOK, map[string]any{
		"isUserActive": s.deps.Tracker.IsUserActive(),
	})
}

type speakRequest struct {
	Source string `json:"source"`
	Text   string `json:"text"`
	Voice  string `json:"voice,omitempty"`
	Force  bool   `json:"force,omitempty"`
}

// handleSpeak lets non-avatar sources (chat readout, lesson narrator,
// knowledge checks) speak through the shared channel.
func (s *Server) handleSpeak(c echo.Context) error {
	var req speakRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Source == "" || req.Text == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "source and text are required"})
	}

	s.deps.Engine.Speak(speech.SourceID(req.Source), req.Text, speech.SpeakOptions{
		Voice: req.Voice,
		Force: req.Force,
	})
	return c.JSON(http.StatusOK, map[string]string{"status": "accepted"})
}

type cancelRequest struct {
	Source string `json:"source"`
}

func (s *Server) handleCancel(c echo.Context) error {
	var req cancelRequest
	if err := c.Bind(&req); err != nil || req.Source == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "source is required"})
	}

	s.deps.Engine.Cancel(speech.SourceID(req.Source))
	return c.JSON(http.StatusOK, map[string]string{"status": "cancelled"})
}

func (s *Server) handleGetSettings(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"muted":         s.deps.Settings.IsMuted(),
		"idleResponses": s.deps.Settings.IdleResponsesEnabled(),
	})
}

type toggleRequest struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) handleSetMute(c echo.Context) error {
	var req toggleRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	s.deps.Settings.SetMuted(req.Enabled)
	return c.JSON(http.StatusOK, map[string]any{"muted": req.Enabled})
}

func (s *Server) handleSetIdleResponses(c echo.Context) error {
	var req toggleRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	s.deps.Settings.SetIdleResponses(req.Enabled)
	return c.JSON(http.StatusOK, map[string]any{"idleResponses": req.Enabled})
}

func (s *Server) handleGetHistory(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	return c.JSON(http.StatusOK, s.deps.Store.RecentHistory(limit))
}

func (s *Server) handleClearHistory(c echo.Context) error {
	s.deps.Store.ClearHistory()
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleGetContext(c echo.Context) error {
	return c.JSON(http.StatusOK, s.deps.Store.BuildContextPayload())
}

func (s *Server) handleGetState(c echo.Context) error {
	sources := s.deps.Channel.ActiveSources()
	out := map[string]any{
		"isAnySpeaking": s.deps.Channel.IsAnySpeaking(),
		"activeSource":  string(s.deps.Channel.ActiveSource()),
		"activeSources": sources,
		"isUserActive":  s.deps.Tracker.IsUserActive(),
		"queueLen":      s.deps.Coordinator.QueueLen(),
		"hasGreeted":    s.deps.Coordinator.HasGreeted(),
	}
	if s.deps.Mirror != nil {
		out["avatar"] = s.deps.Mirror.Current()
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleGetLogs(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if s.deps.Log == nil {
		return c.JSON(http.StatusOK, []any{})
	}
	return c.JSON(http.StatusOK, s.deps.Log.History(limit))
}

func (s *Server) handleGetPersonas(c echo.Context) error {
	return c.JSON(http.StatusOK, config.AvailablePersonas())
}
