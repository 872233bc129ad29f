package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/voicetutor/internal/activity"
	"github.com/normanking/voicetutor/internal/avatar"
	"github.com/normanking/voicetutor/internal/bus"
	"github.com/normanking/voicetutor/internal/conversation"
	"github.com/normanking/voicetutor/internal/coordinator"
	"github.com/normanking/voicetutor/internal/responder"
	"github.com/normanking/voicetutor/internal/speech"
	"github.com/normanking/voicetutor/internal/tts"
)

// stubGenerator answers every prompt with a fixed reply.
type stubGenerator struct {
	reply string
}

func (g *stubGenerator) Generate(ctx context.Context, prompt, reqType string, user responder.UserInfo, payload conversation.ContextPayload) (string, error) {
	return g.reply, nil
}

// stubProvider synthesizes instantly.
type stubProvider struct{}

func (stubProvider) Name() string { return "stub" }

func (stubProvider) IsAvailable() bool { return true }

func (stubProvider) Synthesize(ctx context.Context, req *tts.SynthesizeRequest) (*tts.SynthesizeResponse, error) {
	return &tts.SynthesizeResponse{Audio: []byte("a"), Format: "mp3", Provider: "stub"}, nil
}

func (stubProvider) ListVoices(ctx context.Context) ([]tts.Voice, error) { return nil, nil }

func (stubProvider) Health(ctx context.Context) error { return nil }

type testServer struct {
	srv      *Server
	store    *conversation.Store
	settings *speech.Settings
	tracker  *activity.Tracker
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := zerolog.Nop()
	events := bus.NewEventBus()
	channel := speech.NewChannel()
	settings := speech.NewSettings(false, true, events)
	tracker := activity.NewTracker(activity.DefaultConfig())
	t.Cleanup(tracker.Stop)
	store := conversation.NewStore(conversation.DefaultConfig(), events)
	engine := speech.NewEngine(logger, channel, settings, nil, events, stubProvider{})
	coord := coordinator.New(logger, coordinator.DefaultConfig(), channel, settings, tracker, store,
		&stubGenerator{reply: "Happy to help!"}, engine, events)

	srv := New(logger, Deps{
		Coordinator: coord,
		Engine:      engine,
		Channel:     channel,
		Settings:    settings,
		Tracker:     tracker,
		Store:       store,
		Mirror:      avatar.NewMirror(events),
		Events:      events,
		DefaultUser: responder.UserInfo{ID: "default-user"},
	})
	return &testServer{srv: srv, store: store, settings: settings, tracker: tracker}
}

func (ts *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(w, r)
	return w
}

func TestServer_Healthz(t *testing.T) {
	ts := newTestServer(t)
	w := ts.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServer_ChatRequiresMessage(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodPost, "/api/chat", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodPost, "/api/chat", `not-json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServer_ChatReturnsOutcome(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodPost, "/api/chat", `{"message":"what is 2+2?"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var outcome coordinator.Outcome
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &outcome))
	assert.Equal(t, coordinator.OutcomeSpoken, outcome.Status)
	assert.Equal(t, "Happy to help!", outcome.Text)
}

func TestServer_SettingsRoundTrip(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodPost, "/api/settings/mute", `{"enabled":true}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, ts.settings.IsMuted())

	w = ts.do(http.MethodPost, "/api/settings/idle", `{"enabled":false}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, ts.settings.IdleResponsesEnabled())

	w = ts.do(http.MethodGet, "/api/settings", "")
	require.Equal(t, http.StatusOK, w.Code)
	var settings map[string]bool
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &settings))
	assert.True(t, settings["muted"])
	assert.False(t, settings["idleResponses"])
}

func TestServer_ActivityMarksUserActive(t *testing.T) {
	ts := newTestServer(t)
	require.False(t, ts.tracker.IsUserActive())

	w := ts.do(http.MethodPost, "/api/activity", `{}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, ts.tracker.IsUserActive())

	var resp map[string]bool
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp["isUserActive"])
}

func TestServer_ActivityFlagDoesNotTouchTimer(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodPost, "/api/activity", `{"flag":"inLesson","value":true}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, ts.tracker.ContextFlag("inLesson"))
	assert.False(t, ts.tracker.IsUserActive())
}

func TestServer_HistoryEndpoints(t *testing.T) {
	ts := newTestServer(t)
	ts.store.Append(conversation.EntryUser, "hello", nil)
	ts.store.Append(conversation.EntryAssistant, "hi there", nil)

	w := ts.do(http.MethodGet, "/api/history", "")
	require.Equal(t, http.StatusOK, w.Code)
	var entries []conversation.Entry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	assert.Len(t, entries, 2)

	w = ts.do(http.MethodGet, "/api/history?limit=1", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "hi there", entries[0].Content)

	w = ts.do(http.MethodDelete, "/api/history", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 0, ts.store.Len())
}

func TestServer_ContextPayload(t *testing.T) {
	ts := newTestServer(t)
	ts.store.Append(conversation.EntryUser, "question", nil)

	w := ts.do(http.MethodGet, "/api/context", "")
	require.Equal(t, http.StatusOK, w.Code)

	var payload conversation.ContextPayload
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.Len(t, payload.Entries, 1)
	assert.Equal(t, "question", payload.Entries[0].Content)
	assert.True(t, payload.IsUserActive)
}

func TestServer_State(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/api/state", "")
	require.Equal(t, http.StatusOK, w.Code)

	var state map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &state))
	assert.Equal(t, false, state["isAnySpeaking"])
	assert.Equal(t, false, state["hasGreeted"])
	assert.Contains(t, state, "avatar")
}

func TestServer_SpeakValidation(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodPost, "/api/speak", `{"source":"lesson-narrator"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodPost, "/api/speak", `{"source":"lesson-narrator","text":"chapter one"}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServer_CancelValidation(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodPost, "/api/cancel", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodPost, "/api/cancel", `{"source":"avatar"}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServer_Personas(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/api/personas", "")
	require.Equal(t, http.StatusOK, w.Code)

	var personas []map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &personas))
	assert.Len(t, personas, 2)
}

func TestServer_LogsWithoutLogger(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodGet, "/api/logs", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]\n", w.Body.String())
}
