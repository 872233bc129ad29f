package avatar

import (
	"testing"

	"github.com/normanking/voicetutor/internal/bus"
)

func TestMirror_TracksSpeechLifecycle(t *testing.T) {
	events := bus.NewEventBus()
	m := NewMirror(events)

	if m.Current().IsSpeaking {
		t.Error("expected not speaking initially")
	}

	events.PublishSync(bus.Event{Type: bus.EventTypeSpeechStarted, Data: map[string]any{"source": "avatar"}})
	if !m.Current().IsSpeaking {
		t.Error("expected speaking after speech.started")
	}

	events.PublishSync(bus.Event{Type: bus.EventTypeSpeechEnded, Data: map[string]any{"source": "avatar"}})
	if m.Current().IsSpeaking {
		t.Error("expected not speaking after speech.ended")
	}

	events.PublishSync(bus.Event{Type: bus.EventTypeSpeechStarted})
	events.PublishSync(bus.Event{Type: bus.EventTypeSpeechCancelled})
	if m.Current().IsSpeaking {
		t.Error("expected not speaking after speech.cancelled")
	}
}

func TestMirror_TracksEmotionAndIdle(t *testing.T) {
	events := bus.NewEventBus()
	m := NewMirror(events)

	if got := m.Current().Emotion; got != "neutral" {
		t.Errorf("expected neutral baseline, got %q", got)
	}

	events.PublishSync(bus.Event{Type: bus.EventTypeEmotionChanged, Data: map[string]any{"current": "happy"}})
	if got := m.Current().Emotion; got != "happy" {
		t.Errorf("expected happy, got %q", got)
	}

	events.PublishSync(bus.Event{Type: bus.EventTypeUserIdle})
	if !m.Current().IsIdle {
		t.Error("expected idle after activity.user_idle")
	}
	events.PublishSync(bus.Event{Type: bus.EventTypeUserActive})
	if m.Current().IsIdle {
		t.Error("expected not idle after activity.user_active")
	}
}

func TestMirror_ThinkingClearsWhenSpeechStarts(t *testing.T) {
	events := bus.NewEventBus()
	m := NewMirror(events)

	events.PublishSync(bus.Event{Type: bus.EventTypeResponseQueued})
	if !m.Current().IsThinking {
		t.Error("expected thinking while a response is pending")
	}

	events.PublishSync(bus.Event{Type: bus.EventTypeSpeechStarted})
	state := m.Current()
	if state.IsThinking {
		t.Error("expected thinking cleared once speech starts")
	}
	if !state.IsSpeaking {
		t.Error("expected speaking")
	}
}

func TestMirror_OnChangeCallback(t *testing.T) {
	events := bus.NewEventBus()
	m := NewMirror(events)

	var last State
	m.SetOnChange(func(s State) { last = s })

	events.PublishSync(bus.Event{Type: bus.EventTypeSpeechStarted})
	if !last.IsSpeaking {
		t.Error("expected callback to receive the new state")
	}
}
