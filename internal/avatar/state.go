// Package avatar mirrors the avatar's presence state for UI consumers.
// Rendering happens outside this core; this is the non-visual state the
// UI animates from.
package avatar

import (
	"sync"

	"github.com/normanking/voicetutor/internal/bus"
)

// State is the avatar's current presence.
type State struct {
	Emotion    string `json:"emotion"`
	IsSpeaking bool   `json:"isSpeaking"`
	IsThinking bool   `json:"isThinking"`
	IsIdle     bool   `json:"isIdle"`
}

// Mirror derives presence state from bus events.
type Mirror struct {
	mu    sync.RWMutex
	state State

	onChange func(State)
}

// NewMirror creates a Mirror subscribed to the given bus.
func NewMirror(events *bus.EventBus) *Mirror {
	m := &Mirror{state: State{Emotion: "neutral"}}

	events.Subscribe(bus.EventTypeSpeechStarted, func(bus.Event) {
		m.update(func(s *State) { s.IsSpeaking = true; s.IsThinking = false })
	})
	events.SubscribeMultiple([]bus.EventType{bus.EventTypeSpeechEnded, bus.EventTypeSpeechCancelled}, func(bus.Event) {
		m.update(func(s *State) { s.IsSpeaking = false })
	})
	events.Subscribe(bus.EventTypeEmotionChanged, func(e bus.Event) {
		if current, ok := e.Data["current"].(string); ok {
			m.update(func(s *State) { s.Emotion = current })
		}
	})
	events.Subscribe(bus.EventTypeUserIdle, func(bus.Event) {
		m.update(func(s *State) { s.IsIdle = true })
	})
	events.Subscribe(bus.EventTypeUserActive, func(bus.Event) {
		m.update(func(s *State) { s.IsIdle = false })
	})
	events.Subscribe(bus.EventTypeResponseQueued, func(bus.Event) {
		m.update(func(s *State) { s.IsThinking = true })
	})

	return m
}

// SetOnChange sets a callback fired with each new state.
func (m *Mirror) SetOnChange(fn func(State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = fn
}

// Current returns the current presence state.
func (m *Mirror) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *Mirror) update(mutate func(*State)) {
	m.mu.Lock()
	mutate(&m.state)
	state := m.state
	cb := m.onChange
	m.mu.Unlock()

	if cb != nil {
		cb(state)
	}
}
