package speech

import (
	"sync"

	"github.com/normanking/voicetutor/internal/bus"
)

// Settings holds the user-toggleable avatar switches. Mutated only by
// explicit toggle actions (UI or config reload).
type Settings struct {
	mu            sync.RWMutex
	muted         bool
	idleResponses bool
	events        *bus.EventBus
}

// NewSettings creates Settings with the given initial toggles. events may
// be nil in tests.
func NewSettings(muted, idleResponses bool, events *bus.EventBus) *Settings {
	return &Settings{
		muted:         muted,
		idleResponses: idleResponses,
		events:        events,
	}
}

// SetMuted toggles avatar muting.
func (s *Settings) SetMuted(muted bool) {
	s.mu.Lock()
	changed := s.muted != muted
	s.muted = muted
	s.mu.Unlock()

	if changed && s.events != nil {
		s.events.Publish(bus.Event{
			Type: bus.EventTypeMuteChanged,
			Data: map[string]any{"muted": muted},
		})
	}
}

// IsMuted reports whether the avatar is muted.
func (s *Settings) IsMuted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.muted
}

// SetIdleResponses toggles unprompted idle responses.
func (s *Settings) SetIdleResponses(enabled bool) {
	s.mu.Lock()
	changed := s.idleResponses != enabled
	s.idleResponses = enabled
	s.mu.Unlock()

	if changed && s.events != nil {
		s.events.Publish(bus.Event{
			Type: bus.EventTypeIdleResponsesChanged,
			Data: map[string]any{"enabled": enabled},
		})
	}
}

// IdleResponsesEnabled reports whether idle responses are enabled.
func (s *Settings) IdleResponsesEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.idleResponses
}
