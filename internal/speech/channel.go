// Package speech provides speech output arbitration and synthesis for
// the tutoring avatar: a shared channel tracking who is speaking, the
// runtime mute/idle toggles, and the engine that renders text to audio.
package speech

import (
	"sync"
)

// SourceID names a subsystem that may produce spoken output. Any string
// is valid; policy treats unknown ids uniformly.
type SourceID string

// Well-known sources.
const (
	SourceAvatar         SourceID = "avatar"
	SourceChat           SourceID = "chat"
	SourceLessonNarrator SourceID = "lesson-narrator"
	SourceKnowledgeCheck SourceID = "knowledge-check"
)

// Channel is the exclusive-ownership bookkeeping primitive over the
// single logical audio output. It tracks which sources are currently
// producing audio in arrival order and elects the first as the active
// source. It does no queueing or preemption itself; admission policy
// lives in the coordinator.
type Channel struct {
	mu      sync.RWMutex
	sources []SourceID
}

// NewChannel creates an empty speech channel.
func NewChannel() *Channel {
	return &Channel{}
}

// Register adds source to the active set if absent. The first registrant
// becomes the elected active source. Returns true when the source was
// newly added.
func (c *Channel) Register(source SourceID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, s := range c.sources {
		if s == source {
			return false
		}
	}
	c.sources = append(c.sources, source)
	return true
}

// Unregister removes source from the active set and re-elects the first
// remaining source. Removing an absent source is a no-op. Callers must
// pair every successful Register with exactly one Unregister, on every
// outcome including errors, or the channel leaks a phantom active source.
func (c *Channel) Unregister(source SourceID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, s := range c.sources {
		if s == source {
			c.sources = append(c.sources[:i], c.sources[i+1:]...)
			return true
		}
	}
	return false
}

// IsAnySpeaking reports whether any source is currently producing audio.
func (c *Channel) IsAnySpeaking() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sources) > 0
}

// ActiveSource returns the elected active source, or "" when silent.
func (c *Channel) ActiveSource() SourceID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.sources) == 0 {
		return ""
	}
	return c.sources[0]
}

// IsActive reports whether source is the elected active source.
func (c *Channel) IsActive(source SourceID) bool {
	return c.ActiveSource() == source
}

// ActiveSources returns a copy of the active set in arrival order.
func (c *Channel) ActiveSources() []SourceID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]SourceID, len(c.sources))
	copy(out, c.sources)
	return out
}

// IsRegistered reports whether source is in the active set.
func (c *Channel) IsRegistered(source SourceID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.sources {
		if s == source {
			return true
		}
	}
	return false
}
