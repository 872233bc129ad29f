// Package activity tracks user input activity and idleness.
package activity

import (
	"sync"
	"time"
)

// Config configures the Tracker.
type Config struct {
	// IdleThreshold is how long without activity before the user counts
	// as idle (default: 60s).
	IdleThreshold time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{IdleThreshold: 60 * time.Second}
}

// Tracker observes raw user input events and exposes whether the user is
// currently active. A single-shot timer flips the active flag off after
// IdleThreshold without a qualifying event; recording activity re-arms it.
type Tracker struct {
	mu           sync.RWMutex
	config       Config
	lastActivity time.Time
	active       bool
	flags        map[string]bool
	idleTimer    *time.Timer

	onActive func()
	onIdle   func()
}

// NewTracker creates a Tracker. The user starts out inactive until the
// first recorded event.
func NewTracker(config Config) *Tracker {
	if config.IdleThreshold <= 0 {
		config.IdleThreshold = 60 * time.Second
	}
	return &Tracker{
		config: config,
		flags:  make(map[string]bool),
	}
}

// SetHandlers sets callbacks fired on active/idle transitions.
func (t *Tracker) SetHandlers(onActive, onIdle func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onActive = onActive
	t.onIdle = onIdle
}

// RecordActivity marks the user active and re-arms the idle timer.
// Re-arming stops any previously pending timer, so only the most recent
// fire matters.
func (t *Tracker) RecordActivity() {
	t.mu.Lock()
	t.lastActivity = time.Now()
	wasActive := t.active
	t.active = true
	if t.idleTimer != nil {
		t.idleTimer.Stop()
	}
	t.idleTimer = time.AfterFunc(t.config.IdleThreshold, t.markIdle)
	cb := t.onActive
	t.mu.Unlock()

	if !wasActive && cb != nil {
		cb()
	}
}

func (t *Tracker) markIdle() {
	t.mu.Lock()
	wasActive := t.active
	t.active = false
	cb := t.onIdle
	t.mu.Unlock()

	if wasActive && cb != nil {
		cb()
	}
}

// SetContextFlag sets a named boolean (e.g. "inLesson", "inChat") without
// touching the idle timer.
func (t *Tracker) SetContextFlag(name string, value bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.flags[name] = value
}

// ContextFlag reads a named boolean flag.
func (t *Tracker) ContextFlag(name string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.flags[name]
}

// ContextFlags returns a copy of all context flags.
func (t *Tracker) ContextFlags() map[string]bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]bool, len(t.flags))
	for k, v := range t.flags {
		out[k] = v
	}
	return out
}

// IsUserActive reports whether the user is currently active.
func (t *Tracker) IsUserActive() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.active
}

// LastActivity returns the timestamp of the most recent recorded event.
func (t *Tracker) LastActivity() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastActivity
}

// Stop cancels any pending idle timer.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.idleTimer != nil {
		t.idleTimer.Stop()
		t.idleTimer = nil
	}
}
