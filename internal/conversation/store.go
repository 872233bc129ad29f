// Package conversation provides the bounded conversational log and the
// rolling ambient context attached to every turn.
package conversation

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/normanking/voicetutor/internal/bus"
	"github.com/normanking/voicetutor/internal/emotion"
)

// EntryType classifies a conversation entry.
type EntryType string

const (
	EntryUser           EntryType = "user"
	EntryAssistant      EntryType = "assistant"
	EntrySystem         EntryType = "system"
	EntryEmotionContext EntryType = "emotion-context"
)

// AmbientContext is the rolling snapshot attached to each entry at
// creation time.
type AmbientContext struct {
	Emotion           string    `json:"emotion"`
	Confidence        float64   `json:"confidence"`
	VisualDescription string    `json:"visualDescription,omitempty"`
	FaceDetected      bool      `json:"faceDetected"`
	Mood              string    `json:"mood,omitempty"`
	Topic             string    `json:"topic,omitempty"`
	LastInteraction   time.Time `json:"lastInteraction"`
}

// Entry is one immutable conversational turn.
type Entry struct {
	ID        string         `json:"id"`
	Type      EntryType      `json:"type"`
	Content   string         `json:"content"`
	Timestamp time.Time      `json:"timestamp"`
	Snapshot  AmbientContext `json:"contextSnapshot"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// PayloadEntry is a truncated entry inside a context payload.
type PayloadEntry struct {
	Type    EntryType `json:"type"`
	Content string    `json:"content"`
}

// ContextPayload is the bounded context sent to the response-generation
// collaborator.
type ContextPayload struct {
	Entries      []PayloadEntry  `json:"entries"`
	Emotion      AmbientContext  `json:"emotion"`
	Flags        map[string]bool `json:"flags"`
	IsUserActive bool            `json:"isUserActive"`
}

// Config configures the Store.
type Config struct {
	// MaxEntries caps the log; the oldest entry is evicted first (default 20).
	MaxEntries int
	// MaxEntryAge is the hard age bound enforced by the sweep (default 1h).
	MaxEntryAge time.Duration
	// SweepInterval is how often the age bound is enforced (default 5m).
	SweepInterval time.Duration
	// ContextEntries is how many recent entries a payload carries (default 8).
	ContextEntries int
	// ContextCharLimit truncates each payload entry (default 500).
	ContextCharLimit int
	// ActiveWindow derives the payload's isUserActive: the conversation
	// counts as warm while the last interaction is newer than this
	// (default 30s). Deliberately independent of the activity tracker's
	// 60s idle threshold.
	ActiveWindow time.Duration
	// EmotionChangeMinConf gates logging of emotion shifts (default 0.4).
	EmotionChangeMinConf float64
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxEntries:           20,
		MaxEntryAge:          time.Hour,
		SweepInterval:        5 * time.Minute,
		ContextEntries:       8,
		ContextCharLimit:     500,
		ActiveWindow:         30 * time.Second,
		EmotionChangeMinConf: 0.4,
	}
}

// Store is the append-only, capacity-bounded conversational log plus the
// rolling ambient context.
type Store struct {
	mu      sync.RWMutex
	config  Config
	entries []Entry
	ambient AmbientContext
	events  *bus.EventBus

	flagsFn func() map[string]bool

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewStore creates a Store. events may be nil in tests.
func NewStore(config Config, events *bus.EventBus) *Store {
	if config.MaxEntries <= 0 {
		config.MaxEntries = 20
	}
	if config.MaxEntryAge <= 0 {
		config.MaxEntryAge = time.Hour
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = 5 * time.Minute
	}
	if config.ContextEntries <= 0 {
		config.ContextEntries = 8
	}
	if config.ContextCharLimit <= 0 {
		config.ContextCharLimit = 500
	}
	if config.ActiveWindow <= 0 {
		config.ActiveWindow = 30 * time.Second
	}
	if config.EmotionChangeMinConf <= 0 {
		config.EmotionChangeMinConf = 0.4
	}

	return &Store{
		config:  config,
		entries: make([]Entry, 0, config.MaxEntries),
		ambient: AmbientContext{Emotion: emotion.Neutral},
		events:  events,
		stopCh:  make(chan struct{}),
	}
}

// SetFlagsProvider wires the activity flags source consulted when
// building a context payload.
func (s *Store) SetFlagsProvider(fn func() map[string]bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flagsFn = fn
}

// Start launches the periodic age sweep. Stop ends it.
func (s *Store) Start() {
	go func() {
		ticker := time.NewTicker(s.config.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stopCh:
				return
			case <-ticker.C:
				s.Sweep()
			}
		}
	}()
}

// Stop halts the periodic sweep.
func (s *Store) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// Append creates an entry with a snapshot of the current ambient context
// and enforces the entry cap. User entries refresh the interaction clock.
func (s *Store) Append(entryType EntryType, content string, metadata map[string]any) Entry {
	s.mu.Lock()

	if entryType == EntryUser {
		s.ambient.LastInteraction = time.Now()
	}

	entry := Entry{
		ID:        uuid.NewString(),
		Type:      entryType,
		Content:   content,
		Timestamp: time.Now(),
		Snapshot:  s.ambient,
		Metadata:  metadata,
	}

	s.entries = append(s.entries, entry)
	if len(s.entries) > s.config.MaxEntries {
		s.entries = s.entries[len(s.entries)-s.config.MaxEntries:]
	}
	s.mu.Unlock()

	if s.events != nil {
		s.events.Publish(bus.Event{
			Type: bus.EventTypeEntryAppended,
			Data: map[string]any{"id": entry.ID, "type": string(entryType)},
		})
	}
	return entry
}

// Sweep drops entries older than MaxEntryAge. Returns how many were
// evicted.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-s.config.MaxEntryAge)
	idx := 0
	for idx < len(s.entries) && s.entries[idx].Timestamp.Before(cutoff) {
		idx++
	}
	if idx == 0 {
		return 0
	}
	s.entries = append(s.entries[:0:0], s.entries[idx:]...)
	return idx
}

// UpdateAmbientContext merges a new emotion sample into the rolling
// context. A dominant-emotion change above the confidence gate is also
// recorded as an emotion-context entry; it does not trigger speech.
func (s *Store) UpdateAmbientContext(sample emotion.Sample) {
	s.mu.Lock()
	previous := s.ambient.Emotion
	s.ambient.Emotion = sample.Emotion
	s.ambient.Confidence = sample.Confidence
	s.ambient.VisualDescription = sample.VisualDescription
	s.ambient.FaceDetected = sample.FaceDetected
	changed := previous != sample.Emotion && sample.Confidence > s.config.EmotionChangeMinConf
	s.mu.Unlock()

	if changed {
		s.Append(EntryEmotionContext,
			fmt.Sprintf("Learner emotion shifted from %s to %s (confidence %.2f)", previous, sample.Emotion, sample.Confidence),
			map[string]any{"previous": previous, "current": sample.Emotion})
		if s.events != nil {
			s.events.Publish(bus.Event{
				Type: bus.EventTypeEmotionChanged,
				Data: map[string]any{"previous": previous, "current": sample.Emotion, "confidence": sample.Confidence},
			})
		}
	}
}

// SetMood updates the rolling mood.
func (s *Store) SetMood(mood string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ambient.Mood = mood
}

// SetTopic updates the rolling lesson topic.
func (s *Store) SetTopic(topic string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ambient.Topic = topic
}

// Touch refreshes the interaction clock without adding an entry.
func (s *Store) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ambient.LastInteraction = time.Now()
}

// Ambient returns a copy of the rolling ambient context.
func (s *Store) Ambient() AmbientContext {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ambient
}

// LastInteraction returns the time of the most recent user interaction.
func (s *Store) LastInteraction() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ambient.LastInteraction
}

// BuildContextPayload returns the bounded context for the response
// collaborator: the most recent entries (each truncated), the current
// emotion, activity flags, and a freshness-derived isUserActive.
func (s *Store) BuildContextPayload() ContextPayload {
	s.mu.RLock()

	start := len(s.entries) - s.config.ContextEntries
	if start < 0 {
		start = 0
	}
	payload := ContextPayload{
		Entries: make([]PayloadEntry, 0, len(s.entries)-start),
		Emotion: s.ambient,
	}
	for _, e := range s.entries[start:] {
		content := e.Content
		if len(content) > s.config.ContextCharLimit {
			content = content[:s.config.ContextCharLimit]
		}
		payload.Entries = append(payload.Entries, PayloadEntry{Type: e.Type, Content: content})
	}
	payload.IsUserActive = !s.ambient.LastInteraction.IsZero() &&
		time.Since(s.ambient.LastInteraction) < s.config.ActiveWindow
	flagsFn := s.flagsFn
	s.mu.RUnlock()

	if flagsFn != nil {
		payload.Flags = flagsFn()
	} else {
		payload.Flags = map[string]bool{}
	}
	return payload
}

// RecentHistory returns a copy of the n most recent entries (all when
// n <= 0).
func (s *Store) RecentHistory(n int) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 || n > len(s.entries) {
		n = len(s.entries)
	}
	out := make([]Entry, n)
	copy(out, s.entries[len(s.entries)-n:])
	return out
}

// Last returns the most recent entry, or nil when the log is empty.
func (s *Store) Last() *Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.entries) == 0 {
		return nil
	}
	e := s.entries[len(s.entries)-1]
	return &e
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// ClearHistory removes all entries. The ambient context is retained.
func (s *Store) ClearHistory() {
	s.mu.Lock()
	s.entries = make([]Entry, 0, s.config.MaxEntries)
	s.mu.Unlock()

	if s.events != nil {
		s.events.Publish(bus.Event{Type: bus.EventTypeHistoryCleared})
	}
}
