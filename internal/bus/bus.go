// Package bus provides an internal event bus for component communication.
package bus

import (
	"sync"
)

// EventType identifies different event types.
type EventType string

// Event types published by the voicetutor core.
const (
	// Speech events
	EventTypeSpeechStarted   EventType = "speech.started"
	EventTypeSpeechEnded     EventType = "speech.ended"
	EventTypeSpeechCancelled EventType = "speech.cancelled"
	EventTypeSpeechFallback  EventType = "speech.fallback"

	// Coordinator events
	EventTypeResponseQueued EventType = "coordinator.response_queued"
	EventTypeResponseDenied EventType = "coordinator.response_denied"
	EventTypeQueueDrained   EventType = "coordinator.queue_drained"
	EventTypeGreeted        EventType = "coordinator.greeted"

	// Conversation events
	EventTypeEntryAppended  EventType = "conversation.entry_appended"
	EventTypeHistoryCleared EventType = "conversation.history_cleared"

	// Emotion events
	EventTypeEmotionChanged EventType = "emotion.changed"

	// Activity events
	EventTypeUserActive EventType = "activity.user_active"
	EventTypeUserIdle   EventType = "activity.user_idle"

	// Settings events
	EventTypeMuteChanged          EventType = "settings.mute_changed"
	EventTypeIdleResponsesChanged EventType = "settings.idle_responses_changed"
)

// Event represents a bus event.
type Event struct {
	Type EventType
	Data map[string]any
}

// Handler is a function that handles events.
type Handler func(Event)

// EventBus is a simple pub/sub event bus.
type EventBus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewEventBus creates a new event bus.
func NewEventBus() *EventBus {
	return &EventBus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for an event type.
func (b *EventBus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// SubscribeMultiple adds a handler for multiple event types.
func (b *EventBus) SubscribeMultiple(eventTypes []EventType, handler Handler) {
	for _, et := range eventTypes {
		b.Subscribe(et, handler)
	}
}

// Publish sends an event to all subscribed handlers without blocking the
// publisher.
func (b *EventBus) Publish(event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type]))
	copy(handlers, b.handlers[event.Type])
	b.mu.RUnlock()

	for _, handler := range handlers {
		go handler(event)
	}
}

// PublishSync sends an event and waits for all handlers to complete.
func (b *EventBus) PublishSync(event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type]))
	copy(handlers, b.handlers[event.Type])
	b.mu.RUnlock()

	var wg sync.WaitGroup
	for _, handler := range handlers {
		wg.Add(1)
		go func(h Handler) {
			defer wg.Done()
			h(event)
		}(handler)
	}
	wg.Wait()
}

// Clear removes all handlers.
func (b *EventBus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = make(map[EventType][]Handler)
}
