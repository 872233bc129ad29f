package speech

import (
	"testing"
)

func TestChannel_RegisterElectsFirstSource(t *testing.T) {
	ch := NewChannel()

	if ch.IsAnySpeaking() {
		t.Error("expected new channel to be silent")
	}
	if got := ch.ActiveSource(); got != "" {
		t.Errorf("expected no active source, got %q", got)
	}

	if !ch.Register(SourceAvatar) {
		t.Error("expected first Register to return true")
	}
	if !ch.IsAnySpeaking() {
		t.Error("expected channel to be speaking after Register")
	}
	if got := ch.ActiveSource(); got != SourceAvatar {
		t.Errorf("expected active source %q, got %q", SourceAvatar, got)
	}
}

func TestChannel_RegisterIsIdempotent(t *testing.T) {
	ch := NewChannel()

	ch.Register(SourceChat)
	if ch.Register(SourceChat) {
		t.Error("expected duplicate Register to return false")
	}
	if got := len(ch.ActiveSources()); got != 1 {
		t.Errorf("expected 1 active source, got %d", got)
	}
}

func TestChannel_UnregisterReelectsNextInOrder(t *testing.T) {
	ch := NewChannel()

	ch.Register(SourceAvatar)
	ch.Register(SourceLessonNarrator)
	ch.Register(SourceKnowledgeCheck)

	if !ch.Unregister(SourceAvatar) {
		t.Error("expected Unregister of registered source to return true")
	}
	if got := ch.ActiveSource(); got != SourceLessonNarrator {
		t.Errorf("expected next source in arrival order to be elected, got %q", got)
	}

	ch.Unregister(SourceLessonNarrator)
	if got := ch.ActiveSource(); got != SourceKnowledgeCheck {
		t.Errorf("expected %q elected, got %q", SourceKnowledgeCheck, got)
	}

	ch.Unregister(SourceKnowledgeCheck)
	if ch.IsAnySpeaking() {
		t.Error("expected channel silent after all sources unregistered")
	}
}

func TestChannel_UnregisterAbsentSourceIsNoop(t *testing.T) {
	ch := NewChannel()

	ch.Register(SourceAvatar)
	if ch.Unregister(SourceChat) {
		t.Error("expected Unregister of absent source to return false")
	}
	if got := ch.ActiveSource(); got != SourceAvatar {
		t.Errorf("expected active source unchanged, got %q", got)
	}
}

func TestChannel_MiddleRemovalPreservesOrder(t *testing.T) {
	ch := NewChannel()

	ch.Register(SourceAvatar)
	ch.Register(SourceChat)
	ch.Register(SourceLessonNarrator)

	ch.Unregister(SourceChat)

	sources := ch.ActiveSources()
	if len(sources) != 2 || sources[0] != SourceAvatar || sources[1] != SourceLessonNarrator {
		t.Errorf("expected [avatar lesson-narrator], got %v", sources)
	}
	if !ch.IsActive(SourceAvatar) {
		t.Error("expected avatar to remain the elected source")
	}
}

func TestChannel_IsRegistered(t *testing.T) {
	ch := NewChannel()

	ch.Register(SourceAvatar)
	ch.Register(SourceChat)

	if !ch.IsRegistered(SourceChat) {
		t.Error("expected chat to be registered")
	}
	if ch.IsRegistered(SourceKnowledgeCheck) {
		t.Error("expected knowledge-check to be unregistered")
	}
}
