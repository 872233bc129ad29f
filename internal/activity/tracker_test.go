package activity

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestTracker_StartsInactive(t *testing.T) {
	tracker := NewTracker(DefaultConfig())
	defer tracker.Stop()

	if tracker.IsUserActive() {
		t.Error("expected new tracker to report inactive")
	}
	if !tracker.LastActivity().IsZero() {
		t.Error("expected zero last activity before any event")
	}
}

func TestTracker_RecordActivityMarksActive(t *testing.T) {
	tracker := NewTracker(DefaultConfig())
	defer tracker.Stop()

	tracker.RecordActivity()
	if !tracker.IsUserActive() {
		t.Error("expected active after RecordActivity")
	}
	if tracker.LastActivity().IsZero() {
		t.Error("expected last activity to be set")
	}
}

func TestTracker_IdleTimerFlipsActiveOff(t *testing.T) {
	tracker := NewTracker(Config{IdleThreshold: 30 * time.Millisecond})
	defer tracker.Stop()

	tracker.RecordActivity()
	time.Sleep(80 * time.Millisecond)

	if tracker.IsUserActive() {
		t.Error("expected idle after threshold elapsed")
	}
}

func TestTracker_ActivityReArmsIdleTimer(t *testing.T) {
	tracker := NewTracker(Config{IdleThreshold: 60 * time.Millisecond})
	defer tracker.Stop()

	tracker.RecordActivity()
	time.Sleep(40 * time.Millisecond)
	tracker.RecordActivity()
	time.Sleep(40 * time.Millisecond)

	// 80ms since the first event but only 40ms since the second.
	if !tracker.IsUserActive() {
		t.Error("expected still active, timer should have re-armed")
	}

	time.Sleep(50 * time.Millisecond)
	if tracker.IsUserActive() {
		t.Error("expected idle after the re-armed threshold elapsed")
	}
}

func TestTracker_TransitionHandlersFireOnEdges(t *testing.T) {
	tracker := NewTracker(Config{IdleThreshold: 30 * time.Millisecond})
	defer tracker.Stop()

	var actives, idles atomic.Int32
	tracker.SetHandlers(
		func() { actives.Add(1) },
		func() { idles.Add(1) },
	)

	tracker.RecordActivity()
	tracker.RecordActivity()
	tracker.RecordActivity()

	if got := actives.Load(); got != 1 {
		t.Errorf("expected one active transition for a burst of events, got %d", got)
	}

	time.Sleep(80 * time.Millisecond)
	if got := idles.Load(); got != 1 {
		t.Errorf("expected one idle transition, got %d", got)
	}
}

func TestTracker_ContextFlags(t *testing.T) {
	tracker := NewTracker(DefaultConfig())
	defer tracker.Stop()

	tracker.SetContextFlag("inLesson", true)
	tracker.SetContextFlag("inChat", false)

	if !tracker.ContextFlag("inLesson") {
		t.Error("expected inLesson flag set")
	}
	if tracker.IsUserActive() {
		t.Error("setting a flag must not mark the user active")
	}

	flags := tracker.ContextFlags()
	flags["inLesson"] = false
	if !tracker.ContextFlag("inLesson") {
		t.Error("expected ContextFlags to return a copy")
	}
}

func TestTracker_StopCancelsPendingTimer(t *testing.T) {
	tracker := NewTracker(Config{IdleThreshold: 20 * time.Millisecond})

	tracker.RecordActivity()
	tracker.Stop()
	time.Sleep(50 * time.Millisecond)

	// The idle flip is timer-driven; stopping leaves the flag as-is.
	if !tracker.IsUserActive() {
		t.Error("expected Stop to cancel the pending idle transition")
	}
}
