package logging

import (
	"os"
	"testing"
	"time"
)

func newTestLogger(t *testing.T) *Logger {
	t.Helper()
	l, err := New(&Config{
		LogDir:     t.TempDir(),
		Level:      LevelDebug,
		MaxHistory: 5,
		Console:    false,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestLogger_WritesToFile(t *testing.T) {
	l := newTestLogger(t)

	zl := l.Zerolog()
	zl.Info().Msg("hello from the test")

	data, err := os.ReadFile(l.Path())
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if len(data) == 0 {
		t.Error("expected log file to have content")
	}
}

func TestLogger_HistoryIsBounded(t *testing.T) {
	l := newTestLogger(t)

	zl := l.Zerolog()
	for i := 0; i < 10; i++ {
		zl.Info().Int("i", i).Msg("entry")
	}

	history := l.History(0)
	if len(history) != 5 {
		t.Errorf("expected history capped at 5, got %d", len(history))
	}

	limited := l.History(2)
	if len(limited) != 2 {
		t.Errorf("expected 2 entries with limit, got %d", len(limited))
	}
}

func TestLogger_OnEntryCallback(t *testing.T) {
	l := newTestLogger(t)

	got := make(chan Entry, 1)
	l.SetOnEntry(func(e Entry) {
		select {
		case got <- e:
		default:
		}
	})

	zl := l.Zerolog()
	zl.Warn().Msg("something happened")

	select {
	case e := <-got:
		if e.Level != "warn" {
			t.Errorf("expected warn level, got %q", e.Level)
		}
		if e.Message != "something happened" {
			t.Errorf("unexpected message %q", e.Message)
		}
	case <-time.After(time.Second):
		t.Fatal("entry callback was never invoked")
	}
}

func TestLogger_ComponentChildLogger(t *testing.T) {
	l := newTestLogger(t)

	child := l.Component("speech-engine")
	child.Info().Msg("component line")

	history := l.History(1)
	if len(history) != 1 || history[0].Message != "component line" {
		t.Errorf("expected component line in history, got %v", history)
	}
}
