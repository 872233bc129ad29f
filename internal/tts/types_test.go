package tts

import (
	"testing"
)

var selectionVoices = []Voice{
	{ID: "Serena", Name: "Serena", Language: "en-GB", Local: false},
	{ID: "Amelie", Name: "Amelie", Language: "fr-FR", Local: true},
	{ID: "Samantha", Name: "Samantha", Language: "en-US", Local: true},
	{ID: "Victoria", Name: "Victoria", Language: "en-US", Local: false},
}

func TestSelectVoice_PreferredNameWins(t *testing.T) {
	v := SelectVoice(selectionVoices, "Samantha", "fr-FR")
	if v == nil || v.ID != "Samantha" {
		t.Fatalf("expected preferred voice Samantha, got %v", v)
	}
}

func TestSelectVoice_UnknownPreferredFallsThrough(t *testing.T) {
	v := SelectVoice(selectionVoices, "Nonexistent", "en-US")
	if v == nil || v.ID != "Samantha" {
		t.Fatalf("expected language-matched local voice, got %v", v)
	}
}

func TestSelectVoice_LanguageMatchedLocalBeforeAnyLocal(t *testing.T) {
	v := SelectVoice(selectionVoices, "", "fr-FR")
	if v == nil || v.ID != "Amelie" {
		t.Fatalf("expected Amelie for fr-FR, got %v", v)
	}
}

func TestSelectVoice_AnyLocalBeforeLanguageMatch(t *testing.T) {
	// No local voice speaks en-GB; a local voice still wins over the
	// non-local language match.
	v := SelectVoice(selectionVoices, "", "en-GB")
	if v == nil || !v.Local {
		t.Fatalf("expected a local voice, got %v", v)
	}
}

func TestSelectVoice_LanguageMatchWhenNoLocal(t *testing.T) {
	voices := []Voice{
		{ID: "Serena", Language: "en-GB"},
		{ID: "Victoria", Language: "en-US"},
	}
	v := SelectVoice(voices, "", "en-US")
	if v == nil || v.ID != "Victoria" {
		t.Fatalf("expected Victoria for en-US, got %v", v)
	}
}

func TestSelectVoice_FirstAsLastResort(t *testing.T) {
	voices := []Voice{
		{ID: "Serena", Language: "en-GB"},
		{ID: "Victoria", Language: "en-US"},
	}
	v := SelectVoice(voices, "", "de-DE")
	if v == nil || v.ID != "Serena" {
		t.Fatalf("expected first voice as last resort, got %v", v)
	}
}

func TestSelectVoice_EmptyList(t *testing.T) {
	if v := SelectVoice(nil, "Samantha", "en-US"); v != nil {
		t.Fatalf("expected nil for empty voice list, got %v", v)
	}
}
