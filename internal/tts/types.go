// Package tts provides text-to-speech synthesis backends for voicetutor.
package tts

import (
	"context"
	"errors"
	"time"
)

// Common errors
var (
	ErrProviderUnavailable = errors.New("tts provider unavailable")
	ErrNoVoices            = errors.New("no voices available")
	ErrEmptyText           = errors.New("empty text")
)

// Provider is the interface all synthesis backends implement.
type Provider interface {
	// Name returns the provider identifier (e.g. "remote", "local").
	Name() string

	// IsAvailable reports whether the provider is configured and usable.
	IsAvailable() bool

	// Synthesize converts text to audio.
	Synthesize(ctx context.Context, req *SynthesizeRequest) (*SynthesizeResponse, error)

	// ListVoices returns the voices this provider can speak with.
	ListVoices(ctx context.Context) ([]Voice, error)

	// Health checks if the provider is reachable.
	Health(ctx context.Context) error
}

// SynthesizeRequest represents a synthesis request.
type SynthesizeRequest struct {
	Text     string  `json:"text"`
	VoiceID  string  `json:"voice_id"`
	Language string  `json:"language,omitempty"`
	Speed    float64 `json:"speed,omitempty"` // 0.5 to 2.0
}

// SynthesizeResponse represents a synthesis result.
type SynthesizeResponse struct {
	Audio          []byte        `json:"audio"`
	Format         string        `json:"format"`
	SampleRate     int           `json:"sample_rate"`
	ProcessingTime time.Duration `json:"processing_time"`
	VoiceID        string        `json:"voice_id"`
	Provider       string        `json:"provider"`
}

// Voice represents an available voice.
type Voice struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Language string `json:"language"`
	Local    bool   `json:"local"`
}

// SelectVoice picks a voice deterministically by a fixed preference order:
// the named preferred voice, then a language-matched local voice, then any
// local voice, then any voice matching the requested language, then the
// first available. Returns nil when voices is empty.
func SelectVoice(voices []Voice, preferred, language string) *Voice {
	if len(voices) == 0 {
		return nil
	}
	if preferred != "" {
		for i := range voices {
			if voices[i].ID == preferred || voices[i].Name == preferred {
				return &voices[i]
			}
		}
	}
	if language != "" {
		for i := range voices {
			if voices[i].Local && voices[i].Language == language {
				return &voices[i]
			}
		}
	}
	for i := range voices {
		if voices[i].Local {
			return &voices[i]
		}
	}
	if language != "" {
		for i := range voices {
			if voices[i].Language == language {
				return &voices[i]
			}
		}
	}
	return &voices[0]
}
