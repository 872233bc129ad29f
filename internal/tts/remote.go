package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// RemoteConfig holds remote TTS configuration.
type RemoteConfig struct {
	URL          string        `json:"url"`
	APIKey       string        `json:"api_key"`
	Model        string        `json:"model"`
	DefaultVoice string        `json:"default_voice"`
	Speed        float64       `json:"speed"`
	Timeout      time.Duration `json:"timeout"`
}

// DefaultRemoteConfig returns sensible defaults.
func DefaultRemoteConfig() *RemoteConfig {
	return &RemoteConfig{
		URL:          "https://api.openai.com/v1/audio/speech",
		Model:        "tts-1",
		DefaultVoice: "nova",
		Speed:        1.0,
		Timeout:      30 * time.Second,
	}
}

// RemoteProvider implements Provider against a networked synthesis API.
// It is the higher-quality primary backend; initiation failures are
// expected to be handled by falling back to the local provider.
type RemoteProvider struct {
	apiKey string
	client *http.Client
	logger zerolog.Logger
	config *RemoteConfig
}

// NewRemoteProvider creates a remote TTS provider. The API key comes from
// the config or the VOICETUTOR_TTS_API_KEY environment variable.
func NewRemoteProvider(logger zerolog.Logger, config *RemoteConfig) *RemoteProvider {
	if config == nil {
		config = DefaultRemoteConfig()
	}

	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("VOICETUTOR_TTS_API_KEY")
	}

	return &RemoteProvider{
		apiKey: apiKey,
		client: &http.Client{Timeout: config.Timeout},
		logger: logger.With().Str("provider", "remote-tts").Logger(),
		config: config,
	}
}

// Name returns the provider identifier.
func (p *RemoteProvider) Name() string {
	return "remote"
}

// IsAvailable reports whether an API key is configured.
func (p *RemoteProvider) IsAvailable() bool {
	return p.apiKey != "" && p.config.URL != ""
}

// remoteRequest is the request body for the synthesis API.
type remoteRequest struct {
	Model          string  `json:"model"`
	Input          string  `json:"input"`
	Voice          string  `json:"voice"`
	ResponseFormat string  `json:"response_format,omitempty"`
	Speed          float64 `json:"speed,omitempty"`
}

// Synthesize converts text to audio via the remote API.
func (p *RemoteProvider) Synthesize(ctx context.Context, req *SynthesizeRequest) (*SynthesizeResponse, error) {
	if !p.IsAvailable() {
		return nil, ErrProviderUnavailable
	}
	if req.Text == "" {
		return nil, ErrEmptyText
	}

	startTime := time.Now()

	voiceID := req.VoiceID
	if voiceID == "" {
		voiceID = p.config.DefaultVoice
	}
	speed := req.Speed
	if speed == 0 {
		speed = p.config.Speed
	}

	body, err := json.Marshal(remoteRequest{
		Model:          p.config.Model,
		Input:          req.Text,
		Voice:          voiceID,
		ResponseFormat: "mp3",
		Speed:          speed,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	p.logger.Debug().
		Str("voice", voiceID).
		Str("model", p.config.Model).
		Int("textLen", len(req.Text)).
		Msg("sending synthesis request")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("synthesis request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("synthesis failed: %d - %s", resp.StatusCode, string(msg))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}

	processingTime := time.Since(startTime)
	p.logger.Info().
		Str("voice", voiceID).
		Int("audioBytes", len(audio)).
		Dur("processingTime", processingTime).
		Msg("synthesis complete")

	return &SynthesizeResponse{
		Audio:          audio,
		Format:         "mp3",
		SampleRate:     24000,
		ProcessingTime: processingTime,
		VoiceID:        voiceID,
		Provider:       p.Name(),
	}, nil
}

// ListVoices returns the remote API's voice set.
func (p *RemoteProvider) ListVoices(ctx context.Context) ([]Voice, error) {
	return []Voice{
		{ID: "alloy", Name: "Alloy", Language: "en-US"},
		{ID: "echo", Name: "Echo", Language: "en-US"},
		{ID: "fable", Name: "Fable", Language: "en-GB"},
		{ID: "onyx", Name: "Onyx", Language: "en-US"},
		{ID: "nova", Name: "Nova", Language: "en-US"},
		{ID: "shimmer", Name: "Shimmer", Language: "en-US"},
	}, nil
}

// Health checks provider availability.
func (p *RemoteProvider) Health(ctx context.Context) error {
	if !p.IsAvailable() {
		return ErrProviderUnavailable
	}
	return nil
}
