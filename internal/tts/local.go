// Local synthesis via the platform speech command. This is the
// lower-quality fallback backend; it needs no network or API key.
package tts

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// LocalConfig holds local TTS configuration.
type LocalConfig struct {
	Command        string `json:"command"`         // synthesis binary (default "say")
	PreferredVoice string `json:"preferred_voice"` // named preferred voice
	Language       string `json:"language"`        // requested language
	Rate           int    `json:"rate"`            // words per minute
}

// DefaultLocalConfig returns sensible defaults.
func DefaultLocalConfig() *LocalConfig {
	return &LocalConfig{
		Command:  "say",
		Language: "en-US",
		Rate:     175,
	}
}

// LocalProvider implements Provider using the platform speech command.
type LocalProvider struct {
	logger zerolog.Logger
	config *LocalConfig
	voices []Voice
}

// localVoices is the built-in voice table for the platform command.
// Installed system voices are marked local; the trailing entries are
// downloadable voices, kept non-local so selection prefers installed ones.
var localVoices = []Voice{
	{ID: "Samantha", Name: "Samantha", Language: "en-US", Local: true},
	{ID: "Daniel", Name: "Daniel", Language: "en-GB", Local: true},
	{ID: "Alex", Name: "Alex", Language: "en-US", Local: true},
	{ID: "Karen", Name: "Karen", Language: "en-AU", Local: true},
	{ID: "Amelie", Name: "Amelie", Language: "fr-FR", Local: true},
	{ID: "Serena", Name: "Serena", Language: "en-GB", Local: false},
	{ID: "Victoria", Name: "Victoria", Language: "en-US", Local: false},
}

// NewLocalProvider creates a local TTS provider.
func NewLocalProvider(logger zerolog.Logger, config *LocalConfig) *LocalProvider {
	if config == nil {
		config = DefaultLocalConfig()
	}

	return &LocalProvider{
		logger: logger.With().Str("provider", "local-tts").Logger(),
		config: config,
		voices: localVoices,
	}
}

// Name returns the provider identifier.
func (p *LocalProvider) Name() string {
	return "local"
}

// IsAvailable checks that the speech command exists on this system.
func (p *LocalProvider) IsAvailable() bool {
	_, err := exec.LookPath(p.config.Command)
	return err == nil
}

// Synthesize converts text to audio using the platform speech command,
// selecting a voice deterministically via SelectVoice.
func (p *LocalProvider) Synthesize(ctx context.Context, req *SynthesizeRequest) (*SynthesizeResponse, error) {
	if !p.IsAvailable() {
		return nil, ErrProviderUnavailable
	}
	if req.Text == "" {
		return nil, ErrEmptyText
	}

	startTime := time.Now()

	language := req.Language
	if language == "" {
		language = p.config.Language
	}
	preferred := req.VoiceID
	if preferred == "" {
		preferred = p.config.PreferredVoice
	}
	voice := SelectVoice(p.voices, preferred, language)
	if voice == nil {
		return nil, ErrNoVoices
	}

	tmpFile, err := os.CreateTemp("", "voicetutor-*.aiff")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	defer os.Remove(tmpPath)

	args := []string{"-v", voice.ID, "-o", tmpPath}
	if p.config.Rate > 0 {
		args = append(args, "-r", strconv.Itoa(p.config.Rate))
	}
	args = append(args, req.Text)

	p.logger.Debug().
		Str("voice", voice.ID).
		Int("textLen", len(req.Text)).
		Msg("synthesizing with local command")

	cmd := exec.CommandContext(ctx, p.config.Command, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		p.logger.Error().Err(err).Str("output", string(output)).Msg("local synthesis failed")
		return nil, fmt.Errorf("%s failed: %w", p.config.Command, err)
	}

	audio, err := os.ReadFile(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("read audio file: %w", err)
	}

	processingTime := time.Since(startTime)
	p.logger.Info().
		Str("voice", voice.ID).
		Int("audioBytes", len(audio)).
		Dur("processingTime", processingTime).
		Msg("local synthesis complete")

	return &SynthesizeResponse{
		Audio:          audio,
		Format:         "aiff",
		SampleRate:     22050,
		ProcessingTime: processingTime,
		VoiceID:        voice.ID,
		Provider:       p.Name(),
	}, nil
}

// ListVoices returns the built-in voice table.
func (p *LocalProvider) ListVoices(ctx context.Context) ([]Voice, error) {
	out := make([]Voice, len(p.voices))
	copy(out, p.voices)
	return out, nil
}

// Health checks if the speech command is present.
func (p *LocalProvider) Health(ctx context.Context) error {
	if !p.IsAvailable() {
		return ErrProviderUnavailable
	}
	return nil
}
