package tts

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/rs/zerolog"
)

// Player plays synthesized audio. Play blocks until playback completes,
// the context is cancelled, or playback fails.
type Player interface {
	Play(ctx context.Context, resp *SynthesizeResponse) error
}

// CommandPlayer plays audio through an external player binary.
type CommandPlayer struct {
	command string
	logger  zerolog.Logger
}

// NewCommandPlayer creates a player using the given binary, or the
// platform default when empty (afplay on macOS, ffplay elsewhere).
func NewCommandPlayer(logger zerolog.Logger, command string) *CommandPlayer {
	if command == "" {
		if runtime.GOOS == "darwin" {
			command = "afplay"
		} else {
			command = "ffplay"
		}
	}
	return &CommandPlayer{
		command: command,
		logger:  logger.With().Str("component", "player").Logger(),
	}
}

// Play writes the audio to a temp file and hands it to the player binary.
func (p *CommandPlayer) Play(ctx context.Context, resp *SynthesizeResponse) error {
	if resp == nil || len(resp.Audio) == 0 {
		return nil
	}

	tmpFile, err := os.CreateTemp("", "voicetutor-play-*."+resp.Format)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	if _, err := tmpFile.Write(resp.Audio); err != nil {
		tmpFile.Close()
		return fmt.Errorf("write audio: %w", err)
	}
	tmpFile.Close()

	args := []string{tmpPath}
	if p.command == "ffplay" {
		args = []string{"-nodisp", "-autoexit", "-loglevel", "quiet", tmpPath}
	}

	p.logger.Debug().
		Str("player", p.command).
		Int("audioBytes", len(resp.Audio)).
		Msg("starting playback")

	cmd := exec.CommandContext(ctx, p.command, args...)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("playback: %w", err)
	}
	return nil
}
