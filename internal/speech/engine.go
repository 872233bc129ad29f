package speech

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/normanking/voicetutor/internal/bus"
	"github.com/normanking/voicetutor/internal/tts"
)

// SpeakOptions adjusts a single Speak call.
type SpeakOptions struct {
	// OnStart fires once playback begins.
	OnStart func()
	// OnEnd fires exactly once when the utterance reaches a natural end:
	// playback completed, playback failed, synthesis failed, or the text
	// was silenced (empty or muted). Cancel does NOT fire OnEnd.
	OnEnd func()
	// Force speaks even when the avatar is muted.
	Force bool
	// Voice overrides the engine's default voice.
	Voice string
	// Language overrides the engine's default language.
	Language string
}

// Engine renders text to audio through an ordered chain of synthesis
// providers and registers the requesting source with the shared channel
// for the duration of playback. A source is never left registered after
// any outcome.
type Engine struct {
	channel   *Channel
	settings  *Settings
	providers []tts.Provider
	player    tts.Player
	events    *bus.EventBus
	logger    zerolog.Logger

	voice    string
	language string

	mu         sync.Mutex
	utterances map[SourceID]*utterance
}

type utterance struct {
	source    SourceID
	cancel    context.CancelFunc
	onEnd     func()
	once      sync.Once
	cancelled atomic.Bool
}

// NewEngine creates a speech engine. Providers are tried in order; the
// first that can initiate synthesis wins. player may be nil in tests
// (playback becomes a no-op).
func NewEngine(logger zerolog.Logger, channel *Channel, settings *Settings, player tts.Player, events *bus.EventBus, providers ...tts.Provider) *Engine {
	return &Engine{
		channel:    channel,
		settings:   settings,
		providers:  providers,
		player:     player,
		events:     events,
		logger:     logger.With().Str("component", "speech-engine").Logger(),
		utterances: make(map[SourceID]*utterance),
	}
}

// SetVoice sets the default voice and language for subsequent utterances.
func (e *Engine) SetVoice(voice, language string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.voice = voice
	e.language = language
}

// Speak synthesizes and plays text on behalf of source. It returns
// immediately; lifecycle is reported through the callbacks. Empty text
// and a muted avatar resolve to an asynchronous OnEnd without touching
// the channel. A new Speak for a source that is already speaking cancels
// the in-flight utterance first.
func (e *Engine) Speak(source SourceID, text string, opts SpeakOptions) {
	text = strings.TrimSpace(text)
	if text == "" {
		e.endAsync(opts.OnEnd)
		return
	}

	if source == SourceAvatar && e.settings != nil && e.settings.IsMuted() && !opts.Force {
		e.logger.Debug().Str("source", string(source)).Msg("muted, skipping utterance")
		e.endAsync(opts.OnEnd)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	u := &utterance{source: source, cancel: cancel, onEnd: opts.OnEnd}

	e.mu.Lock()
	if prev, ok := e.utterances[source]; ok {
		e.mu.Unlock()
		e.cancelUtterance(prev)
		e.mu.Lock()
	}
	e.utterances[source] = u
	e.mu.Unlock()

	go e.run(ctx, u, text, opts)
}

// run performs synthesis and playback for a single utterance.
func (e *Engine) run(ctx context.Context, u *utterance, text string, opts SpeakOptions) {
	voice := opts.Voice
	if voice == "" {
		voice = e.voice
	}
	language := opts.Language
	if language == "" {
		language = e.language
	}

	resp := e.synthesize(ctx, u, &tts.SynthesizeRequest{
		Text:     text,
		VoiceID:  voice,
		Language: language,
	})
	if resp == nil {
		// Every backend failed or the utterance was cancelled mid-synthesis.
		e.finish(u, !u.cancelled.Load())
		return
	}

	e.channel.Register(u.source)
	if e.events != nil {
		e.events.Publish(bus.Event{
			Type: bus.EventTypeSpeechStarted,
			Data: map[string]any{"source": string(u.source), "provider": resp.Provider},
		})
	}
	if opts.OnStart != nil {
		opts.OnStart()
	}

	if e.player != nil {
		if err := e.player.Play(ctx, resp); err != nil && ctx.Err() == nil {
			e.logger.Error().Err(err).Str("source", string(u.source)).Msg("playback failed")
		}
	}

	e.finish(u, !u.cancelled.Load())
}

// synthesize walks the provider chain and returns the first successful
// result, or nil when all backends fail.
func (e *Engine) synthesize(ctx context.Context, u *utterance, req *tts.SynthesizeRequest) *tts.SynthesizeResponse {
	for i, p := range e.providers {
		if ctx.Err() != nil {
			return nil
		}
		if !p.IsAvailable() {
			continue
		}
		resp, err := p.Synthesize(ctx, req)
		if err == nil {
			if i > 0 && e.events != nil {
				e.events.Publish(bus.Event{
					Type: bus.EventTypeSpeechFallback,
					Data: map[string]any{"source": string(u.source), "provider": p.Name()},
				})
			}
			return resp
		}
		e.logger.Warn().
			Err(err).
			Str("provider", p.Name()).
			Str("source", string(u.source)).
			Msg("synthesis failed, trying next backend")
	}
	return nil
}

// finish transitions an utterance to its terminal state exactly once:
// unregister from the channel, then (for natural completion only) OnEnd.
func (e *Engine) finish(u *utterance, invokeEnd bool) {
	u.once.Do(func() {
		e.mu.Lock()
		if e.utterances[u.source] == u {
			delete(e.utterances, u.source)
		}
		e.mu.Unlock()

		e.channel.Unregister(u.source)
		u.cancel()

		if e.events != nil {
			evt := bus.EventTypeSpeechEnded
			if !invokeEnd {
				evt = bus.EventTypeSpeechCancelled
			}
			e.events.Publish(bus.Event{
				Type: evt,
				Data: map[string]any{"source": string(u.source)},
			})
		}

		if invokeEnd && u.onEnd != nil {
			go u.onEnd()
		}
	})
}

// Cancel stops any in-flight utterance for source immediately and
// unregisters it. OnEnd is not invoked; cancellation is its own terminal
// state. Safe to call for a source that is not speaking.
func (e *Engine) Cancel(source SourceID) {
	e.mu.Lock()
	u, ok := e.utterances[source]
	e.mu.Unlock()
	if !ok {
		return
	}
	e.cancelUtterance(u)
}

func (e *Engine) cancelUtterance(u *utterance) {
	u.cancelled.Store(true)
	u.cancel()
	e.finish(u, false)
}

// IsSpeaking reports whether source currently holds the channel.
func (e *Engine) IsSpeaking(source SourceID) bool {
	return e.channel.IsRegistered(source)
}

func (e *Engine) endAsync(onEnd func()) {
	if onEnd != nil {
		go onEnd()
	}
}
