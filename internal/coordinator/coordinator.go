// Package coordinator implements the top-level response policy engine:
// admission (now / later / never), rate limiting, generation via the
// external collaborator, and hand-off to the speech engine.
package coordinator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/normanking/voicetutor/internal/activity"
	"github.com/normanking/voicetutor/internal/bus"
	"github.com/normanking/voicetutor/internal/conversation"
	"github.com/normanking/voicetutor/internal/emotion"
	"github.com/normanking/voicetutor/internal/responder"
	"github.com/normanking/voicetutor/internal/speech"
)

// ResponseType classifies what triggered a response request.
type ResponseType string

const (
	TypeChat         ResponseType = "chat"
	TypeIdle         ResponseType = "idle"
	TypeEmotionAware ResponseType = "emotion-aware"
	TypeGreeting     ResponseType = "greeting"
)

// Priority adjusts admission. High bypasses the someone-is-speaking
// check; there is no preemption of an in-flight utterance.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Request is a candidate response.
type Request struct {
	Input     string
	Type      ResponseType
	UserInfo  responder.UserInfo
	Force     bool
	Priority  Priority
	Timestamp time.Time
}

// OutcomeStatus is the admission result.
type OutcomeStatus string

const (
	OutcomeSpoken OutcomeStatus = "spoken"
	OutcomeQueued OutcomeStatus = "queued"
	OutcomeDenied OutcomeStatus = "denied"
)

// Outcome reports what happened to a request. Denials are not errors;
// the user hears either an utterance or silence, never an exception.
type Outcome struct {
	Status OutcomeStatus `json:"status"`
	Text   string        `json:"text,omitempty"`
	Reason string        `json:"reason,omitempty"`
}

// Generator produces response text from a prompt and bounded context.
// *responder.Client satisfies it.
type Generator interface {
	Generate(ctx context.Context, prompt, reqType string, user responder.UserInfo, payload conversation.ContextPayload) (string, error)
}

// Speaker renders text to audio. *speech.Engine satisfies it.
type Speaker interface {
	Speak(source speech.SourceID, text string, opts speech.SpeakOptions)
	Cancel(source speech.SourceID)
}

// Config configures the admission policy.
type Config struct {
	// EmotionCooldown is the minimum spacing between emotion-aware
	// responses (default 15s).
	EmotionCooldown time.Duration
	// IdleCooldown is the minimum spacing between idle responses
	// (default 5m).
	IdleCooldown time.Duration
	// DrainDelay is the pause before a queued request is resubmitted
	// after the active utterance ends (default 1s).
	DrainDelay time.Duration
	// EmotionMinConfidence gates emotion-aware triggers (default 0.4).
	EmotionMinConfidence float64
	// EmotionFreshness suppresses emotional reactions once the user has
	// been away longer than this (default 60s).
	EmotionFreshness time.Duration
}

// DefaultConfig returns the standard policy constants.
func DefaultConfig() Config {
	return Config{
		EmotionCooldown:      15 * time.Second,
		IdleCooldown:         5 * time.Minute,
		DrainDelay:           time.Second,
		EmotionMinConfidence: 0.4,
		EmotionFreshness:     60 * time.Second,
	}
}

// fallbackText is spoken when the response collaborator fails. It is
// recorded as a regular assistant turn.
const fallbackText = "Oops, my circuits got tangled for a moment there. Give me a second and ask me again!"

// Canned idle prompts, most specific first.
const (
	idlePromptEmotion  = "The learner has gone quiet and seems to be feeling %s. Gently check in on them."
	idlePromptFollowUp = "The learner asked something recently but has gone quiet. Offer a friendly nudge about their last question."
	idlePromptDefault  = "The learner has been quiet for a while. Offer an encouraging remark or a light study tip."
)

const greetingPrompt = "Greet the learner warmly and offer to help with their lesson."

const emotionPrompt = "The learner now appears to be feeling %s. React briefly and supportively without making it awkward."

// Coordinator is the response policy engine. States: idle -> processing
// -> (success | fallback) -> idle. One generation runs at a time; a
// concurrent request is queued rather than rejected.
type Coordinator struct {
	config    Config
	channel   *speech.Channel
	settings  *speech.Settings
	tracker   *activity.Tracker
	store     *conversation.Store
	generator Generator
	speaker   Speaker
	events    *bus.EventBus
	logger    zerolog.Logger
	queue     *PendingQueue

	mu                  sync.Mutex
	processing          bool
	hasGreeted          bool
	lastEmotionResponse time.Time
	lastIdleResponse    time.Time
}

// New creates a Coordinator. All collaborators are required except
// events.
func New(logger zerolog.Logger, config Config, channel *speech.Channel, settings *speech.Settings, tracker *activity.Tracker, store *conversation.Store, generator Generator, speaker Speaker, events *bus.EventBus) *Coordinator {
	if config.EmotionCooldown <= 0 {
		config.EmotionCooldown = 15 * time.Second
	}
	if config.IdleCooldown <= 0 {
		config.IdleCooldown = 5 * time.Minute
	}
	if config.DrainDelay <= 0 {
		config.DrainDelay = time.Second
	}
	if config.EmotionMinConfidence <= 0 {
		config.EmotionMinConfidence = 0.4
	}
	if config.EmotionFreshness <= 0 {
		config.EmotionFreshness = 60 * time.Second
	}

	return &Coordinator{
		config:    config,
		channel:   channel,
		settings:  settings,
		tracker:   tracker,
		store:     store,
		generator: generator,
		speaker:   speaker,
		events:    events,
		logger:    logger.With().Str("component", "coordinator").Logger(),
		queue:     NewPendingQueue(),
	}
}

// Respond runs a request through admission, generation, and speech.
func (c *Coordinator) Respond(ctx context.Context, req Request) Outcome {
	if req.Timestamp.IsZero() {
		req.Timestamp = time.Now()
	}
	if req.Priority == "" {
		req.Priority = PriorityNormal
	}

	if !req.Force {
		if denied, reason := c.admit(req); denied {
			c.logger.Debug().
				Str("type", string(req.Type)).
				Str("reason", reason).
				Msg("response denied")
			if c.events != nil {
				c.events.Publish(bus.Event{
					Type: bus.EventTypeResponseDenied,
					Data: map[string]any{"type": string(req.Type), "reason": reason},
				})
			}
			return Outcome{Status: OutcomeDenied, Reason: reason}
		}
	}

	c.mu.Lock()
	if c.processing {
		c.mu.Unlock()
		c.queue.Push(req)
		c.logger.Debug().Str("type", string(req.Type)).Int("queueLen", c.queue.Len()).Msg("response queued")
		if c.events != nil {
			c.events.Publish(bus.Event{
				Type: bus.EventTypeResponseQueued,
				Data: map[string]any{"type": string(req.Type)},
			})
		}
		return Outcome{Status: OutcomeQueued}
	}
	c.processing = true
	c.mu.Unlock()

	text := c.generate(ctx, req)

	c.mu.Lock()
	if text != "" {
		switch req.Type {
		case TypeEmotionAware:
			c.lastEmotionResponse = time.Now()
		case TypeIdle:
			c.lastIdleResponse = time.Now()
		}
	}
	c.processing = false
	c.mu.Unlock()

	if text == "" {
		// Nothing to speak, so no utterance end will drain the queue.
		c.drainAfterDelay()
		return Outcome{Status: OutcomeDenied, Reason: "empty response"}
	}

	c.speaker.Speak(speech.SourceAvatar, text, speech.SpeakOptions{
		Force: req.Force,
		OnEnd: c.drainAfterDelay,
	})
	return Outcome{Status: OutcomeSpoken, Text: text}
}

// admit applies the non-forced admission rules. Returns (true, reason)
// on denial.
func (c *Coordinator) admit(req Request) (bool, string) {
	if c.channel.IsAnySpeaking() && req.Priority != PriorityHigh {
		return true, "channel busy"
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	switch req.Type {
	case TypeEmotionAware:
		if !c.lastEmotionResponse.IsZero() && time.Since(c.lastEmotionResponse) < c.config.EmotionCooldown {
			return true, "emotion cooldown"
		}
	case TypeIdle:
		if !c.lastIdleResponse.IsZero() && time.Since(c.lastIdleResponse) < c.config.IdleCooldown {
			return true, "idle cooldown"
		}
	}
	return false, ""
}

// generate builds the bounded context, calls the collaborator, and
// records both sides of the exchange. Collaborator failure yields the
// fixed fallback utterance instead of an error.
func (c *Coordinator) generate(ctx context.Context, req Request) string {
	payload := c.store.BuildContextPayload()

	reqType := responder.TypeAvatarResponse
	if req.Type == TypeChat {
		reqType = responder.TypeChat
	}

	text, err := c.generator.Generate(ctx, req.Input, reqType, req.UserInfo, payload)
	if err != nil {
		c.logger.Error().Err(err).Str("type", string(req.Type)).Msg("generation failed, using fallback")
		text = fallbackText
	}
	text = strings.TrimSpace(text)

	// Direct chat records a user turn; system-initiated prompts are
	// logged as system turns so the context stays honest about who spoke.
	if req.Type == TypeChat {
		c.store.Append(conversation.EntryUser, req.Input, map[string]any{"responseType": string(req.Type)})
	} else {
		c.store.Append(conversation.EntrySystem, req.Input, map[string]any{"responseType": string(req.Type)})
	}
	if text != "" {
		c.store.Append(conversation.EntryAssistant, text, map[string]any{"responseType": string(req.Type)})
	}
	return text
}

// drainAfterDelay pops the oldest queued request and resubmits it
// through the normal admission path, demoted to low priority, after the
// configured delay.
func (c *Coordinator) drainAfterDelay() {
	req := c.queue.Pop()
	if req == nil {
		return
	}

	time.AfterFunc(c.config.DrainDelay, func() {
		req.Force = false
		req.Priority = PriorityLow
		c.Respond(context.Background(), *req)
		if c.events != nil {
			c.events.Publish(bus.Event{
				Type: bus.EventTypeQueueDrained,
				Data: map[string]any{"remaining": c.queue.Len()},
			})
		}
	})
}

// HandleUserChat services a direct chat message. Chat is high priority:
// it may be admitted while the avatar is already speaking (queued behind
// any in-flight generation, never overlapped on the channel).
func (c *Coordinator) HandleUserChat(ctx context.Context, message string, user responder.UserInfo) Outcome {
	c.tracker.RecordActivity()
	return c.Respond(ctx, Request{
		Input:    message,
		Type:     TypeChat,
		UserInfo: user,
		Priority: PriorityHigh,
	})
}

// canAvatarBeIdle gates unprompted idle speech.
func (c *Coordinator) canAvatarBeIdle() bool {
	return c.settings.IdleResponsesEnabled() &&
		!c.settings.IsMuted() &&
		!c.channel.IsAnySpeaking() &&
		!c.tracker.IsUserActive()
}

// HandleIdleCheck fires when the UI's idle timer elapses. The prompt is
// picked by precedence: current non-neutral emotion, then an unanswered
// user turn, then the generic default.
func (c *Coordinator) HandleIdleCheck(ctx context.Context, user responder.UserInfo) Outcome {
	if !c.canAvatarBeIdle() {
		return Outcome{Status: OutcomeDenied, Reason: "idle responses unavailable"}
	}

	ambient := c.store.Ambient()
	prompt := idlePromptDefault
	if ambient.Emotion != "" && ambient.Emotion != emotion.Neutral {
		prompt = fmt.Sprintf(idlePromptEmotion, ambient.Emotion)
	} else if last := c.store.Last(); last != nil && last.Type == conversation.EntryUser {
		prompt = idlePromptFollowUp
	}

	return c.Respond(ctx, Request{
		Input:    prompt,
		Type:     TypeIdle,
		UserInfo: user,
		Priority: PriorityNormal,
	})
}

// HandleEmotionAware reacts to a detected emotion change. It requires a
// confident reading and a recent interaction; the user being merely
// not-yet-idle is not enough.
func (c *Coordinator) HandleEmotionAware(ctx context.Context, user responder.UserInfo) Outcome {
	ambient := c.store.Ambient()
	if ambient.Confidence <= c.config.EmotionMinConfidence {
		return Outcome{Status: OutcomeDenied, Reason: "low confidence"}
	}
	last := c.store.LastInteraction()
	if last.IsZero() || time.Since(last) > c.config.EmotionFreshness {
		return Outcome{Status: OutcomeDenied, Reason: "user away"}
	}

	return c.Respond(ctx, Request{
		Input:    fmt.Sprintf(emotionPrompt, ambient.Emotion),
		Type:     TypeEmotionAware,
		UserInfo: user,
		Priority: PriorityNormal,
	})
}

// HandleGreeting speaks the one-shot session greeting. The latch is set
// before generation begins so re-entrant calls cannot double-greet, and
// the processing flag is always restored.
func (c *Coordinator) HandleGreeting(ctx context.Context, user responder.UserInfo) Outcome {
	c.mu.Lock()
	if c.hasGreeted {
		c.mu.Unlock()
		return Outcome{Status: OutcomeDenied, Reason: "already greeted"}
	}
	if c.processing || c.channel.IsAnySpeaking() {
		c.mu.Unlock()
		return Outcome{Status: OutcomeDenied, Reason: "busy"}
	}
	c.hasGreeted = true
	c.processing = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.processing = false
		c.mu.Unlock()
	}()

	text := c.generate(ctx, Request{
		Input:    greetingPrompt,
		Type:     TypeGreeting,
		UserInfo: user,
	})
	if text == "" {
		return Outcome{Status: OutcomeDenied, Reason: "empty response"}
	}

	c.speaker.Speak(speech.SourceAvatar, text, speech.SpeakOptions{
		OnEnd: c.drainAfterDelay,
	})
	if c.events != nil {
		c.events.Publish(bus.Event{Type: bus.EventTypeGreeted})
	}
	return Outcome{Status: OutcomeSpoken, Text: text}
}

// HasGreeted reports whether the session greeting has been spoken.
func (c *Coordinator) HasGreeted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasGreeted
}

// QueueLen returns the number of deferred requests.
func (c *Coordinator) QueueLen() int {
	return c.queue.Len()
}
