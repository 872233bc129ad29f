// Package config provides configuration management for voicetutor.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Responder    ResponderConfig    `mapstructure:"responder"`
	TTS          TTSConfig          `mapstructure:"tts"`
	Conversation ConversationConfig `mapstructure:"conversation"`
	Activity     ActivityConfig     `mapstructure:"activity"`
	Coordinator  CoordinatorConfig  `mapstructure:"coordinator"`
	Emotion      EmotionConfig      `mapstructure:"emotion"`
	Tutor        TutorConfig        `mapstructure:"tutor"`
	Server       ServerConfig       `mapstructure:"server"`
}

// ResponderConfig configures the response-generation collaborator client.
type ResponderConfig struct {
	ServerURL string        `mapstructure:"server_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserID    string        `mapstructure:"user_id"`
}

// TTSConfig configures the speech synthesis chain.
type TTSConfig struct {
	RemoteEnabled bool          `mapstructure:"remote_enabled"`
	RemoteURL     string        `mapstructure:"remote_url"`
	APIKey        string        `mapstructure:"api_key"`
	Model         string        `mapstructure:"model"`
	VoiceID       string        `mapstructure:"voice_id"`
	Language      string        `mapstructure:"language"`
	Speed         float64       `mapstructure:"speed"`
	Timeout       time.Duration `mapstructure:"timeout"`
	LocalCommand  string        `mapstructure:"local_command"`
	LocalVoice    string        `mapstructure:"local_voice"`
}

// ConversationConfig configures the conversation store.
type ConversationConfig struct {
	MaxEntries       int           `mapstructure:"max_entries"`
	MaxEntryAge      time.Duration `mapstructure:"max_entry_age"`
	SweepInterval    time.Duration `mapstructure:"sweep_interval"`
	ContextEntries   int           `mapstructure:"context_entries"`
	ContextCharLimit int           `mapstructure:"context_char_limit"`
	ActiveWindow     time.Duration `mapstructure:"active_window"`
}

// ActivityConfig configures the user activity tracker.
type ActivityConfig struct {
	IdleThreshold time.Duration `mapstructure:"idle_threshold"`
}

// CoordinatorConfig configures response admission policy.
type CoordinatorConfig struct {
	EmotionCooldown  time.Duration `mapstructure:"emotion_cooldown"`
	IdleCooldown     time.Duration `mapstructure:"idle_cooldown"`
	DrainDelay       time.Duration `mapstructure:"drain_delay"`
	EmotionMinConf   float64       `mapstructure:"emotion_min_confidence"`
	EmotionFreshness time.Duration `mapstructure:"emotion_freshness"`
	Muted            bool          `mapstructure:"muted"`
	IdleResponses    bool          `mapstructure:"idle_responses"`
}

// EmotionConfig configures the external emotion collaborator stream.
type EmotionConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	StreamURL      string        `mapstructure:"stream_url"`
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay"`
}

// TutorConfig selects the avatar persona.
type TutorConfig struct {
	PersonaID string `mapstructure:"persona_id"`
}

// ServerConfig configures the UI-facing HTTP server.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// Persona represents a tutor persona.
type Persona struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	VoiceID string `json:"voice_id"`
}

// AvailablePersonas returns the built-in tutor personas.
func AvailablePersonas() []Persona {
	return []Persona{
		{ID: "maya", Name: "Maya", VoiceID: "nova"},
		{ID: "theo", Name: "Theo", VoiceID: "onyx"},
	}
}

// GetPersona returns a persona by ID, or nil when unknown.
func GetPersona(id string) *Persona {
	for _, p := range AvailablePersonas() {
		if p.ID == id {
			return &p
		}
	}
	return nil
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() *Config {
	return &Config{
		Responder: ResponderConfig{
			ServerURL: "http://localhost:8080",
			Timeout:   30 * time.Second,
			UserID:    "default-user",
		},
		TTS: TTSConfig{
			RemoteEnabled: true,
			RemoteURL:     "https://api.openai.com/v1/audio/speech",
			Model:         "tts-1",
			VoiceID:       "nova",
			Language:      "en-US",
			Speed:         1.0,
			Timeout:       30 * time.Second,
			LocalCommand:  "say",
		},
		Conversation: ConversationConfig{
			MaxEntries:       20,
			MaxEntryAge:      time.Hour,
			SweepInterval:    5 * time.Minute,
			ContextEntries:   8,
			ContextCharLimit: 500,
			ActiveWindow:     30 * time.Second,
		},
		Activity: ActivityConfig{
			IdleThreshold: 60 * time.Second,
		},
		Coordinator: CoordinatorConfig{
			EmotionCooldown:  15 * time.Second,
			IdleCooldown:     5 * time.Minute,
			DrainDelay:       time.Second,
			EmotionMinConf:   0.4,
			EmotionFreshness: 60 * time.Second,
			Muted:            false,
			IdleResponses:    true,
		},
		Emotion: EmotionConfig{
			Enabled:        true,
			StreamURL:      "ws://localhost:8090/emotion",
			ReconnectDelay: 5 * time.Second,
		},
		Tutor: TutorConfig{
			PersonaID: "maya",
		},
		Server: ServerConfig{
			Addr: ":8070",
		},
	}
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	configDir, err := Dir()
	if err != nil {
		return cfg, err
	}
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return cfg, err
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("VOICETUTOR")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return cfg, err
		}
		// No config file yet, write the defaults out.
		if err := Save(cfg); err != nil {
			return cfg, err
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Save writes the configuration to file.
func Save(cfg *Config) error {
	configDir, err := Dir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return err
	}

	viper.Set("responder", cfg.Responder)
	viper.Set("tts", cfg.TTS)
	viper.Set("conversation", cfg.Conversation)
	viper.Set("activity", cfg.Activity)
	viper.Set("coordinator", cfg.Coordinator)
	viper.Set("emotion", cfg.Emotion)
	viper.Set("tutor", cfg.Tutor)
	viper.Set("server", cfg.Server)

	return viper.WriteConfigAs(filepath.Join(configDir, "config.yaml"))
}

// Dir returns the configuration directory path.
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".voicetutor"), nil
}
