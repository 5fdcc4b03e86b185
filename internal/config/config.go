package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the immutable process configuration, read once at startup
// from the environment and injected into every component that needs it.
type Config struct {
	// ListenAddr is the HTTP listen address, e.g. ":5000".
	ListenAddr string

	// AssemblyAIKey authorizes requests to the AssemblyAI v2 API.
	AssemblyAIKey string

	// OpenAIKey is optional; when set, the service generates study
	// questions from each transcript.
	OpenAIKey string

	// YtDlpPath is the yt-dlp executable to invoke. Resolved through
	// PATH when it carries no directory component.
	YtDlpPath string

	// TempDir is where per-request audio files are written. Empty means
	// the system temp directory.
	TempDir string

	// Language is the transcription language code sent to AssemblyAI.
	Language string

	// ExtractTimeout bounds a single yt-dlp invocation.
	ExtractTimeout time.Duration

	// PollInterval is the initial delay between transcript status checks.
	PollInterval time.Duration

	// PollTimeout bounds the whole poll-until-terminal wait. The upstream
	// job keeps running if it fires; the request just gives up on it.
	PollTimeout time.Duration
}

const (
	defaultListenAddr     = ":5000"
	defaultYtDlpPath      = "yt-dlp"
	defaultLanguage       = "en"
	defaultExtractTimeout = 10 * time.Minute
	defaultPollInterval   = 2 * time.Second
	defaultPollTimeout    = 10 * time.Minute
)

// Load reads configuration from the environment, first loading a .env
// file when one is present in the working directory.
func Load() (Config, error) {
	// Missing .env is the normal production case.
	_ = godotenv.Load()

	cfg := Config{
		ListenAddr:     envOr("LISTEN_ADDR", defaultListenAddr),
		AssemblyAIKey:  strings.TrimSpace(os.Getenv("ASSEMBLYAI_API_KEY")),
		OpenAIKey:      strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		YtDlpPath:      envOr("YTDLP_PATH", defaultYtDlpPath),
		TempDir:        strings.TrimSpace(os.Getenv("AUDIO_TEMP_DIR")),
		Language:       envOr("TRANSCRIBE_LANGUAGE", defaultLanguage),
		ExtractTimeout: defaultExtractTimeout,
		PollInterval:   defaultPollInterval,
		PollTimeout:    defaultPollTimeout,
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" && os.Getenv("LISTEN_ADDR") == "" {
		cfg.ListenAddr = ":" + port
	}

	var err error
	if cfg.ExtractTimeout, err = envDuration("EXTRACT_TIMEOUT", cfg.ExtractTimeout); err != nil {
		return Config{}, err
	}
	if cfg.PollInterval, err = envDuration("TRANSCRIBE_POLL_INTERVAL", cfg.PollInterval); err != nil {
		return Config{}, err
	}
	if cfg.PollTimeout, err = envDuration("TRANSCRIBE_POLL_TIMEOUT", cfg.PollTimeout); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for values the service cannot run
// with.
func (c *Config) Validate() error {
	if c.AssemblyAIKey == "" {
		return fmt.Errorf("ASSEMBLYAI_API_KEY must be set")
	}

	if c.ListenAddr == "" {
		return fmt.Errorf("listen address cannot be empty")
	}

	if c.YtDlpPath == "" {
		return fmt.Errorf("yt-dlp path cannot be empty")
	}

	if c.Language == "" {
		return fmt.Errorf("transcription language cannot be empty")
	}

	if c.ExtractTimeout <= 0 {
		return fmt.Errorf("extract timeout must be positive, got %s", c.ExtractTimeout)
	}

	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.PollInterval)
	}

	if c.PollTimeout <= c.PollInterval {
		return fmt.Errorf("poll timeout (%s) must be greater than poll interval (%s)",
			c.PollTimeout, c.PollInterval)
	}

	return nil
}

// QuestionsEnabled reports whether the optional question generator
// should be constructed.
func (c *Config) QuestionsEnabled() bool {
	return c.OpenAIKey != ""
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}
